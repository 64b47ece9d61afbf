package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/internal/model"
)

type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetOrCreate 读取用户偏好，不存在时按默认值落库后返回
func (r *PreferenceRepository) GetOrCreate(userID int64) (*model.UserPreference, error) {
	var pref model.UserPreference
	err := r.db.Where("user_id = ?", userID).First(&pref).Error
	if err == nil {
		return &pref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := model.DefaultPreference(userID)
	if err := r.db.Create(fresh).Error; err != nil {
		// 并发首次访问时可能撞唯一索引，回读即可
		var existing model.UserPreference
		if readErr := r.db.Where("user_id = ?", userID).First(&existing).Error; readErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return fresh, nil
}

func (r *PreferenceRepository) Update(pref *model.UserPreference) error {
	return r.db.Save(pref).Error
}

func (r *PreferenceRepository) UpdateFields(userID int64, fields map[string]interface{}) error {
	return r.db.Model(&model.UserPreference{}).Where("user_id = ?", userID).Updates(fields).Error
}

// ListAutoGenerate 返回开启自动生成的全部偏好
func (r *PreferenceRepository) ListAutoGenerate() ([]*model.UserPreference, error) {
	var prefs []*model.UserPreference
	err := r.db.Where("auto_generate = ?", true).Order("user_id ASC").Find(&prefs).Error
	return prefs, err
}
