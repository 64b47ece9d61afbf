package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/reflect_go_server/internal/model"
)

type DraftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Create 写入草稿。(user_id, week_number, year) 已有草稿时不覆盖，
// 返回 false，由调用方按重复处理。唯一索引是并发下的最终裁决。
func (r *DraftRepository) Create(draft *model.DraftReflection) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "week_number"}, {Name: "year"},
		},
		DoNothing: true,
	}).Create(draft)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExistsForWeek 某用户某周是否已有草稿
func (r *DraftRepository) ExistsForWeek(userID int64, year, week int) (bool, error) {
	var count int64
	err := r.db.Model(&model.DraftReflection{}).
		Where("user_id = ? AND year = ? AND week_number = ?", userID, year, week).
		Count(&count).Error
	return count > 0, err
}

func (r *DraftRepository) GetByWeek(userID int64, year, week int) (*model.DraftReflection, error) {
	var draft model.DraftReflection
	err := r.db.Where("user_id = ? AND year = ? AND week_number = ?", userID, year, week).
		First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *DraftRepository) GetByID(id int64) (*model.DraftReflection, error) {
	var draft model.DraftReflection
	err := r.db.Where("id = ?", id).First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// ListByUser 按年和周倒序分页
func (r *DraftRepository) ListByUser(userID int64, limit, offset int) ([]*model.DraftReflection, error) {
	var drafts []*model.DraftReflection
	err := r.db.Where("user_id = ?", userID).
		Order("year DESC, week_number DESC").
		Limit(limit).Offset(offset).
		Find(&drafts).Error
	return drafts, err
}

// UpdateArchiveURL 记录归档文件地址
func (r *DraftRepository) UpdateArchiveURL(id int64, url string) error {
	return r.db.Model(&model.DraftReflection{}).Where("id = ?", id).
		Update("archive_url", url).Error
}
