package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/reflect_go_server/internal/model"
)

type WeekRepository struct {
	db *gorm.DB
}

func NewWeekRepository(db *gorm.DB) *WeekRepository {
	return &WeekRepository{db: db}
}

// Upsert 按 (user_id, week_number, year, source_id) 覆盖写入归并结果
func (r *WeekRepository) Upsert(week *model.ConsolidatedWeek) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "week_number"}, {Name: "year"}, {Name: "source_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"unavailable", "raw_data", "themes", "updated_at"}),
	}).Create(week).Error
}

// ListForWeek 返回某用户某周全部数据源的归并结果
func (r *WeekRepository) ListForWeek(userID int64, year, week int) ([]*model.ConsolidatedWeek, error) {
	var weeks []*model.ConsolidatedWeek
	err := r.db.Where("user_id = ? AND year = ? AND week_number = ?", userID, year, week).
		Order("source_id ASC").
		Find(&weeks).Error
	return weeks, err
}

func (r *WeekRepository) GetBySource(userID int64, year, week int, sourceID string) (*model.ConsolidatedWeek, error) {
	var cw model.ConsolidatedWeek
	err := r.db.Where(
		"user_id = ? AND year = ? AND week_number = ? AND source_id = ?",
		userID, year, week, sourceID,
	).First(&cw).Error
	if err != nil {
		return nil, err
	}
	return &cw, nil
}

func (r *WeekRepository) DeleteForWeek(userID int64, year, week int) error {
	return r.db.Where("user_id = ? AND year = ? AND week_number = ?", userID, year, week).
		Delete(&model.ConsolidatedWeek{}).Error
}
