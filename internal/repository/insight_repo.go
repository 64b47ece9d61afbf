package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/internal/model"
)

type InsightRepository struct {
	db *gorm.DB
}

func NewInsightRepository(db *gorm.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

func (r *InsightRepository) Create(insight *model.InsightRecord) error {
	return r.db.Create(insight).Error
}

// GetSince 返回某时间之后的洞察，生成 prompt 时作为上下文
func (r *InsightRepository) GetSince(userID int64, since time.Time) ([]*model.InsightRecord, error) {
	var insights []*model.InsightRecord
	err := r.db.Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Find(&insights).Error
	return insights, err
}

// GetRecent 返回最近的若干条洞察
func (r *InsightRepository) GetRecent(userID int64, limit int) ([]*model.InsightRecord, error) {
	var insights []*model.InsightRecord
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&insights).Error
	return insights, err
}
