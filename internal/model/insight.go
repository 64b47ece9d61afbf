package model

import (
	"time"
)

// InsightRecord 测评衍生的洞察，用于生成时保持叙事连续性
type InsightRecord struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Kind      string    `gorm:"size:50;not null" json:"kind"` // strength / growth-area / goal
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (InsightRecord) TableName() string {
	return "insight_records"
}
