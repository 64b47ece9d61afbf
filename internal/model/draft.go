package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// DraftContent 草稿正文，分 Done / Next / Notes 三段
type DraftContent struct {
	Done  []string `json:"done"`
	Next  []string `json:"next"`
	Notes string   `json:"notes"`
}

func (c DraftContent) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *DraftContent) Scan(value interface{}) error {
	if value == nil {
		*c = DraftContent{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, c)
}

// DraftReflection 生成的周报草稿。
// (user_id, week_number, year) 唯一，只允许 upsert 写入。
type DraftReflection struct {
	ID                int64        `gorm:"primaryKey" json:"id"`
	UserID            int64        `gorm:"not null;uniqueIndex:idx_draft_week" json:"user_id"`
	WeekNumber        int          `gorm:"not null;uniqueIndex:idx_draft_week" json:"week_number"`
	Year              int          `gorm:"not null;uniqueIndex:idx_draft_week" json:"year"`
	Content           DraftContent `gorm:"type:json" json:"content"`
	ReducedConfidence bool         `gorm:"default:false" json:"reduced_confidence"`
	SourceOperationID int64        `gorm:"index" json:"source_operation_id"`
	ArchiveURL        string       `gorm:"size:500" json:"archive_url,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func (DraftReflection) TableName() string {
	return "draft_reflections"
}
