package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 主题分类，按固定优先级排序：会议 > 任务 > 代码活动 > 其他
const (
	ThemeCategoryMeetings     = "meetings"
	ThemeCategoryTasks        = "tasks"
	ThemeCategoryCodeActivity = "code-activity"
	ThemeCategoryOther        = "other"
)

// CategoryPriority 分类的归并顺序
var CategoryPriority = map[string]int{
	ThemeCategoryMeetings:     0,
	ThemeCategoryTasks:        1,
	ThemeCategoryCodeActivity: 2,
	ThemeCategoryOther:        3,
}

// Theme 从原始活动数据归一化出的一条证据记录
type Theme struct {
	Category        string    `json:"category"`
	EvidenceText    string    `json:"evidence_text"`
	SourceReference string    `json:"source_reference"`
	Timestamp       time.Time `json:"timestamp"`
}

// ThemeList 用于 JSON 数组字段
type ThemeList []Theme

func (l ThemeList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *ThemeList) Scan(value interface{}) error {
	if value == nil {
		*l = ThemeList{}
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
	return json.Unmarshal(bytes, l)
}

// ConsolidatedWeek 单个数据源在某个用户周内的归一化输出。
// (user_id, week_number, year, source_id) 唯一，重新归并时整行覆盖。
type ConsolidatedWeek struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_week_source" json:"user_id"`
	WeekNumber  int       `gorm:"not null;uniqueIndex:idx_week_source" json:"week_number"`
	Year        int       `gorm:"not null;uniqueIndex:idx_week_source" json:"year"`
	SourceID    string    `gorm:"size:50;not null;uniqueIndex:idx_week_source" json:"source_id"`
	Unavailable bool      `gorm:"default:false" json:"unavailable"`
	RawData     JSONMap   `gorm:"type:json" json:"raw_data,omitempty"`
	Themes      ThemeList `gorm:"type:json" json:"themes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ConsolidatedWeek) TableName() string {
	return "consolidated_weeks"
}
