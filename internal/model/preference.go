package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringArray 用于 JSON 数组字段
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, s)
}

// 偏好默认值
const (
	DefaultPreferredDay  = 5 // 周五
	DefaultPreferredHour = 17
	DefaultTimezone      = "UTC"
)

// UserPreference 每用户的自动生成配置。
// 首次访问时按默认值落库，之后只通过用户显式操作修改。
type UserPreference struct {
	ID                 int64       `gorm:"primaryKey" json:"id"`
	UserID             int64       `gorm:"uniqueIndex;not null" json:"user_id"`
	AutoGenerate       bool        `gorm:"default:true" json:"auto_generate"`
	PreferredDay       int         `gorm:"default:5" json:"preferred_day"` // 0=周日 ... 6=周六
	PreferredHour      int         `gorm:"default:17" json:"preferred_hour"`
	Timezone           string      `gorm:"size:64;default:UTC" json:"timezone"` // IANA 时区名
	IncludeSources     StringArray `gorm:"type:json" json:"include_sources"`
	NotifyOnGeneration bool        `gorm:"default:false" json:"notify_on_generation"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}

// DefaultPreference 默认偏好
func DefaultPreference(userID int64) *UserPreference {
	return &UserPreference{
		UserID:         userID,
		AutoGenerate:   true,
		PreferredDay:   DefaultPreferredDay,
		PreferredHour:  DefaultPreferredHour,
		Timezone:       DefaultTimezone,
		IncludeSources: StringArray{},
	}
}
