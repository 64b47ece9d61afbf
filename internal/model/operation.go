package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Operation 状态
const (
	OperationStatusQueued     = "queued"
	OperationStatusProcessing = "processing"
	OperationStatusCompleted  = "completed"
	OperationStatusFailed     = "failed"
)

// 任务类型
const (
	JobTypeWeeklyReflection = "weekly_reflection_generation"
	JobTypeCareerPlan       = "career_plan_generation"
)

// 失败分类，持久化在 error_kind 字段上
const (
	ErrorKindValidation  = "validation"
	ErrorKindDuplicate   = "duplicate"
	ErrorKindLLM         = "llm"
	ErrorKindTimeout     = "timeout"
	ErrorKindPersistence = "persistence"
)

// JSONMap 用于 JSON 对象字段
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
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
	return json.Unmarshal(bytes, m)
}

// Operation 一次异步生成任务。
// 状态机：queued -> processing -> completed/failed，终态后任何字段不再变更。
// week_number/year 从 input_data 冗余出来，用于去重查询。
type Operation struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	UserID       int64      `gorm:"not null;index" json:"user_id"`
	JobType      string     `gorm:"size:50;not null;index" json:"job_type"`
	Status       string     `gorm:"size:20;default:queued;index:idx_operations_dedup" json:"status"`
	Progress     int        `gorm:"default:0" json:"progress"`
	WeekNumber   int        `gorm:"index:idx_operations_dedup" json:"week_number"`
	Year         int        `gorm:"index:idx_operations_dedup" json:"year"`
	TraceID      string     `gorm:"size:36" json:"trace_id"`
	InputData    JSONMap    `gorm:"type:json" json:"input_data"`
	ResultData   JSONMap    `gorm:"type:json" json:"result_data,omitempty"`
	ErrorKind    string     `gorm:"size:20" json:"error_kind,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	Metadata     JSONMap    `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (Operation) TableName() string {
	return "operations"
}

// IsTerminal 是否处于终态
func (o *Operation) IsTerminal() bool {
	return o.Status == OperationStatusCompleted || o.Status == OperationStatusFailed
}
