package dto

import "time"

// EnqueueOperationRequest 创建生成任务请求（手动触发）
type EnqueueOperationRequest struct {
	JobType    string `json:"job_type" binding:"required,oneof=weekly_reflection_generation career_plan_generation"`
	WeekNumber int    `json:"week_number,omitempty" binding:"omitempty,min=1,max=53"`
	Year       int    `json:"year,omitempty" binding:"omitempty,min=2000,max=2100"`
}

// EnqueueOperationResponse 创建生成任务响应
type EnqueueOperationResponse struct {
	OperationID  int64  `json:"operation_id"`
	Status       string `json:"status"`
	Deduplicated bool   `json:"deduplicated,omitempty"` // 已有同周任务/草稿时为 true
}

// OperationStatus 任务状态查询结果
type OperationStatus struct {
	OperationID  int64                  `json:"operation_id"`
	JobType      string                 `json:"job_type"`
	Status       string                 `json:"status"`
	Progress     int                    `json:"progress"`
	WeekNumber   int                    `json:"week_number"`
	Year         int                    `json:"year"`
	ResultData   map[string]interface{} `json:"result_data,omitempty"`
	ErrorKind    string                 `json:"error_kind,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}
