package dto

import "time"

// DraftListItem 草稿列表项
type DraftListItem struct {
	ID                int64     `json:"id"`
	WeekNumber        int       `json:"week_number"`
	Year              int       `json:"year"`
	ReducedConfidence bool      `json:"reduced_confidence"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DraftDetail 草稿详情
type DraftDetail struct {
	ID                int64     `json:"id"`
	WeekNumber        int       `json:"week_number"`
	Year              int       `json:"year"`
	Done              []string  `json:"done"`
	Next              []string  `json:"next"`
	Notes             string    `json:"notes"`
	ReducedConfidence bool      `json:"reduced_confidence"`
	SourceOperationID int64     `json:"source_operation_id"`
	ArchiveURL        string    `json:"archive_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ExportDraftResponse 草稿归档导出响应
type ExportDraftResponse struct {
	ArchiveURL string `json:"archive_url"`
}
