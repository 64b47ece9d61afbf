package dto

// PreferenceResponse 偏好读取响应
type PreferenceResponse struct {
	AutoGenerate       bool     `json:"auto_generate"`
	PreferredDay       int      `json:"preferred_day"`
	PreferredHour      int      `json:"preferred_hour"`
	Timezone           string   `json:"timezone"`
	IncludeSources     []string `json:"include_sources"`
	NotifyOnGeneration bool     `json:"notify_on_generation"`
}

// UpdatePreferenceRequest 偏好更新请求，指针字段未提供时保持原值
type UpdatePreferenceRequest struct {
	AutoGenerate       *bool     `json:"auto_generate,omitempty"`
	PreferredDay       *int      `json:"preferred_day,omitempty" binding:"omitempty,min=0,max=6"`
	PreferredHour      *int      `json:"preferred_hour,omitempty" binding:"omitempty,min=0,max=23"`
	Timezone           *string   `json:"timezone,omitempty" binding:"omitempty,max=64"`
	IncludeSources     *[]string `json:"include_sources,omitempty" binding:"omitempty,max=10,dive,max=50"`
	NotifyOnGeneration *bool     `json:"notify_on_generation,omitempty"`
}
