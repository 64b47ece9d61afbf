package dto

// UserProfile 用户资料
type UserProfile struct {
	UserID           int64  `json:"user_id"`
	Username         string `json:"username"`
	Email            string `json:"email,omitempty"`
	AvatarURL        string `json:"avatar_url"`
	GithubLinked     bool   `json:"github_linked"`
	ManualQuotaToday int    `json:"manual_quota_today"`
	ManualDailyQuota int    `json:"manual_daily_quota"`
}

// UpdateProfileRequest 更新用户资料请求
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" binding:"omitempty,min=3,max=50"`
}
