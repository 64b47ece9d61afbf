package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:      fmt.Sprintf("testuser_%d", time.Now().UnixNano()%1000000),
		Email:         &email,
		PasswordHash:  &passwordHash,
		EmailVerified: true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithGithubToken 设置 GitHub 绑定
func WithGithubToken(githubID, token string) func(*model.User) {
	return func(u *model.User) {
		u.GithubID = &githubID
		u.GithubToken = &token
	}
}

// WithManualQuotaUsed 设置今日已用的手动触发次数
func WithManualQuotaUsed(used int) func(*model.User) {
	return func(u *model.User) {
		u.ManualQuotaToday = used
	}
}

// TestPreference 创建测试偏好
func TestPreference(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.UserPreference)) *model.UserPreference {
	t.Helper()

	pref := model.DefaultPreference(userID)

	for _, opt := range opts {
		opt(pref)
	}

	if err := db.Create(pref).Error; err != nil {
		t.Fatalf("Failed to create test preference: %v", err)
	}

	return pref
}

// WithSchedule 设置偏好的生成时间
func WithSchedule(day, hour int, timezone string) func(*model.UserPreference) {
	return func(p *model.UserPreference) {
		p.PreferredDay = day
		p.PreferredHour = hour
		p.Timezone = timezone
	}
}

// WithAutoGenerate 开关自动生成
func WithAutoGenerate(enabled bool) func(*model.UserPreference) {
	return func(p *model.UserPreference) {
		p.AutoGenerate = enabled
	}
}

// WithSources 设置启用的数据源
func WithSources(sources ...string) func(*model.UserPreference) {
	return func(p *model.UserPreference) {
		p.IncludeSources = sources
	}
}

// TestOperation 创建测试任务
func TestOperation(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Operation)) *model.Operation {
	t.Helper()

	now := time.Now().UTC()
	year, week := now.ISOWeek()
	op := &model.Operation{
		UserID:     userID,
		JobType:    model.JobTypeWeeklyReflection,
		Status:     model.OperationStatusQueued,
		WeekNumber: week,
		Year:       year,
		TraceID:    fmt.Sprintf("trace-%d", time.Now().UnixNano()%1000000),
		InputData:  model.JSONMap{},
	}

	for _, opt := range opts {
		opt(op)
	}

	if err := db.Create(op).Error; err != nil {
		t.Fatalf("Failed to create test operation: %v", err)
	}

	return op
}

// WithStatus 设置任务状态
func WithStatus(status string) func(*model.Operation) {
	return func(o *model.Operation) {
		o.Status = status
	}
}

// WithWeek 设置任务目标周
func WithWeek(year, week int) func(*model.Operation) {
	return func(o *model.Operation) {
		o.Year = year
		o.WeekNumber = week
	}
}

// WithJobType 设置任务类型
func WithJobType(jobType string) func(*model.Operation) {
	return func(o *model.Operation) {
		o.JobType = jobType
	}
}

// WithInputData 设置入队时固化的任务参数
func WithInputData(data model.JSONMap) func(*model.Operation) {
	return func(o *model.Operation) {
		o.InputData = data
	}
}

// TestDraft 创建测试草稿
func TestDraft(t *testing.T, db *gorm.DB, userID int64, year, week int) *model.DraftReflection {
	t.Helper()

	draft := &model.DraftReflection{
		UserID:     userID,
		WeekNumber: week,
		Year:       year,
		Content: model.DraftContent{
			Done:  []string{"完成了周报生成功能"},
			Next:  []string{"补充集成测试"},
			Notes: "",
		},
	}

	if err := db.Create(draft).Error; err != nil {
		t.Fatalf("Failed to create test draft: %v", err)
	}

	return draft
}

// TestInsight 创建测试洞察
func TestInsight(t *testing.T, db *gorm.DB, userID int64, kind, text string) *model.InsightRecord {
	t.Helper()

	insight := &model.InsightRecord{
		UserID: userID,
		Kind:   kind,
		Text:   text,
	}

	if err := db.Create(insight).Error; err != nil {
		t.Fatalf("Failed to create test insight: %v", err)
	}

	return insight
}
