package integration

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model"
)

// 内置数据源 ID
const (
	SourceCalendar = "calendar"
	SourceTasks    = "tasks"
	SourceGithub   = "github"
)

// ActivityRecord 单条原始活动记录，归并前的中间表示
type ActivityRecord struct {
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}

// Source 活动数据源。FetchWeek 拉取某用户在 [weekStart, weekEnd) 内的活动，
// 失败只影响该数据源，归并流程会把它标记为不可用后继续。
type Source interface {
	ID() string
	FetchWeek(ctx context.Context, user *model.User, weekStart, weekEnd time.Time) ([]ActivityRecord, error)
}

// Registry 数据源注册表，按注册顺序遍历
type Registry struct {
	sources map[string]Source
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

func (r *Registry) Register(source Source) error {
	id := source.ID()
	if _, exists := r.sources[id]; exists {
		return fmt.Errorf("数据源 %s 已注册", id)
	}
	r.sources[id] = source
	r.order = append(r.order, id)
	return nil
}

func (r *Registry) Get(id string) (Source, bool) {
	s, ok := r.sources[id]
	return s, ok
}

// All 按注册顺序返回全部数据源
func (r *Registry) All() []Source {
	result := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.sources[id])
	}
	return result
}

// IDs 按注册顺序返回全部数据源 ID
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// BuildRegistry 根据配置装配启用的数据源
func BuildRegistry(cfgs []config.IntegrationConfig, httpClient *http.Client) (*Registry, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	registry := NewRegistry()
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}

		var source Source
		switch cfg.Type {
		case SourceCalendar:
			source = NewCalendarSource(cfg, httpClient)
		case SourceTasks:
			source = NewTasksSource(cfg, httpClient)
		case SourceGithub:
			source = NewGithubSource(cfg, httpClient)
		default:
			return nil, fmt.Errorf("未知的数据源类型: %s", cfg.Type)
		}

		if err := registry.Register(source); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
