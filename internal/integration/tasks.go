package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model"
)

// TasksSource 任务管理数据源，拉取周内完成的任务
type TasksSource struct {
	id      string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewTasksSource(cfg config.IntegrationConfig, client *http.Client) *TasksSource {
	id := cfg.ID
	if id == "" {
		id = SourceTasks
	}
	return &TasksSource{
		id:      id,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

func (s *TasksSource) ID() string {
	return s.id
}

type taskItem struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	CompletedAt time.Time `json:"completed_at"`
	Status      string    `json:"status"`
}

func (s *TasksSource) FetchWeek(ctx context.Context, user *model.User, weekStart, weekEnd time.Time) ([]ActivityRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/tasks?%s", s.baseURL, url.Values{
		"user_id":   {fmt.Sprintf("%d", user.ID)},
		"status":    {"done"},
		"done_from": {weekStart.UTC().Format(time.RFC3339)},
		"done_to":   {weekEnd.UTC().Format(time.RFC3339)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tasks api error (%d): %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Tasks []taskItem `json:"tasks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	records := make([]ActivityRecord, 0, len(payload.Tasks))
	for _, task := range payload.Tasks {
		records = append(records, ActivityRecord{
			Category:  model.ThemeCategoryTasks,
			Text:      fmt.Sprintf("%s %s", task.Key, task.Title),
			Reference: task.Key,
			Timestamp: task.CompletedAt,
		})
	}
	return records, nil
}
