package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model"
)

// GithubSource 代码活动数据源，用用户绑定的 GitHub token 拉取事件流
type GithubSource struct {
	id      string
	baseURL string
	client  *http.Client
}

func NewGithubSource(cfg config.IntegrationConfig, client *http.Client) *GithubSource {
	id := cfg.ID
	if id == "" {
		id = SourceGithub
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GithubSource{
		id:      id,
		baseURL: baseURL,
		client:  client,
	}
}

func (s *GithubSource) ID() string {
	return s.id
}

type githubEvent struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Repo      struct {
		Name string `json:"name"`
	} `json:"repo"`
	Payload struct {
		Action  string `json:"action"`
		Commits []struct {
			Message string `json:"message"`
		} `json:"commits"`
		PullRequest struct {
			Title  string `json:"title"`
			Number int    `json:"number"`
		} `json:"pull_request"`
	} `json:"payload"`
}

func (s *GithubSource) FetchWeek(ctx context.Context, user *model.User, weekStart, weekEnd time.Time) ([]ActivityRecord, error) {
	if user.GithubToken == nil || *user.GithubToken == "" {
		return nil, fmt.Errorf("用户未绑定 GitHub 账号")
	}

	// 事件流按时间倒序分页返回，超出周范围即可停止
	var records []ActivityRecord
	for page := 1; page <= 5; page++ {
		events, err := s.fetchEvents(ctx, *user.GithubToken, page)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			break
		}

		reachedOlder := false
		for _, event := range events {
			if event.CreatedAt.Before(weekStart) {
				reachedOlder = true
				continue
			}
			if !event.CreatedAt.Before(weekEnd) {
				continue
			}
			if record, ok := s.toRecord(event); ok {
				records = append(records, record)
			}
		}
		if reachedOlder {
			break
		}
	}
	return records, nil
}

func (s *GithubSource) fetchEvents(ctx context.Context, token string, page int) ([]githubEvent, error) {
	endpoint := fmt.Sprintf("%s/user/events?per_page=100&page=%d", s.baseURL, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch github events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github api error (%d): %s", resp.StatusCode, string(body))
	}

	var events []githubEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to decode github events: %w", err)
	}
	return events, nil
}

func (s *GithubSource) toRecord(event githubEvent) (ActivityRecord, bool) {
	var text string
	switch event.Type {
	case "PushEvent":
		if len(event.Payload.Commits) == 0 {
			return ActivityRecord{}, false
		}
		text = fmt.Sprintf("向 %s 推送了 %d 个提交", event.Repo.Name, len(event.Payload.Commits))
	case "PullRequestEvent":
		if event.Payload.Action != "opened" && event.Payload.Action != "closed" {
			return ActivityRecord{}, false
		}
		text = fmt.Sprintf("%s PR #%d: %s (%s)",
			event.Repo.Name, event.Payload.PullRequest.Number,
			event.Payload.PullRequest.Title, event.Payload.Action)
	default:
		return ActivityRecord{}, false
	}

	return ActivityRecord{
		Category:  model.ThemeCategoryCodeActivity,
		Text:      text,
		Reference: event.Repo.Name,
		Timestamp: event.CreatedAt,
	}, true
}
