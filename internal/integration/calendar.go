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

// CalendarSource 日历数据源，拉取周内的会议日程
type CalendarSource struct {
	id      string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCalendarSource(cfg config.IntegrationConfig, client *http.Client) *CalendarSource {
	id := cfg.ID
	if id == "" {
		id = SourceCalendar
	}
	return &CalendarSource{
		id:      id,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

func (s *CalendarSource) ID() string {
	return s.id
}

type calendarEvent struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	EventID   string    `json:"event_id"`
	Attendees int       `json:"attendees"`
}

func (s *CalendarSource) FetchWeek(ctx context.Context, user *model.User, weekStart, weekEnd time.Time) ([]ActivityRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/events?%s", s.baseURL, url.Values{
		"user_id": {fmt.Sprintf("%d", user.ID)},
		"from":    {weekStart.UTC().Format(time.RFC3339)},
		"to":      {weekEnd.UTC().Format(time.RFC3339)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("calendar api error (%d): %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Events []calendarEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode calendar events: %w", err)
	}

	records := make([]ActivityRecord, 0, len(payload.Events))
	for _, event := range payload.Events {
		records = append(records, ActivityRecord{
			Category:  model.ThemeCategoryMeetings,
			Text:      event.Title,
			Reference: event.EventID,
			Timestamp: event.StartTime,
		})
	}
	return records, nil
}
