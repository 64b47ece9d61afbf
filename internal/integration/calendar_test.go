package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model"
)

func weekRange(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) // 周一
	return start, start.AddDate(0, 0, 7)
}

func TestCalendarSource_FetchWeek(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "42", r.URL.Query().Get("user_id"))
		assert.NotEmpty(t, r.URL.Query().Get("from"))

		fmt.Fprint(w, `{"events":[
			{"title":"周会","start_time":"2026-06-15T09:00:00Z","event_id":"evt-1","attendees":5},
			{"title":"设计评审","start_time":"2026-06-17T14:00:00Z","event_id":"evt-2","attendees":3}
		]}`)
	}))
	defer server.Close()

	source := NewCalendarSource(config.IntegrationConfig{
		BaseURL: server.URL, APIKey: "test-key",
	}, server.Client())

	start, end := weekRange(t)
	records, err := source.FetchWeek(context.Background(), &model.User{ID: 42}, start, end)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, model.ThemeCategoryMeetings, records[0].Category)
	assert.Equal(t, "周会", records[0].Text)
	assert.Equal(t, "evt-1", records[0].Reference)
}

func TestCalendarSource_FetchWeek_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := NewCalendarSource(config.IntegrationConfig{BaseURL: server.URL}, server.Client())

	start, end := weekRange(t)
	_, err := source.FetchWeek(context.Background(), &model.User{ID: 42}, start, end)
	assert.Error(t, err)
}

func TestCalendarSource_FetchWeek_EmptyWeek(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"events":[]}`)
	}))
	defer server.Close()

	source := NewCalendarSource(config.IntegrationConfig{BaseURL: server.URL}, server.Client())

	start, end := weekRange(t)
	records, err := source.FetchWeek(context.Background(), &model.User{ID: 42}, start, end)
	require.NoError(t, err)
	assert.Empty(t, records)
}
