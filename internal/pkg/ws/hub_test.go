package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.Equal(t, 0, len(hub.clients))
}

func TestHub_ConnectionCount_Empty(t *testing.T) {
	hub := NewHub()

	count := hub.ConnectionCount()
	assert.Equal(t, 0, count)
}

func TestHub_IsOnline_NoConnections(t *testing.T) {
	hub := NewHub()

	online := hub.IsOnline(123)
	assert.False(t, online)
}

func TestHub_SendToUser_UserNotOnline(t *testing.T) {
	hub := NewHub()

	msg := &Message{
		Type: "test",
		Data: map[string]string{"key": "value"},
	}

	// 用户不在线不算错误
	err := hub.SendToUser(123, msg)
	assert.NoError(t, err)
}

func TestHub_WithRealWebSocket(t *testing.T) {
	hub := NewHub()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}

		client := &Client{
			UserID: 100,
			Conn:   conn,
		}
		hub.Register(client)

		// 短暂保持连接
		time.Sleep(100 * time.Millisecond)

		hub.Unregister(client)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 等服务端完成登记
	time.Sleep(50 * time.Millisecond)

	assert.True(t, hub.IsOnline(100))
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	c1 := &Client{UserID: 7}
	c2 := &Client{UserID: 7}

	hub.Register(c1)
	hub.Register(c2)
	assert.Equal(t, 2, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(7))

	hub.Unregister(c1)
	assert.Equal(t, 1, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(7))

	hub.Unregister(c2)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsOnline(7))
}
