package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubServer(t *testing.T) (*Hub, *auth.SessionAuth, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	sessions := auth.NewSessionAuth("test-secret", time.Hour)

	router := gin.New()
	router.GET("/ws", sessions.SessionMiddleware(), hub.Handler())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, sessions, server
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_DeliversToRecipient(t *testing.T) {
	hub, sessions, server := newHubServer(t)

	token, err := sessions.Issue("alice", "member")
	require.NoError(t, err)
	conn := dial(t, server, token)

	require.Eventually(t, func() bool { return hub.Connected("alice") == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), model.Event{
		Type:      model.EventProofDecided,
		Recipient: "bob",
		Payload:   map[string]any{"key": "other"},
	})
	hub.Notify(context.Background(), model.Event{
		Type:      model.EventProofDecided,
		Recipient: "alice",
		Payload:   map[string]any{"key": "k1", "status": "Approved By Coadmin"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, model.EventProofDecided, msg.Type)
	assert.Equal(t, "k1", msg.Payload["key"])
	assert.Equal(t, "Approved By Coadmin", msg.Payload["status"])
}

func TestHub_QueryToken(t *testing.T) {
	hub, sessions, server := newHubServer(t)

	token, err := sessions.Issue("carol", "coadmin")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.Connected("carol") == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, sessions, server := newHubServer(t)

	token, err := sessions.Issue("alice", "member")
	require.NoError(t, err)
	conn := dial(t, server, token)

	require.Eventually(t, func() bool { return hub.Connected("alice") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connected("alice") == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), model.Event{Type: model.EventProofConfirmed, Recipient: "alice"})
}

func TestHub_RejectsAnonymous(t *testing.T) {
	_, _, server := newHubServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
