package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/logger"

	"github.com/goccy/go-json"
	"github.com/gookit/event"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()

	server := httptest.NewServer(Handler(hub, []string{"http://map.example"}))
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, origin string) (*gws.Conn, *http.Response, error) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return gws.DefaultDialer.Dial(url, header)
}

func TestHubBroadcastsStatusEvents(t *testing.T) {
	hub, server := startHub(t)

	conn, _, err := dial(t, server, "http://map.example")
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	em := event.NewManager("test")
	hub.RegisterEventListeners(em)
	err, _ = em.Fire(domain.EventStatusChanged, event.M{"event": &domain.StatusEvent{
		ID:         "ev-1",
		ExternalID: "HWTC01",
		Previous:   domain.StatusOnline,
		Current:    domain.StatusLOS,
	}})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string             `json:"type"`
		Data domain.StatusEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, MessageTypeStatusEvent, msg.Type)
	assert.Equal(t, "HWTC01", msg.Data.ExternalID)
	assert.Equal(t, domain.StatusLOS, msg.Data.Current)
}

func TestHubAnswersPing(t *testing.T) {
	hub, server := startHub(t)

	conn, _, err := dial(t, server, "")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypePong, msg.Type)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, server := startHub(t)

	_, resp, err := dial(t, server, "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, server := startHub(t)

	conn, _, err := dial(t, server, "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	server := httptest.NewServer(Handler(hub, []string{"*"}))
	defer server.Close()

	conn, _, err := dial(t, server, "http://anywhere.example")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
