package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpsboard/internal/bus"
	"rpsboard/internal/event"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gameServer pushes frames to the first client and records what it sends back.
func gameServer(t *testing.T, frames []string) (*httptest.Server, <-chan []byte) {
	t.Helper()
	received := make(chan []byte, 8)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	}))
	t.Cleanup(ts.Close)
	return ts, received
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestWebSocket_PublishesFramesAndSendsActions(t *testing.T) {
	frames := []string{
		`{"type":"room_join","client_id":1,"client_name":"Bob"}`,
		`{"type":"phase","phase":"IN_PROGRESS"}`,
	}
	ts, received := gameServer(t, frames)

	pubsub := bus.New(discardLogger())
	t.Cleanup(func() { _ = pubsub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := pubsub.Subscribe(ctx, bus.TopicFrames)
	require.NoError(t, err)

	client := NewWebSocket(discardLogger(), wsURL(ts), pubsub, 0)
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	for _, want := range frames {
		select {
		case msg := <-msgs:
			assert.JSONEq(t, want, string(msg.Payload))
			msg.Ack()
		case <-ctx.Done():
			t.Fatal("timed out waiting for frame")
		}
	}

	require.NoError(t, client.SendChoice(ctx, "rock"))
	require.NoError(t, client.SendReady(ctx))

	var env event.Envelope
	select {
	case data := <-received:
		require.NoError(t, json.Unmarshal(data, &env))
	case <-ctx.Done():
		t.Fatal("timed out waiting for choice")
	}
	assert.Equal(t, event.TypeTurn, env.Type)
	assert.Equal(t, "rock", env.Choice)
	assert.NotEmpty(t, env.RequestID)

	select {
	case data := <-received:
		require.NoError(t, json.Unmarshal(data, &env))
	case <-ctx.Done():
		t.Fatal("timed out waiting for ready")
	}
	assert.Equal(t, event.TypeReady, env.Type)
	assert.True(t, env.IsReady)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWebSocket_SendWithoutConnection(t *testing.T) {
	client := NewWebSocket(discardLogger(), "ws://127.0.0.1:1", nil, 0)
	assert.ErrorIs(t, client.SendChoice(context.Background(), "rock"), ErrNotConnected)
	assert.ErrorIs(t, client.SendReady(context.Background()), ErrNotConnected)
	assert.NoError(t, client.Close())
}

func TestWebSocket_RunStopsWhileRedialing(t *testing.T) {
	client := NewWebSocket(discardLogger(), "ws://127.0.0.1:1", nil, 600)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.NoError(t, client.Run(ctx))
}

func TestReconnectLimiter(t *testing.T) {
	unlimited := reconnectLimiter(0)
	for i := 0; i < 10; i++ {
		assert.True(t, unlimited.Allow())
	}

	limited := reconnectLimiter(6)
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow(), "second attempt within ten seconds")
}

func TestNATSSubjects(t *testing.T) {
	assert.Equal(t, "rps.lobby.events", EventsSubject("rps.lobby"))
	assert.Equal(t, "rps.lobby.actions", ActionsSubject("rps.lobby"))
}

func TestDialNATS_Unreachable(t *testing.T) {
	_, err := DialNATS(discardLogger(), "nats://127.0.0.1:1", "rps", nil, 0, nats.Timeout(200*time.Millisecond))
	assert.Error(t, err)
}
