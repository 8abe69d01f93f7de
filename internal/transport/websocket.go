package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"rpsboard/internal/bus"
	"rpsboard/internal/event"
)

// WebSocket is a reconnecting websocket client.
type WebSocket struct {
	logger  *slog.Logger
	url     string
	pub     message.Publisher
	dialer  *websocket.Dialer
	limiter *rate.Limiter

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocket creates a client for url that publishes inbound frames on pub.
func NewWebSocket(logger *slog.Logger, url string, pub message.Publisher, reconnectPerMinute int) *WebSocket {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocket{
		logger:  logger.With("transport", "websocket", "url", url),
		url:     url,
		pub:     pub,
		dialer:  websocket.DefaultDialer,
		limiter: reconnectLimiter(reconnectPerMinute),
	}
}

// Run dials the server and pumps frames, reconnecting when the connection
// drops. It returns nil once ctx is cancelled.
func (w *WebSocket) Run(ctx context.Context) error {
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil
		}
		conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("dial failed", "error", err)
			continue
		}
		w.logger.Info("connected")
		w.setConn(conn)
		err = w.pump(ctx, conn)
		w.setConn(nil)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, errPublish) {
			return err
		}
		w.logger.Warn("connection lost", "error", err)
	}
}

var errPublish = errors.New("transport: publish frame")

func (w *WebSocket) pump(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		if err := bus.PublishFrame(w.pub, data); err != nil {
			return fmt.Errorf("%w: %v", errPublish, err)
		}
	}
}

func (w *WebSocket) setConn(conn *websocket.Conn) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
}

// SendChoice implements round.Sender.
func (w *WebSocket) SendChoice(ctx context.Context, choice string) error {
	frame, requestID, err := event.EncodeChoice(choice)
	if err != nil {
		return fmt.Errorf("encode choice: %w", err)
	}
	return w.write(ctx, frame, "request_id", requestID, "choice", choice)
}

// SendReady tells the server the local player is ready.
func (w *WebSocket) SendReady(ctx context.Context) error {
	frame, requestID, err := event.EncodeReady()
	if err != nil {
		return fmt.Errorf("encode ready: %w", err)
	}
	return w.write(ctx, frame, "request_id", requestID, "action", "ready")
}

func (w *WebSocket) write(ctx context.Context, frame []byte, attrs ...any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ErrNotConnected
	}
	if err := w.conn.SetWriteDeadline(writeDeadline(ctx)); err != nil {
		return err
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.logger.Debug("frame sent", attrs...)
	return nil
}

// Close drops the current connection, if any. Run will redial unless its
// context is done.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = w.conn.Close()
	return err
}
