package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"rpsboard/internal/bus"
	"rpsboard/internal/event"
)

// NATS relays frames through a NATS server. The game server publishes on
// <prefix>.events and listens on <prefix>.actions.
type NATS struct {
	logger *slog.Logger
	conn   *nats.Conn
	prefix string
	pub    message.Publisher
}

// EventsSubject returns the subject inbound frames arrive on.
func EventsSubject(prefix string) string { return prefix + ".events" }

// ActionsSubject returns the subject outbound actions are published on.
func ActionsSubject(prefix string) string { return prefix + ".actions" }

// DialNATS connects to url. nats.go reconnects on its own; reconnectPerMinute
// sets the wait between its attempts.
func DialNATS(logger *slog.Logger, url, prefix string, pub message.Publisher, reconnectPerMinute int, opts ...nats.Option) (*NATS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("transport", "nats", "url", url)
	opts = append([]nats.Option{
		nats.Name("rpsboard client"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected", "server", c.ConnectedUrl())
		}),
	}, opts...)
	if reconnectPerMinute > 0 {
		opts = append(opts, nats.ReconnectWait(time.Minute/time.Duration(reconnectPerMinute)))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{logger: logger, conn: conn, prefix: prefix, pub: pub}, nil
}

// Run forwards frames from the events subject until ctx is cancelled.
func (n *NATS) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, 64)
	sub, err := n.conn.ChanSubscribe(EventsSubject(n.prefix), msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", EventsSubject(n.prefix), err)
	}
	defer func() { _ = sub.Unsubscribe() }()
	n.logger.Info("subscribed", "subject", sub.Subject)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			if err := bus.PublishFrame(n.pub, msg.Data); err != nil {
				return fmt.Errorf("publish frame: %w", err)
			}
		}
	}
}

// SendChoice implements round.Sender.
func (n *NATS) SendChoice(ctx context.Context, choice string) error {
	frame, requestID, err := event.EncodeChoice(choice)
	if err != nil {
		return fmt.Errorf("encode choice: %w", err)
	}
	return n.publish(ctx, frame, "request_id", requestID, "choice", choice)
}

// SendReady tells the server the local player is ready.
func (n *NATS) SendReady(ctx context.Context) error {
	frame, requestID, err := event.EncodeReady()
	if err != nil {
		return fmt.Errorf("encode ready: %w", err)
	}
	return n.publish(ctx, frame, "request_id", requestID, "action", "ready")
}

func (n *NATS) publish(ctx context.Context, frame []byte, attrs ...any) error {
	if !n.conn.IsConnected() {
		return ErrNotConnected
	}
	if err := n.conn.Publish(ActionsSubject(n.prefix), frame); err != nil {
		return fmt.Errorf("publish action: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, writeWait)
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush action: %w", err)
	}
	n.logger.Debug("frame sent", attrs...)
	return nil
}

// Close drains the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
