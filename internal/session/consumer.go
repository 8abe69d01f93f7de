package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"rpsboard/internal/bus"
	"rpsboard/internal/event"
	"rpsboard/internal/metrics"
	"rpsboard/pkg/realtime"
)

// Consumer decodes raw frames from the bus and posts each event to the loop
// that owns the session.
type Consumer struct {
	logger  *slog.Logger
	sub     message.Subscriber
	loop    *realtime.Loop
	session *Session
	metrics *metrics.Metrics

	msgs <-chan *message.Message
}

// NewConsumer creates a consumer for s.
func NewConsumer(logger *slog.Logger, sub message.Subscriber, loop *realtime.Loop, s *Session) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		logger:  logger,
		sub:     sub,
		loop:    loop,
		session: s,
		metrics: s.metrics,
	}
}

// Subscribe attaches to the frame topic. Call it before any transport starts
// publishing; frames published earlier are lost.
func (c *Consumer) Subscribe(ctx context.Context) error {
	msgs, err := c.sub.Subscribe(ctx, bus.TopicFrames)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", bus.TopicFrames, err)
	}
	c.msgs = msgs
	return nil
}

// Run hands frames over until ctx is cancelled or the subscription closes.
func (c *Consumer) Run(ctx context.Context) error {
	if c.msgs == nil {
		if err := c.Subscribe(ctx); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-c.msgs:
			if !ok {
				return nil
			}
			if err := c.handle(msg); err != nil {
				if errors.Is(err, realtime.ErrLoopStopped) {
					return nil
				}
				return err
			}
		}
	}
}

func (c *Consumer) handle(msg *message.Message) error {
	ev, err := event.Decode(msg.Payload)
	if err != nil {
		c.metrics.AnomaliesTotal.WithLabelValues(metrics.AnomalyBadFrame).Inc()
		c.logger.Warn("dropping frame", "message_uuid", msg.UUID, "error", err)
		msg.Ack()
		return nil
	}
	err = c.loop.Post(func() { c.session.Handle(ev) })
	// Acked either way: a stopped loop means the client is shutting down and
	// redelivery would only block the publisher.
	msg.Ack()
	return err
}
