// Package transport connects the client to the game server. Inbound frames
// are published raw on the bus; outbound actions are encoded and written
// directly.
package transport

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotConnected is returned when an action is sent while no connection is up.
var ErrNotConnected = errors.New("transport: not connected")

const writeWait = 5 * time.Second

// Transport is a bidirectional link to the server.
type Transport interface {
	// Run receives frames until ctx is cancelled.
	Run(ctx context.Context) error
	SendChoice(ctx context.Context, choice string) error
	SendReady(ctx context.Context) error
	Close() error
}

// reconnectLimiter allows perMinute connection attempts per minute with no
// burst. Zero or less disables throttling.
func reconnectLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

func writeDeadline(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(writeWait)
}
