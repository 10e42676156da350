// Package transport defines the boundary between the relay and the systems
// that move wire units.
//
// A transport carries units as opaque strings. It does not stamp, order, or
// deduplicate them; the reassembly registry tolerates reordering and loss.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Subscription.Run when the underlying source closes
// before the context is canceled.
var ErrClosed = errors.New("transport: subscription closed")

// Handler receives one unit. A non-nil error stops the subscription.
type Handler func(ctx context.Context, unit string) error

// Publisher sends units to a downstream system.
type Publisher interface {
	// Publish sends a single unit.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, unit string) error

	// Close releases publisher resources.
	Close() error
}

// Subscription delivers received units to a handler until the context is
// canceled, the source closes, or the handler fails.
type Subscription interface {
	// Run blocks delivering units to h. Returns nil on context cancellation.
	Run(ctx context.Context, h Handler) error

	// Close releases subscription resources.
	Close() error
}

// Subscriber opens subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Backoff returns the delay before retry attempt (1-based): 500ms, 1s, 2s, ...
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
