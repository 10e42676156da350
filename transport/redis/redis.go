// Package redis implements a Redis pub/sub transport for wire units.
//
// Each unit is sent as one PUBLISH to a configurable channel. Publishing
// retries with exponential backoff on connection errors. Pub/sub delivery is
// at-most-once; units lost in flight leave entries for the registry to expire.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/segwire/transport"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "segwire:units"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis pub/sub transport.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: segwire:units).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
}

// Transport publishes and subscribes to units on a Redis channel.
type Transport struct {
	config Config
	client *goredis.Client
}

// New creates a Redis transport from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Transport, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis transport requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis transport: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Transport{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Channel returns the configured pub/sub channel.
func (t *Transport) Channel() string {
	return t.config.Channel
}

// Publish sends the unit as a PUBLISH to the configured channel.
// Retries with exponential backoff on failures.
func (t *Transport) Publish(ctx context.Context, unit string) error {
	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + t.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}

		if i > 0 {
			if err := transport.Sleep(ctx, transport.Backoff(i)); err != nil {
				return fmt.Errorf("redis: context canceled during backoff: %w", err)
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
		lastErr = t.client.Publish(publishCtx, t.config.Channel, unit).Err()
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

// Subscribe opens a subscription on the configured channel.
// Returns once the server has confirmed the subscription.
func (t *Transport) Subscribe(ctx context.Context) (transport.Subscription, error) {
	ps := t.client.Subscribe(ctx, t.config.Channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe %q: %w", t.config.Channel, err)
	}
	return &Subscription{ps: ps}, nil
}

// Close releases transport resources.
func (t *Transport) Close() error {
	return t.client.Close()
}

// Subscription delivers messages from one Redis channel.
type Subscription struct {
	ps *goredis.PubSub
}

// Run delivers each message payload to h until ctx is canceled.
// Returns transport.ErrClosed if the subscription is closed underneath it.
func (s *Subscription) Run(ctx context.Context, h transport.Handler) error {
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return transport.ErrClosed
			}
			if err := h(ctx, msg.Payload); err != nil {
				return err
			}
		}
	}
}

// Close unsubscribes and releases the connection.
func (s *Subscription) Close() error {
	return s.ps.Close()
}

var (
	_ transport.Publisher    = (*Transport)(nil)
	_ transport.Subscriber   = (*Transport)(nil)
	_ transport.Subscription = (*Subscription)(nil)
)
