package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pithecene-io/segwire/log"
)

// BufferedConfig configures a BufferedSink.
type BufferedConfig struct {
	// FlushCount triggers a flush after N messages accumulate.
	// Zero means count-based flush is disabled.
	FlushCount int

	// FlushInterval triggers a flush every interval.
	// Zero means interval-based flush is disabled.
	FlushInterval time.Duration

	// Logger is optional. Nil disables logging.
	Logger *log.Logger
}

// FlushTrigger identifies which trigger caused a flush.
type FlushTrigger string

const (
	// FlushTriggerCount indicates a count-threshold flush.
	FlushTriggerCount FlushTrigger = "count"
	// FlushTriggerInterval indicates an interval-based flush.
	FlushTriggerInterval FlushTrigger = "interval"
	// FlushTriggerExplicit indicates a Flush or Close call.
	FlushTriggerExplicit FlushTrigger = "explicit"
)

// ErrBufferedInvalidConfig is returned when BufferedConfig sets no trigger.
var ErrBufferedInvalidConfig = errors.New("relay: buffered sink needs FlushCount or FlushInterval")

// BufferedSink batches messages in memory and writes them to an inner sink
// when a trigger fires. Messages are never dropped: on write failure the
// batch is restored ahead of newer messages and retried on the next trigger.
//
// mu guards the buffer; flushMu serializes writes to the inner sink so the
// interval goroutine and count trigger never write concurrently.
type BufferedSink struct {
	inner  Sink
	config BufferedConfig
	logger *log.Logger

	mu      sync.Mutex
	buffer  []Message
	flushes map[FlushTrigger]int64
	stopCh  chan struct{}
	stopped bool

	flushMu sync.Mutex
}

// NewBufferedSink creates a buffered sink over inner.
func NewBufferedSink(inner Sink, config BufferedConfig) (*BufferedSink, error) {
	if config.FlushCount <= 0 && config.FlushInterval <= 0 {
		return nil, ErrBufferedInvalidConfig
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	s := &BufferedSink{
		inner:   inner,
		config:  config,
		logger:  logger,
		buffer:  make([]Message, 0, max(config.FlushCount, 16)),
		flushes: make(map[FlushTrigger]int64),
		stopCh:  make(chan struct{}),
	}
	if config.FlushInterval > 0 {
		go s.intervalLoop()
	}
	return s, nil
}

// Write appends msgs to the buffer, flushing if the count threshold is reached.
func (s *BufferedSink) Write(ctx context.Context, msgs []Message) error {
	s.mu.Lock()
	s.buffer = append(s.buffer, msgs...)
	shouldFlush := s.config.FlushCount > 0 && len(s.buffer) >= s.config.FlushCount
	s.mu.Unlock()

	if shouldFlush {
		return s.triggerFlush(ctx, FlushTriggerCount)
	}
	return nil
}

// Flush writes all buffered messages.
func (s *BufferedSink) Flush(ctx context.Context) error {
	return s.triggerFlush(ctx, FlushTriggerExplicit)
}

// Pending returns the number of buffered messages.
func (s *BufferedSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// FlushTriggerStats returns per-trigger counts of flushes that wrote messages.
func (s *BufferedSink) FlushTriggerStats() map[FlushTrigger]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[FlushTrigger]int64, len(s.flushes))
	for k, v := range s.flushes {
		out[k] = v
	}
	return out
}

// triggerFlush swaps the buffer under mu, writes outside mu, and restores the
// batch on failure.
func (s *BufferedSink) triggerFlush(ctx context.Context, trigger FlushTrigger) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.buffer
	if len(batch) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.buffer = make([]Message, 0, cap(batch))
	s.mu.Unlock()

	if err := s.inner.Write(ctx, batch); err != nil {
		s.mu.Lock()
		s.buffer = append(batch, s.buffer...)
		s.mu.Unlock()
		s.logger.Error("buffered flush failed", map[string]any{
			"trigger":  string(trigger),
			"messages": len(batch),
			"error":    err.Error(),
		})
		return err
	}

	s.mu.Lock()
	s.flushes[trigger]++
	s.mu.Unlock()
	s.logger.Debug("buffered flush", map[string]any{
		"trigger":  string(trigger),
		"messages": len(batch),
	})
	return nil
}

// Close stops the interval goroutine, flushes, and closes the inner sink.
func (s *BufferedSink) Close() error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()

	flushErr := s.Flush(context.Background())
	return errors.Join(flushErr, s.inner.Close())
}

func (s *BufferedSink) intervalLoop() {
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Interval flush errors are logged; the batch stays buffered.
			_ = s.triggerFlush(context.Background(), FlushTriggerInterval)
		case <-s.stopCh:
			return
		}
	}
}

var (
	_ Sink    = (*BufferedSink)(nil)
	_ Flusher = (*BufferedSink)(nil)
)
