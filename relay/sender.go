// Package relay connects the segmentation protocol to transports and sinks.
//
// A Sender segments messages and publishes their units in order. A Receiver
// consumes units from a subscription, reassembles them, and hands finished
// messages to a Sink.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/segwire/log"
	"github.com/pithecene-io/segwire/metrics"
	"github.com/pithecene-io/segwire/segment"
	"github.com/pithecene-io/segwire/transport"
)

// SenderConfig configures a Sender.
type SenderConfig struct {
	// Segmenter splits messages (required).
	Segmenter *segment.Segmenter
	// Publisher carries units (required).
	Publisher transport.Publisher
	// Collector receives sender counters. Nil disables metrics.
	Collector *metrics.Collector
	// Logger is optional. Nil disables logging.
	Logger *log.Logger
}

// SendResult describes one transmitted message.
type SendResult struct {
	// ID is the stamp identifier, or "" when the message passed through.
	ID string
	// Units is the number of units published.
	Units int
	// Segmented reports whether the message was split.
	Segmented bool
}

// PublishError reports a unit the transport refused part-way through a
// message. Units already published are not recalled; the receiver expires
// the partial entry.
type PublishError struct {
	ID        string
	Published int
	Total     int
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("relay: publish unit %d of %d for message %q: %v", e.Published+1, e.Total, e.ID, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Sender segments and publishes messages.
type Sender struct {
	segmenter *segment.Segmenter
	publisher transport.Publisher
	collector *metrics.Collector
	logger    *log.Logger
}

// NewSender creates a Sender.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.Segmenter == nil {
		return nil, errors.New("relay: sender requires a segmenter")
	}
	if cfg.Publisher == nil {
		return nil, errors.New("relay: sender requires a publisher")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Sender{
		segmenter: cfg.Segmenter,
		publisher: cfg.Publisher,
		collector: cfg.Collector,
		logger:    logger,
	}, nil
}

// Send segments message and publishes every unit in order.
// Segmentation is validated before the first unit is published, so a
// *segment.TooManySegmentsError means nothing was sent.
func (s *Sender) Send(ctx context.Context, message string) (SendResult, error) {
	seq, err := s.segmenter.Segment(message)
	if err != nil {
		s.collector.IncSegmentationRejected()
		s.logger.Warn("message rejected", map[string]any{
			"size_bytes": len(message),
			"error":      err.Error(),
		})
		return SendResult{}, err
	}

	res := SendResult{ID: seq.ID(), Segmented: seq.Segmented()}
	total := seq.Len()
	for unit := range seq.All() {
		if err := s.publisher.Publish(ctx, unit); err != nil {
			s.collector.IncPublishFailure()
			s.collector.IncUnitsPublished(int64(res.Units))
			s.logger.Error("publish failed", map[string]any{
				"message_id": res.ID,
				"published":  res.Units,
				"total":      total,
				"error":      err.Error(),
			})
			return res, &PublishError{ID: res.ID, Published: res.Units, Total: total, Err: err}
		}
		res.Units++
	}

	s.collector.IncMessageSent(res.Segmented)
	s.collector.IncUnitsPublished(int64(res.Units))
	s.logger.Debug("message sent", map[string]any{
		"message_id": res.ID,
		"units":      res.Units,
		"size_bytes": len(message),
	})
	return res, nil
}
