package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pithecene-io/segwire/archive"
)

// Message is a delivered message with its reassembly metadata.
type Message struct {
	// Text is the message body.
	Text string
	// ID is the stamp identifier, or "" for a plain message.
	ID string
	// Segments is the number of data units it arrived in (zero when plain).
	Segments int
	// ReceivedAt is when the message was delivered.
	ReceivedAt time.Time
}

// Sink receives delivered messages.
type Sink interface {
	// Write accepts a batch of messages. Must preserve ordering within the batch.
	Write(ctx context.Context, msgs []Message) error

	// Close releases sink resources.
	Close() error
}

// Flusher is implemented by sinks that hold messages back.
type Flusher interface {
	Flush(ctx context.Context) error
}

// WriterSink writes each message followed by a delimiter.
// Safe for concurrent use.
type WriterSink struct {
	mu        sync.Mutex
	w         io.Writer
	delimiter string
}

// NewWriterSink creates a sink that writes to w.
func NewWriterSink(w io.Writer, delimiter string) *WriterSink {
	return &WriterSink{w: w, delimiter: delimiter}
}

// Write writes the batch in order.
func (s *WriterSink) Write(_ context.Context, msgs []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if _, err := io.WriteString(s.w, m.Text+s.delimiter); err != nil {
			return fmt.Errorf("relay: write message: %w", err)
		}
	}
	return nil
}

// Flush flushes the writer if it buffers (e.g. *bufio.Writer).
func (s *WriterSink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close is a no-op; the writer is owned by the caller.
func (s *WriterSink) Close() error {
	return nil
}

// ArchiveSink writes message batches to an archive client.
type ArchiveSink struct {
	client archive.Client
}

// NewArchiveSink creates a sink over client.
func NewArchiveSink(client archive.Client) *ArchiveSink {
	return &ArchiveSink{client: client}
}

// Write stores the batch as one archive write.
func (s *ArchiveSink) Write(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	records := make([]archive.MessageRecord, len(msgs))
	for i, m := range msgs {
		records[i] = archive.MessageRecord{
			ID:         m.ID,
			Segments:   m.Segments,
			Message:    m.Text,
			ReceivedAt: m.ReceivedAt,
		}
	}
	return s.client.WriteMessages(ctx, records)
}

// Close closes the archive client.
func (s *ArchiveSink) Close() error {
	return s.client.Close()
}

// MultiSink writes each batch to several sinks in order.
// Stops at the first failing sink.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write writes msgs to each sink in turn.
func (m *MultiSink) Write(ctx context.Context, msgs []Message) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, msgs); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every sink that buffers.
func (m *MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m.sinks {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Sink    = (*WriterSink)(nil)
	_ Flusher = (*WriterSink)(nil)
	_ Sink    = (*ArchiveSink)(nil)
	_ Sink    = (*MultiSink)(nil)
	_ Flusher = (*MultiSink)(nil)
)
