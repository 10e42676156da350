// Package stream carries wire units over plain byte streams such as
// stdin/stdout, pipes, and files. Units are length-prefixed frames by default;
// newline-delimited text is available for units that contain no newline.
package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pithecene-io/segwire/frame"
	"github.com/pithecene-io/segwire/transport"
)

// Publisher writes each unit as one frame.
// Safe for concurrent use.
type Publisher struct {
	mu  sync.Mutex
	enc *frame.FrameEncoder
	w   io.Writer
}

// NewPublisher creates a publisher writing frames to w.
func NewPublisher(w io.Writer) *Publisher {
	return &Publisher{enc: frame.NewFrameEncoder(w), w: w}
}

// Publish writes unit as the next frame.
func (p *Publisher) Publish(ctx context.Context, unit string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.WriteUnit(unit)
}

// Close closes the underlying writer if it is an io.Closer.
func (p *Publisher) Close() error {
	if c, ok := p.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Option configures a Source.
type Option func(*Source)

// WithMaxPayload lowers the per-frame payload limit.
func WithMaxPayload(n int) Option {
	return func(s *Source) { s.maxPayload = n }
}

// WithLines reads newline-delimited units instead of frames.
func WithLines() Option {
	return func(s *Source) { s.lines = true }
}

// WithDecodeErrorHandler receives frames that could not be decoded.
// Such frames are skipped; without a handler they are skipped silently.
func WithDecodeErrorHandler(fn func(error)) Option {
	return func(s *Source) { s.onDecodeError = fn }
}

// Source reads frames from one reader. A reader can be consumed only once,
// so Subscribe succeeds a single time.
type Source struct {
	r             io.Reader
	maxPayload    int
	lines         bool
	onDecodeError func(error)

	mu         sync.Mutex
	subscribed bool
}

// NewSource creates a subscriber over r.
func NewSource(r io.Reader, opts ...Option) *Source {
	s := &Source{r: r}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ErrAlreadySubscribed is returned by a second Subscribe on the same Source.
var ErrAlreadySubscribed = errors.New("stream: source already subscribed")

// Subscribe returns the subscription over the source reader.
func (s *Source) Subscribe(_ context.Context) (transport.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed {
		return nil, ErrAlreadySubscribed
	}
	s.subscribed = true

	var dec unitReader
	if s.lines {
		dec = newLineReader(s.r, s.maxPayload)
	} else {
		fd := frame.NewFrameDecoder(s.r)
		if s.maxPayload > 0 {
			fd = fd.WithMaxPayload(s.maxPayload)
		}
		dec = fd
	}
	return &Subscription{dec: dec, r: s.r, onDecodeError: s.onDecodeError}, nil
}

type unitReader interface {
	ReadUnit() (string, error)
}

// Subscription drains units from a reader.
type Subscription struct {
	dec           unitReader
	r             io.Reader
	onDecodeError func(error)
}

// Run delivers units until the stream ends, ctx is canceled, or h fails.
// A clean end of stream returns nil. Partial or oversized frames are fatal.
// Cancellation is observed between frames; a blocked read is not interrupted.
func (s *Subscription) Run(ctx context.Context, h transport.Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		unit, err := s.dec.ReadUnit()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if frame.IsFatalFrameError(err) {
				return err
			}
			if s.onDecodeError != nil {
				s.onDecodeError(err)
			}
			continue
		}
		if err := h(ctx, unit); err != nil {
			return err
		}
	}
}

// Close closes the reader if it is an io.Closer.
func (s *Subscription) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	_ transport.Publisher    = (*Publisher)(nil)
	_ transport.Publisher    = (*LinePublisher)(nil)
	_ transport.Subscriber   = (*Source)(nil)
	_ transport.Subscription = (*Subscription)(nil)
)
