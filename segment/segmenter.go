// Package segment splits oversized messages into stamped wire units.
//
// A message shorter than the pass-through limit is emitted unchanged as a
// single unit. Anything larger gets a fresh identifier and is emitted as one
// announcement unit followed by data units 0..n-1, each no larger than the
// configured wire size. All validation happens in Segment, so a message is
// either fully encodable or rejected before its first unit exists.
package segment

import (
	"iter"

	"github.com/google/uuid"

	"github.com/pithecene-io/segwire/stamp"
)

// IDGenerator returns a fresh message identifier in canonical form.
type IDGenerator func() string

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithIDGenerator replaces the UUID v4 generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Segmenter) {
		s.newID = gen
	}
}

// Segmenter produces wire units for messages. Safe for concurrent use.
type Segmenter struct {
	config Config
	newID  IDGenerator
}

// New creates a Segmenter. Returns *ConfigurationError for unusable sizing.
func New(cfg Config, opts ...Option) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Segmenter{
		config: cfg,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the segmenter's sizing.
func (s *Segmenter) Config() Config {
	return s.config
}

// Segment prepares the unit sequence for message.
// Returns *TooManySegmentsError if the message needs more than
// stamp.MaxSegments data units.
func (s *Segmenter) Segment(message string) (*Sequence, error) {
	if len(message) < s.config.passThroughLimit() {
		return &Sequence{message: message, chunkSize: len(message), passThrough: true}, nil
	}

	chunkSize := s.config.ChunkSize()
	count := (len(message) + chunkSize - 1) / chunkSize
	if count > stamp.MaxSegments {
		return nil, &TooManySegmentsError{
			Size:      len(message),
			ChunkSize: chunkSize,
			Segments:  count,
		}
	}

	return &Sequence{
		id:        s.newID(),
		message:   message,
		chunkSize: chunkSize,
		segments:  count,
	}, nil
}

// Sequence is a lazy, finite, single-pass run of wire units.
// Not safe for concurrent use.
type Sequence struct {
	id          string
	message     string
	chunkSize   int
	segments    int
	passThrough bool

	// next is the position in the output: 0 is the announcement (or the whole
	// message on the fast path), k+1 is data unit k.
	next int
}

// ID returns the message identifier, or "" for a pass-through message.
func (q *Sequence) ID() string {
	return q.id
}

// Segmented reports whether the message was split.
func (q *Sequence) Segmented() bool {
	return !q.passThrough
}

// Segments returns the number of data units (zero on the fast path).
func (q *Sequence) Segments() int {
	return q.segments
}

// Len returns the total number of units the sequence yields.
func (q *Sequence) Len() int {
	if q.passThrough {
		return 1
	}
	return q.segments + 1
}

// Next returns the next unit, or false once the sequence is exhausted.
func (q *Sequence) Next() (string, bool) {
	if q.next >= q.Len() {
		return "", false
	}
	pos := q.next
	q.next++

	if q.passThrough {
		return q.message, true
	}
	if pos == 0 {
		return stamp.Stamp{ID: q.id, Index: q.segments - 1}.String(), true
	}

	index := pos - 1
	start := index * q.chunkSize
	end := min(start+q.chunkSize, len(q.message))
	return stamp.Stamp{ID: q.id, Index: index}.String() + q.message[start:end], true
}

// All returns an iterator over the remaining units. Units consumed through
// All are not produced again.
func (q *Sequence) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			unit, ok := q.Next()
			if !ok || !yield(unit) {
				return
			}
		}
	}
}

// Collect drains the remaining units into a slice.
func (q *Sequence) Collect() []string {
	units := make([]string, 0, q.Len()-q.next)
	for unit := range q.All() {
		units = append(units, unit)
	}
	return units
}
