// Package reassembly rebuilds segmented messages from wire units.
//
// A Registry owns the in-flight state for every message identifier it has
// seen. Each call to Ingest takes one received unit: plain units come straight
// back, stamped units are accumulated until the announcement and every data
// slot are present, at which point the joined message is returned exactly once
// and the entry is discarded. Units may arrive in any order and units of
// different messages may interleave freely.
//
// Entries that never complete are bounded by an optional TTL, swept lazily
// during Ingest or by RunSweeper, and by an optional cap on in-flight entries.
package reassembly

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pithecene-io/segwire/stamp"
)

// ExpireReason says why an entry left the registry without completing.
type ExpireReason string

const (
	// ExpireTTL means the entry outlived the registry TTL.
	ExpireTTL ExpireReason = "ttl"
	// ExpireEvicted means the entry was the oldest when MaxEntries was reached.
	ExpireEvicted ExpireReason = "evicted"
	// ExpireManual means the entry was removed through Expire.
	ExpireManual ExpireReason = "manual"
	// ExpireInconsistent means a contradicting unit invalidated the entry.
	ExpireInconsistent ExpireReason = "inconsistent"
)

// Expired describes an entry removed before completion.
type Expired struct {
	ID     string
	Slots  int // slots written when removed
	Age    time.Duration
	Reason ExpireReason
}

// Delivery is a message ready for the application.
type Delivery struct {
	// Message is the plain unit or the joined payload.
	Message string
	// ID is the message identifier; empty for plain units.
	ID string
	// Segments is the number of data units joined; zero for plain units.
	Segments int
}

// Plain reports whether the delivery was an unsegmented unit.
func (d Delivery) Plain() bool {
	return d.ID == ""
}

// Stats is a point-in-time view of registry activity.
type Stats struct {
	InFlight      int
	Plain         int64
	Announcements int64
	DataUnits     int64
	Duplicates    int64
	Completed     int64
	Expired       int64
	Malformed     int64
	Inconsistent  int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL expires entries older than ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// WithSweepInterval sets how often Ingest sweeps expired entries.
// Defaults to the TTL.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) {
		r.sweepInterval = d
	}
}

// WithMaxEntries caps in-flight entries; the oldest entry is evicted to admit
// a new identifier. Zero means no cap.
func WithMaxEntries(n int) Option {
	return func(r *Registry) {
		r.maxEntries = n
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithExpireHook registers a callback for entries removed before completion.
// The hook runs outside the registry lock.
func WithExpireHook(fn func(Expired)) Option {
	return func(r *Registry) {
		r.onExpire = fn
	}
}

// Registry tracks in-flight segmented messages. Safe for concurrent use.
type Registry struct {
	ttl           time.Duration
	sweepInterval time.Duration
	maxEntries    int
	now           func() time.Time
	onExpire      func(Expired)

	mu        sync.Mutex // guards everything below
	entries   map[string]*entry
	lastSweep time.Time
	stats     Stats
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sweepInterval <= 0 {
		r.sweepInterval = r.ttl
	}
	r.lastSweep = r.now()
	return r
}

// Ingest consumes one wire unit. It returns the message and true when a plain
// unit arrives or a segmented message completes, and false while segments are
// still outstanding.
//
// Errors:
//   - *stamp.MalformedUnitError: the unit looks stamped but cannot be decoded;
//     no state is created
//   - *InconsistentUnitError: the unit contradicts its entry; the entry is
//     discarded
func (r *Registry) Ingest(unit string) (string, bool, error) {
	d, ok, err := r.IngestDelivery(unit)
	return d.Message, ok, err
}

// IngestDelivery is Ingest with message metadata.
func (r *Registry) IngestDelivery(unit string) (Delivery, bool, error) {
	u, err := stamp.Parse(unit)
	if err != nil {
		r.mu.Lock()
		r.stats.Malformed++
		r.mu.Unlock()
		return Delivery{}, false, err
	}
	if u.Kind == stamp.KindPlain {
		r.mu.Lock()
		r.stats.Plain++
		r.mu.Unlock()
		return Delivery{Message: u.Payload}, true, nil
	}

	now := r.now()
	r.mu.Lock()
	expired := r.sweepDueLocked(now)
	d, ok, err := r.applyLocked(u, now, &expired)
	r.mu.Unlock()

	r.notify(expired)
	return d, ok, err
}

// applyLocked folds a stamped unit into its entry. Caller must hold mu.
func (r *Registry) applyLocked(u stamp.Unit, now time.Time, expired *[]Expired) (Delivery, bool, error) {
	id, index := u.Stamp.ID, u.Stamp.Index

	e, ok := r.entries[id]
	if !ok {
		if evicted, ok := r.evictOldestLocked(now); ok {
			*expired = append(*expired, evicted)
		}
		e = newEntry(now)
		r.entries[id] = e
	}

	switch u.Kind {
	case stamp.KindAnnouncement:
		r.stats.Announcements++
		if e.lastIndex != unknownLastIndex && e.lastIndex != index {
			return r.rejectLocked(id, e, index, now, expired, "conflicting announcement")
		}
		if len(e.slots) > index+1 {
			return r.rejectLocked(id, e, index, now, expired, "announcement below received data index")
		}
		e.lastIndex = index
	case stamp.KindData:
		r.stats.DataUnits++
		if e.lastIndex != unknownLastIndex && index > e.lastIndex {
			return r.rejectLocked(id, e, index, now, expired, "data index beyond announcement")
		}
		if e.put(index, u.Payload) {
			r.stats.Duplicates++
		}
	}

	if !e.complete() {
		return Delivery{}, false, nil
	}

	delete(r.entries, id)
	r.stats.Completed++
	return Delivery{
		Message:  e.join(),
		ID:       id,
		Segments: len(e.slots),
	}, true, nil
}

// rejectLocked discards an entry invalidated by index. Caller must hold mu.
func (r *Registry) rejectLocked(id string, e *entry, index int, now time.Time, expired *[]Expired, reason string) (Delivery, bool, error) {
	last := e.lastIndex
	delete(r.entries, id)
	r.stats.Inconsistent++
	*expired = append(*expired, Expired{
		ID:     id,
		Slots:  e.filled,
		Age:    now.Sub(e.createdAt),
		Reason: ExpireInconsistent,
	})
	return Delivery{}, false, &InconsistentUnitError{
		ID:        id,
		Index:     index,
		LastIndex: last,
		Reason:    reason,
	}
}

// evictOldestLocked makes room for a new entry when the cap is reached.
// Caller must hold mu.
func (r *Registry) evictOldestLocked(now time.Time) (Expired, bool) {
	if r.maxEntries <= 0 || len(r.entries) < r.maxEntries {
		return Expired{}, false
	}

	var (
		oldestID string
		oldest   *entry
	)
	for id, e := range r.entries {
		if oldest == nil || e.createdAt.Before(oldest.createdAt) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return Expired{}, false
	}

	delete(r.entries, oldestID)
	r.stats.Expired++
	return Expired{
		ID:     oldestID,
		Slots:  oldest.filled,
		Age:    now.Sub(oldest.createdAt),
		Reason: ExpireEvicted,
	}, true
}

// sweepDueLocked runs a sweep if the TTL is set and the sweep interval has
// elapsed. Caller must hold mu.
func (r *Registry) sweepDueLocked(now time.Time) []Expired {
	if r.ttl <= 0 || now.Sub(r.lastSweep) < r.sweepInterval {
		return nil
	}
	return r.sweepLocked(now)
}

// sweepLocked removes entries older than the TTL. Caller must hold mu.
func (r *Registry) sweepLocked(now time.Time) []Expired {
	r.lastSweep = now
	if r.ttl <= 0 {
		return nil
	}

	var expired []Expired
	for id, e := range r.entries {
		age := now.Sub(e.createdAt)
		if age < r.ttl {
			continue
		}
		delete(r.entries, id)
		r.stats.Expired++
		expired = append(expired, Expired{
			ID:     id,
			Slots:  e.filled,
			Age:    age,
			Reason: ExpireTTL,
		})
	}
	return expired
}

// Sweep removes entries older than the TTL as of now and returns how many
// were removed. A registry without a TTL never expires entries this way.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	expired := r.sweepLocked(now)
	r.mu.Unlock()

	r.notify(expired)
	return len(expired)
}

// Expire removes the entry for id. Reports whether one existed.
func (r *Registry) Expire(id string) bool {
	now := r.now()
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
		r.stats.Expired++
	}
	r.mu.Unlock()

	if ok {
		r.notify([]Expired{{
			ID:     id,
			Slots:  e.filled,
			Age:    now.Sub(e.createdAt),
			Reason: ExpireManual,
		}})
	}
	return ok
}

// ErrInvalidInterval is returned by RunSweeper for a non-positive interval.
var ErrInvalidInterval = errors.New("reassembly: sweep interval must be positive")

// RunSweeper sweeps expired entries every interval until ctx is done.
// Returns nil on cancellation.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

// Len returns the number of in-flight entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Stats returns a snapshot of registry counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stats
	s.InFlight = len(r.entries)
	return s
}

// TTL returns the configured entry lifetime (zero when expiry is disabled).
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

func (r *Registry) notify(expired []Expired) {
	if r.onExpire == nil {
		return
	}
	for _, x := range expired {
		r.onExpire(x)
	}
}
