package reassembly

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/segwire/segment"
	"github.com/pithecene-io/segwire/stamp"
)

const (
	idA = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	idB = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// scenarioUnits are the three units of "0123456789ABCDE" at chunk size 10.
func scenarioUnits(id string) []string {
	return []string{
		id + "|01|",
		id + "|00|0123456789",
		id + "|01|ABCDE",
	}
}

// permutations returns every ordering of units.
func permutations(units []string) [][]string {
	if len(units) <= 1 {
		return [][]string{append([]string(nil), units...)}
	}
	var out [][]string
	for i := range units {
		rest := make([]string, 0, len(units)-1)
		rest = append(rest, units[:i]...)
		rest = append(rest, units[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{units[i]}, p...))
		}
	}
	return out
}

func segmentUnits(t *testing.T, cfg segment.Config, message string) []string {
	t.Helper()
	s, err := segment.New(cfg)
	if err != nil {
		t.Fatalf("segment.New failed: %v", err)
	}
	seq, err := s.Segment(message)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	return seq.Collect()
}

func TestIngest_PlainPassThrough(t *testing.T) {
	r := New()

	msg, ok, err := r.Ingest("hello there")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !ok || msg != "hello there" {
		t.Errorf("Ingest = (%q, %v), want (%q, true)", msg, ok, "hello there")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if got := r.Stats().Plain; got != 1 {
		t.Errorf("Stats().Plain = %d, want 1", got)
	}
}

func TestIngest_ConcreteScenarioEveryOrder(t *testing.T) {
	for _, order := range permutations(scenarioUnits(idA)) {
		t.Run(fmt.Sprintf("%q", order), func(t *testing.T) {
			r := New()
			for i, unit := range order {
				msg, ok, err := r.Ingest(unit)
				if err != nil {
					t.Fatalf("Ingest(%d) failed: %v", i, err)
				}
				last := i == len(order)-1
				if ok != last {
					t.Fatalf("Ingest(%d) ok = %v, want %v", i, ok, last)
				}
				if last && msg != "0123456789ABCDE" {
					t.Errorf("message = %q, want %q", msg, "0123456789ABCDE")
				}
			}
			if r.Len() != 0 {
				t.Errorf("Len() = %d after completion, want 0", r.Len())
			}
		})
	}
}

func TestIngest_CompletesExactlyOnce(t *testing.T) {
	r := New()
	units := scenarioUnits(idA)
	for _, unit := range units {
		if _, _, err := r.Ingest(unit); err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
	}

	// A straggling duplicate starts a fresh entry instead of re-delivering.
	_, ok, err := r.Ingest(units[1])
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if ok {
		t.Error("duplicate unit after completion produced a second delivery")
	}
	if got := r.Stats().Completed; got != 1 {
		t.Errorf("Completed = %d, want 1", got)
	}
}

func TestIngest_GapIsNotComplete(t *testing.T) {
	r := New()

	// Index 2 arrives first, then the announcement for last index 2: the slot
	// list already has length 3 but slots 0 and 1 are empty.
	if _, ok, _ := r.Ingest(idA + "|02|tail"); ok {
		t.Fatal("unexpected delivery")
	}
	if _, ok, _ := r.Ingest(idA + "|02|"); ok {
		t.Fatal("delivery with missing slots 0 and 1")
	}
	if _, ok, _ := r.Ingest(idA + "|00|head-"); ok {
		t.Fatal("delivery with missing slot 1")
	}
	msg, ok, err := r.Ingest(idA + "|01|body-")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !ok || msg != "head-body-tail" {
		t.Errorf("Ingest = (%q, %v), want (%q, true)", msg, ok, "head-body-tail")
	}
}

func TestIngest_Interleaved(t *testing.T) {
	cfg := segment.Config{MaxWireSize: 130, StampOverhead: 70, SafetyBuffer: 50, PassThroughBelow: 10}
	msgA := strings.Repeat("alpha-", 40)
	msgB := strings.Repeat("bravo!", 25)

	units := append(segmentUnits(t, cfg, msgA), segmentUnits(t, cfg, msgB)...)
	rng := rand.New(rand.NewPCG(7, 11))
	rng.Shuffle(len(units), func(i, j int) { units[i], units[j] = units[j], units[i] })

	r := New()
	got := map[string]int{}
	for _, unit := range units {
		msg, ok, err := r.Ingest(unit)
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if ok {
			got[msg]++
		}
	}

	if got[msgA] != 1 || got[msgB] != 1 || len(got) != 2 {
		t.Errorf("deliveries = %d distinct, A=%d B=%d; want exactly one of each", len(got), got[msgA], got[msgB])
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestIngest_RoundTripRandomOrders(t *testing.T) {
	cfg := segment.Config{MaxWireSize: 100, StampOverhead: 40, SafetyBuffer: 0, PassThroughBelow: 1}
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := range 25 {
		size := rng.IntN(60*stamp.MaxSegments) + 1
		var b strings.Builder
		for i := range size {
			b.WriteByte(byte('a' + (i+trial)%26))
		}
		message := b.String()

		units := segmentUnits(t, cfg, message)
		rng.Shuffle(len(units), func(i, j int) { units[i], units[j] = units[j], units[i] })

		r := New()
		deliveries := 0
		for i, unit := range units {
			d, ok, err := r.IngestDelivery(unit)
			if err != nil {
				t.Fatalf("trial %d: Ingest failed: %v", trial, err)
			}
			if !ok {
				continue
			}
			deliveries++
			if i != len(units)-1 {
				t.Errorf("trial %d: delivered at unit %d of %d", trial, i+1, len(units))
			}
			if d.Message != message {
				t.Errorf("trial %d: message mismatch (%d bytes, want %d)", trial, len(d.Message), len(message))
			}
			if d.Segments != len(units)-1 {
				t.Errorf("trial %d: Segments = %d, want %d", trial, d.Segments, len(units)-1)
			}
		}
		if deliveries != 1 {
			t.Errorf("trial %d: %d deliveries, want 1", trial, deliveries)
		}
	}
}

func TestIngest_Duplicates(t *testing.T) {
	r := New()
	units := scenarioUnits(idA)

	for _, unit := range []string{units[1], units[1], units[0], units[0]} {
		if _, ok, err := r.Ingest(unit); err != nil || ok {
			t.Fatalf("Ingest(%q) = ok %v, err %v", unit, ok, err)
		}
	}
	msg, ok, err := r.Ingest(units[2])
	if err != nil || !ok || msg != "0123456789ABCDE" {
		t.Fatalf("Ingest = (%q, %v, %v)", msg, ok, err)
	}
	if got := r.Stats().Duplicates; got != 1 {
		t.Errorf("Duplicates = %d, want 1", got)
	}
}

func TestIngest_Inconsistent(t *testing.T) {
	tests := []struct {
		name  string
		units []string
	}{
		{"data beyond announcement", []string{idA + "|01|", idA + "|05|x"}},
		{"conflicting announcement", []string{idA + "|01|", idA + "|03|"}},
		{"announcement below data", []string{idA + "|04|x", idA + "|02|"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hooked []Expired
			r := New(WithExpireHook(func(x Expired) { hooked = append(hooked, x) }))

			if _, _, err := r.Ingest(tt.units[0]); err != nil {
				t.Fatalf("first Ingest failed: %v", err)
			}
			_, ok, err := r.Ingest(tt.units[1])
			var inconsistent *InconsistentUnitError
			if !errors.As(err, &inconsistent) {
				t.Fatalf("error = %v, want *InconsistentUnitError", err)
			}
			if ok {
				t.Error("inconsistent unit produced a delivery")
			}
			if r.Len() != 0 {
				t.Errorf("Len() = %d, want 0 after discard", r.Len())
			}
			if len(hooked) != 1 || hooked[0].Reason != ExpireInconsistent {
				t.Errorf("hook calls = %+v, want one inconsistent", hooked)
			}
		})
	}
}

func TestIngest_Malformed(t *testing.T) {
	r := New()

	_, ok, err := r.Ingest(idA + "|x1|payload")
	var malformed *stamp.MalformedUnitError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want *stamp.MalformedUnitError", err)
	}
	if ok {
		t.Error("malformed unit produced a delivery")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if got := r.Stats().Malformed; got != 1 {
		t.Errorf("Malformed = %d, want 1", got)
	}
}

func TestRegistry_TTLSweepsLazily(t *testing.T) {
	clock := newFakeClock()
	var expired []Expired
	r := New(
		WithTTL(time.Minute),
		WithSweepInterval(10*time.Second),
		WithClock(clock.Now),
		WithExpireHook(func(x Expired) { expired = append(expired, x) }),
	)

	if _, _, err := r.Ingest(idA + "|00|lost"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	clock.Advance(30 * time.Second)
	if _, _, err := r.Ingest(idB + "|00|young"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	clock.Advance(45 * time.Second)
	if _, _, err := r.Ingest("plain traffic"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("plain units must not sweep; Len() = %d, want 2", r.Len())
	}

	// The next stamped unit triggers the sweep; A is 75s old, B is 45s old.
	if _, _, err := r.Ingest(idB + "|01|"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	if len(expired) != 1 || expired[0].ID != idA || expired[0].Reason != ExpireTTL {
		t.Errorf("expired = %+v, want %s by ttl", expired, idA)
	}
	if expired[0].Slots != 1 {
		t.Errorf("Slots = %d, want 1", expired[0].Slots)
	}

	msg, ok, err := r.Ingest(idB + "|01|-blood")
	if err != nil || !ok || msg != "young-blood" {
		t.Errorf("Ingest = (%q, %v, %v), want young-blood", msg, ok, err)
	}
}

func TestRegistry_Sweep(t *testing.T) {
	clock := newFakeClock()
	r := New(WithTTL(time.Minute), WithClock(clock.Now))

	for _, id := range []string{idA, idB} {
		if _, _, err := r.Ingest(id + "|03|"); err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
	}

	if n := r.Sweep(clock.Now().Add(59 * time.Second)); n != 0 {
		t.Errorf("Sweep before TTL removed %d, want 0", n)
	}
	if n := r.Sweep(clock.Now().Add(time.Minute)); n != 2 {
		t.Errorf("Sweep at TTL removed %d, want 2", n)
	}
	if got := r.Stats().Expired; got != 2 {
		t.Errorf("Expired = %d, want 2", got)
	}
}

func TestRegistry_SweepWithoutTTL(t *testing.T) {
	r := New()
	if _, _, err := r.Ingest(idA + "|03|"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n := r.Sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("Sweep removed %d entries without a TTL", n)
	}
}

func TestRegistry_Expire(t *testing.T) {
	var expired []Expired
	r := New(WithExpireHook(func(x Expired) { expired = append(expired, x) }))

	if _, _, err := r.Ingest(idA + "|00|abc"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !r.Expire(idA) {
		t.Error("Expire returned false for a known identifier")
	}
	if r.Expire(idA) {
		t.Error("Expire returned true for a removed identifier")
	}
	if len(expired) != 1 || expired[0].Reason != ExpireManual {
		t.Errorf("expired = %+v, want one manual", expired)
	}
}

func TestRegistry_MaxEntriesEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	var expired []Expired
	r := New(
		WithMaxEntries(1),
		WithClock(clock.Now),
		WithExpireHook(func(x Expired) { expired = append(expired, x) }),
	)

	if _, _, err := r.Ingest(idA + "|00|first"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	clock.Advance(time.Second)
	if _, _, err := r.Ingest(idB + "|00|second"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	if len(expired) != 1 || expired[0].ID != idA || expired[0].Reason != ExpireEvicted {
		t.Errorf("expired = %+v, want %s evicted", expired, idA)
	}
}

func TestRegistry_RunSweeper(t *testing.T) {
	r := New(WithTTL(time.Nanosecond))
	if _, _, err := r.Ingest(idA + "|01|"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.RunSweeper(ctx, time.Millisecond) }()

	deadline := time.After(5 * time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not expire the entry")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("RunSweeper returned %v, want nil", err)
	}
}

func TestRegistry_RunSweeperInvalidInterval(t *testing.T) {
	if err := New().RunSweeper(t.Context(), 0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("RunSweeper(0) = %v, want ErrInvalidInterval", err)
	}
}

func TestRegistry_ConcurrentIngest(t *testing.T) {
	cfg := segment.Config{MaxWireSize: 130, StampOverhead: 70, SafetyBuffer: 50, PassThroughBelow: 10}
	const messages = 32

	want := make(map[string]bool, messages)
	var all []string
	for i := range messages {
		msg := strings.Repeat(fmt.Sprintf("m%02d.", i), 20+i)
		want[msg] = true
		all = append(all, segmentUnits(t, cfg, msg)...)
	}
	rng := rand.New(rand.NewPCG(3, 5))
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	r := New()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = map[string]int{}
	)
	const workers = 8
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < len(all); i += workers {
				msg, ok, err := r.Ingest(all[i])
				if err != nil {
					t.Errorf("Ingest failed: %v", err)
					return
				}
				if ok {
					mu.Lock()
					got[msg]++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if len(got) != messages {
		t.Errorf("delivered %d distinct messages, want %d", len(got), messages)
	}
	for msg, n := range got {
		if !want[msg] || n != 1 {
			t.Errorf("message delivered %d times (known=%v)", n, want[msg])
		}
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
