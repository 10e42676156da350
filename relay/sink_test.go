package relay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/segwire/archive"
)

func msgs(texts ...string) []Message {
	out := make([]Message, len(texts))
	for i, t := range texts {
		out[i] = Message{Text: t, ReceivedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	}
	return out
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	s := NewWriterSink(bw, "\x00")

	if err := s.Write(t.Context(), msgs("a", "b")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("buffered writer flushed early: %q", buf.String())
	}
	if err := s.Flush(t.Context()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf.String() != "a\x00b\x00" {
		t.Errorf("output = %q, want %q", buf.String(), "a\x00b\x00")
	}
}

func TestArchiveSink(t *testing.T) {
	client, err := archive.NewClientWithFactory(archive.Config{Channel: "orders"}, lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("NewClientWithFactory: %v", err)
	}
	s := NewArchiveSink(client)

	batch := msgs("first", "second")
	batch[0].ID = "3f2b8c1e-9a4d-4e6f-8b21-0c7d5e9f1a23"
	batch[0].Segments = 2
	if err := s.Write(t.Context(), batch); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(t.Context(), nil); err != nil {
		t.Errorf("Write(nil) = %v, want nil", err)
	}

	snaps, err := client.Dataset().Snapshots(t.Context())
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1 (one write per batch)", len(snaps))
	}
	data, err := client.Dataset().Read(t.Context(), snaps[0].ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(data) != 2 {
		t.Errorf("records = %d, want 2", len(data))
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	m := NewMultiSink(a, b)

	if err := m.Write(t.Context(), msgs("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(a.msgs) != 1 || len(b.msgs) != 1 {
		t.Errorf("fan-out = %d/%d, want 1/1", len(a.msgs), len(b.msgs))
	}

	failing := &memorySink{err: errors.New("down")}
	c := &memorySink{}
	m = NewMultiSink(failing, c)
	if err := m.Write(t.Context(), msgs("y")); err == nil {
		t.Fatal("expected error from failing sink")
	}
	if len(c.msgs) != 0 {
		t.Error("sinks after a failure should not be written")
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !failing.closed || !c.closed {
		t.Error("Close should close every sink")
	}
}

func TestBufferedSink_CountTrigger(t *testing.T) {
	inner := &memorySink{}
	s, err := NewBufferedSink(inner, BufferedConfig{FlushCount: 3})
	if err != nil {
		t.Fatalf("NewBufferedSink: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Write(t.Context(), msgs("1", "2")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(inner.texts()) != 0 {
		t.Fatalf("flushed before threshold: %q", inner.texts())
	}
	if err := s.Write(t.Context(), msgs("3")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := inner.texts(); len(got) != 3 || got[0] != "1" || got[2] != "3" {
		t.Errorf("flushed = %q, want [1 2 3]", got)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
	if s.FlushTriggerStats()[FlushTriggerCount] != 1 {
		t.Errorf("count flushes = %d, want 1", s.FlushTriggerStats()[FlushTriggerCount])
	}
}

func TestBufferedSink_RestoresOnFailure(t *testing.T) {
	inner := &memorySink{err: errors.New("down")}
	s, err := NewBufferedSink(inner, BufferedConfig{FlushCount: 2})
	if err != nil {
		t.Fatalf("NewBufferedSink: %v", err)
	}

	if err := s.Write(t.Context(), msgs("a", "b")); err == nil {
		t.Fatal("expected flush error")
	}
	if s.Pending() != 2 {
		t.Errorf("Pending = %d, want 2 after failed flush", s.Pending())
	}

	inner.mu.Lock()
	inner.err = nil
	inner.mu.Unlock()

	if err := s.Write(t.Context(), msgs("c")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := inner.texts(); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("flushed = %q, want [a b c] in order", got)
	}
}

func TestBufferedSink_IntervalTrigger(t *testing.T) {
	inner := &memorySink{}
	s, err := NewBufferedSink(inner, BufferedConfig{FlushInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewBufferedSink: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Write(t.Context(), msgs("tick")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(inner.texts()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("interval flush did not happen")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.FlushTriggerStats()[FlushTriggerInterval] < 1 {
		t.Error("interval trigger not recorded")
	}
}

func TestBufferedSink_CloseFlushes(t *testing.T) {
	inner := &memorySink{}
	s, err := NewBufferedSink(inner, BufferedConfig{FlushCount: 100})
	if err != nil {
		t.Fatalf("NewBufferedSink: %v", err)
	}
	if err := s.Write(context.Background(), msgs("pending")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := inner.texts(); len(got) != 1 || got[0] != "pending" {
		t.Errorf("flushed = %q, want [pending]", got)
	}
	if !inner.closed {
		t.Error("inner sink not closed")
	}
	// Second close is safe.
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestBufferedSink_InvalidConfig(t *testing.T) {
	if _, err := NewBufferedSink(&memorySink{}, BufferedConfig{}); !errors.Is(err, ErrBufferedInvalidConfig) {
		t.Errorf("NewBufferedSink = %v, want %v", err, ErrBufferedInvalidConfig)
	}
}
