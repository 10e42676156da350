package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("redis", "segwire:units", "fs")

	c.IncMessageSent(false)
	c.IncMessageSent(true)
	c.IncMessageSent(true)
	c.IncUnitsPublished(5)
	c.IncUnitsPublished(1)
	c.IncPublishFailure()
	c.IncSegmentationRejected()
	c.IncUnitReceived()
	c.IncUnitReceived()
	c.IncMessageDelivered()
	c.IncDeliveryFailure()
	c.IncUnitDropped()
	c.IncUnitDropped()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"MessagesSent", s.MessagesSent, 3},
		{"MessagesSegmented", s.MessagesSegmented, 2},
		{"UnitsPublished", s.UnitsPublished, 6},
		{"PublishFailures", s.PublishFailures, 1},
		{"SegmentationRejected", s.SegmentationRejected, 1},
		{"UnitsReceived", s.UnitsReceived, 2},
		{"MessagesDelivered", s.MessagesDelivered, 1},
		{"DeliveryFailures", s.DeliveryFailures, 1},
		{"UnitsDropped", s.UnitsDropped, 2},
		{"ArchiveWriteSuccess", s.ArchiveWriteSuccess, 2},
		{"ArchiveWriteFailure", s.ArchiveWriteFailure, 1},
	}
	for _, tc := range checks {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("webhook", "orders", "s3")
	s := c.Snapshot()

	if s.Transport != "webhook" {
		t.Errorf("Transport = %q, want %q", s.Transport, "webhook")
	}
	if s.Channel != "orders" {
		t.Errorf("Channel = %q, want %q", s.Channel, "orders")
	}
	if s.ArchiveBackend != "s3" {
		t.Errorf("ArchiveBackend = %q, want %q", s.ArchiveBackend, "s3")
	}
}

func TestCollector_AbsorbRegistryStats(t *testing.T) {
	c := NewCollector("redis", "segwire:units", "")

	c.AbsorbRegistryStats(RegistryCounters{
		Plain:         4,
		Announcements: 2,
		DataUnits:     9,
		Duplicates:    1,
		Completed:     2,
		Expired:       1,
		Malformed:     3,
		Inconsistent:  1,
		InFlight:      0,
	})

	s := c.Snapshot()
	if s.PlainUnits != 4 {
		t.Errorf("PlainUnits = %d, want 4", s.PlainUnits)
	}
	if s.DataUnits != 9 {
		t.Errorf("DataUnits = %d, want 9", s.DataUnits)
	}
	if s.Reassembled != 2 {
		t.Errorf("Reassembled = %d, want 2", s.Reassembled)
	}
	if s.Malformed != 3 {
		t.Errorf("Malformed = %d, want 3", s.Malformed)
	}

	// A later absorb replaces, not accumulates.
	c.AbsorbRegistryStats(RegistryCounters{Plain: 5, InFlight: 2})
	s = c.Snapshot()
	if s.PlainUnits != 5 {
		t.Errorf("PlainUnits = %d, want 5", s.PlainUnits)
	}
	if s.DataUnits != 0 {
		t.Errorf("DataUnits = %d, want 0", s.DataUnits)
	}
	if s.InFlight != 2 {
		t.Errorf("InFlight = %d, want 2", s.InFlight)
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("redis", "segwire:units", "fs")
	c.IncUnitReceived()
	c.IncArchiveWriteSuccess()

	s1 := c.Snapshot()

	c.IncMessageDelivered()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteSuccess()

	if s1.MessagesDelivered != 0 {
		t.Errorf("s1.MessagesDelivered = %d, want 0 (snapshot should be frozen)", s1.MessagesDelivered)
	}
	if s1.ArchiveWriteSuccess != 1 {
		t.Errorf("s1.ArchiveWriteSuccess = %d, want 1 (snapshot should be frozen)", s1.ArchiveWriteSuccess)
	}

	s2 := c.Snapshot()
	if s2.MessagesDelivered != 1 {
		t.Errorf("s2.MessagesDelivered = %d, want 1", s2.MessagesDelivered)
	}
	if s2.ArchiveWriteSuccess != 3 {
		t.Errorf("s2.ArchiveWriteSuccess = %d, want 3", s2.ArchiveWriteSuccess)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncMessageSent(true)
	c.IncUnitsPublished(3)
	c.IncPublishFailure()
	c.IncSegmentationRejected()
	c.IncUnitReceived()
	c.IncMessageDelivered()
	c.IncDeliveryFailure()
	c.IncUnitDropped()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteFailure()
	c.AbsorbRegistryStats(RegistryCounters{Plain: 1})

	s := c.Snapshot()
	if s.MessagesSent != 0 {
		t.Errorf("nil collector snapshot MessagesSent = %d, want 0", s.MessagesSent)
	}
	if s.PlainUnits != 0 {
		t.Errorf("nil collector snapshot PlainUnits = %d, want 0", s.PlainUnits)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("redis", "segwire:units", "fs")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncUnitReceived()
				c.IncUnitsPublished(2)
				c.IncArchiveWriteSuccess()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.UnitsReceived != want {
		t.Errorf("UnitsReceived = %d, want %d", s.UnitsReceived, want)
	}
	if s.UnitsPublished != 2*want {
		t.Errorf("UnitsPublished = %d, want %d", s.UnitsPublished, 2*want)
	}
	if s.ArchiveWriteSuccess != want {
		t.Errorf("ArchiveWriteSuccess = %d, want %d", s.ArchiveWriteSuccess, want)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	c := NewCollector("redis", "segwire:units", "")
	s := c.Snapshot()

	if s.MessagesSent != 0 || s.UnitsPublished != 0 || s.PublishFailures != 0 {
		t.Error("fresh collector should have zero sender counters")
	}
	if s.UnitsReceived != 0 || s.MessagesDelivered != 0 || s.UnitsDropped != 0 {
		t.Error("fresh collector should have zero receiver counters")
	}
	if s.ArchiveWriteSuccess != 0 || s.ArchiveWriteFailure != 0 {
		t.Error("fresh collector should have zero archive counters")
	}
}
