// Package metrics provides counters for segmentation and reassembly activity.
//
// The Collector accumulates counters for one sender or receiver process. It is
// a leaf package with no internal dependencies. Registry counters are absorbed
// from reassembly.Stats snapshots rather than recorded live, avoiding
// double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Sender
	MessagesSent         int64 `json:"messages_sent"`
	MessagesSegmented    int64 `json:"messages_segmented"`
	UnitsPublished       int64 `json:"units_published"`
	PublishFailures      int64 `json:"publish_failures"`
	SegmentationRejected int64 `json:"segmentation_rejected"`

	// Receiver
	UnitsReceived     int64 `json:"units_received"`
	MessagesDelivered int64 `json:"messages_delivered"`
	DeliveryFailures  int64 `json:"delivery_failures"`
	UnitsDropped      int64 `json:"units_dropped"`

	// Registry (absorbed from reassembly.Stats)
	PlainUnits    int64 `json:"plain_units"`
	Announcements int64 `json:"announcements"`
	DataUnits     int64 `json:"data_units"`
	Duplicates    int64 `json:"duplicates"`
	Reassembled   int64 `json:"reassembled"`
	Expired       int64 `json:"expired"`
	Malformed     int64 `json:"malformed"`
	Inconsistent  int64 `json:"inconsistent"`
	InFlight      int64 `json:"in_flight"`

	// Archive
	ArchiveWriteSuccess int64 `json:"archive_write_success"`
	ArchiveWriteFailure int64 `json:"archive_write_failure"`

	// Dimensions (informational, set at construction)
	Transport      string `json:"transport"`
	Channel        string `json:"channel"`
	ArchiveBackend string `json:"archive_backend"`
}

// RegistryCounters mirrors reassembly.Stats without importing it.
type RegistryCounters struct {
	Plain         int64
	Announcements int64
	DataUnits     int64
	Duplicates    int64
	Completed     int64
	Expired       int64
	Malformed     int64
	Inconsistent  int64
	InFlight      int64
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	messagesSent         int64
	messagesSegmented    int64
	unitsPublished       int64
	publishFailures      int64
	segmentationRejected int64

	unitsReceived     int64
	messagesDelivered int64
	deliveryFailures  int64
	unitsDropped      int64

	registry RegistryCounters

	archiveWriteSuccess int64
	archiveWriteFailure int64

	transport      string
	channel        string
	archiveBackend string
}

// NewCollector creates a Collector with dimension labels.
// archiveBackend may be empty when no archive is configured.
func NewCollector(transport, channel, archiveBackend string) *Collector {
	return &Collector{
		transport:      transport,
		channel:        channel,
		archiveBackend: archiveBackend,
	}
}

func (c *Collector) add(field *int64, n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Sender ---

// IncMessageSent records a message handed to the sender, segmented or not.
func (c *Collector) IncMessageSent(segmented bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesSent++
	if segmented {
		c.messagesSegmented++
	}
	c.mu.Unlock()
}

// IncUnitsPublished records n units accepted by the transport.
func (c *Collector) IncUnitsPublished(n int64) {
	if c == nil {
		return
	}
	c.add(&c.unitsPublished, n)
}

// IncPublishFailure records a unit the transport refused.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.add(&c.publishFailures, 1)
}

// IncSegmentationRejected records a message refused before transmission.
func (c *Collector) IncSegmentationRejected() {
	if c == nil {
		return
	}
	c.add(&c.segmentationRejected, 1)
}

// --- Receiver ---

// IncUnitReceived records a unit taken off the transport.
func (c *Collector) IncUnitReceived() {
	if c == nil {
		return
	}
	c.add(&c.unitsReceived, 1)
}

// IncMessageDelivered records a message accepted by the sink.
func (c *Collector) IncMessageDelivered() {
	if c == nil {
		return
	}
	c.add(&c.messagesDelivered, 1)
}

// IncDeliveryFailure records a sink error.
func (c *Collector) IncDeliveryFailure() {
	if c == nil {
		return
	}
	c.add(&c.deliveryFailures, 1)
}

// IncUnitDropped records a unit dropped as malformed or inconsistent.
func (c *Collector) IncUnitDropped() {
	if c == nil {
		return
	}
	c.add(&c.unitsDropped, 1)
}

// --- Archive ---
// Archive counters are per-call, not per-record.

// IncArchiveWriteSuccess records a successful archive write.
func (c *Collector) IncArchiveWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.archiveWriteSuccess, 1)
}

// IncArchiveWriteFailure records a failed archive write.
func (c *Collector) IncArchiveWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.archiveWriteFailure, 1)
}

// --- Registry ---

// AbsorbRegistryStats replaces the registry counters with a fresh snapshot.
func (c *Collector) AbsorbRegistryStats(rc RegistryCounters) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.registry = rc
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		MessagesSent:         c.messagesSent,
		MessagesSegmented:    c.messagesSegmented,
		UnitsPublished:       c.unitsPublished,
		PublishFailures:      c.publishFailures,
		SegmentationRejected: c.segmentationRejected,

		UnitsReceived:     c.unitsReceived,
		MessagesDelivered: c.messagesDelivered,
		DeliveryFailures:  c.deliveryFailures,
		UnitsDropped:      c.unitsDropped,

		PlainUnits:    c.registry.Plain,
		Announcements: c.registry.Announcements,
		DataUnits:     c.registry.DataUnits,
		Duplicates:    c.registry.Duplicates,
		Reassembled:   c.registry.Completed,
		Expired:       c.registry.Expired,
		Malformed:     c.registry.Malformed,
		Inconsistent:  c.registry.Inconsistent,
		InFlight:      c.registry.InFlight,

		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,

		Transport:      c.transport,
		Channel:        c.channel,
		ArchiveBackend: c.archiveBackend,
	}
}
