// Package reader provides the read-side views for the segwire CLI.
//
// Views are plain structs shared by every output format and the TUI;
// no view carries data that only one renderer can show.
package reader

// UnitView describes one wire unit as the stamp codec sees it.
type UnitView struct {
	Kind         string `json:"kind"`
	ID           string `json:"id,omitempty"`
	Index        *int   `json:"index,omitempty"`
	Size         int    `json:"size_bytes"`
	PayloadSize  int    `json:"payload_bytes"`
	Preview      string `json:"preview"`
	Malformed    bool   `json:"malformed,omitempty"`
	MalformedWhy string `json:"malformed_reason,omitempty"`
}

// MessageSummary groups the units of one identifier seen in a stream.
type MessageSummary struct {
	ID           string `json:"id"`
	Announced    bool   `json:"announced"`
	LastIndex    *int   `json:"last_index,omitempty"`
	DataUnits    int    `json:"data_units"`
	PayloadBytes int    `json:"payload_bytes"`
	Complete     bool   `json:"complete"`
}

// StreamView summarizes a sequence of units.
type StreamView struct {
	Units     int              `json:"units"`
	Plain     int              `json:"plain"`
	Stamped   int              `json:"stamped"`
	Malformed int              `json:"malformed"`
	Messages  []MessageSummary `json:"messages"`
}

// MetricsView is the parsed form of an archived metrics record.
type MetricsView struct {
	Ts string `json:"ts"`

	// Sender
	MessagesSent         int64 `json:"messages_sent_total"`
	MessagesSegmented    int64 `json:"messages_segmented_total"`
	UnitsPublished       int64 `json:"units_published_total"`
	PublishFailures      int64 `json:"publish_failures_total"`
	SegmentationRejected int64 `json:"segmentation_rejected_total"`

	// Receiver
	UnitsReceived     int64 `json:"units_received_total"`
	MessagesDelivered int64 `json:"messages_delivered_total"`
	DeliveryFailures  int64 `json:"delivery_failures_total"`
	UnitsDropped      int64 `json:"units_dropped_total"`

	// Registry
	PlainUnits    int64 `json:"plain_units_total"`
	Announcements int64 `json:"announcements_total"`
	DataUnits     int64 `json:"data_units_total"`
	Duplicates    int64 `json:"duplicates_total"`
	Reassembled   int64 `json:"reassembled_total"`
	Expired       int64 `json:"expired_total"`
	Malformed     int64 `json:"malformed_total"`
	Inconsistent  int64 `json:"inconsistent_total"`
	InFlight      int64 `json:"in_flight"`

	// Archive
	ArchiveWriteSuccess int64 `json:"archive_write_success_total"`
	ArchiveWriteFailure int64 `json:"archive_write_failure_total"`

	// Dimensions
	Channel        string `json:"channel"`
	Transport      string `json:"transport"`
	ArchiveBackend string `json:"archive_backend"`
}
