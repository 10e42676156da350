package archive

import (
	"time"

	"github.com/pithecene-io/segwire/metrics"
)

// Record kinds, also the innermost Hive partition.
const (
	RecordKindMessage = "message"
	RecordKindMetrics = "metrics"
)

// MessageRecord is one reassembled (or passed-through) message.
type MessageRecord struct {
	// ID is the stamp identifier; empty for plain pass-through messages.
	ID string
	// Segments is the number of data units the message was carried in.
	// Zero for plain messages.
	Segments int
	// Message is the reassembled text.
	Message string
	// ReceivedAt is when the message completed. Determines the day partition.
	ReceivedAt time.Time
}

// DeriveDay computes the day partition from a timestamp.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// toMessageRecordMap converts a MessageRecord to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toMessageRecordMap(r MessageRecord, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind": RecordKindMessage,
		"segments":    r.Segments,
		"size_bytes":  len(r.Message),
		"message":     r.Message,
		"received_at": r.ReceivedAt.UTC().Format(time.RFC3339Nano),
		"channel":     cfg.Channel,
		"day":         DeriveDay(r.ReceivedAt),
	}
	if r.ID != "" {
		m["message_id"] = r.ID
	}
	return m
}

// toMetricsRecordMap converts a metrics snapshot to a map for Lode storage.
func toMetricsRecordMap(s metrics.Snapshot, cfg Config, at time.Time) map[string]any {
	return map[string]any{
		"record_kind": RecordKindMetrics,
		"ts":          at.UTC().Format(time.RFC3339),
		"channel":     cfg.Channel,
		"day":         DeriveDay(at),

		"messages_sent_total":         s.MessagesSent,
		"messages_segmented_total":    s.MessagesSegmented,
		"units_published_total":       s.UnitsPublished,
		"publish_failures_total":      s.PublishFailures,
		"segmentation_rejected_total": s.SegmentationRejected,

		"units_received_total":     s.UnitsReceived,
		"messages_delivered_total": s.MessagesDelivered,
		"delivery_failures_total":  s.DeliveryFailures,
		"units_dropped_total":      s.UnitsDropped,

		"plain_units_total":   s.PlainUnits,
		"announcements_total": s.Announcements,
		"data_units_total":    s.DataUnits,
		"duplicates_total":    s.Duplicates,
		"reassembled_total":   s.Reassembled,
		"expired_total":       s.Expired,
		"malformed_total":     s.Malformed,
		"inconsistent_total":  s.Inconsistent,
		"in_flight":           s.InFlight,

		"archive_write_success_total": s.ArchiveWriteSuccess,
		"archive_write_failure_total": s.ArchiveWriteFailure,

		"transport":       s.Transport,
		"archive_backend": s.ArchiveBackend,
	}
}
