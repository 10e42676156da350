package reader

import "errors"

// ParseMetricsRecord converts an archive record (map[string]any) to a MetricsView.
// Handles both int64 (direct writes) and float64 (JSON round-trips) for numeric fields.
func ParseMetricsRecord(record map[string]any) (*MetricsView, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	view := &MetricsView{
		Ts: toString(record["ts"]),

		MessagesSent:         toInt64(record["messages_sent_total"]),
		MessagesSegmented:    toInt64(record["messages_segmented_total"]),
		UnitsPublished:       toInt64(record["units_published_total"]),
		PublishFailures:      toInt64(record["publish_failures_total"]),
		SegmentationRejected: toInt64(record["segmentation_rejected_total"]),

		UnitsReceived:     toInt64(record["units_received_total"]),
		MessagesDelivered: toInt64(record["messages_delivered_total"]),
		DeliveryFailures:  toInt64(record["delivery_failures_total"]),
		UnitsDropped:      toInt64(record["units_dropped_total"]),

		PlainUnits:    toInt64(record["plain_units_total"]),
		Announcements: toInt64(record["announcements_total"]),
		DataUnits:     toInt64(record["data_units_total"]),
		Duplicates:    toInt64(record["duplicates_total"]),
		Reassembled:   toInt64(record["reassembled_total"]),
		Expired:       toInt64(record["expired_total"]),
		Malformed:     toInt64(record["malformed_total"]),
		Inconsistent:  toInt64(record["inconsistent_total"]),
		InFlight:      toInt64(record["in_flight"]),

		ArchiveWriteSuccess: toInt64(record["archive_write_success_total"]),
		ArchiveWriteFailure: toInt64(record["archive_write_failure_total"]),

		Channel:        toString(record["channel"]),
		Transport:      toString(record["transport"]),
		ArchiveBackend: toString(record["archive_backend"]),
	}

	// The write path always sets these; missing values mean a corrupt record.
	if view.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if view.Channel == "" {
		return nil, errors.New("metrics record missing required field: channel")
	}

	return view, nil
}

// toInt64 converts a value to int64, handling float64 from JSON and int64 from direct writes.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
