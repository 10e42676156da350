package reader

import (
	"strings"
	"testing"
)

func TestParseMetricsRecord(t *testing.T) {
	// JSON round-trips turn every number into float64.
	record := map[string]any{
		"record_kind":                 "metrics",
		"ts":                          "2026-02-03T15:00:00Z",
		"channel":                     "orders",
		"messages_sent_total":         float64(5),
		"messages_segmented_total":    float64(2),
		"units_published_total":       float64(12),
		"units_received_total":        float64(11),
		"messages_delivered_total":    float64(4),
		"units_dropped_total":         float64(1),
		"reassembled_total":           float64(2),
		"expired_total":               float64(1),
		"in_flight":                   float64(0),
		"archive_write_success_total": float64(4),
		"transport":                   "redis",
		"archive_backend":             "fs",
	}

	view, err := ParseMetricsRecord(record)
	if err != nil {
		t.Fatalf("ParseMetricsRecord failed: %v", err)
	}

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"MessagesSent", view.MessagesSent, 5},
		{"MessagesSegmented", view.MessagesSegmented, 2},
		{"UnitsPublished", view.UnitsPublished, 12},
		{"UnitsReceived", view.UnitsReceived, 11},
		{"MessagesDelivered", view.MessagesDelivered, 4},
		{"UnitsDropped", view.UnitsDropped, 1},
		{"Reassembled", view.Reassembled, 2},
		{"Expired", view.Expired, 1},
		{"ArchiveWriteSuccess", view.ArchiveWriteSuccess, 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if view.Channel != "orders" {
		t.Errorf("Channel = %q, want %q", view.Channel, "orders")
	}
	if view.Transport != "redis" {
		t.Errorf("Transport = %q, want %q", view.Transport, "redis")
	}
}

func TestParseMetricsRecord_DirectInt64(t *testing.T) {
	record := map[string]any{
		"ts":                  "2026-02-03T15:00:00Z",
		"channel":             "orders",
		"messages_sent_total": int64(7),
		"in_flight":           3,
	}
	view, err := ParseMetricsRecord(record)
	if err != nil {
		t.Fatalf("ParseMetricsRecord failed: %v", err)
	}
	if view.MessagesSent != 7 {
		t.Errorf("MessagesSent = %d, want 7", view.MessagesSent)
	}
	if view.InFlight != 3 {
		t.Errorf("InFlight = %d, want 3", view.InFlight)
	}
}

func TestParseMetricsRecord_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
		field  string
	}{
		{"nil", nil, "nil record"},
		{"missing ts", map[string]any{"channel": "orders"}, "ts"},
		{"missing channel", map[string]any{"ts": "2026-02-03T15:00:00Z"}, "channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetricsRecord(tt.record)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %q", err, tt.field)
			}
		})
	}
}
