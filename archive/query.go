package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoMetricsFound is returned when no metrics records exist in the dataset.
var ErrNoMetricsFound = errors.New("no metrics records found")

// QueryLatestMetrics finds the most recent metrics record.
// Filters by channel if non-empty.
// Returns the raw record map or ErrNoMetricsFound if none exist.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, channel string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "snapshots")
	}

	// Snapshots are ordered by creation time; walk latest first.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotHasPartition(snap, "record_kind", RecordKindMetrics) {
			continue
		}
		if channel != "" && !snapshotHasPartition(snap, "channel", channel) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
		}

		// Manifest paths are a coarse filter; record fields are authoritative.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if record["record_kind"] != RecordKindMetrics {
				continue
			}
			if channel != "" && record["channel"] != channel {
				continue
			}
			return record, nil
		}
	}

	return nil, ErrNoMetricsFound
}

// snapshotHasPartition reports whether any file in the snapshot lives under
// the exact key=value path segment.
func snapshotHasPartition(snap *lode.DatasetSnapshot, key, value string) bool {
	segment := key + "=" + value
	for _, f := range snap.Manifest.Files {
		for part := range strings.SplitSeq(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}
