// Package archive persists delivered messages and metrics snapshots to a Lode
// dataset on the local filesystem or S3.
//
// Records are JSONL, Hive-partitioned by channel / day / record_kind. Writes
// are append-only; each Write call produces one Lode snapshot.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/segwire/metrics"
)

// DefaultDataset is the Lode dataset ID used when none is configured.
const DefaultDataset = "segwire"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"channel", "day", "record_kind"}

// Config holds archive configuration.
type Config struct {
	// Dataset is the Lode dataset ID (default: segwire).
	Dataset string
	// Channel is the partition key naming the transport channel.
	Channel string
}

func (c Config) withDefaults() Config {
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.Channel == "" {
		c.Channel = "default"
	}
	return c
}

// Client abstracts the archive storage client.
type Client interface {
	// WriteMessages appends a batch of delivered messages.
	// Must preserve ordering within the batch.
	WriteMessages(ctx context.Context, records []MessageRecord) error

	// WriteMetrics appends one metrics snapshot taken at the given time.
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, at time.Time) error

	// Close releases client resources.
	Close() error
}

// LodeClient is a Lode-backed implementation of Client.
type LodeClient struct {
	dataset lode.Dataset
	config  Config
}

// NewDataset creates a Lode dataset with the archive layout and codec.
// Used by both the write and read paths.
func NewDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return ds, nil
}

// NewClient creates a client with filesystem storage rooted at root.
func NewClient(cfg Config, root string) (*LodeClient, error) {
	return NewClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewClientWithFactory creates a client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	cfg = cfg.withDefaults()
	ds, err := NewDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, err
	}
	return &LodeClient{dataset: ds, config: cfg}, nil
}

// Dataset returns the underlying dataset for reads.
func (c *LodeClient) Dataset() lode.Dataset {
	return c.dataset
}

// WriteMessages writes a batch of message records as one snapshot.
func (c *LodeClient) WriteMessages(ctx context.Context, records []MessageRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, toMessageRecordMap(r, c.config))
	}

	if _, err := c.dataset.Write(ctx, rows, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.path(RecordKindMessage))
	}
	return nil
}

// WriteMetrics writes one metrics snapshot record.
func (c *LodeClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, at time.Time) error {
	rows := []any{toMetricsRecordMap(snap, c.config, at)}
	if _, err := c.dataset.Write(ctx, rows, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.path(RecordKindMetrics))
	}
	return nil
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

func (c *LodeClient) path(kind string) string {
	return fmt.Sprintf("%s/channel=%s/record_kind=%s", c.config.Dataset, c.config.Channel, kind)
}

var _ Client = (*LodeClient)(nil)
