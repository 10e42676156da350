package archive

import (
	"context"
	"time"

	"github.com/pithecene-io/segwire/metrics"
)

// InstrumentedClient wraps a Client and counts writes on a metrics collector.
// Each WriteMessages call increments archive_write_success or
// archive_write_failure. Metrics writes are not counted.
type InstrumentedClient struct {
	inner     Client
	collector *metrics.Collector
}

// NewInstrumentedClient wraps a client with metrics instrumentation.
func NewInstrumentedClient(inner Client, collector *metrics.Collector) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, collector: collector}
}

// WriteMessages delegates to the inner client and records success or failure.
func (c *InstrumentedClient) WriteMessages(ctx context.Context, records []MessageRecord) error {
	err := c.inner.WriteMessages(ctx, records)
	if err != nil {
		c.collector.IncArchiveWriteFailure()
	} else {
		c.collector.IncArchiveWriteSuccess()
	}
	return err
}

// WriteMetrics delegates to the inner client.
func (c *InstrumentedClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, at time.Time) error {
	return c.inner.WriteMetrics(ctx, snap, at)
}

// Close delegates to the inner client.
func (c *InstrumentedClient) Close() error {
	return c.inner.Close()
}

var _ Client = (*InstrumentedClient)(nil)
