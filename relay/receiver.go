package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/segwire/log"
	"github.com/pithecene-io/segwire/metrics"
	"github.com/pithecene-io/segwire/reassembly"
	"github.com/pithecene-io/segwire/stamp"
	"github.com/pithecene-io/segwire/transport"
)

// ReceiverConfig configures a Receiver.
type ReceiverConfig struct {
	// Registry reassembles units (required).
	Registry *reassembly.Registry
	// Sink receives delivered messages (required).
	Sink Sink
	// Collector receives receiver counters. Nil disables metrics.
	Collector *metrics.Collector
	// Logger is optional. Nil disables logging.
	Logger *log.Logger
	// SweepInterval runs the registry sweeper during Run.
	// Zero uses the registry TTL; no sweeper runs when both are zero.
	SweepInterval time.Duration
	// Now overrides the delivery timestamp clock (for tests).
	Now func() time.Time
}

// Receiver reassembles units and delivers finished messages to a sink.
// Handle is safe for concurrent use.
type Receiver struct {
	registry      *reassembly.Registry
	sink          Sink
	collector     *metrics.Collector
	logger        *log.Logger
	sweepInterval time.Duration
	now           func() time.Time
}

// NewReceiver creates a Receiver.
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	if cfg.Registry == nil {
		return nil, errors.New("relay: receiver requires a registry")
	}
	if cfg.Sink == nil {
		return nil, errors.New("relay: receiver requires a sink")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = cfg.Registry.TTL()
	}
	return &Receiver{
		registry:      cfg.Registry,
		sink:          cfg.Sink,
		collector:     cfg.Collector,
		logger:        logger,
		sweepInterval: interval,
		now:           now,
	}, nil
}

// Handle ingests one unit. Malformed and inconsistent units are logged,
// counted, and dropped. A sink error is returned to the caller.
func (r *Receiver) Handle(ctx context.Context, unit string) error {
	r.collector.IncUnitReceived()

	d, ok, err := r.registry.IngestDelivery(unit)
	if err != nil {
		r.drop(unit, err)
		return nil
	}
	if !ok {
		return nil
	}

	msg := Message{Text: d.Message, ID: d.ID, Segments: d.Segments, ReceivedAt: r.now()}
	if err := r.sink.Write(ctx, []Message{msg}); err != nil {
		r.collector.IncDeliveryFailure()
		r.logger.Error("delivery failed", map[string]any{
			"message_id": d.ID,
			"error":      err.Error(),
		})
		return fmt.Errorf("relay: deliver: %w", err)
	}

	r.collector.IncMessageDelivered()
	r.logger.Debug("message delivered", map[string]any{
		"message_id": d.ID,
		"segments":   d.Segments,
		"size_bytes": len(d.Message),
	})
	return nil
}

func (r *Receiver) drop(unit string, err error) {
	r.collector.IncUnitDropped()

	fields := map[string]any{"error": err.Error()}
	var malformed *stamp.MalformedUnitError
	var inconsistent *reassembly.InconsistentUnitError
	switch {
	case errors.As(err, &malformed):
		fields["reason"] = "malformed"
		fields["reason_detail"] = malformed.Reason
	case errors.As(err, &inconsistent):
		fields["reason"] = "inconsistent"
		fields["message_id"] = inconsistent.ID
		fields["index"] = inconsistent.Index
	default:
		fields["reason"] = "unknown"
	}
	fields["unit_bytes"] = len(unit)
	r.logger.Warn("unit dropped", fields)
}

// Run drains sub into Handle until ctx is canceled or the subscription ends.
// Runs the registry sweeper alongside when an interval is known. Flushes the
// sink before returning.
func (r *Receiver) Run(ctx context.Context, sub transport.Subscription) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweepDone := make(chan struct{})
	if r.sweepInterval > 0 {
		go func() {
			defer close(sweepDone)
			_ = r.registry.RunSweeper(runCtx, r.sweepInterval)
		}()
	} else {
		close(sweepDone)
	}

	r.logger.Info("receiver started", map[string]any{
		"sweep_interval": r.sweepInterval.String(),
	})

	runErr := sub.Run(runCtx, r.Handle)
	cancel()
	<-sweepDone

	if f, ok := r.sink.(Flusher); ok {
		flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer flushCancel()
		if err := f.Flush(flushCtx); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("relay: final flush: %w", err))
		}
	}

	r.logger.Info("receiver stopped", map[string]any{
		"in_flight": r.registry.Len(),
	})
	return runErr
}

// Snapshot merges registry counters into the collector and returns the result.
func (r *Receiver) Snapshot() metrics.Snapshot {
	st := r.registry.Stats()
	r.collector.AbsorbRegistryStats(metrics.RegistryCounters{
		Plain:         st.Plain,
		Announcements: st.Announcements,
		DataUnits:     st.DataUnits,
		Duplicates:    st.Duplicates,
		Completed:     st.Completed,
		Expired:       st.Expired,
		Malformed:     st.Malformed,
		Inconsistent:  st.Inconsistent,
		InFlight:      int64(st.InFlight),
	})
	return r.collector.Snapshot()
}
