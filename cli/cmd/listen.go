package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/archive"
	"github.com/pithecene-io/segwire/metrics"
	"github.com/pithecene-io/segwire/relay"
	"github.com/pithecene-io/segwire/transport/webhook"
)

// metricsWriteTimeout bounds the final metrics write after shutdown.
const metricsWriteTimeout = 30 * time.Second

// ListenCommand returns the listen command.
// Listen subscribes to a transport and reassembles units until SIGINT/SIGTERM.
func ListenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Receive units from redis or webhook and reassemble messages",
		Flags: joinFlags(commonFlags(), registryFlags(), transportFlags(), archiveFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "delimiter",
				Usage: "Written after each message on stdout",
				Value: "\n",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not write messages to stdout (requires an archive)",
			},
		}),
		Action: listenAction,
	}
}

func listenAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	channel := transportChannel(cfg)
	logger, err := buildLogger(c, cfg, "listen", channel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(cfg.Transport.Type, channel, cfg.Archive.Backend)

	var sinks []relay.Sink
	if !c.Bool("quiet") {
		sinks = append(sinks, relay.NewWriterSink(stdout(c), c.String("delimiter")))
	}

	client, err := buildArchive(ctx, cfg, channel)
	if err != nil {
		return err
	}
	if client != nil {
		var archived relay.Sink = relay.NewArchiveSink(archive.NewInstrumentedClient(client, collector))
		if cfg.Archive.FlushCount > 0 || cfg.Archive.FlushInterval.Duration > 0 {
			buffered, err := relay.NewBufferedSink(archived, relay.BufferedConfig{
				FlushCount:    cfg.Archive.FlushCount,
				FlushInterval: cfg.Archive.FlushInterval.Duration,
				Logger:        logger,
			})
			if err != nil {
				return usageError(err)
			}
			archived = buffered
		}
		sinks = append(sinks, archived)
	}
	if len(sinks) == 0 {
		return usageError(fmt.Errorf("--quiet requires --archive-backend and --archive-path"))
	}
	sink := relay.NewMultiSink(sinks...)

	subscriber, release, err := buildSubscriber(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()

	sub, err := subscriber.Subscribe(ctx)
	if err != nil {
		_ = sink.Close()
		return cli.Exit(fmt.Sprintf("subscribe: %v", err), exitTransport)
	}
	defer func() { _ = sub.Close() }()

	if ws, ok := sub.(*webhook.Subscription); ok {
		logger.Info("webhook receiver listening", map[string]any{"addr": ws.Addr().String()})
	}

	receiver, err := relay.NewReceiver(relay.ReceiverConfig{
		Registry:      buildRegistry(cfg, logger),
		Sink:          sink,
		Collector:     collector,
		Logger:        logger,
		SweepInterval: cfg.Registry.SweepInterval.Duration,
	})
	if err != nil {
		return err
	}

	runErr := receiver.Run(ctx, sub)
	snap := receiver.Snapshot()

	if client != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(c.Context), metricsWriteTimeout)
		if err := client.WriteMetrics(wctx, snap, time.Now()); err != nil {
			logger.Error("metrics write failed", map[string]any{"error": err.Error()})
		}
		cancel()
	}
	closeErr := sink.Close()

	logger.Info("listener stopped", map[string]any{
		"units_received":     snap.UnitsReceived,
		"messages_delivered": snap.MessagesDelivered,
		"units_dropped":      snap.UnitsDropped,
		"expired":            snap.Expired,
		"in_flight":          snap.InFlight,
	})

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("listen: %v", runErr), exitTransport)
	}
	if closeErr != nil {
		return cli.Exit(fmt.Sprintf("listen: close sinks: %v", closeErr), exitTransport)
	}
	return nil
}
