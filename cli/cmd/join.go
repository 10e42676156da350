package cmd

import (
	"bufio"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/cli/config"
	"github.com/pithecene-io/segwire/iox"
	"github.com/pithecene-io/segwire/metrics"
	"github.com/pithecene-io/segwire/relay"
	"github.com/pithecene-io/segwire/transport/stream"
)

// JoinCommand returns the join command.
// Join reassembles units read from a byte stream and writes whole messages.
func JoinCommand() *cli.Command {
	return &cli.Command{
		Name:      "join",
		Usage:     "Reassemble wire units (frames on stdin) into messages",
		ArgsUsage: "[file|-]",
		Flags: joinFlags(commonFlags(), registryFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:  "lines",
				Usage: "Read one unit per line instead of length-prefixed frames",
			},
			&cli.StringFlag{
				Name:  "delimiter",
				Usage: "Written after each message",
				Value: "\n",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit 3 if any message is still incomplete at end of input",
			},
		}),
		Action: joinAction,
	}
}

func joinAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	logger, err := buildLogger(c, cfg, "join", "")
	if err != nil {
		return err
	}

	in, err := iox.OpenInput(c.Args().First(), stdin(c))
	if err != nil {
		return usageError(err)
	}
	defer iox.DiscardClose(in)

	opts := []stream.Option{
		stream.WithDecodeErrorHandler(func(err error) {
			logger.Warn("undecodable frame skipped", map[string]any{"error": err.Error()})
		}),
	}
	if c.Bool("lines") {
		opts = append(opts, stream.WithLines())
	}
	sub, err := stream.NewSource(in, opts...).Subscribe(c.Context)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(stdout(c))
	registry := buildRegistry(cfg, logger)
	receiver, err := relay.NewReceiver(relay.ReceiverConfig{
		Registry:      registry,
		Sink:          relay.NewWriterSink(out, c.String("delimiter")),
		Collector:     metrics.NewCollector(config.TransportStream, "", ""),
		Logger:        logger,
		SweepInterval: cfg.Registry.SweepInterval.Duration,
	})
	if err != nil {
		return err
	}

	if err := receiver.Run(c.Context, sub); err != nil {
		return cli.Exit(fmt.Sprintf("join: %v", err), exitTransport)
	}

	snap := receiver.Snapshot()
	logger.Info("input drained", map[string]any{
		"units":      snap.UnitsReceived,
		"delivered":  snap.MessagesDelivered,
		"dropped":    snap.UnitsDropped,
		"incomplete": snap.InFlight,
	})
	if snap.InFlight > 0 && c.Bool("strict") {
		return cli.Exit(fmt.Sprintf("%d message(s) incomplete at end of input", snap.InFlight), exitProtocol)
	}
	return nil
}
