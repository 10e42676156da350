package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/archive"
	"github.com/pithecene-io/segwire/cli/reader"
	"github.com/pithecene-io/segwire/cli/render"
	"github.com/pithecene-io/segwire/cli/tui"
)

// queryTimeout bounds archive reads for the stats command.
const queryTimeout = 30 * time.Second

// StatsCommand returns the stats command with subcommands.
// Stats reads aggregated counters back from the archive.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show archived statistics",
		Subcommands: []*cli.Command{
			statsMetricsCommand(),
		},
	}
}

func statsMetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Show the latest metrics snapshot written by listen",
		Flags: joinFlags(commonFlags(), ReadOnlyFlags(), []cli.Flag{
			&cli.StringFlag{Name: "archive-backend", Usage: "Archive backend: fs or s3"},
			&cli.StringFlag{Name: "archive-path", Usage: "Archive path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "archive-dataset", Usage: "Lode dataset ID (default segwire)"},
			&cli.StringFlag{Name: "archive-region", Usage: "AWS region for the s3 backend"},
			&cli.StringFlag{Name: "archive-endpoint", Usage: "Custom S3 endpoint (MinIO, R2)"},
			&cli.BoolFlag{Name: "archive-s3-path-style", Usage: "Use path-style S3 addressing"},
			&cli.StringFlag{Name: "channel", Usage: "Only consider snapshots for this channel"},
		}),
		Action: statsMetricsAction,
	}
}

func statsMetricsAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	if cfg.Archive.Backend == "" || cfg.Archive.Path == "" {
		return usageError(errors.New("both --archive-backend and --archive-path are required"))
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}

	ctx, cancel := context.WithTimeout(c.Context, queryTimeout)
	defer cancel()

	// Channel comes only from the flag; the config default would hide every
	// webhook snapshot.
	channel := c.String("channel")
	client, err := buildArchive(ctx, cfg, channel)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	record, err := archive.QueryLatestMetrics(ctx, client.Dataset(), channel)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read metrics from archive: %v", err), exitTransport)
	}
	view, err := reader.ParseMetricsRecord(record)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to parse metrics record: %v", err), exitTransport)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsMetrics, view)
	}
	return r.Render(view)
}
