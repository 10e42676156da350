// Package cmd provides CLI commands for the segwire binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/cli/config"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for inspect and stats.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}
)

// ReadOnlyFlags returns the output flags shared by read-only commands.
// Includes --tui so that unsupported commands can reject it with a clear
// message instead of a generic "flag not defined" error.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		TUIFlag,
	}
}

// commonFlags are accepted by every command that builds runtime components.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to segwire.yaml (flags override file values)",
			EnvVars: []string{"SEGWIRE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

func segmentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "max-wire-size", Usage: "Maximum unit size in bytes (default 128000)"},
		&cli.IntFlag{Name: "stamp-overhead", Usage: "Bytes reserved for the stamp (default 70, at least 40)"},
		&cli.IntFlag{Name: "safety-buffer", Usage: "Extra headroom below the wire size (default 50)"},
		&cli.IntFlag{Name: "pass-through-below", Usage: "Send messages shorter than this whole (default: max wire size)"},
	}
}

func registryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{Name: "ttl", Usage: "Discard incomplete messages after this long (0 disables)"},
		&cli.DurationFlag{Name: "sweep-interval", Usage: "How often incomplete messages are checked for expiry"},
		&cli.IntFlag{Name: "max-entries", Usage: "Maximum incomplete messages held at once (0 = unbounded)"},
	}
}

func transportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "transport", Aliases: []string{"t"}, Usage: "Transport: " + config.TransportRedis + " or " + config.TransportWebhook},
		&cli.StringFlag{Name: "url", Usage: "Redis URL or webhook endpoint"},
		&cli.StringFlag{Name: "channel", Usage: "Redis pub/sub channel (default " + config.DefaultChannel + ")"},
		&cli.StringFlag{Name: "addr", Usage: "Listen address for the webhook receiver (e.g. :8080)"},
		&cli.StringFlag{Name: "path", Usage: "URL path for the webhook receiver (default /units)"},
		&cli.StringSliceFlag{Name: "header", Usage: "Webhook request header as 'Name: value' (repeatable)"},
		&cli.DurationFlag{Name: "timeout", Usage: "Per-publish timeout"},
		&cli.IntFlag{Name: "retries", Usage: "Publish retries after the first attempt"},
	}
}

func archiveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "archive-backend", Usage: "Archive backend: fs or s3 (empty disables)"},
		&cli.StringFlag{Name: "archive-path", Usage: "Archive path (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "archive-dataset", Usage: "Lode dataset ID (default segwire)"},
		&cli.StringFlag{Name: "archive-region", Usage: "AWS region for the s3 backend"},
		&cli.StringFlag{Name: "archive-endpoint", Usage: "Custom S3 endpoint (MinIO, R2)"},
		&cli.BoolFlag{Name: "archive-s3-path-style", Usage: "Use path-style S3 addressing"},
		&cli.IntFlag{Name: "flush-count", Usage: "Archive after this many messages"},
		&cli.DurationFlag{Name: "flush-interval", Usage: "Archive pending messages at least this often"},
	}
}

func joinFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
