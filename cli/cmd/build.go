package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/archive"
	"github.com/pithecene-io/segwire/cli/config"
	"github.com/pithecene-io/segwire/log"
	"github.com/pithecene-io/segwire/reassembly"
	"github.com/pithecene-io/segwire/segment"
	"github.com/pithecene-io/segwire/transport"
	"github.com/pithecene-io/segwire/transport/redis"
	"github.com/pithecene-io/segwire/transport/webhook"
)

func stdout(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func stderr(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

func stdin(c *cli.Context) io.Reader {
	if c.App != nil && c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

// buildLogger writes JSON lines to the app's error writer.
func buildLogger(c *cli.Context, cfg *config.Config, component, channel string) (*log.Logger, error) {
	logger, err := log.NewLoggerWithWriter(log.Options{
		Component: component,
		Channel:   channel,
		Level:     cfg.Log.Level,
	}, stderr(c))
	if err != nil {
		return nil, usageError(err)
	}
	return logger, nil
}

func buildSegmenter(cfg *config.Config) (*segment.Segmenter, error) {
	seg, err := segment.New(cfg.SegmentConfig())
	if err != nil {
		return nil, usageError(err)
	}
	return seg, nil
}

func buildRegistry(cfg *config.Config, logger *log.Logger) *reassembly.Registry {
	return reassembly.New(
		reassembly.WithTTL(cfg.Registry.TTL.Duration),
		reassembly.WithSweepInterval(cfg.Registry.SweepInterval.Duration),
		reassembly.WithMaxEntries(cfg.Registry.MaxEntries),
		reassembly.WithExpireHook(func(e reassembly.Expired) {
			logger.Warn("incomplete message expired", map[string]any{
				"id":     e.ID,
				"slots":  e.Slots,
				"reason": string(e.Reason),
			})
		}),
	)
}

func retries(cfg *config.Config, def int) int {
	if cfg.Transport.Retries != nil {
		return *cfg.Transport.Retries
	}
	return def
}

// transportChannel names the channel dimension for logs and metrics.
func transportChannel(cfg *config.Config) string {
	switch cfg.Transport.Type {
	case config.TransportRedis:
		return cfg.Transport.Channel
	case config.TransportWebhook:
		if cfg.Transport.URL != "" {
			return cfg.Transport.URL
		}
		return cfg.Transport.Addr
	default:
		return cfg.Transport.Type
	}
}

// buildPublisher creates the network publisher selected by transport.type.
func buildPublisher(cfg *config.Config) (transport.Publisher, error) {
	t := cfg.Transport
	switch t.Type {
	case config.TransportRedis:
		if t.URL == "" {
			return nil, usageError(fmt.Errorf("--url is required when --transport=%s", t.Type))
		}
		return newRedis(cfg)
	case config.TransportWebhook:
		if t.URL == "" {
			return nil, usageError(fmt.Errorf("--url is required when --transport=%s", t.Type))
		}
		p, err := webhook.New(webhook.Config{
			URL:     t.URL,
			Headers: t.Headers,
			Timeout: t.Timeout.Duration,
			Retries: retries(cfg, webhook.DefaultRetries),
		})
		if err != nil {
			return nil, usageError(err)
		}
		return p, nil
	case "":
		return nil, usageError(fmt.Errorf("--transport is required (%s or %s)", config.TransportRedis, config.TransportWebhook))
	default:
		return nil, usageError(fmt.Errorf("transport %q cannot publish (use %s or %s)", t.Type, config.TransportRedis, config.TransportWebhook))
	}
}

// buildSubscriber creates the network subscriber selected by transport.type.
// The returned release func frees the client once the subscription ends.
func buildSubscriber(cfg *config.Config) (transport.Subscriber, func() error, error) {
	t := cfg.Transport
	switch t.Type {
	case config.TransportRedis:
		if t.URL == "" {
			return nil, nil, usageError(fmt.Errorf("--url is required when --transport=%s", t.Type))
		}
		rt, err := newRedis(cfg)
		if err != nil {
			return nil, nil, err
		}
		return rt, rt.Close, nil
	case config.TransportWebhook:
		if t.Addr == "" {
			return nil, nil, usageError(fmt.Errorf("--addr is required when --transport=%s", t.Type))
		}
		srv, err := webhook.NewServer(webhook.ServerConfig{Addr: t.Addr, Path: t.Path})
		if err != nil {
			return nil, nil, usageError(err)
		}
		return srv, func() error { return nil }, nil
	case "":
		return nil, nil, usageError(fmt.Errorf("--transport is required (%s or %s)", config.TransportRedis, config.TransportWebhook))
	default:
		return nil, nil, usageError(fmt.Errorf("transport %q cannot subscribe (use %s or %s)", t.Type, config.TransportRedis, config.TransportWebhook))
	}
}

func newRedis(cfg *config.Config) (*redis.Transport, error) {
	rt, err := redis.New(redis.Config{
		URL:     cfg.Transport.URL,
		Channel: cfg.Transport.Channel,
		Timeout: cfg.Transport.Timeout.Duration,
		Retries: retries(cfg, redis.DefaultRetries),
	})
	if err != nil {
		return nil, usageError(err)
	}
	return rt, nil
}

// buildArchive creates the archive client, or nil when no backend is set.
func buildArchive(ctx context.Context, cfg *config.Config, channel string) (*archive.LodeClient, error) {
	acfg := archive.Config{Dataset: cfg.Archive.Dataset, Channel: channel}

	var (
		client *archive.LodeClient
		err    error
	)
	switch cfg.Archive.Backend {
	case "":
		return nil, nil
	case config.BackendFS:
		client, err = archive.NewClient(acfg, cfg.Archive.Path)
	case config.BackendS3:
		bucket, prefix := archive.ParseS3Path(cfg.Archive.Path)
		client, err = archive.NewS3Client(ctx, acfg, archive.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.S3PathStyle,
		})
	default:
		return nil, usageError(fmt.Errorf("unsupported archive backend %q (must be fs or s3)", cfg.Archive.Backend))
	}
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to initialize archive: %v", err), exitTransport)
	}
	return client, nil
}
