package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/segwire/cli/config"
)

// loadConfig reads --config when given and applies defaults.
// Without --config it returns config.Default().
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// configVal reads a field from cfg, returning the zero value for a nil config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString returns the flag when set on the command line, then the
// config value when non-empty, then the flag's own default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int(name)
	}
	return cfgVal
}

func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Duration(name)
	}
	return cfgVal
}

// applyFlags overlays explicitly set flags onto cfg. Flags the command does
// not define are never set and leave cfg untouched.
func applyFlags(c *cli.Context, cfg *config.Config) error {
	cfg.Segment.MaxWireSize = resolveInt(c, "max-wire-size", cfg.Segment.MaxWireSize)
	cfg.Segment.StampOverhead = resolveInt(c, "stamp-overhead", cfg.Segment.StampOverhead)
	cfg.Segment.SafetyBuffer = resolveInt(c, "safety-buffer", cfg.Segment.SafetyBuffer)
	cfg.Segment.PassThroughBelow = resolveInt(c, "pass-through-below", cfg.Segment.PassThroughBelow)

	cfg.Registry.TTL.Duration = resolveDuration(c, "ttl", cfg.Registry.TTL.Duration)
	cfg.Registry.SweepInterval.Duration = resolveDuration(c, "sweep-interval", cfg.Registry.SweepInterval.Duration)
	cfg.Registry.MaxEntries = resolveInt(c, "max-entries", cfg.Registry.MaxEntries)

	cfg.Transport.Type = resolveString(c, "transport", cfg.Transport.Type)
	cfg.Transport.URL = resolveString(c, "url", cfg.Transport.URL)
	cfg.Transport.Channel = resolveString(c, "channel", cfg.Transport.Channel)
	cfg.Transport.Addr = resolveString(c, "addr", cfg.Transport.Addr)
	cfg.Transport.Path = resolveString(c, "path", cfg.Transport.Path)
	cfg.Transport.Timeout.Duration = resolveDuration(c, "timeout", cfg.Transport.Timeout.Duration)
	if c.IsSet("retries") {
		retries := c.Int("retries")
		cfg.Transport.Retries = &retries
	}
	if c.IsSet("header") {
		headers, err := parseHeaders(c.StringSlice("header"))
		if err != nil {
			return err
		}
		if cfg.Transport.Headers == nil {
			cfg.Transport.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.Transport.Headers[k] = v
		}
	}

	cfg.Archive.Backend = resolveString(c, "archive-backend", cfg.Archive.Backend)
	cfg.Archive.Path = resolveString(c, "archive-path", cfg.Archive.Path)
	cfg.Archive.Dataset = resolveString(c, "archive-dataset", cfg.Archive.Dataset)
	cfg.Archive.Region = resolveString(c, "archive-region", cfg.Archive.Region)
	cfg.Archive.Endpoint = resolveString(c, "archive-endpoint", cfg.Archive.Endpoint)
	cfg.Archive.S3PathStyle = resolveBool(c, "archive-s3-path-style", cfg.Archive.S3PathStyle)
	cfg.Archive.FlushCount = resolveInt(c, "flush-count", cfg.Archive.FlushCount)
	cfg.Archive.FlushInterval.Duration = resolveDuration(c, "flush-interval", cfg.Archive.FlushInterval.Duration)

	cfg.Log.Level = resolveString(c, "log-level", cfg.Log.Level)
	return nil
}

// parseHeaders parses "Name: value" pairs.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --header %q (expected 'Name: value')", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// resolveConfig loads the config file, overlays flags, and validates.
// Every failure is a usage error.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, usageError(err)
	}
	if err := applyFlags(c, cfg); err != nil {
		return nil, usageError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError(fmt.Errorf("invalid configuration: %w", err))
	}
	return cfg, nil
}
