package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/segwire/log"
	"github.com/pithecene-io/segwire/segment"
)

// Transport types.
const (
	TransportRedis   = "redis"
	TransportWebhook = "webhook"
	TransportStream  = "stream"
)

// Archive backends.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = 30 * time.Second
	DefaultChannel       = "segwire:units"
	DefaultLogLevel      = "info"
)

// Config represents a segwire.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Segment   SegmentConfig   `yaml:"segment"`
	Registry  RegistryConfig  `yaml:"registry"`
	Transport TransportConfig `yaml:"transport"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Log       LogConfig       `yaml:"log"`
}

// SegmentConfig holds segmenter sizing.
type SegmentConfig struct {
	MaxWireSize      int `yaml:"max_wire_size"`
	StampOverhead    int `yaml:"stamp_overhead"`
	SafetyBuffer     int `yaml:"safety_buffer"`
	PassThroughBelow int `yaml:"pass_through_below"`
}

// RegistryConfig holds reassembly expiry settings.
type RegistryConfig struct {
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
	MaxEntries    int      `yaml:"max_entries"`
}

// TransportConfig selects and configures the unit transport.
type TransportConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Addr    string            `yaml:"addr,omitempty"`
	Path    string            `yaml:"path,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// ArchiveConfig configures the optional message archive.
// An empty Backend disables archiving.
type ArchiveConfig struct {
	Backend       string   `yaml:"backend"`
	Path          string   `yaml:"path"`
	Dataset       string   `yaml:"dataset"`
	Region        string   `yaml:"region"`
	Endpoint      string   `yaml:"endpoint"`
	S3PathStyle   bool     `yaml:"s3_path_style"`
	FlushCount    int      `yaml:"flush_count"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	return nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields. Transport type and archive backend stay
// empty; they are chosen per command.
func (c *Config) ApplyDefaults() {
	def := segment.DefaultConfig()
	if c.Segment.MaxWireSize == 0 {
		c.Segment.MaxWireSize = def.MaxWireSize
	}
	if c.Segment.StampOverhead == 0 {
		c.Segment.StampOverhead = def.StampOverhead
	}
	if c.Segment.SafetyBuffer == 0 {
		c.Segment.SafetyBuffer = def.SafetyBuffer
	}
	if c.Registry.TTL.Duration == 0 {
		c.Registry.TTL.Duration = DefaultTTL
	}
	if c.Registry.SweepInterval.Duration == 0 {
		c.Registry.SweepInterval.Duration = DefaultSweepInterval
	}
	if c.Transport.Channel == "" {
		c.Transport.Channel = DefaultChannel
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// SegmentConfig converts the segment section for segment.New.
func (c *Config) SegmentConfig() segment.Config {
	return segment.Config{
		MaxWireSize:      c.Segment.MaxWireSize,
		StampOverhead:    c.Segment.StampOverhead,
		SafetyBuffer:     c.Segment.SafetyBuffer,
		PassThroughBelow: c.Segment.PassThroughBelow,
	}
}

// Validate checks enumerations and numeric ranges. Segment sizing is
// validated by segment.Config.Validate.
func (c *Config) Validate() error {
	var errs []error

	if err := c.SegmentConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Transport.Type {
	case "", TransportRedis, TransportWebhook, TransportStream:
	default:
		errs = append(errs, fmt.Errorf("transport.type %q: must be redis, webhook, or stream", c.Transport.Type))
	}
	if c.Transport.Retries != nil && *c.Transport.Retries < 0 {
		errs = append(errs, fmt.Errorf("transport.retries must be >= 0, got %d", *c.Transport.Retries))
	}

	switch c.Archive.Backend {
	case "", BackendFS, BackendS3:
	default:
		errs = append(errs, fmt.Errorf("archive.backend %q: must be fs or s3", c.Archive.Backend))
	}
	if c.Archive.Backend != "" && c.Archive.Path == "" {
		errs = append(errs, errors.New("archive.path is required when archive.backend is set"))
	}
	if c.Archive.FlushCount < 0 {
		errs = append(errs, fmt.Errorf("archive.flush_count must be >= 0, got %d", c.Archive.FlushCount))
	}

	if c.Registry.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("registry.max_entries must be >= 0, got %d", c.Registry.MaxEntries))
	}

	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}

	return errors.Join(errs...)
}
