package segment

import "github.com/pithecene-io/segwire/stamp"

// Reference sizing for a transport capped at 128000 bytes per publish.
const (
	DefaultMaxWireSize   = 128000
	DefaultStampOverhead = 70
	DefaultSafetyBuffer  = 50
)

// Config sizes the units produced by a Segmenter.
// The three size fields are deployment tuning, not protocol constants.
type Config struct {
	// MaxWireSize is the transport's maximum unit size in bytes.
	MaxWireSize int
	// StampOverhead is the space reserved for the stamp (at least stamp.Len).
	StampOverhead int
	// SafetyBuffer is additional headroom below MaxWireSize.
	SafetyBuffer int
	// PassThroughBelow is the fast-path threshold: messages shorter than this
	// are sent whole. Zero means MaxWireSize.
	PassThroughBelow int
}

// DefaultConfig returns the reference sizing (effective chunk size 127880).
func DefaultConfig() Config {
	return Config{
		MaxWireSize:   DefaultMaxWireSize,
		StampOverhead: DefaultStampOverhead,
		SafetyBuffer:  DefaultSafetyBuffer,
	}
}

// ChunkSize returns the effective payload bytes per data unit.
func (c Config) ChunkSize() int {
	return c.MaxWireSize - c.StampOverhead - c.SafetyBuffer
}

// passThroughLimit resolves the fast-path threshold.
func (c Config) passThroughLimit() int {
	if c.PassThroughBelow > 0 {
		return c.PassThroughBelow
	}
	return c.MaxWireSize
}

// Validate checks the sizing and returns *ConfigurationError when it cannot
// produce bounded units, most importantly when the effective chunk size is
// not positive.
func (c Config) Validate() error {
	switch {
	case c.MaxWireSize <= 0:
		return &ConfigurationError{Config: c, Reason: "max wire size must be positive"}
	case c.StampOverhead < stamp.Len:
		return &ConfigurationError{Config: c, Reason: "stamp overhead is smaller than the stamp"}
	case c.SafetyBuffer < 0:
		return &ConfigurationError{Config: c, Reason: "safety buffer must not be negative"}
	case c.PassThroughBelow < 0 || c.PassThroughBelow > c.MaxWireSize:
		return &ConfigurationError{Config: c, Reason: "pass-through limit must be within [0, max wire size]"}
	case c.ChunkSize() <= 0:
		return &ConfigurationError{Config: c, Reason: "effective chunk size must be positive"}
	}
	return nil
}
