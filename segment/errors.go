package segment

import (
	"fmt"

	"github.com/pithecene-io/segwire/stamp"
)

// ConfigurationError reports unusable sizing. It is raised before any unit is
// produced.
type ConfigurationError struct {
	Config Config
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("segment: invalid configuration (max_wire_size=%d stamp_overhead=%d safety_buffer=%d): %s",
		e.Config.MaxWireSize, e.Config.StampOverhead, e.Config.SafetyBuffer, e.Reason)
}

// TooManySegmentsError reports a message that needs more data units than the
// two-digit index can address.
type TooManySegmentsError struct {
	Size      int
	ChunkSize int
	Segments  int
}

func (e *TooManySegmentsError) Error() string {
	return fmt.Sprintf("segment: message of %d bytes needs %d segments of %d bytes (max %d)",
		e.Size, e.Segments, e.ChunkSize, stamp.MaxSegments)
}
