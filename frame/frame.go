// Package frame carries wire units over byte streams as length-prefixed
// msgpack frames.
//
// Each frame is a 4-byte big-endian payload length followed by a msgpack map
// {type: "unit", seq: N, unit: "..."}. Units are opaque strings; stamping is
// handled by the stamp package.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// UnitType is the type discriminant for unit frames.
const UnitType = "unit"

// Unit is the decoded payload of a unit frame.
type Unit struct {
	Type string `msgpack:"type"`
	Seq  int64  `msgpack:"seq"`
	Unit string `msgpack:"unit"`
}

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding the size limit.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error or unknown type.
	FrameErrorDecode
)

func (k FrameErrorKind) String() string {
	switch k {
	case FrameErrorPartial:
		return "partial"
	case FrameErrorTooLarge:
		return "too_large"
	case FrameErrorDecode:
		return "decode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame: %s: %v", e.Msg, e.Err)
	}
	return "frame: " + e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the stream cannot continue after this error.
// Partial and oversized frames leave the reader out of sync.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameEncoder writes unit frames to a stream.
// Not safe for concurrent use.
type FrameEncoder struct {
	writer  io.Writer
	seq     int64
	maxSize int
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w, maxSize: MaxPayloadSize}
}

// WriteUnit encodes unit as the next frame in sequence.
func (e *FrameEncoder) WriteUnit(unit string) error {
	e.seq++
	payload, err := msgpack.Marshal(&Unit{Type: UnitType, Seq: e.seq, Unit: unit})
	if err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to encode unit", Err: err}
	}
	if len(payload) > e.maxSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), e.maxSize),
		}
	}

	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	if _, err := e.writer.Write(buf); err != nil {
		return fmt.Errorf("frame: write: %w", err)
	}
	return nil
}

// Seq returns the sequence number of the last frame written.
func (e *FrameEncoder) Seq() int64 {
	return e.seq
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader  io.Reader
	maxSize uint32
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r, maxSize: MaxPayloadSize}
}

// WithMaxPayload returns the decoder with a lower payload limit.
// Values outside (0, MaxPayloadSize] are ignored.
func (d *FrameDecoder) WithMaxPayload(n int) *FrameDecoder {
	if n > 0 && n <= MaxPayloadSize {
		d.maxSize = uint32(n)
	}
	return d
}

// ReadFrame reads a single frame from the stream.
// Returns the raw payload bytes (msgpack-encoded).
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > d.maxSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, d.maxSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// ReadUnit reads the next frame and returns its unit string.
// A decode error is not fatal; the next call reads the following frame.
func (d *FrameDecoder) ReadUnit() (string, error) {
	payload, err := d.ReadFrame()
	if err != nil {
		return "", err
	}
	u, err := DecodeUnit(payload)
	if err != nil {
		return "", err
	}
	return u.Unit, nil
}

// DecodeUnit decodes a payload as a unit frame.
func DecodeUnit(payload []byte) (*Unit, error) {
	var u Unit
	if err := msgpack.Unmarshal(payload, &u); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode unit frame",
			Err:  err,
		}
	}
	if u.Type != UnitType {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unexpected frame type %q", u.Type),
		}
	}
	return &u, nil
}
