package stamp

import "fmt"

// EncodingError is returned when an index cannot be represented in the
// two-digit field.
type EncodingError struct {
	Index int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("stamp: index %d outside [0, %d]", e.Index, MaxIndex)
}

// MalformedUnitError is returned for units that pass the stamp heuristic but
// whose header cannot be decoded (truncated delivery, corrupted index).
type MalformedUnitError struct {
	Unit   string
	Reason string
	Err    error
}

func (e *MalformedUnitError) Error() string {
	prefix := e.Unit
	if len(prefix) > Len {
		prefix = prefix[:Len]
	}
	if e.Err != nil {
		return fmt.Sprintf("stamp: malformed unit %q: %s: %v", prefix, e.Reason, e.Err)
	}
	return fmt.Sprintf("stamp: malformed unit %q: %s", prefix, e.Reason)
}

func (e *MalformedUnitError) Unwrap() error {
	return e.Err
}
