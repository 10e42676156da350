// Package stamp implements the fixed-layout header carried by every unit of a
// segmented message.
//
// Wire layout (exactly 40 bytes):
//
//	<id:36>|<index:2>|
//
// The id is a canonical hyphenated UUID. The index is a zero-padded decimal in
// [0, 99]. A stamped unit with no payload is the announcement unit; its index is
// the last data index of the message. Units that do not look stamped are plain
// messages and pass through untouched.
package stamp

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Layout constants.
const (
	// IDLen is the length of the canonical hyphenated identifier.
	IDLen = 36
	// Len is the total stamp length: id, separator, two index digits, separator.
	Len = IDLen + 4
	// MaxIndex is the largest index the two-digit field can carry.
	MaxIndex = 99
	// MaxSegments is the protocol ceiling on data units per message.
	MaxSegments = MaxIndex + 1
	// Separator delimits the index field.
	Separator = '|'
)

// hyphenPositions are the canonical UUID hyphen offsets.
var hyphenPositions = [4]int{8, 13, 18, 23}

// Kind classifies a received unit.
type Kind int

const (
	// KindPlain is an unsegmented message.
	KindPlain Kind = iota
	// KindAnnouncement is the zero-payload unit carrying the last data index.
	KindAnnouncement
	// KindData is a stamped unit carrying a payload slice.
	KindData
)

// String returns the kind name used in logs and CLI output.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindAnnouncement:
		return "announcement"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Stamp is a decoded header.
type Stamp struct {
	ID    string
	Index int
}

// String renders the stamp in wire form. Out-of-range indexes are rendered
// as-is; use Encode when the index has not been validated.
func (s Stamp) String() string {
	return fmt.Sprintf("%s%c%02d%c", s.ID, Separator, s.Index, Separator)
}

// Unit is the parsed form of a wire unit.
type Unit struct {
	Kind    Kind
	Stamp   Stamp  // zero for KindPlain
	Payload string // the whole unit for KindPlain
}

// IsStamped reports whether the unit belongs to a segmented message.
func (u Unit) IsStamped() bool {
	return u.Kind != KindPlain
}

// Encode renders the stamp for (id, index).
// Returns *EncodingError if index is outside [0, MaxIndex].
func Encode(id string, index int) (string, error) {
	if index < 0 || index > MaxIndex {
		return "", &EncodingError{Index: index}
	}
	return Stamp{ID: id, Index: index}.String(), nil
}

// LooksStamped applies the conservative stamp heuristic: the unit is at least
// Len bytes, its first IDLen bytes hold exactly four hyphens in the canonical
// positions, and bytes 36..39 hold exactly two separators.
func LooksStamped(unit string) bool {
	if len(unit) < Len {
		return false
	}
	id := unit[:IDLen]
	if strings.Count(id, "-") != len(hyphenPositions) {
		return false
	}
	for _, pos := range hyphenPositions {
		if id[pos] != '-' {
			return false
		}
	}
	return strings.Count(unit[IDLen:Len], string(Separator)) == 2
}

// Decode splits a stamped unit into its identifier, index, and payload.
// The caller is expected to have checked LooksStamped; units that pass the
// heuristic but cannot be decoded yield *MalformedUnitError.
func Decode(unit string) (id string, index int, payload string, err error) {
	if !LooksStamped(unit) {
		return "", 0, "", &MalformedUnitError{Unit: unit, Reason: "no stamp"}
	}
	id = unit[:IDLen]
	if _, perr := uuid.Parse(id); perr != nil {
		return "", 0, "", &MalformedUnitError{Unit: unit, Reason: "invalid identifier", Err: perr}
	}
	field := unit[IDLen:Len]
	if field[0] != Separator || field[3] != Separator {
		return "", 0, "", &MalformedUnitError{Unit: unit, Reason: "misplaced separator"}
	}
	digits := field[1:3]
	if digits[0] < '0' || digits[0] > '9' || digits[1] < '0' || digits[1] > '9' {
		return "", 0, "", &MalformedUnitError{Unit: unit, Reason: "index is not two decimal digits"}
	}
	index = int(digits[0]-'0')*10 + int(digits[1]-'0')
	return id, index, unit[Len:], nil
}

// Parse classifies a wire unit. Units failing the heuristic are returned as
// KindPlain with a nil error; they are never an error.
func Parse(unit string) (Unit, error) {
	if !LooksStamped(unit) {
		return Unit{Kind: KindPlain, Payload: unit}, nil
	}
	id, index, payload, err := Decode(unit)
	if err != nil {
		return Unit{}, err
	}
	kind := KindData
	if payload == "" {
		kind = KindAnnouncement
	}
	return Unit{
		Kind:    kind,
		Stamp:   Stamp{ID: id, Index: index},
		Payload: payload,
	}, nil
}
