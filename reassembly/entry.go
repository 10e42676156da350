package reassembly

import (
	"strings"
	"time"
)

// unknownLastIndex marks an entry whose announcement has not arrived.
const unknownLastIndex = -1

// slot holds one payload slice. present distinguishes an unwritten slot from
// a written one.
type slot struct {
	payload string
	present bool
}

// entry accumulates the units of one in-flight message.
type entry struct {
	lastIndex int
	slots     []slot
	filled    int
	bytes     int
	createdAt time.Time
}

func newEntry(now time.Time) *entry {
	return &entry{
		lastIndex: unknownLastIndex,
		createdAt: now,
	}
}

// put stores payload at index, growing the slot list as needed.
// Reports whether the slot was already present.
func (e *entry) put(index int, payload string) (duplicate bool) {
	if index >= len(e.slots) {
		grown := make([]slot, index+1)
		copy(grown, e.slots)
		e.slots = grown
	}
	s := &e.slots[index]
	if s.present {
		e.bytes -= len(s.payload)
		duplicate = true
	} else {
		e.filled++
	}
	s.payload = payload
	s.present = true
	e.bytes += len(payload)
	return duplicate
}

// complete reports whether the announcement has arrived and every slot
// 0..lastIndex is present.
func (e *entry) complete() bool {
	if e.lastIndex == unknownLastIndex {
		return false
	}
	return len(e.slots) == e.lastIndex+1 && e.filled == len(e.slots)
}

// join concatenates the slots in index order.
func (e *entry) join() string {
	var b strings.Builder
	b.Grow(e.bytes)
	for _, s := range e.slots {
		b.WriteString(s.payload)
	}
	return b.String()
}
