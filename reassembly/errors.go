package reassembly

import "fmt"

// InconsistentUnitError reports a unit that contradicts what the registry
// already knows about its message: a data index beyond the announced last
// index, or a second announcement with a different index. The entry is
// discarded since the message cannot complete correctly.
type InconsistentUnitError struct {
	ID        string
	Index     int
	LastIndex int
	Reason    string
}

func (e *InconsistentUnitError) Error() string {
	return fmt.Sprintf("reassembly: inconsistent unit for %s (index %d, last index %d): %s",
		e.ID, e.Index, e.LastIndex, e.Reason)
}
