package primitives

import "math"

// HashCode represents a hash value (e.g., for keys, dictionary entries).
// It is typically computed for fast comparisons or lookups.
type HashCode uint64

// ColumnID identifies a column within a table.
type ColumnID uint32

// RowID uniquely identifies a row within a chunk by its offset.
type RowID uint32

// Sentinel values for invalid/unset identifiers.
const (
	// InvalidColumnID marks an unset or not-applicable column reference.
	InvalidColumnID ColumnID = math.MaxUint32
)
