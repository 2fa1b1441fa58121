package histogram

import (
	"clustercore/pkg/primitives"
	"clustercore/pkg/types"
)

// Bin is a contiguous sub-range of a column domain carrying summary counts.
// Min/Max are inclusive bounds; Height is the row count falling in the bin
// and Distinct the number of distinct values it covers. Only the equi-width
// variant ever produces a bin with Height == 0.
type Bin struct {
	Min      types.Field
	Max      types.Field
	Height   uint64
	Distinct uint64
}

func lessThan(a, b types.Field) bool {
	r, _ := a.Compare(primitives.LessThan, b)
	return r
}

func lessOrEqual(a, b types.Field) bool {
	r, _ := a.Compare(primitives.LessThanOrEqual, b)
	return r
}

func greaterThan(a, b types.Field) bool {
	r, _ := a.Compare(primitives.GreaterThan, b)
	return r
}

func greaterOrEqual(a, b types.Field) bool {
	r, _ := a.Compare(primitives.GreaterThanOrEqual, b)
	return r
}

func equal(a, b types.Field) bool {
	r, _ := a.Compare(primitives.Equals, b)
	return r
}

// contains reports whether v falls within the bin's inclusive bounds.
func (b Bin) contains(v types.Field) bool {
	return greaterOrEqual(v, b.Min) && lessOrEqual(v, b.Max)
}
