// Package clusterkey implements the Cluster Key Assigner: given a chunk and
// per-dimension boundaries, it computes each row's multi-dimensional
// cluster key — the coordinate the orchestrator partitions rows by.
package clusterkey

import (
	"clustercore/pkg/clustering/boundary"
	"clustercore/pkg/dberr"
	"clustercore/pkg/primitives"
	"clustercore/pkg/types"
	"fmt"
)

// Key is a row's position in each clustering dimension, one component per
// configured clustering column, in the same order as the Dimensions passed
// to Assign.
type Key []int

// Dimension pairs one clustering column's values with its planned boundaries.
type Dimension struct {
	Column     []types.Field // one value per row, in chunk row order; nil entries are NULL
	Boundaries *boundary.Boundaries
}

// Assign computes one Key per row across all dimensions. Row count is taken
// from the first dimension's Column length; every dimension must agree.
func Assign(dims []Dimension) ([]Key, error) {
	if len(dims) == 0 {
		return nil, dberr.New(dberr.CategoryPrecondition, "CLUSTERKEY_NO_DIMENSIONS", "at least one clustering dimension is required")
	}

	rowCount := len(dims[0].Column)
	for i, d := range dims {
		if len(d.Column) != rowCount {
			return nil, dberr.New(dberr.CategoryPrecondition, "CLUSTERKEY_ROW_COUNT_MISMATCH",
				fmt.Sprintf("dimension %d has %d rows, dimension 0 has %d", i, len(d.Column), rowCount))
		}
	}

	keys := make([]Key, rowCount)
	for row := 0; row < rowCount; row++ {
		key := make(Key, len(dims))
		for d, dim := range dims {
			idx, err := indexFor(dim.Boundaries, dim.Column[row])
			if err != nil {
				return nil, fmt.Errorf("row %d, dimension %d: %w", row, d, err)
			}
			key[d] = idx
		}
		keys[row] = key
	}
	return keys, nil
}

// Summary returns the single cluster key implied by a chunk's first row,
// used to classify a chunk already known to hold rows of only one cluster.
func Summary(dims []Dimension) (Key, error) {
	if len(dims) == 0 {
		return nil, dberr.New(dberr.CategoryPrecondition, "CLUSTERKEY_NO_DIMENSIONS", "at least one clustering dimension is required")
	}
	if len(dims[0].Column) == 0 {
		return nil, dberr.New(dberr.CategoryPrecondition, "CLUSTERKEY_EMPTY_CHUNK", "cannot summarize an empty chunk")
	}

	key := make(Key, len(dims))
	for d, dim := range dims {
		idx, err := indexFor(dim.Boundaries, dim.Column[0])
		if err != nil {
			return nil, fmt.Errorf("summary dimension %d: %w", d, err)
		}
		key[d] = idx
	}
	return key, nil
}

// indexFor scans b's ranges for the unique one containing v, returning its
// index. NULL (v == nil or v.IsNull()) always maps to index 0 — the NULL
// bucket, which Plan places first whenever the dimension is nullable.
func indexFor(b *boundary.Boundaries, v types.Field) (int, error) {
	if v == nil || v.IsNull() {
		return 0, nil
	}

	for i, r := range b.Ranges {
		if r.IsNullBucket {
			continue
		}
		if rangeContains(r, v) {
			return i, nil
		}
	}
	return 0, dberr.New(dberr.CategoryInvariant, "CLUSTERKEY_NO_COVERING_RANGE",
		fmt.Sprintf("value %s is not covered by any boundary range", v))
}

func rangeContains(r boundary.Range, v types.Field) bool {
	geLo, _ := v.Compare(primitives.GreaterThanOrEqual, r.Lo)
	if !geLo {
		return false
	}
	if r.Unbounded {
		return true
	}
	ltHi, _ := v.Compare(primitives.LessThan, r.Hi)
	return ltHi
}
