package engine

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/mvcc"
	"clustercore/pkg/primitives"
	"clustercore/pkg/stats/histogram"
	"clustercore/pkg/storage"
	"clustercore/pkg/valuedomain"
	"context"
	"fmt"
	"sort"
)

// ColumnScanBuilder is the production HistogramBuilder: it scans every
// live row of a table's column, builds a value distribution, and turns
// it into an equi-distinct histogram with TargetBins bins.
type ColumnScanBuilder struct {
	TargetBins int
	Adapter    *valuedomain.Adapter
}

// NewColumnScanBuilder constructs a ColumnScanBuilder with a numeric
// value-domain adapter, suitable for the integer/float columns the
// clustering pipeline targets.
func NewColumnScanBuilder(targetBins int) *ColumnScanBuilder {
	return &ColumnScanBuilder{TargetBins: targetBins, Adapter: valuedomain.NewNumericAdapter()}
}

// Build scans table's column across every chunk, skipping invalidated
// rows, and builds an equi-distinct histogram over the resulting
// value distribution.
func (b *ColumnScanBuilder) Build(ctx context.Context, table *storage.Table, column string) (*histogram.Histogram, error) {
	colIdx, err := table.ColumnIndex(column)
	if err != nil {
		return nil, err
	}

	counts := map[string]*histogram.ValueCount{}
	var order []string

	for _, chunkID := range table.ChunkIDs() {
		chunk, err := table.GetChunk(chunkID)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			continue
		}
		for offset := 0; offset < chunk.Size(); offset++ {
			rv, err := chunk.RowVersion(offset)
			if err != nil {
				return nil, err
			}
			if rv.EndCID() != mvcc.MaxCommitID {
				continue // invalidated, not part of the live distribution
			}
			v, err := chunk.Value(colIdx, offset)
			if err != nil {
				return nil, err
			}
			if v.IsNull() {
				continue // NULLs never enter a histogram's distribution
			}
			key := v.String()
			if existing, ok := counts[key]; ok {
				existing.Count++
			} else {
				counts[key] = &histogram.ValueCount{Value: v, Count: 1}
				order = append(order, key)
			}
		}
	}

	if len(order) == 0 {
		return nil, dberr.New(dberr.CategoryPrecondition, "ENGINE_EMPTY_COLUMN",
			fmt.Sprintf("column %q has no live, non-null values to build a histogram from", column))
	}

	var sortErr error
	sort.Slice(order, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := counts[order[i]].Value.Compare(primitives.LessThan, counts[order[j]].Value)
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}

	dist := make([]histogram.ValueCount, len(order))
	for i, key := range order {
		dist[i] = *counts[key]
	}

	targetBins := b.TargetBins
	if targetBins < 1 {
		targetBins = 1
	}
	adapter := b.Adapter
	if adapter == nil {
		adapter = valuedomain.NewNumericAdapter()
	}
	return histogram.NewEquiDistinctHistogram(dist, targetBins, adapter)
}
