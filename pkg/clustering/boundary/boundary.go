// Package boundary implements the Cluster Boundary Planner: a greedy,
// streaming bin-packing pass over a column histogram that groups its bins
// into a target number of roughly-equal-sized cluster ranges.
package boundary

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/stats/histogram"
	"clustercore/pkg/types"
	"fmt"
)

// Range is a half-open cluster range [Lo, Hi) over a column's domain.
// Unbounded is true for the final range, whose Hi has no meaning.
// IsNullBucket marks the distinguished leading NULL range for nullable
// columns; Lo/Hi/Unbounded are meaningless on it.
type Range struct {
	Lo           types.Field
	Hi           types.Field
	Unbounded    bool
	IsNullBucket bool
}

// Boundaries is an ordered sequence of Ranges covering [minimum(H), +inf)
// without gaps, optionally prefixed by a distinguished NULL-range marker.
type Boundaries struct {
	Ranges    []Range
	NullCount uint64
}

// maxClusterSizeDivergence bounds how much larger than the ideal per-cluster
// row count a single bin may be; a larger bin breaks the planner's balancing
// assumption and is treated as an invariant breach.
const maxClusterSizeDivergence = 2

// Plan computes cluster boundaries for histogram h over a table of rowCount
// rows, targeting numClusters non-NULL ranges. nullable controls whether a
// leading NULL-range marker is emitted; NULL-bucket presence is driven
// strictly by nullable, never by the null-count estimate itself. The number
// of ranges returned may be less than numClusters when bins do not divide
// evenly; callers are expected to log that ratio.
func Plan(h *histogram.Histogram, rowCount uint64, numClusters int, nullable bool) (*Boundaries, error) {
	if numClusters < 2 {
		return nil, dberr.New(dberr.CategoryPrecondition, "BOUNDARY_TOO_FEW_CLUSTERS",
			fmt.Sprintf("having less than 2 clusters does not make sense (%d requested)", numClusters))
	}
	if numClusters > h.BinCount() {
		return nil, dberr.New(dberr.CategoryPrecondition, "BOUNDARY_MORE_CLUSTERS_THAN_BINS",
			fmt.Sprintf("more clusters (%d) requested than histogram bins (%d)", numClusters, h.BinCount()))
	}

	nullCount := nullCountEstimate(rowCount, h.TotalCount())

	nonNullRows := rowCount
	if nonNullRows >= nullCount {
		nonNullRows -= nullCount
	} else {
		nonNullRows = 0
	}
	ideal := nonNullRows / uint64(numClusters)
	if ideal < 1 {
		ideal = 1
	}

	bins := h.Bins()
	ranges, err := packBins(bins, ideal)
	if err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(ranges); i++ {
		if !ranges[i].Unbounded && !valuesEqual(ranges[i].Hi, ranges[i+1].Lo) {
			return nil, dberr.New(dberr.CategoryInvariant, "BOUNDARY_COVERAGE_GAP",
				fmt.Sprintf("hole between boundary %d and %d", i, i+1))
		}
	}

	if nullable {
		full := make([]Range, 0, len(ranges)+1)
		full = append(full, Range{IsNullBucket: true})
		full = append(full, ranges...)
		ranges = full
	}

	return &Boundaries{Ranges: ranges, NullCount: nullCount}, nil
}

// packBins is the greedy streaming bin-packing core. It maintains one
// in-progress cluster range (lo fixed at the first bin admitted, hi
// advanced as bins are admitted). A bin is admitted while the cluster
// stays below ideal; a bin that would bring it to ideal or beyond is
// admitted and closes the cluster if that lands closer to ideal than
// stopping short, and otherwise the cluster closes before it and the bin
// is reprocessed as the start of a fresh cluster. A bin of
// maxClusterSizeDivergence*ideal rows or more is an invariant error.
func packBins(bins []histogram.Bin, ideal uint64) ([]Range, error) {
	var ranges []Range

	var cur Range
	lowerSet := false
	var rowsInCluster uint64

	for binID := 0; binID < len(bins); binID++ {
		isLastBin := binID == len(bins)-1

		if !lowerSet {
			cur = Range{Lo: bins[binID].Min}
			lowerSet = true
		}

		binSize := bins[binID].Height
		if binSize >= maxClusterSizeDivergence*ideal {
			return nil, dberr.New(dberr.CategoryInvariant, "BOUNDARY_BIN_TOO_LARGE",
				fmt.Sprintf("bin is too large: %d, but a cluster should have about %d rows", binSize, ideal))
		}

		clusterFull := false
		switch {
		case rowsInCluster+binSize < ideal:
			rowsInCluster += binSize
			if isLastBin {
				cur.Unbounded = true
			} else {
				cur.Hi = bins[binID+1].Min
			}
		case (rowsInCluster + binSize - ideal) < (ideal - rowsInCluster):
			if isLastBin {
				cur.Unbounded = true
			} else {
				cur.Hi = bins[binID+1].Min
			}
			clusterFull = true
		default:
			// The cluster would overshoot more by admitting this bin than by
			// closing now; reprocess the same bin against a fresh cluster.
			binID--
			clusterFull = true
		}

		if clusterFull {
			ranges = append(ranges, cur)
			cur = Range{}
			lowerSet = false
			rowsInCluster = 0
		}
	}

	if lowerSet {
		ranges = append(ranges, cur)
	}

	return ranges, nil
}

// nullCountEstimate returns max(0, rowCount - totalCount) — used purely for
// logging/statistics, never to gate the NULL bucket's presence (that is
// driven strictly by the nullable flag, see Plan above).
func nullCountEstimate(rowCount, totalCount uint64) uint64 {
	if rowCount <= totalCount {
		return 0
	}
	return rowCount - totalCount
}

func valuesEqual(a, b types.Field) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}
