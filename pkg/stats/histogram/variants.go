package histogram

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/types"
	"clustercore/pkg/valuedomain"
	"fmt"
	"math"
)

// ValueCount pairs a distinct value with its occurrence count. A
// value-distribution is a slice of ValueCount sorted ascending by Value,
// derived by iterating a column segment's non-null entries into an ordered
// multiset; it is the single input shape all three histogram variants
// build from.
type ValueCount struct {
	Value types.Field
	Count uint64
}

func validateDistribution(dist []ValueCount, targetBins int) error {
	if len(dist) == 0 {
		return dberr.New(dberr.CategoryPrecondition, "HISTOGRAM_EMPTY_DISTRIBUTION", "cannot build a histogram from an empty value distribution")
	}
	if targetBins < 1 {
		return dberr.New(dberr.CategoryPrecondition, "HISTOGRAM_INVALID_TARGET_BINS", "target_bins must be at least 1")
	}
	for _, vc := range dist {
		if vc.Value.IsNull() {
			return dberr.New(dberr.CategoryPrecondition, "HISTOGRAM_NULL_VALUE", "a histogram may never admit a NULL value into its distribution")
		}
	}
	return nil
}

// NewEquiDistinctHistogram builds a histogram in which each bin covers
// exactly ceil(total_distinct / target_bins) distinct values (the last bin
// may cover fewer); bin bounds follow the sorted distinct values.
func NewEquiDistinctHistogram(dist []ValueCount, targetBins int, adapter *valuedomain.Adapter) (*Histogram, error) {
	if err := validateDistribution(dist, targetBins); err != nil {
		return nil, err
	}

	perBin := int(math.Ceil(float64(len(dist)) / float64(targetBins)))
	if perBin < 1 {
		perBin = 1
	}

	var bins []Bin
	for start := 0; start < len(dist); start += perBin {
		end := start + perBin
		if end > len(dist) {
			end = len(dist)
		}
		var height, distinct uint64
		for _, vc := range dist[start:end] {
			height += vc.Count
			distinct++
		}
		bins = append(bins, Bin{
			Min:      dist[start].Value,
			Max:      dist[end-1].Value,
			Height:   height,
			Distinct: distinct,
		})
	}

	return newHistogram(bins, dist[0].Value.Type(), adapter)
}

// NewEquiWidthHistogram splits [min, max] into target_bins ranges of equal
// width. For string columns, width is measured over the residual numeric
// representation after stripping the domain-wide common prefix. Bins that
// capture no values from dist are kept with Height/Distinct == 0.
func NewEquiWidthHistogram(dist []ValueCount, targetBins int, adapter *valuedomain.Adapter) (*Histogram, error) {
	if err := validateDistribution(dist, targetBins); err != nil {
		return nil, err
	}

	min := dist[0].Value
	max := dist[len(dist)-1].Value

	bounds, err := equiWidthBounds(min, max, targetBins, adapter)
	if err != nil {
		return nil, err
	}

	bins := make([]Bin, len(bounds))
	for i, b := range bounds {
		bins[i] = Bin{Min: b.lo, Max: b.hi}
	}

	di := 0
	for bi, b := range bins {
		for di < len(dist) && (lessOrEqual(dist[di].Value, b.Max) || bi == len(bins)-1) {
			if !b.contains(dist[di].Value) {
				break
			}
			bins[bi].Height += dist[di].Count
			bins[bi].Distinct++
			di++
		}
	}

	return newHistogram(bins, min.Type(), adapter)
}

type rangeBound struct{ lo, hi types.Field }

// equiWidthBounds computes target_bins contiguous, disjoint [lo,hi] ranges
// spanning [min,max] of equal width, dispatching on the value's numeric
// representation (strings go through the adapter's string-to-number map
// over the residual after stripping the shared prefix).
func equiWidthBounds(min, max types.Field, targetBins int, adapter *valuedomain.Adapter) ([]rangeBound, error) {
	switch lo := min.(type) {
	case *types.Int64Value:
		hi := max.(*types.Int64Value)
		return equiWidthBoundsInt64(lo.Value, hi.Value, targetBins)
	case *types.Uint64Value:
		hi := max.(*types.Uint64Value)
		return equiWidthBoundsUint64(lo.Value, hi.Value, targetBins)
	case *types.Float64Value:
		hi := max.(*types.Float64Value)
		return equiWidthBoundsFloat64(lo.Value, hi.Value, targetBins)
	case *types.StringValue:
		hi := max.(*types.StringValue)
		return equiWidthBoundsString(lo, hi, targetBins, adapter)
	default:
		return nil, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_EQUIWIDTH_UNSUPPORTED_TYPE",
			fmt.Sprintf("equi-width histogram has no implementation for %T", min))
	}
}

func equiWidthBoundsInt64(lo, hi int64, targetBins int) ([]rangeBound, error) {
	width := hi - lo + 1
	if width < int64(targetBins) {
		targetBins = int(width)
	}
	step := width / int64(targetBins)
	if step < 1 {
		step = 1
	}
	var out []rangeBound
	cur := lo
	for i := 0; i < targetBins; i++ {
		end := cur + step - 1
		if i == targetBins-1 || end > hi {
			end = hi
		}
		out = append(out, rangeBound{lo: types.NewInt64Value(cur), hi: types.NewInt64Value(end)})
		cur = end + 1
	}
	return out, nil
}

func equiWidthBoundsUint64(lo, hi uint64, targetBins int) ([]rangeBound, error) {
	width := hi - lo + 1
	if width < uint64(targetBins) {
		targetBins = int(width)
	}
	step := width / uint64(targetBins)
	if step < 1 {
		step = 1
	}
	var out []rangeBound
	cur := lo
	for i := 0; i < targetBins; i++ {
		end := cur + step - 1
		if i == targetBins-1 || end > hi {
			end = hi
		}
		out = append(out, rangeBound{lo: types.NewUint64Value(cur), hi: types.NewUint64Value(end)})
		cur = end + 1
	}
	return out, nil
}

func equiWidthBoundsFloat64(lo, hi float64, targetBins int) ([]rangeBound, error) {
	width := (hi - lo) / float64(targetBins)
	var out []rangeBound
	cur := lo
	for i := 0; i < targetBins; i++ {
		end := cur + width
		if i == targetBins-1 {
			end = hi
		}
		out = append(out, rangeBound{lo: types.NewFloat64Value(cur), hi: types.NewFloat64Value(end)})
		cur = end
	}
	return out, nil
}

func equiWidthBoundsString(lo, hi *types.StringValue, targetBins int, adapter *valuedomain.Adapter) ([]rangeBound, error) {
	domain := lo.Domain
	if domain == nil {
		domain = hi.Domain
	}
	prefixLen := adapter.CommonPrefixLength(lo.Value, hi.Value)
	prefix := lo.Value
	if prefixLen < len(prefix) {
		prefix = prefix[:prefixLen]
	}

	loResidual := stripStringPrefix(lo.Value, prefixLen)
	hiResidual := stripStringPrefix(hi.Value, prefixLen)

	loNum, err := adapter.ConvertStringToNumber(loResidual)
	if err != nil {
		return nil, err
	}
	hiNum, err := adapter.ConvertStringToNumber(hiResidual)
	if err != nil {
		return nil, err
	}

	numBounds, err := equiWidthBoundsUint64(loNum, hiNum, targetBins)
	if err != nil {
		return nil, err
	}

	out := make([]rangeBound, len(numBounds))
	for i, nb := range numBounds {
		loStr, err := adapter.ConvertNumberToString(nb.lo.(*types.Uint64Value).Value)
		if err != nil {
			return nil, err
		}
		hiStr, err := adapter.ConvertNumberToString(nb.hi.(*types.Uint64Value).Value)
		if err != nil {
			return nil, err
		}
		out[i] = rangeBound{
			lo: types.NewStringValueWithDomain(prefix+loStr, domain),
			hi: types.NewStringValueWithDomain(prefix+hiStr, domain),
		}
	}
	return out, nil
}

func stripStringPrefix(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}

// NewEquiHeightHistogram grows bins until each holds at least
// total_count/target_bins rows (integer division, at least 1); a value is
// never split, so a bin can hold more. Bins beyond target_bins are folded
// into the last one, which can then hold more rows than the others. Each
// bin stores its own true height; no count_per_bin is shared across bins.
func NewEquiHeightHistogram(dist []ValueCount, targetBins int, adapter *valuedomain.Adapter) (*Histogram, error) {
	if err := validateDistribution(dist, targetBins); err != nil {
		return nil, err
	}

	var total uint64
	for _, vc := range dist {
		total += vc.Count
	}
	countPerBin := total / uint64(targetBins)
	if countPerBin < 1 {
		countPerBin = 1
	}

	var bins []Bin
	i := 0
	for i < len(dist) {
		start := i
		var height, distinct uint64
		for i < len(dist) && height < countPerBin {
			height += dist[i].Count
			distinct++
			i++
		}
		bins = append(bins, Bin{
			Min:      dist[start].Value,
			Max:      dist[i-1].Value,
			Height:   height,
			Distinct: distinct,
		})
	}

	if len(bins) > targetBins {
		bins = mergeTailBins(bins, targetBins)
	}

	return newHistogram(bins, dist[0].Value.Type(), adapter)
}

// mergeTailBins folds any bins beyond target_bins into the final bin, so
// an uneven last group of values doesn't spill into an extra bin.
func mergeTailBins(bins []Bin, targetBins int) []Bin {
	kept := bins[:targetBins-1]
	tail := bins[targetBins-1:]
	merged := tail[0]
	for _, b := range tail[1:] {
		merged.Max = b.Max
		merged.Height += b.Height
		merged.Distinct += b.Distinct
	}
	return append(kept, merged)
}
