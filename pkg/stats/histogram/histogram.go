// Package histogram implements per-column equi-distinct / equi-width /
// equi-height histograms: predicate pruning, cardinality estimation and
// histogram slicing over a shared disjoint-bin core.
package histogram

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/primitives"
	"clustercore/pkg/types"
	"clustercore/pkg/valuedomain"
	"fmt"
	"math"
)

// Histogram is an ordered, disjoint sequence of Bins over a single column's
// value domain, built once and never mutated. The three variants in
// variants.go all produce a *Histogram through newHistogram; they differ
// only in how bins are assembled, not in how the bins are queried.
type Histogram struct {
	bins       []Bin
	columnType types.Type
	adapter    *valuedomain.Adapter
}

// newHistogram validates I1 (bin disjointness) and assembles the core.
// Constructors in variants.go are responsible for producing bins that
// already satisfy I1/I5; this is the single choke point that enforces it.
func newHistogram(bins []Bin, columnType types.Type, adapter *valuedomain.Adapter) (*Histogram, error) {
	for i := 0; i+1 < len(bins); i++ {
		if !lessThan(bins[i].Max, bins[i+1].Min) {
			return nil, dberr.New(dberr.CategoryInvariant, "HISTOGRAM_BIN_OVERLAP",
				fmt.Sprintf("bin %d [%s,%s] does not precede bin %d [%s,%s]",
					i, bins[i].Min, bins[i].Max, i+1, bins[i+1].Min, bins[i+1].Max))
		}
	}
	return &Histogram{bins: bins, columnType: columnType, adapter: adapter}, nil
}

// TotalCount returns total_count(H) = Σ bᵢ.height.
func (h *Histogram) TotalCount() uint64 {
	var total uint64
	for _, b := range h.bins {
		total += b.Height
	}
	return total
}

// TotalDistinctCount returns total_distinct(H) = Σ bᵢ.distinct.
func (h *Histogram) TotalDistinctCount() uint64 {
	var total uint64
	for _, b := range h.bins {
		total += b.Distinct
	}
	return total
}

// Minimum returns b₀.min. Panics if the histogram has no bins; callers never
// construct an empty histogram (see variants.go).
func (h *Histogram) Minimum() types.Field {
	return h.bins[0].Min
}

// Maximum returns b_{n-1}.max.
func (h *Histogram) Maximum() types.Field {
	return h.bins[len(h.bins)-1].Max
}

// BinCount returns the number of bins.
func (h *Histogram) BinCount() int {
	return len(h.bins)
}

// Bins returns the histogram's bins in order. Callers must not mutate the
// returned slice; it is the histogram's own backing storage.
func (h *Histogram) Bins() []Bin {
	return h.bins
}

// Description returns a short human-readable summary, useful in logs.
func (h *Histogram) Description() string {
	return fmt.Sprintf("Histogram{bins=%d, total=%d, distinct=%d, min=%s, max=%s}",
		len(h.bins), h.TotalCount(), h.TotalDistinctCount(), h.Minimum(), h.Maximum())
}

// binIndexOf returns the index of the bin containing v, or -1 if v falls
// into a gap or outside the histogram's covered range.
func (h *Histogram) binIndexOf(v types.Field) int {
	for i, b := range h.bins {
		if b.contains(v) {
			return i
		}
		if lessThan(v, b.Min) {
			return -1
		}
	}
	return -1
}

// gapIndexOf returns i such that v falls strictly between bins[i].Max and
// bins[i+1].Min (a gap), len(bins)-1 if v is past the last bin's max, or -1
// if v is before the first bin's min or inside a bin.
func (h *Histogram) gapIndexOf(v types.Field) int {
	for i := 0; i+1 < len(h.bins); i++ {
		if greaterThan(v, h.bins[i].Max) && lessThan(v, h.bins[i+1].Min) {
			return i
		}
	}
	if greaterThan(v, h.bins[len(h.bins)-1].Max) {
		return len(h.bins) - 1
	}
	return -1
}

// DoesNotContain returns true only when the histogram proves no row can
// match the predicate. It must never return a false positive; false
// negatives (returning false when zero rows actually match) are acceptable.
func (h *Histogram) DoesNotContain(op primitives.Predicate, v types.Field, v2 types.Field) (bool, error) {
	switch op {
	case primitives.Equals:
		idx := h.binIndexOf(v)
		return idx < 0 || h.bins[idx].Height == 0, nil

	case primitives.NotEqual:
		return equal(h.Minimum(), h.Maximum()) && equal(h.Minimum(), v), nil

	case primitives.LessThan:
		return lessOrEqual(v, h.Minimum()), nil

	case primitives.LessThanOrEqual:
		return lessThan(v, h.Minimum()), nil

	case primitives.GreaterThan:
		return greaterOrEqual(v, h.Maximum()), nil

	case primitives.GreaterThanOrEqual:
		return greaterThan(v, h.Maximum()), nil

	case primitives.Between:
		return h.doesNotContainBetween(v, v2)

	case primitives.Like:
		return h.doesNotContainLike(v)

	case primitives.NotLike:
		return h.doesNotContainNotLike(v)

	default:
		return false, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_UNSUPPORTED_PREDICATE",
			fmt.Sprintf("does_not_contain does not support predicate %s", op))
	}
}

func (h *Histogram) doesNotContainBetween(lo, hi types.Field) (bool, error) {
	if greaterThan(lo, hi) {
		return true, nil
	}
	if ok, _ := h.DoesNotContain(primitives.GreaterThanOrEqual, lo, nil); ok {
		return true, nil
	}
	if ok, _ := h.DoesNotContain(primitives.LessThanOrEqual, hi, nil); ok {
		return true, nil
	}

	loIdx := h.binIndexOf(lo)
	hiIdx := h.binIndexOf(hi)

	if loIdx < 0 && hiIdx < 0 && len(h.bins) >= 2 {
		loGap := h.gapIndexOf(lo)
		hiGap := h.gapIndexOf(hi)
		if loGap == hiGap && loGap >= 0 {
			return true, nil
		}
	}

	if loIdx >= 0 && hiIdx >= 0 && loIdx == hiIdx && h.bins[loIdx].Height == 0 {
		allEmptyBetween := true
		for i := loIdx; i <= hiIdx; i++ {
			if h.bins[i].Height != 0 {
				allEmptyBetween = false
				break
			}
		}
		if allEmptyBetween {
			return true, nil
		}
	}

	return false, nil
}

func (h *Histogram) doesNotContainLike(p types.Field) (bool, error) {
	pattern, ok := p.(*types.StringValue)
	if !ok {
		return false, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_LIKE_NON_STRING", "LIKE is only supported on string columns")
	}
	if !valuedomain.ContainsWildcard(pattern.Value) {
		return h.DoesNotContain(primitives.Equals, p, nil)
	}
	if pattern.Value[0] == '%' {
		return false, nil
	}

	prefix := literalPrefix(pattern.Value)
	q := types.NewStringValueWithDomain(prefix, h.domain())
	// The successor of prefix padded with the domain's last character is the
	// first string past every string that starts with prefix.
	padded := prefix
	if d := h.domain(); d != nil {
		for len(padded) < d.PrefixLen {
			padded += d.SupportedChars[len(d.SupportedChars)-1:]
		}
	}
	qPlus, err := h.adapter.NextValue(types.NewStringValueWithDomain(padded, h.domain()))
	if err != nil {
		return false, err
	}
	if qPlus.(*types.StringValue).Value == padded {
		return h.DoesNotContain(primitives.GreaterThanOrEqual, q, nil)
	}
	return h.doesNotContainBetweenHalfOpen(q, qPlus.(*types.StringValue))
}

// doesNotContainBetweenHalfOpen applies the BETWEEN pruning rules to the
// half-open range [lo, hi) that a LIKE prefix pattern reduces to.
func (h *Histogram) doesNotContainBetweenHalfOpen(lo, hi *types.StringValue) (bool, error) {
	if ok, _ := h.DoesNotContain(primitives.GreaterThanOrEqual, lo, nil); ok {
		return true, nil
	}
	if ok, _ := h.DoesNotContain(primitives.LessThan, hi, nil); ok {
		return true, nil
	}

	loGap := h.gapIndexOf(lo)
	hiGap := h.gapIndexOf(hi)
	if loGap == hiGap && loGap >= 0 {
		return true, nil
	}
	return false, nil
}

func (h *Histogram) doesNotContainNotLike(p types.Field) (bool, error) {
	pattern, ok := p.(*types.StringValue)
	if !ok {
		return false, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_LIKE_NON_STRING", "NOT LIKE is only supported on string columns")
	}
	if !valuedomain.ContainsWildcard(pattern.Value) {
		return h.DoesNotContain(primitives.NotEqual, p, nil)
	}
	if pattern.Value == "%" {
		return true, nil
	}
	if pattern.Value[0] == '%' {
		return false, nil
	}

	prefix := literalPrefix(pattern.Value)
	minStr := h.Minimum().(*types.StringValue).Value
	maxStr := h.Maximum().(*types.StringValue).Value
	return hasPrefix(minStr, prefix) && hasPrefix(maxStr, prefix), nil
}

func literalPrefix(p string) string {
	for i := 0; i < len(p); i++ {
		if p[i] == '%' || p[i] == '_' {
			return p[:i]
		}
	}
	return p
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (h *Histogram) domain() *types.StringDomain {
	if h.adapter == nil {
		return nil
	}
	return h.adapter.Domain
}

// EstimateSelectivity returns estimate_cardinality / total_count.
func (h *Histogram) EstimateSelectivity(op primitives.Predicate, v types.Field, v2 types.Field) (float64, bool, error) {
	card, exact, err := h.EstimateCardinality(op, v, v2)
	if err != nil {
		return 0, false, err
	}
	total := h.TotalCount()
	if total == 0 {
		return 0, true, nil
	}
	return card / float64(total), exact, nil
}

// EstimateCardinality returns (count, is_exact) for the given predicate.
func (h *Histogram) EstimateCardinality(op primitives.Predicate, v types.Field, v2 types.Field) (float64, bool, error) {
	switch op {
	case primitives.Equals:
		idx := h.binIndexOf(v)
		if idx < 0 {
			return 0, true, nil
		}
		b := h.bins[idx]
		if b.Distinct == 0 {
			return 0, true, nil
		}
		return float64(b.Height) / float64(b.Distinct), b.Distinct == 1, nil

	case primitives.LessThan:
		return h.estimateLessThan(v)

	case primitives.LessThanOrEqual:
		next, err := h.adapter.NextValue(v)
		if err != nil {
			return 0, false, err
		}
		return h.estimateLessThan(next)

	case primitives.GreaterThanOrEqual:
		lt, exact, err := h.estimateLessThan(v)
		if err != nil {
			return 0, false, err
		}
		return float64(h.TotalCount()) - lt, exact, nil

	case primitives.GreaterThan:
		next, err := h.adapter.NextValue(v)
		if err != nil {
			return 0, false, err
		}
		lt, exact, err := h.estimateLessThan(next)
		if err != nil {
			return 0, false, err
		}
		return float64(h.TotalCount()) - lt, exact, nil

	case primitives.Between:
		le, exactLe, err := h.EstimateCardinality(primitives.LessThanOrEqual, v2, nil)
		if err != nil {
			return 0, false, err
		}
		lt, exactLt, err := h.estimateLessThan(v)
		if err != nil {
			return 0, false, err
		}
		card := math.Max(0, le-lt)
		return card, exactLe && exactLt, nil

	case primitives.Like:
		return h.estimateLike(v)

	case primitives.NotLike:
		like, exact, err := h.estimateLike(v)
		if err != nil {
			return 0, false, err
		}
		return math.Max(0, float64(h.TotalCount())-like), exact, nil

	default:
		return 0, false, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_UNSUPPORTED_PREDICATE",
			fmt.Sprintf("estimate_cardinality does not support predicate %s", op))
	}
}

// estimateLessThan sums the heights of complete bins strictly below v, plus
// the fractional share of v's own bin, capped at total_count. It is exact
// when v falls into a gap between bins (the fractional share is structurally
// zero).
func (h *Histogram) estimateLessThan(v types.Field) (float64, bool, error) {
	if lessOrEqual(v, h.Minimum()) {
		return 0, true, nil
	}
	if greaterThan(v, h.Maximum()) {
		return float64(h.TotalCount()), true, nil
	}

	var sum float64
	idx := h.binIndexOf(v)

	for i, b := range h.bins {
		if idx >= 0 && i == idx {
			share, err := h.adapter.ShareBelow(b.Min, b.Max, v)
			if err != nil {
				return 0, false, err
			}
			sum += share * float64(b.Height)
			break
		}
		if lessThan(b.Max, v) {
			sum += float64(b.Height)
			continue
		}
		break
	}

	exact := idx < 0
	return math.Min(sum, float64(h.TotalCount())), exact, nil
}

// estimateLike implements the LIKE cardinality rules of §4.1: a simple
// prefix pattern p% reduces to `< next_value(p) − < p`; a pattern with
// further literals after a '%' divides that estimate by
// |supported_chars|^k for the k trailing literal characters (exponent
// capped so the power fits in 64 bits); a pattern beginning with '%' is
// total_count / |supported_chars|^k; '_' wildcards are not modelled.
func (h *Histogram) estimateLike(p types.Field) (float64, bool, error) {
	pattern, ok := p.(*types.StringValue)
	if !ok {
		return 0, false, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_LIKE_NON_STRING", "LIKE is only supported on string columns")
	}
	if strings_ContainsRune(pattern.Value, '_') {
		return float64(h.TotalCount()), false, nil
	}
	if !valuedomain.ContainsWildcard(pattern.Value) {
		return h.EstimateCardinality(primitives.Equals, p, nil)
	}

	domain := h.domain()
	charCount := float64(domain.CharCount())

	if pattern.Value[0] == '%' {
		trailingLiterals := countLiterals(pattern.Value[1:])
		divisor := cappedPow(charCount, trailingLiterals)
		return float64(h.TotalCount()) / divisor, false, nil
	}

	prefix := literalPrefix(pattern.Value)
	q := types.NewStringValueWithDomain(prefix, domain)
	qPlus, err := h.adapter.NextValue(q)
	if err != nil {
		return 0, false, err
	}

	ltQPlus, _, err := h.estimateLessThan(qPlus)
	if err != nil {
		return 0, false, err
	}
	ltQ, _, err := h.estimateLessThan(q)
	if err != nil {
		return 0, false, err
	}
	base := ltQPlus - ltQ

	rest := pattern.Value[len(prefix):]
	trailingLiterals := countLiterals(rest)
	if trailingLiterals == 0 {
		return base, false, nil
	}
	divisor := cappedPow(charCount, trailingLiterals)
	return base / divisor, false, nil
}

func countLiterals(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' && s[i] != '_' {
			n++
		}
	}
	return n
}

// cappedPow computes base^exp, capping exp so the result fits comfortably in
// float64/64-bit arithmetic instead of overflowing to +Inf.
func cappedPow(base float64, exp int) float64 {
	const maxExp = 63
	if exp > maxExp {
		exp = maxExp
	}
	return math.Pow(base, float64(exp))
}

func strings_ContainsRune(s string, r byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == r {
			return true
		}
	}
	return false
}

// SliceWithPredicate constructs a new histogram whose domain is exactly the
// subset of rows matching the predicate, preserving per-bin distinct counts
// proportionally. Calling it with a predicate does_not_contain already
// proved empty, or with LIKE/NOT LIKE, is a precondition violation.
func (h *Histogram) SliceWithPredicate(op primitives.Predicate, v types.Field, v2 types.Field) (*Histogram, error) {
	if empty, err := h.DoesNotContain(op, v, v2); err != nil {
		return nil, err
	} else if empty {
		return nil, dberr.New(dberr.CategoryPrecondition, "HISTOGRAM_SLICE_EMPTY_PREDICATE",
			fmt.Sprintf("slice_with_predicate called with a predicate %s already proved empty", op))
	}

	switch op {
	case primitives.Equals:
		return h.sliceEquals(v)
	case primitives.NotEqual:
		return h.sliceNotEqual(v)
	case primitives.LessThan, primitives.LessThanOrEqual:
		return h.sliceUpperBound(op, v)
	case primitives.GreaterThan, primitives.GreaterThanOrEqual:
		return h.sliceLowerBound(op, v)
	case primitives.Between:
		return h.sliceBetween(v, v2)
	case primitives.Like, primitives.NotLike:
		return nil, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_SLICE_LIKE_UNSUPPORTED",
			fmt.Sprintf("slice_with_predicate does not support %s", op))
	default:
		return nil, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_UNSUPPORTED_PREDICATE",
			fmt.Sprintf("slice_with_predicate does not support predicate %s", op))
	}
}

func (h *Histogram) sliceEquals(v types.Field) (*Histogram, error) {
	card, _, err := h.EstimateCardinality(primitives.Equals, v, nil)
	if err != nil {
		return nil, err
	}
	bin := Bin{Min: v, Max: v, Height: uint64(math.Ceil(card)), Distinct: 1}
	return newHistogram([]Bin{bin}, h.columnType, h.adapter)
}

func (h *Histogram) sliceNotEqual(v types.Field) (*Histogram, error) {
	eqCard, _, err := h.EstimateCardinality(primitives.Equals, v, nil)
	if err != nil {
		return nil, err
	}

	var out []Bin
	for _, b := range h.bins {
		if !b.contains(v) {
			out = append(out, b)
			continue
		}
		nb := b
		reduction := uint64(math.Ceil(eqCard))
		if reduction > nb.Height {
			reduction = nb.Height
		}
		nb.Height -= reduction
		if nb.Distinct > 0 {
			nb.Distinct--
		}
		if nb.Distinct == 0 {
			continue
		}
		out = append(out, nb)
	}
	return newHistogram(out, h.columnType, h.adapter)
}

// sliceUpperBound handles `<` and `<=`, keeping bins entirely below v and
// shrinking v's own bin proportionally.
func (h *Histogram) sliceUpperBound(op primitives.Predicate, v types.Field) (*Histogram, error) {
	bound := v
	if op == primitives.LessThan {
		prev, err := h.prevValue(v)
		if err != nil {
			return nil, err
		}
		bound = prev
	}

	var out []Bin
	for _, b := range h.bins {
		if lessOrEqual(b.Max, bound) {
			out = append(out, b)
			continue
		}
		if lessThan(b.Min, bound) || equal(b.Min, bound) {
			share, err := h.adapter.ShareBelow(b.Min, b.Max, bound)
			if err != nil {
				return nil, err
			}
			nb := Bin{
				Min:      b.Min,
				Max:      bound,
				Height:   uint64(math.Ceil(share * float64(b.Height))),
				Distinct: uint64(math.Round(share * float64(b.Distinct))),
			}
			if nb.Distinct == 0 && nb.Height > 0 {
				nb.Distinct = 1
			}
			if nb.Height > 0 || nb.Distinct > 0 {
				out = append(out, nb)
			}
		}
		break
	}
	return newHistogram(out, h.columnType, h.adapter)
}

// sliceLowerBound handles `>` and `>=`, symmetric to sliceUpperBound.
func (h *Histogram) sliceLowerBound(op primitives.Predicate, v types.Field) (*Histogram, error) {
	bound := v
	if op == primitives.GreaterThan {
		next, err := h.adapter.NextValue(v)
		if err != nil {
			return nil, err
		}
		bound = next
	}

	var out []Bin
	for _, b := range h.bins {
		if greaterOrEqual(b.Min, bound) {
			out = append(out, b)
			continue
		}
		if b.contains(bound) {
			share, err := h.adapter.ShareBelow(b.Min, b.Max, bound)
			if err != nil {
				return nil, err
			}
			aboveShare := 1 - share
			nb := Bin{
				Min:      bound,
				Max:      b.Max,
				Height:   uint64(math.Ceil(aboveShare * float64(b.Height))),
				Distinct: uint64(math.Round(aboveShare * float64(b.Distinct))),
			}
			if nb.Distinct == 0 && nb.Height > 0 {
				nb.Distinct = 1
			}
			if nb.Height > 0 || nb.Distinct > 0 {
				out = append(out, nb)
			}
		}
	}
	return newHistogram(out, h.columnType, h.adapter)
}

func (h *Histogram) sliceBetween(lo, hi types.Field) (*Histogram, error) {
	upper, err := h.sliceUpperBound(primitives.LessThanOrEqual, hi)
	if err != nil {
		return nil, err
	}
	return upper.sliceLowerBound(primitives.GreaterThanOrEqual, lo)
}

// prevValue returns the discrete predecessor of v. It is the mirror of
// Adapter.NextValue, used only by slicing's `<` case; the histogram core
// does not otherwise need a predecessor operation.
func (h *Histogram) prevValue(v types.Field) (types.Field, error) {
	switch f := v.(type) {
	case *types.Int64Value:
		if f.Value == math.MinInt64 {
			return f, nil
		}
		return types.NewInt64Value(f.Value - 1), nil
	case *types.Uint64Value:
		if f.Value == 0 {
			return f, nil
		}
		return types.NewUint64Value(f.Value - 1), nil
	case *types.Float64Value:
		return types.NewFloat64Value(math.Nextafter(f.Value, math.Inf(-1))), nil
	default:
		return nil, dberr.New(dberr.CategoryUnsupported, "HISTOGRAM_PREV_VALUE_UNSUPPORTED",
			fmt.Sprintf("slice_with_predicate `<` has no predecessor operation for %T", v))
	}
}
