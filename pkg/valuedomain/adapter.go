// Package valuedomain implements the successor, width and prefix arithmetic
// the histogram core needs to reason about a column's value domain without
// hard-coding per-type branches into every histogram method. It realizes the
// capability set described for the statistics layer: NextValue, ShareBelow,
// ConvertStringToNumber/ConvertNumberToString, CommonPrefixLength and
// ContainsWildcard.
package valuedomain

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/types"
	"fmt"
	"math"
	"strings"
)

// Adapter adapts next-value/width/share arithmetic to one of the two value
// domains: plain numeric (Int64Value/Uint64Value/Float64Value) or
// bounded-prefix string. It is a tagged variant, not an inheritance
// hierarchy: numeric columns use a nil Domain, string columns carry one.
type Adapter struct {
	Domain *types.StringDomain
}

// NewNumericAdapter returns an adapter for Int64Value/Uint64Value/Float64Value columns.
func NewNumericAdapter() *Adapter {
	return &Adapter{}
}

// NewStringAdapter returns an adapter bound to the given bounded-prefix string domain.
func NewStringAdapter(domain *types.StringDomain) *Adapter {
	return &Adapter{Domain: domain}
}

// NextValue returns the immediate successor of v in T's discrete order. If v
// is already the domain maximum, v is returned unchanged.
func (a *Adapter) NextValue(v types.Field) (types.Field, error) {
	switch f := v.(type) {
	case *types.Int64Value:
		if f.Value == math.MaxInt64 {
			return f, nil
		}
		return types.NewInt64Value(f.Value + 1), nil
	case *types.Uint64Value:
		if f.Value == math.MaxUint64 {
			return f, nil
		}
		return types.NewUint64Value(f.Value + 1), nil
	case *types.Float64Value:
		return types.NewFloat64Value(math.Nextafter(f.Value, math.Inf(1))), nil
	case *types.StringValue:
		return a.nextString(f)
	default:
		return nil, dberr.New(dberr.CategoryUnsupported, "VALUEDOMAIN_UNSUPPORTED_TYPE",
			fmt.Sprintf("NextValue has no implementation for %T", v))
	}
}

func (a *Adapter) nextString(f *types.StringValue) (types.Field, error) {
	if a.Domain == nil {
		return nil, dberr.New(dberr.CategoryPrecondition, "VALUEDOMAIN_NO_DOMAIN", "string adapter requires a StringDomain")
	}
	if err := a.Domain.Validate(f.Value); err != nil {
		return nil, dberr.New(dberr.CategoryPrecondition, "VALUEDOMAIN_INVALID_CHARS", err.Error())
	}

	n, err := a.ConvertStringToNumber(f.Value)
	if err != nil {
		return nil, err
	}

	max := maxStringNumber(a.Domain)
	if n >= max {
		return f, nil
	}

	next, err := a.ConvertNumberToString(n + 1)
	if err != nil {
		return nil, err
	}
	return types.NewStringValueWithDomain(next, a.Domain), nil
}

func maxStringNumber(d *types.StringDomain) uint64 {
	base := uint64(d.CharCount())
	max := uint64(1)
	for i := 0; i < d.PrefixLen; i++ {
		max *= base
	}
	return max - 1
}

// ConvertStringToNumber maps s (length ≤ PrefixLen, over SupportedChars) to
// its base-|SupportedChars| numeral, with missing trailing positions treated
// as the domain's first (lowest) character — the convention under which ""
// maps to 0.
func (a *Adapter) ConvertStringToNumber(s string) (uint64, error) {
	if a.Domain == nil {
		return 0, dberr.New(dberr.CategoryPrecondition, "VALUEDOMAIN_NO_DOMAIN", "string adapter requires a StringDomain")
	}
	if len(s) > a.Domain.PrefixLen {
		s = s[:a.Domain.PrefixLen]
	}

	base := uint64(a.Domain.CharCount())
	var n uint64
	for i := 0; i < a.Domain.PrefixLen; i++ {
		n *= base
		if i < len(s) {
			idx := strings.IndexByte(a.Domain.SupportedChars, s[i])
			if idx < 0 {
				return 0, dberr.New(dberr.CategoryPrecondition, "VALUEDOMAIN_INVALID_CHARS",
					fmt.Sprintf("character %q outside supported domain %q", s[i], a.Domain.SupportedChars))
			}
			n += uint64(idx)
		}
	}
	return n, nil
}

// ConvertNumberToString is the approximate inverse of ConvertStringToNumber:
// it reconstructs the PrefixLen-digit representation and trims trailing
// occurrences of the domain's first character, mirroring the padding
// convention ConvertStringToNumber uses.
func (a *Adapter) ConvertNumberToString(n uint64) (string, error) {
	if a.Domain == nil {
		return "", dberr.New(dberr.CategoryPrecondition, "VALUEDOMAIN_NO_DOMAIN", "string adapter requires a StringDomain")
	}

	base := uint64(a.Domain.CharCount())
	digits := make([]byte, a.Domain.PrefixLen)
	for i := a.Domain.PrefixLen - 1; i >= 0; i-- {
		digits[i] = a.Domain.SupportedChars[n%base]
		n /= base
	}

	s := string(digits)
	return strings.TrimRight(s, string(a.Domain.SupportedChars[0])), nil
}

// CommonPrefixLength returns the length of the longest common character
// prefix of a and b.
func (a *Adapter) CommonPrefixLength(x, y string) int {
	n := min(len(x), len(y))
	i := 0
	for i < n && x[i] == y[i] {
		i++
	}
	return i
}

// ContainsWildcard reports whether p contains a LIKE wildcard ('%' or '_').
func ContainsWildcard(p string) bool {
	return strings.ContainsAny(p, "%_")
}

// ShareBelow computes the fraction of a bin [binMin, binMax] that lies below
// v, used by estimate_cardinality's share_of_bin_below(bin, v).
func (a *Adapter) ShareBelow(binMin, binMax, v types.Field) (float64, error) {
	switch lo := binMin.(type) {
	case *types.Int64Value:
		hi, okHi := binMax.(*types.Int64Value)
		val, okVal := v.(*types.Int64Value)
		if !okHi || !okVal {
			return 0, typeMismatch(binMin, binMax, v)
		}
		width := float64(hi.Value-lo.Value) + 1
		if width <= 0 {
			return 0, nil
		}
		return clamp01(float64(val.Value-lo.Value) / width), nil
	case *types.Uint64Value:
		hi, okHi := binMax.(*types.Uint64Value)
		val, okVal := v.(*types.Uint64Value)
		if !okHi || !okVal {
			return 0, typeMismatch(binMin, binMax, v)
		}
		width := float64(hi.Value-lo.Value) + 1
		if width <= 0 {
			return 0, nil
		}
		return clamp01(float64(val.Value-lo.Value) / width), nil
	case *types.Float64Value:
		hi, okHi := binMax.(*types.Float64Value)
		val, okVal := v.(*types.Float64Value)
		if !okHi || !okVal {
			return 0, typeMismatch(binMin, binMax, v)
		}
		width := hi.Value - lo.Value
		if width <= 0 {
			return 0, nil
		}
		return clamp01((val.Value - lo.Value) / width), nil
	case *types.StringValue:
		hi, okHi := binMax.(*types.StringValue)
		val, okVal := v.(*types.StringValue)
		if !okHi || !okVal {
			return 0, typeMismatch(binMin, binMax, v)
		}
		return a.shareBelowString(lo.Value, hi.Value, val.Value)
	default:
		return 0, dberr.New(dberr.CategoryUnsupported, "VALUEDOMAIN_UNSUPPORTED_TYPE",
			fmt.Sprintf("ShareBelow has no implementation for %T", binMin))
	}
}

// shareBelowString strips the longest common prefix of min and max from both
// bounds and from v, converts the residual prefix-length substrings to their
// base-|SupportedChars| numeral, and returns (v' - min') / (max' - min' + 1).
func (a *Adapter) shareBelowString(min, max, v string) (float64, error) {
	prefixLen := a.CommonPrefixLength(min, max)

	minResidual := stripPrefix(min, prefixLen)
	maxResidual := stripPrefix(max, prefixLen)
	vResidual := stripPrefix(v, prefixLen)

	minNum, err := a.ConvertStringToNumber(minResidual)
	if err != nil {
		return 0, err
	}
	maxNum, err := a.ConvertStringToNumber(maxResidual)
	if err != nil {
		return 0, err
	}
	vNum, err := a.ConvertStringToNumber(vResidual)
	if err != nil {
		return 0, err
	}

	width := float64(maxNum-minNum) + 1
	if width <= 0 {
		return 0, nil
	}
	return clamp01(float64(vNum-minNum) / width), nil
}

func stripPrefix(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func typeMismatch(a, b, c types.Field) error {
	return dberr.New(dberr.CategoryPrecondition, "VALUEDOMAIN_TYPE_MISMATCH",
		fmt.Sprintf("mismatched field types in ShareBelow: %T, %T, %T", a, b, c))
}
