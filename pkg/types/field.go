package types

import (
	"clustercore/pkg/primitives"
	"io"
)

// Field is a single column value: one of the closed set of supported value
// kinds (Int64Value, Uint64Value, Float64Value, StringValue) or NullValue.
// Histograms never store a Field for which IsNull() is true; NULL is
// tracked separately by the storage layer (see pkg/mvcc, pkg/storage).
type Field interface {
	Serialize(w io.Writer) error

	// Compare evaluates op against other, which must be the same concrete
	// type as the receiver. Between is not expressible here (it needs two
	// bounds) and is composed by callers from LessThan/GreaterThan.
	Compare(op primitives.Predicate, other Field) (bool, error)

	Type() Type

	String() string

	Equals(other Field) bool

	Hash() (primitives.HashCode, error)

	IsNull() bool
}
