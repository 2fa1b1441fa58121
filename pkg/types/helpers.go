package types

import (
	"clustercore/pkg/primitives"
	"cmp"
	"encoding/binary"
	"hash/fnv"
	"io"
)

// compareOrdered performs a comparison between two ordered values using the given predicate.
// Between is intentionally absent: callers compose it from LessThan/GreaterThan.
func compareOrdered[T cmp.Ordered](a, b T, op primitives.Predicate) bool {
	switch op {
	case primitives.Equals:
		return a == b
	case primitives.LessThan:
		return a < b
	case primitives.GreaterThan:
		return a > b
	case primitives.LessThanOrEqual:
		return a <= b
	case primitives.GreaterThanOrEqual:
		return a >= b
	case primitives.NotEqual:
		return a != b
	default:
		return false
	}
}

// fnvHash computes an FNV-1a hash of the given byte slice.
func fnvHash(data []byte) primitives.HashCode {
	h := fnv.New32a()
	_, _ = h.Write(data)
	return primitives.HashCode(h.Sum32())
}

// serializeUint64 writes a uint64 value to the writer in big-endian byte order.
func serializeUint64(w io.Writer, v uint64) error {
	b := toBytes64(v)
	_, err := w.Write(b)
	return err
}

// toBytes64 converts a uint64 value to an 8-byte big-endian slice.
func toBytes64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
