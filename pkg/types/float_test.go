package types

import (
	"bytes"
	"clustercore/pkg/primitives"
	"math"
	"testing"
)

func TestNewFloat64Value(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"positive value", 42.5},
		{"negative value", -42.5},
		{"zero", 0.0},
		{"very small", 1e-10},
		{"very large", 1e10},
		{"pi", math.Pi},
		{"max float64", math.MaxFloat64},
		{"smallest positive", math.SmallestNonzeroFloat64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := NewFloat64Value(tt.value)
			if field.Value != tt.value {
				t.Errorf("Expected value %v, got %v", tt.value, field.Value)
			}
		})
	}
}

func TestFloat64Value_Type(t *testing.T) {
	field := NewFloat64Value(42.5)

	if field.Type() != Float64Type {
		t.Errorf("Expected type %v, got %v", Float64Type, field.Type())
	}
}

func TestFloat64Value_String(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{"positive integer", 42.0, "42"},
		{"positive decimal", 42.5, "42.5"},
		{"negative", -42.5, "-42.5"},
		{"zero", 0.0, "0"},
		{"very small", 0.0001, "0.0001"},
		{"scientific notation avoided", 1234567.0, "1234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := NewFloat64Value(tt.value)
			if field.String() != tt.expected {
				t.Errorf("Expected string %s, got %s", tt.expected, field.String())
			}
		})
	}
}

func TestFloat64Value_Equals(t *testing.T) {
	tests := []struct {
		name     string
		field1   *Float64Value
		field2   Field
		expected bool
	}{
		{"same values", NewFloat64Value(42.5), NewFloat64Value(42.5), true},
		{"different values", NewFloat64Value(42.5), NewFloat64Value(43.5), false},
		{"within epsilon", NewFloat64Value(1.0), NewFloat64Value(1.0 + 1e-10), true},
		{"outside epsilon", NewFloat64Value(1.0), NewFloat64Value(1.0 + 1e-8), false},
		{"negative values", NewFloat64Value(-42.5), NewFloat64Value(-42.5), true},
		{"zero equality", NewFloat64Value(0.0), NewFloat64Value(0.0), true},
		{"different type", NewFloat64Value(42.5), NewInt64Value(42), false},
		{"NaN values", NewFloat64Value(math.NaN()), NewFloat64Value(math.NaN()), false},
		{"positive infinity", NewFloat64Value(math.Inf(1)), NewFloat64Value(math.Inf(1)), false},
		{"negative infinity", NewFloat64Value(math.Inf(-1)), NewFloat64Value(math.Inf(-1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.field1.Equals(tt.field2)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestFloat64Value_Hash(t *testing.T) {
	field1 := NewFloat64Value(42.5)
	field2 := NewFloat64Value(42.5)

	hash1, err := field1.Hash()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	hash2, err := field2.Hash()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if hash1 != hash2 {
		t.Errorf("Same values should produce same hash: %d != %d", hash1, hash2)
	}

	field3 := NewFloat64Value(43.5)
	hash3, _ := field3.Hash()
	if hash1 == hash3 {
		t.Errorf("Different values should generally produce different hashes")
	}
}

func TestFloat64Value_Serialize(t *testing.T) {
	tests := []float64{42.5, -42.5, 0.0, math.MaxFloat64, -math.MaxFloat64, math.Inf(1), math.Inf(-1), math.NaN()}

	for _, v := range tests {
		field := NewFloat64Value(v)
		var buf bytes.Buffer

		if err := field.Serialize(&buf); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if buf.Len() != 8 {
			t.Errorf("Expected buffer length 8, got %d", buf.Len())
		}
	}
}

func TestFloat64Value_Compare(t *testing.T) {
	tests := []struct {
		name      string
		field1    *Float64Value
		op        primitives.Predicate
		field2    *Float64Value
		expected  bool
		expectErr bool
	}{
		{"equals same", NewFloat64Value(42.5), primitives.Equals, NewFloat64Value(42.5), true, false},
		{"equals different", NewFloat64Value(42.5), primitives.Equals, NewFloat64Value(43.5), false, false},
		{"equals within epsilon", NewFloat64Value(1.0), primitives.Equals, NewFloat64Value(1.0 + 1e-10), true, false},
		{"equals outside epsilon", NewFloat64Value(1.0), primitives.Equals, NewFloat64Value(1.0 + 1e-8), false, false},
		{"not equal different", NewFloat64Value(42.5), primitives.NotEqual, NewFloat64Value(43.5), true, false},
		{"not equal same", NewFloat64Value(42.5), primitives.NotEqual, NewFloat64Value(42.5), false, false},
		{"less than true", NewFloat64Value(42.5), primitives.LessThan, NewFloat64Value(43.5), true, false},
		{"less than false", NewFloat64Value(43.5), primitives.LessThan, NewFloat64Value(42.5), false, false},
		{"greater than true", NewFloat64Value(43.5), primitives.GreaterThan, NewFloat64Value(42.5), true, false},
		{"less than or equal equal", NewFloat64Value(42.5), primitives.LessThanOrEqual, NewFloat64Value(42.5), true, false},
		{"greater than or equal equal", NewFloat64Value(42.5), primitives.GreaterThanOrEqual, NewFloat64Value(42.5), true, false},
		{"infinity greater than max", NewFloat64Value(math.Inf(1)), primitives.GreaterThan, NewFloat64Value(math.MaxFloat64), true, false},
		{"negative infinity less than min", NewFloat64Value(math.Inf(-1)), primitives.LessThan, NewFloat64Value(-math.MaxFloat64), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.field1.Compare(tt.op, tt.field2)
			if tt.expectErr && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("Expected result %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestFloat64Value_Compare_InvalidType(t *testing.T) {
	floatField := NewFloat64Value(42.5)
	stringField := NewStringValue("test")

	_, err := floatField.Compare(primitives.Equals, stringField)
	if err == nil {
		t.Error("Expected error when comparing with string field")
	}
}

func TestFloat64Value_Compare_UnsupportedPredicate(t *testing.T) {
	field1 := NewFloat64Value(42.5)
	field2 := NewFloat64Value(43.5)

	_, err := field1.Compare(primitives.Predicate(999), field2)
	if err == nil {
		t.Error("Expected error for unsupported predicate")
	}
}

func TestFloat64Value_Compare_NaN(t *testing.T) {
	tests := []struct {
		name     string
		field1   *Float64Value
		op       primitives.Predicate
		field2   *Float64Value
		expected bool
	}{
		{"NaN equals NaN", NewFloat64Value(math.NaN()), primitives.Equals, NewFloat64Value(math.NaN()), false},
		{"NaN not equals NaN", NewFloat64Value(math.NaN()), primitives.NotEqual, NewFloat64Value(math.NaN()), false},
		{"NaN less than value", NewFloat64Value(math.NaN()), primitives.LessThan, NewFloat64Value(42.5), false},
		{"value less than NaN", NewFloat64Value(42.5), primitives.LessThan, NewFloat64Value(math.NaN()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.field1.Compare(tt.op, tt.field2)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("Expected result %v, got %v", tt.expected, result)
			}
		})
	}
}
