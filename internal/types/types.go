package types

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is one loosely typed row, keyed by physical column name. Values are
// strings, numbers, decimals, timestamps or nil, depending on how far through
// the pipeline the record has travelled.
type Record map[string]any

// Batch is an ordered set of same-shaped records for one entity type. It is
// the unit of work that moves through validation, coercion and upsert.
type Batch struct {
	Columns []string
	Records []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	return len(b.Records)
}

// IsEmpty reports whether the batch has no records.
func (b Batch) IsEmpty() bool {
	return len(b.Records) == 0
}

// IsNil reports whether a record value is absent.
func IsNil(v any) bool {
	return v == nil
}

// AsString extracts a string from a loosely typed value.
func AsString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// AsDecimal converts a loosely typed value to a decimal. Strings are parsed,
// numeric types converted exactly.
func AsDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	default:
		return decimal.Zero, false
	}
}

// AsInt64 converts a loosely typed value to an int64. Floats must be
// integral, strings must parse as a base-10 integer.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	case decimal.Decimal:
		if !n.IsInteger() {
			return 0, false
		}
		return n.IntPart(), true
	default:
		return 0, false
	}
}
