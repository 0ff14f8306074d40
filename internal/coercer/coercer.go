// Package coercer converts validated, loosely typed batch values into the
// physical types the target schema declares: strings, 32/64-bit integers,
// fixed-point decimals and UTC timestamps.
package coercer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/types"
)

// CoercionError reports a value that could not be converted to its column's
// declared physical type.
type CoercionError struct {
	Entity string
	Column string
	Row    int
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("coerce %s row %d column %s: %v", e.Entity, e.Row, e.Column, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

type Coercer struct {
	log *logrus.Logger
}

func New(log *logrus.Logger) *Coercer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coercer{log: log}
}

// Coerce converts every record's values to the descriptor's declared types,
// in place. Values whose runtime type already matches the target type pass
// through unchanged; in particular an already-parsed timestamp is never
// re-parsed, which would be lossy if layouts mismatched.
func (c *Coercer) Coerce(desc *entity.Descriptor, batch types.Batch) (types.Batch, error) {
	for i, rec := range batch.Records {
		for ci := range desc.Columns {
			col := &desc.Columns[ci]
			val := rec[col.Name]
			if types.IsNil(val) {
				if col.Nullable {
					continue
				}
				return types.Batch{}, &CoercionError{
					Entity: desc.Name, Column: col.Name, Row: i,
					Err: fmt.Errorf("required value is missing"),
				}
			}
			converted, err := coerceValue(col, val)
			if err != nil {
				return types.Batch{}, &CoercionError{Entity: desc.Name, Column: col.Name, Row: i, Err: err}
			}
			rec[col.Name] = converted
		}
	}
	c.log.WithFields(logrus.Fields{
		"entity": desc.Name,
		"rows":   batch.Len(),
	}).Debug("batch coerced")
	return batch, nil
}

func coerceValue(col *entity.Column, val any) (any, error) {
	switch col.Kind {
	case entity.KindString:
		s, ok := types.AsString(val)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to string", val)
		}
		return s, nil

	case entity.KindInt32:
		if n, ok := val.(int32); ok {
			return n, nil
		}
		n, ok := types.AsInt64(val)
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to int32", fmt.Sprint(val))
		}
		if n > 1<<31-1 || n < -(1<<31) {
			return nil, fmt.Errorf("value %d overflows int32", n)
		}
		return int32(n), nil

	case entity.KindInt64:
		if n, ok := val.(int64); ok {
			return n, nil
		}
		n, ok := types.AsInt64(val)
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to int64", fmt.Sprint(val))
		}
		return n, nil

	case entity.KindDecimal:
		if d, ok := val.(decimal.Decimal); ok {
			return d, nil
		}
		d, ok := types.AsDecimal(val)
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to decimal", fmt.Sprint(val))
		}
		// Round half away from zero at the declared scale; finer fractions
		// are rounded, never truncated.
		d = d.Round(col.Scale)
		limit := decimal.New(1, col.Precision-col.Scale)
		if d.Abs().GreaterThanOrEqual(limit) {
			return nil, fmt.Errorf("value %s exceeds numeric(%d,%d)", d, col.Precision, col.Scale)
		}
		return d, nil

	case entity.KindTimestamp:
		if t, ok := val.(time.Time); ok {
			return t, nil
		}
		s, ok := types.AsString(val)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to timestamp", val)
		}
		t, err := time.ParseInLocation(col.Layout, s, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q with layout %s: %w", s, col.Layout, err)
		}
		return t, nil

	default:
		return nil, fmt.Errorf("unknown column kind %s", col.Kind)
	}
}
