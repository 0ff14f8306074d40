// Package validator enforces field constraints, cross-field arithmetic
// invariants and referential existence on a batch before it may be coerced
// and upserted. A batch is all-or-nothing: one violated rule fails the whole
// batch for that entity type.
package validator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/types"
)

// DefaultTolerance is the absolute tolerance for cross-field arithmetic
// checks, in the entity's currency unit. Upstream sources carry float
// rounding, so exact equality is not required.
const DefaultTolerance = 0.01

// Error describes a single rule violation.
type Error struct {
	Row     int
	Field   string
	Message string
	Value   string
}

func (e Error) String() string {
	return fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Message)
}

// Outcome is the result of validating one batch. Passed is populated if and
// only if Valid is true.
type Outcome struct {
	Valid     bool
	Errors    []Error
	Passed    types.Batch
	TotalRows int
}

type Validator struct {
	tolerance decimal.Decimal
	log       *logrus.Logger
}

// New builds a validator. A tolerance <= 0 falls back to DefaultTolerance.
func New(tolerance float64, log *logrus.Logger) *Validator {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Validator{tolerance: decimal.NewFromFloat(tolerance), log: log}
}

// Validate applies the rule classes in fixed order: presence, type/range,
// cross-field arithmetic, referential existence. It stops at the first class
// that produced violations so error reports stay focused. parentKeys is the
// set of already-loaded parent conflict keys, nil for independent entities.
//
// Errors are reported in row-then-column order for reproducible diagnostics.
func (v *Validator) Validate(desc *entity.Descriptor, batch types.Batch, parentKeys map[string]struct{}) Outcome {
	v.log.WithFields(logrus.Fields{
		"entity": desc.Name,
		"rows":   batch.Len(),
	}).Info("validating batch")

	if batch.IsEmpty() {
		return Outcome{Valid: true, Passed: batch}
	}

	classes := []func(*entity.Descriptor, types.Batch, map[string]struct{}) []Error{
		v.checkPresence,
		v.checkTypes,
		v.checkArithmetic,
		v.checkReferential,
	}
	for _, class := range classes {
		if errs := class(desc, batch, parentKeys); len(errs) > 0 {
			v.log.WithFields(logrus.Fields{
				"entity": desc.Name,
				"errors": len(errs),
			}).Warn("batch failed validation")
			return Outcome{Valid: false, Errors: errs, TotalRows: batch.Len()}
		}
	}
	return Outcome{Valid: true, Passed: batch, TotalRows: batch.Len()}
}

func (v *Validator) checkPresence(desc *entity.Descriptor, batch types.Batch, _ map[string]struct{}) []Error {
	var errs []Error
	for i, rec := range batch.Records {
		for _, col := range desc.Columns {
			if col.Nullable {
				continue
			}
			if types.IsNil(rec[col.Name]) {
				errs = append(errs, Error{
					Row:     i,
					Field:   col.Name,
					Message: "required value is missing",
				})
			}
		}
	}
	return errs
}

func (v *Validator) checkTypes(desc *entity.Descriptor, batch types.Batch, _ map[string]struct{}) []Error {
	var errs []Error
	for i, rec := range batch.Records {
		for _, col := range desc.Columns {
			val := rec[col.Name]
			if types.IsNil(val) {
				continue
			}
			if e := checkColumnValue(&col, val); e != "" {
				errs = append(errs, Error{
					Row:     i,
					Field:   col.Name,
					Message: e,
					Value:   fmt.Sprint(val),
				})
			}
		}
	}
	return errs
}

func checkColumnValue(col *entity.Column, val any) string {
	switch col.Kind {
	case entity.KindString:
		s, ok := types.AsString(val)
		if !ok {
			return fmt.Sprintf("expected a string, got %T", val)
		}
		if s == "" {
			return "string is empty"
		}
		if col.MaxLen > 0 && len(s) > col.MaxLen {
			return fmt.Sprintf("string longer than %d characters", col.MaxLen)
		}
	case entity.KindInt32, entity.KindInt64:
		n, ok := types.AsInt64(val)
		if !ok {
			return "value is not an integer"
		}
		if col.Quantity && n <= 0 {
			return fmt.Sprintf("quantity must be positive, got %d", n)
		}
		if len(col.Enum) > 0 && !containsInt64(col.Enum, n) {
			return fmt.Sprintf("value %d not in allowed set %v", n, col.Enum)
		}
	case entity.KindDecimal:
		d, ok := types.AsDecimal(val)
		if !ok {
			return "value is not a decimal number"
		}
		if col.Monetary && d.IsNegative() {
			return fmt.Sprintf("monetary value must not be negative, got %s", d)
		}
	case entity.KindTimestamp:
		if _, ok := val.(time.Time); ok {
			return ""
		}
		s, ok := types.AsString(val)
		if !ok {
			return fmt.Sprintf("expected a timestamp, got %T", val)
		}
		if _, err := time.ParseInLocation(col.Layout, s, time.UTC); err != nil {
			return fmt.Sprintf("timestamp does not match layout %s", col.Layout)
		}
	}
	return ""
}

func (v *Validator) checkArithmetic(desc *entity.Descriptor, batch types.Batch, _ map[string]struct{}) []Error {
	var errs []Error
	for i, rec := range batch.Records {
		for _, check := range desc.Checks {
			target, ok := types.AsDecimal(rec[check.Target])
			if !ok {
				continue // type class would have caught this
			}
			want, ok := combineTerms(check, rec)
			if !ok {
				continue
			}
			diff := target.Sub(want).Abs()
			if diff.GreaterThan(v.tolerance) {
				errs = append(errs, Error{
					Row:   i,
					Field: check.Target,
					Message: fmt.Sprintf("expected %s from %v, got %s (off by %s)",
						want, check.Terms, target, diff),
					Value: target.String(),
				})
			}
		}
	}
	return errs
}

func combineTerms(check entity.Check, rec types.Record) (decimal.Decimal, bool) {
	var acc decimal.Decimal
	for i, term := range check.Terms {
		d, ok := types.AsDecimal(rec[term])
		if !ok {
			return decimal.Zero, false
		}
		if i == 0 {
			acc = d
			continue
		}
		switch check.Op {
		case entity.OpProduct:
			acc = acc.Mul(d)
		default:
			acc = acc.Add(d)
		}
	}
	return acc, true
}

func (v *Validator) checkReferential(desc *entity.Descriptor, batch types.Batch, parentKeys map[string]struct{}) []Error {
	if desc.Parent == "" || parentKeys == nil {
		return nil
	}
	var errs []Error
	for i, rec := range batch.Records {
		val := rec[desc.ParentKeyColumn]
		key, ok := types.AsString(val)
		if !ok {
			key = fmt.Sprint(val)
		}
		if _, found := parentKeys[key]; !found {
			errs = append(errs, Error{
				Row:   i,
				Field: desc.ParentKeyColumn,
				Message: fmt.Sprintf("%s %q not found among loaded %s keys",
					desc.ParentKeyColumn, key, desc.Parent),
				Value: key,
			})
		}
	}
	return errs
}

func containsInt64(set []int64, n int64) bool {
	for _, v := range set {
		if v == n {
			return true
		}
	}
	return false
}
