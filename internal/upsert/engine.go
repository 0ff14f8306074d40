// Package upsert applies a coerced batch to a target table using an
// update-then-insert sequence. The two passes keep each pass's lock footprint
// uniform: the update pass only touches existing rows, the insert pass only
// adds rows whose parent keys are already present, so foreign-key lock
// ordering hazards of a single conditional-write primitive are avoided.
package upsert

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/types"
)

// Store is the four-operation contract the engine (and the orchestrator's
// referential bookkeeping) needs from the persistent store. One connected
// session backs all four operations for the duration of a run.
type Store interface {
	// Exists reports whether a row with the given conflict-key value is in
	// the table.
	Exists(ctx context.Context, table, keyColumn string, key any) (bool, error)
	// Update overwrites all non-key columns of the row matching the key.
	Update(ctx context.Context, table, keyColumn string, key any, values map[string]any) error
	// Insert adds a full row.
	Insert(ctx context.Context, table string, values map[string]any) error
	// Keys lists the committed conflict-key values of a table.
	Keys(ctx context.Context, table, keyColumn string) (map[string]struct{}, error)
}

// Result reports what one upsert did. UpdatedRows+InsertedRows may be less
// than AttemptedRows when the batch carried duplicate conflict keys; rows are
// never dropped without being counted here.
type Result struct {
	AttemptedRows int
	UpdatedRows   int
	InsertedRows  int
}

// Error wraps a store failure with the table, phase and row key it hit.
// Either phase failing aborts the whole upsert; there is no partial commit
// bookkeeping beyond the counts already in Result.
type Error struct {
	Table string
	Phase string
	Key   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upsert %s: %s phase failed for key %s: %v", e.Table, e.Phase, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Engine struct {
	store Store
	log   *logrus.Logger
}

func NewEngine(store Store, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{store: store, log: log}
}

// Upsert stages the batch keyed by conflictKey, updates every staged row
// whose key already exists in the table, then inserts the rest. The insert
// pass re-checks non-existence per row rather than trusting the update
// pass's result, which tolerates concurrent external modification.
//
// Re-running an identical batch yields InsertedRows=0 and identical table
// content.
func (e *Engine) Upsert(ctx context.Context, batch types.Batch, table, conflictKey string, columns []string) (Result, error) {
	res := Result{AttemptedRows: batch.Len()}
	if batch.IsEmpty() {
		return res, nil
	}

	// Stage as an addressable set. A duplicate conflict key keeps its first
	// position but takes the later row's values.
	order := make([]string, 0, batch.Len())
	staged := make(map[string]types.Record, batch.Len())
	for _, rec := range batch.Records {
		key := keyString(rec[conflictKey])
		if _, seen := staged[key]; !seen {
			order = append(order, key)
		}
		staged[key] = rec
	}

	exists := make(map[string]bool, len(order))
	for _, key := range order {
		rec := staged[key]
		found, err := e.store.Exists(ctx, table, conflictKey, rec[conflictKey])
		if err != nil {
			return res, &Error{Table: table, Phase: "update", Key: key, Err: err}
		}
		if !found {
			continue
		}
		exists[key] = true
		if err := e.store.Update(ctx, table, conflictKey, rec[conflictKey], nonKeyValues(rec, columns, conflictKey)); err != nil {
			return res, &Error{Table: table, Phase: "update", Key: key, Err: err}
		}
		res.UpdatedRows++
	}

	for _, key := range order {
		if exists[key] {
			continue
		}
		rec := staged[key]
		// Re-check against the table itself, not the update pass's memory.
		found, err := e.store.Exists(ctx, table, conflictKey, rec[conflictKey])
		if err != nil {
			return res, &Error{Table: table, Phase: "insert", Key: key, Err: err}
		}
		if found {
			continue
		}
		if err := e.store.Insert(ctx, table, rowValues(rec, columns)); err != nil {
			return res, &Error{Table: table, Phase: "insert", Key: key, Err: err}
		}
		res.InsertedRows++
	}

	e.log.WithFields(logrus.Fields{
		"table":    table,
		"rows":     res.AttemptedRows,
		"updated":  res.UpdatedRows,
		"inserted": res.InsertedRows,
	}).Info("batch upserted")
	return res, nil
}

func keyString(v any) string {
	s, ok := types.AsString(v)
	if ok {
		return s
	}
	return fmt.Sprint(v)
}

func rowValues(rec types.Record, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		out[c] = rec[c]
	}
	return out
}

func nonKeyValues(rec types.Record, columns []string, conflictKey string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		if c == conflictKey {
			continue
		}
		out[c] = rec[c]
	}
	return out
}
