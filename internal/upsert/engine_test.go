package upsert

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/types"
)

// memStore is an in-memory Store keyed by table then conflict-key value.
type memStore struct {
	tables map[string]map[string]map[string]any

	failUpdateKey string
	failInsertKey string
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string]map[string]map[string]any)}
}

func (m *memStore) table(name string) map[string]map[string]any {
	if m.tables[name] == nil {
		m.tables[name] = make(map[string]map[string]any)
	}
	return m.tables[name]
}

func (m *memStore) Exists(_ context.Context, table, _ string, key any) (bool, error) {
	_, ok := m.table(table)[fmt.Sprint(key)]
	return ok, nil
}

func (m *memStore) Update(_ context.Context, table, keyColumn string, key any, values map[string]any) error {
	k := fmt.Sprint(key)
	if k == m.failUpdateKey {
		return errors.New("simulated update failure")
	}
	row := m.table(table)[k]
	for c, v := range values {
		row[c] = v
	}
	return nil
}

func (m *memStore) Insert(_ context.Context, table string, values map[string]any) error {
	var key string
	for c, v := range values {
		if c == "account_id" {
			key = fmt.Sprint(v)
		}
	}
	if key == m.failInsertKey {
		return errors.New("simulated insert failure")
	}
	row := make(map[string]any, len(values))
	for c, v := range values {
		row[c] = v
	}
	m.table(table)[key] = row
	return nil
}

func (m *memStore) Keys(_ context.Context, table, _ string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for k := range m.table(table) {
		out[k] = struct{}{}
	}
	return out, nil
}

var accountColumns = []string{"account_id", "cash", "total_asset"}

func accountBatch(rows ...types.Record) types.Batch {
	return types.Batch{Columns: accountColumns, Records: rows}
}

func newTestEngine(store Store) *Engine {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewEngine(store, log)
}

func TestInsertNewRows(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	res, err := e.Upsert(context.Background(), accountBatch(
		types.Record{"account_id": "A1", "cash": "100", "total_asset": "100"},
	), "accounts", "account_id", accountColumns)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if res.AttemptedRows != 1 || res.InsertedRows != 1 || res.UpdatedRows != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if _, ok := store.table("accounts")["A1"]; !ok {
		t.Error("row A1 was not inserted")
	}
}

func TestIdempotentRerun(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	batch := accountBatch(
		types.Record{"account_id": "A1", "cash": "100", "total_asset": "100"},
		types.Record{"account_id": "A2", "cash": "50", "total_asset": "50"},
	)

	if _, err := e.Upsert(context.Background(), batch, "accounts", "account_id", accountColumns); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	before := fmt.Sprint(store.tables)

	res, err := e.Upsert(context.Background(), batch, "accounts", "account_id", accountColumns)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if res.InsertedRows != 0 {
		t.Errorf("second identical run must insert nothing, got %d", res.InsertedRows)
	}
	if res.UpdatedRows != 2 {
		t.Errorf("second run should update both rows, got %d", res.UpdatedRows)
	}
	if after := fmt.Sprint(store.tables); after != before {
		t.Errorf("table content changed on identical re-run:\nbefore %s\nafter  %s", before, after)
	}
}

func TestUpdateExistingRow(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	first := accountBatch(types.Record{"account_id": "A1", "cash": "100", "total_asset": "100"})
	if _, err := e.Upsert(context.Background(), first, "accounts", "account_id", accountColumns); err != nil {
		t.Fatalf("seed run failed: %v", err)
	}

	second := accountBatch(types.Record{"account_id": "A1", "cash": "150", "total_asset": "150"})
	res, err := e.Upsert(context.Background(), second, "accounts", "account_id", accountColumns)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if res.UpdatedRows != 1 || res.InsertedRows != 0 {
		t.Errorf("expected updated=1 inserted=0, got %+v", res)
	}
	if got := store.table("accounts")["A1"]["cash"]; got != "150" {
		t.Errorf("expected cash 150 after update, got %v", got)
	}
}

func TestConservation(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	store.table("accounts")["A1"] = map[string]any{"account_id": "A1", "cash": "1", "total_asset": "1"}

	batch := accountBatch(
		types.Record{"account_id": "A1", "cash": "2", "total_asset": "2"},
		types.Record{"account_id": "A2", "cash": "3", "total_asset": "3"},
		types.Record{"account_id": "A3", "cash": "4", "total_asset": "4"},
	)
	res, err := e.Upsert(context.Background(), batch, "accounts", "account_id", accountColumns)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if res.UpdatedRows+res.InsertedRows != res.AttemptedRows {
		t.Errorf("conservation violated: %+v", res)
	}
	if res.UpdatedRows != 1 || res.InsertedRows != 2 {
		t.Errorf("expected updated=1 inserted=2, got %+v", res)
	}
}

func TestDuplicateConflictKeysCounted(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	// Later duplicate takes effect; attempted still counts raw rows.
	batch := accountBatch(
		types.Record{"account_id": "A1", "cash": "1", "total_asset": "1"},
		types.Record{"account_id": "A1", "cash": "9", "total_asset": "9"},
	)
	res, err := e.Upsert(context.Background(), batch, "accounts", "account_id", accountColumns)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if res.AttemptedRows != 2 || res.InsertedRows != 1 {
		t.Errorf("expected attempted=2 inserted=1, got %+v", res)
	}
	if res.UpdatedRows+res.InsertedRows > res.AttemptedRows {
		t.Errorf("updated+inserted must not exceed attempted: %+v", res)
	}
	if got := store.table("accounts")["A1"]["cash"]; got != "9" {
		t.Errorf("later duplicate should win, got cash %v", got)
	}
}

func TestInsertFailureAborts(t *testing.T) {
	store := newMemStore()
	store.failInsertKey = "A2"
	e := newTestEngine(store)

	batch := accountBatch(
		types.Record{"account_id": "A1", "cash": "1", "total_asset": "1"},
		types.Record{"account_id": "A2", "cash": "2", "total_asset": "2"},
		types.Record{"account_id": "A3", "cash": "3", "total_asset": "3"},
	)
	_, err := e.Upsert(context.Background(), batch, "accounts", "account_id", accountColumns)
	if err == nil {
		t.Fatal("expected upsert error")
	}
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ue.Phase != "insert" || ue.Key != "A2" || ue.Table != "accounts" {
		t.Errorf("error should name insert phase, table and key: %+v", ue)
	}
	if _, ok := store.table("accounts")["A3"]; ok {
		t.Error("rows after the failing one must not be inserted")
	}
}

func TestUpdateFailureAborts(t *testing.T) {
	store := newMemStore()
	store.table("accounts")["A1"] = map[string]any{"account_id": "A1", "cash": "1", "total_asset": "1"}
	store.failUpdateKey = "A1"
	e := newTestEngine(store)

	batch := accountBatch(types.Record{"account_id": "A1", "cash": "2", "total_asset": "2"})
	_, err := e.Upsert(context.Background(), batch, "accounts", "account_id", accountColumns)
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ue.Phase != "update" {
		t.Errorf("expected update phase, got %s", ue.Phase)
	}
}

func TestEmptyBatch(t *testing.T) {
	e := newTestEngine(newMemStore())
	res, err := e.Upsert(context.Background(), accountBatch(), "accounts", "account_id", accountColumns)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if res.AttemptedRows != 0 || res.UpdatedRows != 0 || res.InsertedRows != 0 {
		t.Errorf("expected zero result, got %+v", res)
	}
}
