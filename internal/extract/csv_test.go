package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
)

const accountCSV = `account_id,account_type,cash,frozen_cash,market_value,total_asset,updated_at
A1,2,100.00,0.00,0.00,100.00,2026-01-15 09:30:00
A2,1,50.00,10.00,40.00,100.00,2026-01-15 09:30:00
`

func TestParseCSV(t *testing.T) {
	batch, err := ParseCSV([]byte(accountCSV), entity.AccountDescriptor())
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if batch.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", batch.Len())
	}
	if got := batch.Records[0]["account_id"]; got != "A1" {
		t.Errorf("expected A1, got %v", got)
	}
	if got := batch.Records[1]["cash"]; got != "50.00" {
		t.Errorf("expected cash 50.00, got %v", got)
	}
	if len(batch.Columns) != 7 {
		t.Errorf("expected 7 columns, got %d", len(batch.Columns))
	}
}

func TestParseCSVExtraColumnsIgnored(t *testing.T) {
	csv := "ignored,account_id,account_type,cash,frozen_cash,market_value,total_asset,updated_at\n" +
		"x,A1,2,1,0,0,1,2026-01-15 09:30:00\n"
	batch, err := ParseCSV([]byte(csv), entity.AccountDescriptor())
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if _, ok := batch.Records[0]["ignored"]; ok {
		t.Error("columns outside the descriptor must not be carried")
	}
}

func TestParseCSVEmptyCellBecomesNil(t *testing.T) {
	csv := "account_id,account_type,cash,frozen_cash,market_value,total_asset,updated_at\n" +
		"A1,2,,0,0,0,2026-01-15 09:30:00\n"
	batch, err := ParseCSV([]byte(csv), entity.AccountDescriptor())
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if batch.Records[0]["cash"] != nil {
		t.Errorf("empty cell should become nil, got %v", batch.Records[0]["cash"])
	}
}

func TestParseCSVMissingColumn(t *testing.T) {
	csv := "account_id,cash\nA1,100\n"
	_, err := ParseCSV([]byte(csv), entity.AccountDescriptor())
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	if !strings.Contains(err.Error(), "account_type") {
		t.Errorf("error should name the missing column, got %v", err)
	}
}

func TestParseCSVEmptyDocument(t *testing.T) {
	if _, err := ParseCSV(nil, entity.AccountDescriptor()); err == nil {
		t.Error("expected error for empty source")
	}
}

type fakeObjects struct {
	data map[string][]byte
	err  error
}

func (f *fakeObjects) Fetch(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.data[key]
	if !ok {
		return nil, errors.New("no such object: " + key)
	}
	return d, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestExtractorExtract(t *testing.T) {
	objects := &fakeObjects{data: map[string][]byte{"accounts.csv": []byte(accountCSV)}}
	e := New(objects, map[string]string{"account": "accounts.csv"}, quietLogger())

	batch, err := e.Extract(context.Background(), entity.AccountDescriptor())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if batch.Len() != 2 {
		t.Errorf("expected 2 records, got %d", batch.Len())
	}
}

func TestExtractorUnconfiguredEntity(t *testing.T) {
	e := New(&fakeObjects{}, map[string]string{}, quietLogger())
	if _, err := e.Extract(context.Background(), entity.AccountDescriptor()); err == nil {
		t.Error("expected error for unconfigured entity")
	}
}

func TestExtractAll(t *testing.T) {
	txCSV := "account_id,account_type,traded_id,stock_code,traded_time,traded_price,traded_volume," +
		"traded_amount,strategy_name,order_remark,direction,offset_flag,created_at,updated_at\n" +
		"A1,2,T1,600519,2026-01-15 09:31:00,10.50,100,1050.00,momentum,,0,48,2026-01-15 09:31:00,2026-01-15 09:31:00\n"
	objects := &fakeObjects{data: map[string][]byte{
		"accounts.csv":     []byte(accountCSV),
		"transactions.csv": []byte(txCSV),
	}}
	e := New(objects, map[string]string{
		"account":     "accounts.csv",
		"transaction": "transactions.csv",
	}, quietLogger())

	descs := []*entity.Descriptor{entity.AccountDescriptor(), entity.TransactionDescriptor()}
	batches, err := e.ExtractAll(context.Background(), descs)
	if err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	if batches["account"].Len() != 2 || batches["transaction"].Len() != 1 {
		t.Errorf("unexpected batch sizes: account=%d transaction=%d",
			batches["account"].Len(), batches["transaction"].Len())
	}
}

func TestExtractAllPropagatesFailure(t *testing.T) {
	objects := &fakeObjects{err: errors.New("bucket unreachable")}
	e := New(objects, map[string]string{"account": "accounts.csv"}, quietLogger())
	_, err := e.ExtractAll(context.Background(), []*entity.Descriptor{entity.AccountDescriptor()})
	if err == nil {
		t.Error("expected fetch failure to propagate")
	}
}
