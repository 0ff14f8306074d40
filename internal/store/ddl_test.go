package store

import (
	"strings"
	"testing"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
)

func TestCreateTableSQLAccount(t *testing.T) {
	sql := CreateTableSQL(entity.AccountDescriptor(), "")

	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "accounts"`,
		`"account_id" VARCHAR(20) NOT NULL`,
		`"cash" NUMERIC(20,2) NOT NULL`,
		`"account_type" BIGINT NOT NULL`,
		`"updated_at" TIMESTAMP NOT NULL`,
		`UNIQUE ("account_id")`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("DDL missing %q:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, "FOREIGN KEY") {
		t.Error("account table must not carry a foreign key")
	}
}

func TestCreateTableSQLTransaction(t *testing.T) {
	sql := CreateTableSQL(entity.TransactionDescriptor(), "accounts")

	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "transactions"`,
		`"traded_volume" BIGINT NOT NULL`,
		`"order_remark" VARCHAR(100)`,
		`UNIQUE ("traded_id")`,
		`FOREIGN KEY ("account_id") REFERENCES "accounts" ("account_id")`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("DDL missing %q:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, `"order_remark" VARCHAR(100) NOT NULL`) {
		t.Error("nullable column must not be NOT NULL")
	}
}
