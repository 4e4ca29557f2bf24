package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createAccountTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT,
		created_at DATETIME
	);`)
}

func createWalletBalanceTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE wallet_balances (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		balance NUMERIC NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (account_id, asset_type)
	);`)
}

func createLedgerTransactionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE ledger_transactions (
		id TEXT PRIMARY KEY,
		idempotency_key TEXT UNIQUE,
		from_account TEXT,
		to_account TEXT,
		external_address TEXT,
		amount NUMERIC NOT NULL,
		asset_type TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		settlement_reference TEXT,
		failure_reason TEXT,
		memo TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME,
		finalized_at DATETIME
	);`)
}

func createLedgerTables(t *testing.T, db *gorm.DB) {
	createAccountTable(t, db)
	createWalletBalanceTable(t, db)
	createLedgerTransactionTable(t, db)
}

func seedAccount(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	mustExec(t, db, "INSERT INTO accounts (id, email, name, created_at) VALUES (?,?,?,?)",
		id.String(), id.String()+"@example.com", "Test Account", time.Now().UTC())
	return id
}
