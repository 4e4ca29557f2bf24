package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"paymenow.backend/internal/config"
)

func stubDriver(t *testing.T, open func(driver, dsn string) (*sql.DB, error), ping func(*sql.DB) error) {
	t.Helper()
	origOpen, origPing := sqlOpen, dbPing
	t.Cleanup(func() {
		sqlOpen = origOpen
		dbPing = origPing
	})
	sqlOpen = open
	dbPing = ping
}

var ledgerDB = config.DatabaseConfig{
	Host: "db.internal", Port: 6432, User: "ledger", Password: "s3cret", DBName: "paymenow", SSLMode: "require",
}

func TestNewConnection_BuildsDSN(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	var gotDriver, gotDSN string
	stubDriver(t, func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return mockDB, nil
	}, func(*sql.DB) error { return nil })

	db, err := NewConnection(ledgerDB)
	require.NoError(t, err)
	require.Same(t, mockDB, db)
	require.Equal(t, "postgres", gotDriver)
	require.Equal(t, "host=db.internal port=6432 user=ledger password=s3cret dbname=paymenow sslmode=require", gotDSN)
	require.Equal(t, 25, db.Stats().MaxOpenConnections)
}

func TestNewConnection_OpenFailure(t *testing.T) {
	stubDriver(t, func(string, string) (*sql.DB, error) {
		return nil, errors.New("unknown driver")
	}, func(*sql.DB) error { return nil })

	db, err := NewConnection(ledgerDB)
	require.Nil(t, db)
	require.ErrorContains(t, err, "failed to open database")
}

func TestNewConnection_PingFailureClosesPool(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	stubDriver(t, func(string, string) (*sql.DB, error) { return mockDB, nil },
		func(*sql.DB) error { return errors.New("connection refused") })

	db, err := NewConnection(ledgerDB)
	require.Nil(t, db)
	require.ErrorContains(t, err, "failed to ping database")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewConnection_Unreachable(t *testing.T) {
	cfg := ledgerDB
	cfg.Host, cfg.Port, cfg.SSLMode = "127.0.0.1", 1, "disable"

	db, err := NewConnection(cfg)
	require.Nil(t, db)
	require.ErrorContains(t, err, "failed to ping database")
}
