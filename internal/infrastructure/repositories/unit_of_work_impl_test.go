package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUnitOfWork_DoCommitAndRollback(t *testing.T) {
	db := newTestDB(t)
	createAccountTable(t, db)
	u := &UnitOfWorkImpl{db: db}

	// commit path
	err := u.Do(context.Background(), func(ctx context.Context) error {
		return GetDB(ctx, db).Exec("INSERT INTO accounts(id,email) VALUES (?,?)", uuid.New().String(), "a@example.com").Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Table("accounts").Count(&count).Error)
	require.Equal(t, int64(1), count)

	// rollback path
	err = u.Do(context.Background(), func(ctx context.Context) error {
		if err := GetDB(ctx, db).Exec("INSERT INTO accounts(id,email) VALUES (?,?)", uuid.New().String(), "b@example.com").Error; err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.Error(t, err)

	require.NoError(t, db.Table("accounts").Count(&count).Error)
	require.Equal(t, int64(1), count, "second insert must be rolled back")
}

func TestUnitOfWork_NestedDoJoinsOuterTransaction(t *testing.T) {
	db := newTestDB(t)
	createAccountTable(t, db)
	u := &UnitOfWorkImpl{db: db}

	err := u.Do(context.Background(), func(ctx context.Context) error {
		outer := GetDB(ctx, db)
		return u.Do(ctx, func(inner context.Context) error {
			require.Same(t, outer, GetDB(inner, db))
			if err := GetDB(inner, db).Exec("INSERT INTO accounts(id,email) VALUES (?,?)", uuid.New().String(), "c@example.com").Error; err != nil {
				return err
			}
			return errors.New("inner failure")
		})
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Table("accounts").Count(&count).Error)
	require.Zero(t, count)
}

func TestUnitOfWork_WithLockAndGetDB(t *testing.T) {
	db := newTestDB(t)
	u := &UnitOfWorkImpl{db: db}
	require.True(t, u.Atomic())

	ctx := u.WithLock(context.Background())
	locked, _ := ctx.Value(lockKey).(bool)
	require.True(t, locked)
	require.Equal(t, db, lockingDB(ctx, db), "sqlite has no row locks")

	plainDB := u.GetDB(context.Background())
	require.Equal(t, db, plainDB)

	tx := db.Begin()
	txCtx := context.WithValue(context.Background(), txKey, tx)
	require.Equal(t, tx, u.GetDB(txCtx))
	tx.Rollback()
}

func TestUnitOfWork_DoBeginFailure(t *testing.T) {
	db := newTestDB(t)
	u := &UnitOfWorkImpl{db: db}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = u.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to begin transaction")
}

func TestUnitOfWork_DoCommitFailure_WithHook(t *testing.T) {
	db := newTestDB(t)
	createAccountTable(t, db)
	u := &UnitOfWorkImpl{db: db}

	origCommit := commitTx
	t.Cleanup(func() { commitTx = origCommit })
	commitTx = func(tx *gorm.DB) error {
		return errors.New("forced commit fail")
	}

	err := u.Do(context.Background(), func(ctx context.Context) error {
		return GetDB(ctx, db).Exec("INSERT INTO accounts(id,email) VALUES (?,?)", uuid.New().String(), "d@example.com").Error
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to commit transaction")
}
