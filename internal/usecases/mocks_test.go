package usecases_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"paymenow.backend/internal/domain/entities"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	args := m.Called(ctx)
	return args.Get(0).(context.Context)
}

func (m *MockUnitOfWork) Atomic() bool {
	args := m.Called()
	return args.Bool(0)
}

// Mock BalanceRepository
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Adjust(ctx context.Context, key entities.WalletKey, delta, minimum decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, key, delta, minimum)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBalanceRepository) Get(ctx context.Context, key entities.WalletKey) (decimal.Decimal, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBalanceRepository) Upsert(ctx context.Context, key entities.WalletKey, initial decimal.Decimal) error {
	args := m.Called(ctx, key, initial)
	return args.Error(0)
}

func (m *MockBalanceRepository) Exists(ctx context.Context, key entities.WalletKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockBalanceRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.WalletBalance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WalletBalance), args.Error(1)
}

// Mock AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// Mock SettlementGateway
type MockSettlementGateway struct {
	mock.Mock
}

func (m *MockSettlementGateway) Prepare(ctx context.Context, destination string, amount decimal.Decimal, asset entities.AssetType) (entities.PreparedSettlement, error) {
	args := m.Called(ctx, destination, amount, asset)
	return args.Get(0).(entities.PreparedSettlement), args.Error(1)
}

func (m *MockSettlementGateway) Broadcast(ctx context.Context, prepared entities.PreparedSettlement) error {
	args := m.Called(ctx, prepared)
	return args.Error(0)
}

func (m *MockSettlementGateway) Confirm(ctx context.Context, reference string) (entities.SettlementStatus, error) {
	args := m.Called(ctx, reference)
	return args.Get(0).(entities.SettlementStatus), args.Error(1)
}

// Mock Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n entities.Notification) {
	m.Called(ctx, n)
}

// Mock TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) Finalize(ctx context.Context, id uuid.UUID, status entities.TransactionStatus, reference, reason string) error {
	args := m.Called(ctx, id, status, reference, reason)
	return args.Error(0)
}

func (m *MockTransactionRepository) AttachReference(ctx context.Context, id uuid.UUID, reference string) error {
	args := m.Called(ctx, id, reference)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*entities.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) ([]*entities.Transaction, error) {
	args := m.Called(ctx, accountID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) (int64, error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) GetStalePending(ctx context.Context, kind entities.TransactionKind, olderThan time.Time, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, kind, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}
