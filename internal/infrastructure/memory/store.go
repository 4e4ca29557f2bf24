// Package memory keeps ledger state in process memory. It backs tests and
// local runs without a database; its unit of work is not atomic.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"paymenow.backend/internal/domain/entities"
)

// Store is the shared state behind the in-memory repositories
type Store struct {
	mu           sync.RWMutex
	balances     map[entities.WalletKey]*entities.WalletBalance
	transactions map[uuid.UUID]*entities.Transaction
	byKey        map[string]uuid.UUID
	accounts     map[uuid.UUID]*entities.Account
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		balances:     make(map[entities.WalletKey]*entities.WalletBalance),
		transactions: make(map[uuid.UUID]*entities.Transaction),
		byKey:        make(map[string]uuid.UUID),
		accounts:     make(map[uuid.UUID]*entities.Account),
	}
}

// AddAccount registers an account so deposits and lookups can find it.
func (s *Store) AddAccount(acc *entities.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *acc
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.accounts[cp.ID] = &cp
}

// UnitOfWork runs fn directly; writes are visible immediately and are not
// rolled back on error.
type UnitOfWork struct{}

// NewUnitOfWork creates the non-atomic unit of work
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// WithLock is a no-op: every store operation already holds the store mutex.
func (u *UnitOfWork) WithLock(ctx context.Context) context.Context {
	return ctx
}

func (u *UnitOfWork) Atomic() bool {
	return false
}
