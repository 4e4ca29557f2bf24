package repositories

import (
	"context"
)

// UnitOfWork defines the interface for atomic operations
type UnitOfWork interface {
	// Do executes the given function within a transaction scope
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// WithLock marks ctx so reads inside the scope take row locks
	WithLock(ctx context.Context) context.Context

	// Atomic reports whether Do rolls back every write made through ctx
	// when fn fails. Callers compensate by hand when it is false.
	Atomic() bool
}
