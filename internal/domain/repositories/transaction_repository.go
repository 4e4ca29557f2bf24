package repositories

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"paymenow.backend/internal/domain/entities"
)

// TransactionRepository defines transaction log data operations.
//
// Records are append-only. The only mutations after Create are
// AttachReference on a PENDING record and the guarded terminal write done
// by Finalize, which fails with ErrAlreadyFinalized once the record has
// left PENDING.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entities.Transaction) error
	Finalize(ctx context.Context, id uuid.UUID, status entities.TransactionStatus, reference, reason string) error
	AttachReference(ctx context.Context, id uuid.UUID, reference string) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*entities.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) ([]*entities.Transaction, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) (int64, error)
	GetStalePending(ctx context.Context, kind entities.TransactionKind, olderThan time.Time, limit int) ([]*entities.Transaction, error)
}

const defaultHistoryPageSize = 50

// TransactionsForAccount yields an account's history newest first, fetching
// keyset pages on demand. Every range over the returned sequence starts
// again from the newest record. A fetch error is yielded once and ends the
// sequence.
func TransactionsForAccount(ctx context.Context, repo TransactionRepository, accountID uuid.UUID, filter entities.TransactionFilter) iter.Seq2[*entities.Transaction, error] {
	pageSize := filter.Limit
	if pageSize <= 0 {
		pageSize = defaultHistoryPageSize
	}

	return func(yield func(*entities.Transaction, error) bool) {
		page := filter
		page.Limit = pageSize
		page.Offset = 0

		for {
			batch, err := repo.ListByAccount(ctx, accountID, page)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, tx := range batch {
				if !yield(tx, nil) {
					return
				}
			}
			if len(batch) < pageSize {
				return
			}

			last := batch[len(batch)-1]
			createdAt, id := last.CreatedAt, last.ID
			page.BeforeTime = &createdAt
			page.BeforeID = &id
		}
	}
}
