package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	domainerrors "paymenow.backend/internal/domain/errors"
)

// translateError maps gorm and driver errors onto domain errors. Anything
// unrecognised is reported as a storage failure.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainerrors.ErrNotFound
	case isDuplicateKey(err):
		return fmt.Errorf("%w: %w", domainerrors.ErrAlreadyExists, err)
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrStorageFailure, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
