package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Constructors(t *testing.T) {
	err := NewAppError(http.StatusBadRequest, CodeBadRequest, "bad", ErrBadRequest)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, CodeBadRequest, err.Code)
	assert.Equal(t, "bad", err.Message)
	assert.Equal(t, ErrBadRequest.Error(), err.Error())

	notFound := NotFound("missing")
	assert.Equal(t, http.StatusNotFound, notFound.Status)
	assert.Equal(t, CodeNotFound, notFound.Code)

	conflict := Conflict("exists")
	assert.Equal(t, http.StatusConflict, conflict.Status)
	assert.Equal(t, CodeConflict, conflict.Code)

	internal := InternalError(stderrors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.Equal(t, CodeInternalError, internal.Code)

	custom := NewError("custom", ErrForbidden)
	assert.Equal(t, ErrForbidden.Error(), custom.Error())

	internalMsg := InternalServerError("boom")
	assert.Equal(t, "boom", internalMsg.Error())
}

func TestTransferError_UnwrapsKindAndCause(t *testing.T) {
	txID := uuid.New()
	cause := stderrors.New("rpc timeout")
	err := fmt.Errorf("external transfer: %w", NewTransferError(ErrSettlementFailure, txID, cause))

	assert.ErrorIs(t, err, ErrSettlementFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "external transfer: settlement failure: rpc timeout", err.Error())

	got, ok := TransactionIDOf(err)
	require.True(t, ok)
	assert.Equal(t, txID, got)

	_, ok = TransactionIDOf(NewTransferError(ErrInsufficientFunds, uuid.Nil, nil))
	assert.False(t, ok)
}

func TestFromLedgerError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount},
		{fmt.Errorf("%w: %q", ErrInvalidAsset, "BTC"), http.StatusBadRequest, CodeInvalidAmount},
		{ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
		{NewTransferError(ErrInsufficientFunds, uuid.Nil, nil), http.StatusUnprocessableEntity, CodeInsufficientFunds},
		{ErrAccountNotFound, http.StatusNotFound, CodeAccountNotFound},
		{ErrWalletNotFound, http.StatusNotFound, CodeWalletNotFound},
		{ErrNotFound, http.StatusNotFound, CodeNotFound},
		{ErrAlreadyFinalized, http.StatusConflict, CodeAlreadyFinalized},
		{NewTransferError(ErrSettlementFailure, uuid.New(), stderrors.New("x")), http.StatusBadGateway, CodeSettlementFailure},
		{fmt.Errorf("%w: %w", ErrStorageFailure, stderrors.New("conn reset")), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tc := range cases {
		appErr := FromLedgerError(tc.err)
		assert.Equal(t, tc.status, appErr.Status, tc.err.Error())
		assert.Equal(t, tc.code, appErr.Code, tc.err.Error())
	}

	existing := Forbidden("nope")
	assert.Same(t, existing, FromLedgerError(existing))
}
