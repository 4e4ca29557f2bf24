package errors

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrTokenExpired  = errors.New("token expired")
)

// Ledger errors
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidAsset      = errors.New("invalid asset type")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrSettlementFailure = errors.New("settlement failure")
	ErrAlreadyFinalized  = errors.New("transaction already finalized")
	ErrStorageFailure    = errors.New("storage failure")

	// ErrSettlementRejected marks a broadcast the settlement network
	// definitely did not accept.
	ErrSettlementRejected = errors.New("settlement rejected")
)

// Error codes returned to API clients
const (
	CodeBadRequest          = "ERR_BAD_REQUEST"
	CodeInvalidInput        = "ERR_INVALID_INPUT"
	CodeInvalidAmount       = "ERR_INVALID_AMOUNT"
	CodeUnauthorized        = "ERR_UNAUTHORIZED"
	CodeForbidden           = "ERR_FORBIDDEN"
	CodeNotFound            = "ERR_NOT_FOUND"
	CodeConflict            = "ERR_CONFLICT"
	CodeInsufficientFunds   = "ERR_INSUFFICIENT_FUNDS"
	CodeAccountNotFound     = "ERR_ACCOUNT_NOT_FOUND"
	CodeWalletNotFound      = "ERR_WALLET_NOT_FOUND"
	CodeAlreadyFinalized    = "ERR_ALREADY_FINALIZED"
	CodeSettlementFailure   = "ERR_SETTLEMENT_FAILURE"
	CodeIdempotencyConflict = "ERR_IDEMPOTENCY_CONFLICT"
	CodeInternalError       = "ERR_INTERNAL"
)

// TransferError reports a failed transfer together with the transaction id
// that had already been assigned when it failed (uuid.Nil when none).
type TransferError struct {
	Kind          error
	TransactionID uuid.UUID
	Err           error
}

func (e *TransferError) Error() string {
	switch {
	case e.Err == nil || e.Err == e.Kind:
		return e.Kind.Error()
	case errors.Is(e.Err, e.Kind):
		return e.Err.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *TransferError) Unwrap() []error {
	if e.Err == nil || e.Err == e.Kind {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewTransferError creates a transfer error of the given kind.
func NewTransferError(kind error, txID uuid.UUID, cause error) *TransferError {
	return &TransferError{Kind: kind, TransactionID: txID, Err: cause}
}

// TransactionIDOf extracts the transaction id carried by err, if any.
func TransactionIDOf(err error) (uuid.UUID, bool) {
	var te *TransferError
	if errors.As(err, &te) && te.TransactionID != uuid.Nil {
		return te.TransactionID, true
	}
	return uuid.Nil, false
}

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// NewError creates a new error with a custom message wrapping an existing error
func NewError(message string, err error) error {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message, err)
}

// FromLedgerError maps an engine error onto an HTTP-facing AppError.
func FromLedgerError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidAsset):
		return NewAppError(http.StatusBadRequest, CodeInvalidAmount, err.Error(), err)
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, CodeInvalidInput, err.Error(), err)
	case errors.Is(err, ErrInsufficientFunds):
		return NewAppError(http.StatusUnprocessableEntity, CodeInsufficientFunds, "insufficient funds", err)
	case errors.Is(err, ErrAccountNotFound):
		return NewAppError(http.StatusNotFound, CodeAccountNotFound, "account not found", err)
	case errors.Is(err, ErrWalletNotFound):
		return NewAppError(http.StatusNotFound, CodeWalletNotFound, "wallet not found", err)
	case errors.Is(err, ErrNotFound):
		return NotFound("resource not found")
	case errors.Is(err, ErrAlreadyFinalized):
		return NewAppError(http.StatusConflict, CodeAlreadyFinalized, "transaction already finalized", err)
	case errors.Is(err, ErrAlreadyExists):
		return NewAppError(http.StatusConflict, CodeConflict, "resource already exists", err)
	case errors.Is(err, ErrSettlementFailure):
		return NewAppError(http.StatusBadGateway, CodeSettlementFailure, "settlement failed", err)
	case errors.Is(err, ErrForbidden):
		return Forbidden("forbidden")
	case errors.Is(err, ErrUnauthorized):
		return Unauthorized("unauthorized")
	}
	return InternalError(err)
}
