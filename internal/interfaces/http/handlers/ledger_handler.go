package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/interfaces/http/middleware"
	"paymenow.backend/internal/interfaces/http/response"
)

type ledgerService interface {
	TransferInternal(ctx context.Context, input entities.TransferInput) (*entities.TransferResult, error)
	TransferExternal(ctx context.Context, input entities.ExternalTransferInput) (*entities.TransferResult, error)
	DepositForUser(ctx context.Context, input entities.DepositInput) (*entities.DepositResult, error)
}

// LedgerHandler handles transfer and deposit endpoints
type LedgerHandler struct {
	ledger ledgerService
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	RegisterValidators()
	return &LedgerHandler{ledger: ledger}
}

type internalTransferRequest struct {
	ToAccountID string `json:"toAccountId" binding:"required,uuid"`
	Amount      string `json:"amount" binding:"required,decimalgt0"`
	AssetType   string `json:"assetType" binding:"required,assettype"`
	Memo        string `json:"memo" binding:"max=255"`
}

type externalTransferRequest struct {
	Destination string `json:"destination" binding:"required,min=32,max=44"`
	Amount      string `json:"amount" binding:"required,decimalgt0"`
	AssetType   string `json:"assetType" binding:"required,assettype"`
	Memo        string `json:"memo" binding:"max=255"`
}

type depositRequest struct {
	AccountID string `json:"accountId" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required,decimalgt0"`
	AssetType string `json:"assetType" binding:"required,assettype"`
}

// TransferInternal moves funds to another account
// POST /api/v1/transfers/internal
func (h *LedgerHandler) TransferInternal(c *gin.Context) {
	var req internalTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Account not authenticated"))
		return
	}

	// binding already validated these
	to := uuid.MustParse(req.ToAccountID)
	asset, _ := entities.ParseAssetType(req.AssetType)
	amount, _ := decimal.NewFromString(req.Amount)

	result, err := h.ledger.TransferInternal(c.Request.Context(), entities.TransferInput{
		From:           accountID,
		To:             to,
		Amount:         amount,
		AssetType:      asset,
		Memo:           req.Memo,
		IdempotencyKey: middleware.IdempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, transferStatus(result), result)
}

// TransferExternal withdraws funds to a Solana address
// POST /api/v1/transfers/external
func (h *LedgerHandler) TransferExternal(c *gin.Context) {
	var req externalTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Account not authenticated"))
		return
	}

	asset, _ := entities.ParseAssetType(req.AssetType)
	amount, _ := decimal.NewFromString(req.Amount)

	result, err := h.ledger.TransferExternal(c.Request.Context(), entities.ExternalTransferInput{
		From:           accountID,
		ToAddress:      req.Destination,
		Amount:         amount,
		AssetType:      asset,
		Memo:           req.Memo,
		IdempotencyKey: middleware.IdempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, transferStatus(result), result)
}

// Deposit credits an account. Admin only.
// POST /api/v1/deposits
func (h *LedgerHandler) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	asset, _ := entities.ParseAssetType(req.AssetType)
	amount, _ := decimal.NewFromString(req.Amount)

	result, err := h.ledger.DepositForUser(c.Request.Context(), entities.DepositInput{
		AccountID:      uuid.MustParse(req.AccountID),
		Amount:         amount,
		AssetType:      asset,
		IdempotencyKey: middleware.IdempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

func transferStatus(result *entities.TransferResult) int {
	switch {
	case result.Replayed:
		return http.StatusOK
	case result.Status == entities.TransactionStatusPending:
		return http.StatusAccepted
	}
	return http.StatusCreated
}

// bindError reports amount and asset problems with the ledger's invalid-amount code
func bindError(err error) *domainerrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "decimalgt0":
				return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidAmount,
					"amount must be a decimal greater than zero", domainerrors.ErrInvalidAmount)
			case "assettype":
				return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidAmount,
					"assetType must be one of SOL, USDC", domainerrors.ErrInvalidAsset)
			}
		}
	}
	return domainerrors.BadRequest(err.Error())
}
