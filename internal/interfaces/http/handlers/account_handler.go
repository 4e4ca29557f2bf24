package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/interfaces/http/middleware"
	"paymenow.backend/internal/interfaces/http/response"
	"paymenow.backend/pkg/utils"
)

type accountLedgerService interface {
	GetBalance(ctx context.Context, accountID uuid.UUID, asset entities.AssetType) (decimal.Decimal, error)
	GetBalances(ctx context.Context, accountID uuid.UUID) ([]*entities.WalletBalance, error)
	GetTransaction(ctx context.Context, accountID, id uuid.UUID) (*entities.Transaction, error)
	ListTransactionsPage(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) ([]*entities.Transaction, int64, error)
}

// AccountHandler serves the authenticated account's balances and history
type AccountHandler struct {
	ledger accountLedgerService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(ledger accountLedgerService) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

// ListBalances lists every wallet of the account
// GET /api/v1/balances
func (h *AccountHandler) ListBalances(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Account not authenticated"))
		return
	}

	balances, err := h.ledger.GetBalances(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if balances == nil {
		balances = []*entities.WalletBalance{}
	}

	response.Success(c, http.StatusOK, gin.H{"balances": balances})
}

// GetBalance returns the balance in one asset
// GET /api/v1/balances/:asset
func (h *AccountHandler) GetBalance(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Account not authenticated"))
		return
	}

	asset, err := entities.ParseAssetType(c.Param("asset"))
	if err != nil {
		response.Error(c, domainerrors.ErrInvalidAsset)
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), accountID, asset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"assetType": asset,
		"balance":   balance,
	})
}

// ListTransactions returns one page of history, newest first
// GET /api/v1/transactions?page=&limit=&from=&to=&status=
func (h *AccountHandler) ListTransactions(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Account not authenticated"))
		return
	}

	pagination := utils.ParsePagination(c.Query("page"), c.Query("limit"))

	filter := entities.TransactionFilter{
		Limit:  pagination.Limit,
		Offset: pagination.Offset(),
	}
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		response.Error(c, domainerrors.BadRequest("from must be an RFC3339 timestamp"))
		return
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		response.Error(c, domainerrors.BadRequest("to must be an RFC3339 timestamp"))
		return
	}
	if status := c.Query("status"); status != "" {
		st := entities.TransactionStatus(status)
		if st != entities.TransactionStatusPending && !st.Terminal() {
			response.Error(c, domainerrors.BadRequest("status must be one of PENDING, COMPLETED, FAILED"))
			return
		}
		filter.Status = st
	}

	txs, total, err := h.ledger.ListTransactionsPage(c.Request.Context(), accountID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if txs == nil {
		txs = []*entities.Transaction{}
	}

	response.Paginated(c, http.StatusOK, txs, pagination.Meta(total))
}

// GetTransaction returns one transaction the account is a party to
// GET /api/v1/transactions/:id
func (h *AccountHandler) GetTransaction(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Account not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid transaction ID"))
		return
	}

	tx, err := h.ledger.GetTransaction(c.Request.Context(), accountID, id)
	if err != nil {
		if err == domainerrors.ErrNotFound {
			response.Error(c, domainerrors.NotFound("Transaction not found"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tx)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
