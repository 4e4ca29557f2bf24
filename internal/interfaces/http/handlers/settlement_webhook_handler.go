package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/interfaces/http/response"
	"paymenow.backend/pkg/logger"
)

// SettlementSecretHeader carries the shared secret of the settlement notifier
const SettlementSecretHeader = "X-Settlement-Secret"

const maxWebhookBody = 64 << 10

type settlementConfirmer interface {
	ConfirmSettlement(ctx context.Context, confirmation entities.SettlementConfirmation) (*entities.Transaction, error)
}

// SettlementWebhookHandler receives confirmation callbacks for pending withdrawals
type SettlementWebhookHandler struct {
	ledger settlementConfirmer
	secret string
}

// NewSettlementWebhookHandler creates a new settlement webhook handler. An empty
// secret rejects every callback.
func NewSettlementWebhookHandler(ledger settlementConfirmer, secret string) *SettlementWebhookHandler {
	return &SettlementWebhookHandler{ledger: ledger, secret: secret}
}

// HandleSettlement applies one confirmation. Accepted payloads carry the status
// plus a transaction id or the on-chain signature, either at the top level or
// under "data":
//
//	{"transactionId": "...", "signature": "...", "status": "CONFIRMED", "reason": "..."}
//
// POST /api/v1/webhooks/settlement
func (h *SettlementWebhookHandler) HandleSettlement(c *gin.Context) {
	ctx := c.Request.Context()
	given := c.GetHeader(SettlementSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		logger.Warn(ctx, "Settlement webhook rejected", zap.String("client_ip", c.ClientIP()))
		response.Error(c, domainerrors.Unauthorized("Invalid webhook secret"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil || !gjson.ValidBytes(body) {
		response.Error(c, domainerrors.BadRequest("Invalid JSON payload"))
		return
	}

	confirmation, err := parseSettlementPayload(body)
	if err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	tx, err := h.ledger.ConfirmSettlement(ctx, confirmation)
	if err != nil {
		logger.Warn(ctx, "Settlement confirmation failed",
			zap.String("reference", confirmation.Reference),
			zap.Stringer("transaction_id", confirmation.TransactionID),
			zap.Error(err),
		)
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"received":    true,
		"transaction": tx,
	})
}

func parseSettlementPayload(body []byte) (entities.SettlementConfirmation, error) {
	var out entities.SettlementConfirmation

	status, err := entities.ParseSettlementStatus(firstString(body, "status", "data.status"))
	if err != nil {
		return out, err
	}
	out.Status = status
	out.Reference = firstString(body, "reference", "signature", "data.reference", "data.signature")
	out.Reason = firstString(body, "reason", "data.reason", "data.err")

	if raw := firstString(body, "transactionId", "data.transactionId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return out, fmt.Errorf("invalid transactionId %q", raw)
		}
		out.TransactionID = id
	}
	if out.TransactionID == uuid.Nil && out.Reference == "" {
		return out, errors.New("transactionId or signature is required")
	}
	return out, nil
}

func firstString(body []byte, paths ...string) string {
	for _, r := range gjson.GetManyBytes(body, paths...) {
		if s := r.String(); r.Exists() && s != "" {
			return s
		}
	}
	return ""
}
