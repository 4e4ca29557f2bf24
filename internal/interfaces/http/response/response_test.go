package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/pkg/utils"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestSuccess(t *testing.T) {
	c, w := newContext()

	Success(c, http.StatusOK, gin.H{"ok": true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
}

func TestPaginated(t *testing.T) {
	c, w := newContext()

	Paginated(c, http.StatusOK, []string{"a"}, utils.ParsePagination("2", "10").Meta(21))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":["a"],"meta":{"page":2,"limit":10,"totalCount":21,"totalPages":3,"hasNext":true}}`, w.Body.String())
}

func TestError_AppError(t *testing.T) {
	c, w := newContext()

	Error(c, domainerrors.NotFound("missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), domainerrors.CodeNotFound)
	assert.Contains(t, w.Body.String(), "missing")
}

func TestError_GenericError(t *testing.T) {
	c, w := newContext()

	Error(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), domainerrors.CodeInternalError)
	assert.NotContains(t, w.Body.String(), "boom")
	assert.Len(t, c.Errors, 1)
}

func TestError_LedgerErrors(t *testing.T) {
	txID := uuid.New()
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domainerrors.ErrInvalidAmount, http.StatusBadRequest, domainerrors.CodeInvalidAmount},
		{domainerrors.ErrInvalidAsset, http.StatusBadRequest, domainerrors.CodeInvalidAmount},
		{fmt.Errorf("%w: bad address", domainerrors.ErrInvalidInput), http.StatusBadRequest, domainerrors.CodeInvalidInput},
		{domainerrors.ErrInsufficientFunds, http.StatusUnprocessableEntity, domainerrors.CodeInsufficientFunds},
		{domainerrors.ErrAccountNotFound, http.StatusNotFound, domainerrors.CodeAccountNotFound},
		{domainerrors.ErrWalletNotFound, http.StatusNotFound, domainerrors.CodeWalletNotFound},
		{domainerrors.ErrAlreadyFinalized, http.StatusConflict, domainerrors.CodeAlreadyFinalized},
		{domainerrors.ErrAlreadyExists, http.StatusConflict, domainerrors.CodeConflict},
		{domainerrors.NewTransferError(domainerrors.ErrSettlementFailure, txID, errors.New("rpc down")), http.StatusBadGateway, domainerrors.CodeSettlementFailure},
		{domainerrors.NewTransferError(domainerrors.ErrStorageFailure, uuid.Nil, errors.New("db down")), http.StatusInternalServerError, domainerrors.CodeInternalError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			c, w := newContext()
			Error(c, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tc.code+`"`)
		})
	}
}

func TestError_CarriesTransactionID(t *testing.T) {
	c, w := newContext()
	txID := uuid.New()

	Error(c, domainerrors.NewTransferError(domainerrors.ErrSettlementFailure, txID, errors.New("timeout")))
	assert.Contains(t, w.Body.String(), `"transactionId":"`+txID.String()+`"`)
}

func TestErrorWithError(t *testing.T) {
	c, w := newContext()

	ErrorWithError(c, http.StatusBadRequest, "ERR_X", "bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"ERR_X"`)
}
