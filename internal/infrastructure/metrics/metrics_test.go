package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"paymenow.backend/internal/domain/entities"
)

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(transfers.WithLabelValues("INTERNAL", "COMPLETED"))
	RecordTransfer(entities.TransactionKindInternal, "COMPLETED")
	assert.Equal(t, before+1, testutil.ToFloat64(transfers.WithLabelValues("INTERNAL", "COMPLETED")))

	beforeFailed := testutil.ToFloat64(compensations.WithLabelValues("reverse_debit", "failed"))
	RecordCompensation("reverse_debit", false)
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(compensations.WithLabelValues("reverse_debit", "failed")))

	beforeDone := testutil.ToFloat64(reconciled.WithLabelValues("completed"))
	RecordReconcile(entities.ReconcileReport{Checked: 3, Completed: 2, Failed: 1})
	assert.Equal(t, beforeDone+2, testutil.ToFloat64(reconciled.WithLabelValues("completed")))
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/v1/transactions/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `paymenow_http_requests_total{method="GET",path="/api/v1/transactions/:id",status="204"}`), body)
}
