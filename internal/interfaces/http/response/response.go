package response

import (
	"github.com/gin-gonic/gin"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/pkg/utils"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Paginated sends one page of items with its metadata
func Paginated(c *gin.Context, status int, items interface{}, meta utils.PaginationMeta) {
	c.JSON(status, gin.H{
		"items": items,
		"meta":  meta,
	})
}

// Error sends an error response. Engine errors are mapped to their HTTP
// status; a failed transfer also reports the transaction id it was assigned.
func Error(c *gin.Context, err error) {
	appErr := domainerrors.FromLedgerError(err)
	if appErr.Status >= 500 {
		_ = c.Error(err)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if txID, ok := domainerrors.TransactionIDOf(err); ok {
		body["transactionId"] = txID
	}
	c.JSON(appErr.Status, body)
}

// ErrorWithError sends an error response with a specific status and message
func ErrorWithError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
