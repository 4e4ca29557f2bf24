package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/pkg/logger"
	"paymenow.backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	// LockDuration is the time we hold the lock while processing
	LockDuration = 30 * time.Second
	// RetentionDuration is how long we keep the response
	RetentionDuration = 24 * time.Hour

	processingMarker  = "processing"
	maxKeyLength      = 255
	// maxIdempotentBody bounds the body buffered for fingerprinting
	maxIdempotentBody = 64 << 10
)

var (
	redisGet   = redis.Get
	redisSet   = redis.Set
	redisSetNX = redis.SetNX
	redisDel   = redis.Del
)

// IdempotencyKey returns the client supplied key of the request, if any
func IdempotencyKey(c *gin.Context) string {
	return c.GetHeader(IdempotencyHeader)
}

type cachedResponse struct {
	Fingerprint string          `json:"fingerprint"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
}

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a completed request
// with the same Idempotency-Key. The cache is scoped by account. A key reused
// with a different payload is rejected. When Redis is unavailable the request
// proceeds and the ledger's own idempotency record is the only guard.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := IdempotencyKey(c)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxKeyLength {
			abortWith(c, domainerrors.BadRequest("Idempotency-Key is too long"))
			return
		}

		accountID, _ := GetAccountID(c)
		storageKey := fmt.Sprintf("idempotency:%s:%s", accountID, key)
		ctx := c.Request.Context()

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotentBody+1))
		if err != nil {
			abortWith(c, domainerrors.BadRequest("Unable to read request body"))
			return
		}
		if len(body) > maxIdempotentBody {
			abortWith(c, domainerrors.NewAppError(http.StatusRequestEntityTooLarge, domainerrors.CodeBadRequest, "Request body is too large", domainerrors.ErrInvalidInput))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		fingerprint := requestFingerprint(c.Request.Method, c.FullPath(), body)

		val, err := redisGet(ctx, storageKey)
		switch {
		case err == nil:
			replay(c, val, fingerprint)
			return
		case !redis.IsNil(err):
			logger.Warn(ctx, "Idempotency cache unavailable", zap.Error(err))
			c.Next()
			return
		}

		acquired, err := redisSetNX(ctx, storageKey, processingMarker, LockDuration)
		if err != nil {
			logger.Warn(ctx, "Idempotency lock unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			conflict(c, "Request already in progress")
			return
		}

		w := &responseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
			// retryable, let the client try again with the same key
			_ = redisDel(ctx, storageKey)
			return
		}
		payload, err := json.Marshal(cachedResponse{Fingerprint: fingerprint, Status: status, Body: w.body.Bytes()})
		if err != nil || !json.Valid(w.body.Bytes()) {
			_ = redisDel(ctx, storageKey)
			return
		}
		if err := redisSet(ctx, storageKey, string(payload), RetentionDuration); err != nil {
			logger.Warn(ctx, "Failed to cache idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, val, fingerprint string) {
	if val == processingMarker {
		conflict(c, "Request already in progress")
		return
	}

	var cached cachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		conflict(c, "Idempotency record is unreadable")
		return
	}
	if cached.Fingerprint != fingerprint {
		conflict(c, "Idempotency-Key was already used with a different request")
		return
	}

	c.Header("X-Idempotency-Hit", "true")
	c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
	c.Abort()
}

func conflict(c *gin.Context, message string) {
	abortWith(c, domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeIdempotencyConflict, message, domainerrors.ErrAlreadyExists))
}

func requestFingerprint(method, route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
