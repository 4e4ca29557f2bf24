package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/interfaces/http/response"
	"paymenow.backend/pkg/jwt"
	"paymenow.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// AccountIDKey is the context key for the authenticated account
	AccountIDKey = "accountId"
	// AccountEmailKey is the context key for the account email
	AccountEmailKey = "accountEmail"
	// AccountRoleKey is the context key for the account role
	AccountRoleKey = "accountRole"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Claims, error)
}

// AuthMiddleware authenticates the bearer token and stores the account on the context
func AuthMiddleware(jwtService tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			logger.Warn(ctx, "Authorization header is missing", zap.String("path", c.Request.URL.Path))
			abortWith(c, domainerrors.Unauthorized("Authorization header is required"))
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			logger.Warn(ctx, "Invalid authorization format", zap.String("path", c.Request.URL.Path))
			abortWith(c, domainerrors.Unauthorized("Invalid authorization format. Use: Bearer <token>"))
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			logger.Warn(ctx, "Token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			if errors.Is(err, jwt.ErrExpiredToken) {
				abortWith(c, domainerrors.NewAppError(http.StatusUnauthorized, domainerrors.CodeUnauthorized, "Token has expired", domainerrors.ErrTokenExpired))
				return
			}
			abortWith(c, domainerrors.Unauthorized("Invalid token"))
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(AccountEmailKey, claims.Email)
		c.Set(AccountRoleKey, claims.Role)
		c.Request = c.Request.WithContext(logger.WithAccountID(ctx, claims.AccountID.String()))

		c.Next()
	}
}

func abortWith(c *gin.Context, err *domainerrors.AppError) {
	response.Error(c, err)
	c.Abort()
}

// GetAccountID gets the authenticated account from context
func GetAccountID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(AccountIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetAccountRole gets the account role from context
func GetAccountRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(AccountRoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// RequireRole creates a middleware that requires one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountRole, exists := GetAccountRole(c)
		if !exists {
			abortWith(c, domainerrors.Unauthorized("Account role not found"))
			return
		}

		for _, role := range roles {
			if accountRole == role {
				c.Next()
				return
			}
		}

		abortWith(c, domainerrors.Forbidden("Insufficient permissions"))
	}
}

// RequireAdmin creates a middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(jwt.RoleAdmin)
}
