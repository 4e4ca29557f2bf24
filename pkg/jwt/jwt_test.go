package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	accountID := uuid.New()

	token, err := svc.GenerateAccessToken(accountID, "holder@mail.com", RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, "holder@mail.com", claims.Email)
	assert.Equal(t, RoleUser, claims.Role)
	assert.Equal(t, accountID.String(), claims.Subject)
}

func TestJWTService_ValidateInvalidToken(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateExpiredToken(t *testing.T) {
	svc := NewJWTService("secret", -time.Second)

	token, err := svc.GenerateAccessToken(uuid.New(), "expired@mail.com", RoleUser)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := NewJWTService("secret", time.Minute).GenerateAccessToken(uuid.New(), "a@mail.com", RoleAdmin)
	require.NoError(t, err)

	_, err = NewJWTService("other", time.Minute).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsForeignIssuerAndMissingAccount(t *testing.T) {
	secret := []byte("secret")
	svc := NewJWTService(string(secret), time.Minute)
	now := time.Now()

	foreign := gjwt.NewWithClaims(gjwt.SigningMethodHS256, &Claims{
		AccountID: uuid.New(),
		RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
		},
	})
	signed, err := foreign.SignedString(secret)
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous := gjwt.NewWithClaims(gjwt.SigningMethodHS256, &Claims{
		RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
		},
	})
	signed, err = anonymous.SignedString(secret)
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsNonHMAC(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	token := gjwt.NewWithClaims(gjwt.SigningMethodNone, &Claims{AccountID: uuid.New()})
	signed, err := token.SignedString(gjwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_SignFailure(t *testing.T) {
	orig := signJWTToken
	t.Cleanup(func() { signJWTToken = orig })
	signJWTToken = func(*gjwt.Token, []byte) (string, error) { return "", errors.New("sign failed") }

	_, err := NewJWTService("secret", time.Minute).GenerateAccessToken(uuid.New(), "a@mail.com", RoleUser)
	assert.EqualError(t, err, "sign failed")
}
