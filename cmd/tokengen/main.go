package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"paymenow.backend/internal/config"
	"paymenow.backend/pkg/jwt"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	account := flag.String("account", "", "account id (uuid); a new one is generated when empty")
	email := flag.String("email", "", "account email")
	role := flag.String("role", jwt.RoleUser, "token role: user or admin")
	secret := flag.String("secret", cfg.JWT.Secret, "signing secret (defaults to JWT_SECRET)")
	expiry := flag.Duration("expiry", cfg.JWT.AccessExpiry, "token lifetime")
	flag.Parse()

	accountID, err := validateInputs(*account, *role, *secret, *expiry)
	if err != nil {
		log.Fatal(err)
	}

	token, err := buildToken(accountID, *email, *role, *secret, *expiry)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Println("Generated access token")
	fmt.Printf("ACCOUNT_ID=%s\n", accountID)
	fmt.Printf("ACCESS_TOKEN=%s\n", token)
}

func validateInputs(account, role, secret string, expiry time.Duration) (uuid.UUID, error) {
	if role != jwt.RoleUser && role != jwt.RoleAdmin {
		return uuid.Nil, fmt.Errorf("invalid role: %s (allowed: %s, %s)", role, jwt.RoleUser, jwt.RoleAdmin)
	}
	if secret == "" {
		return uuid.Nil, errors.New("secret is required")
	}
	if expiry <= 0 {
		return uuid.Nil, fmt.Errorf("invalid expiry: %s (must be positive)", expiry)
	}
	if account == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(account)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid account id: %q", account)
	}
	return id, nil
}

func buildToken(accountID uuid.UUID, email, role, secret string, expiry time.Duration) (string, error) {
	return jwt.NewJWTService(secret, expiry).GenerateAccessToken(accountID, email, role)
}
