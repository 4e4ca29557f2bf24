package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"paymenow.backend/pkg/jwt"
)

func TestValidateInputs(t *testing.T) {
	id := uuid.New()
	got, err := validateInputs(id.String(), jwt.RoleAdmin, "secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Fatalf("expected %s got %s", id, got)
	}

	generated, err := validateInputs("", jwt.RoleUser, "secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generated == uuid.Nil {
		t.Fatal("expected a generated account id")
	}

	if _, err := validateInputs("", "root", "secret", time.Hour); err == nil {
		t.Fatal("expected error for invalid role")
	}
	if _, err := validateInputs("", jwt.RoleUser, "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := validateInputs("", jwt.RoleUser, "secret", 0); err == nil {
		t.Fatal("expected error for non-positive expiry")
	}
	if _, err := validateInputs("not-a-uuid", jwt.RoleUser, "secret", time.Hour); err == nil {
		t.Fatal("expected error for invalid account id")
	}
	if _, err := validateInputs(uuid.Nil.String(), jwt.RoleUser, "secret", time.Hour); err == nil {
		t.Fatal("expected error for nil account id")
	}
}

func TestBuildToken(t *testing.T) {
	id := uuid.New()
	token, err := buildToken(id, "ops@example.com", jwt.RoleAdmin, "secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := jwt.NewJWTService("secret", time.Hour).ValidateToken(token)
	if err != nil {
		t.Fatalf("token did not validate: %v", err)
	}
	if claims.AccountID != id || claims.Role != jwt.RoleAdmin || claims.Email != "ops@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
