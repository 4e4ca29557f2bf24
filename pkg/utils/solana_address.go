package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// SolanaPublicKeyLength is the size of an ed25519 public key
const SolanaPublicKeyLength = 32

var ErrInvalidSolanaAddress = errors.New("invalid solana address")

// ValidateSolanaAddress checks that address is base58 and decodes to a 32 byte public key
func ValidateSolanaAddress(address string) error {
	if address == "" || strings.TrimSpace(address) != address {
		return fmt.Errorf("%w: empty or padded", ErrInvalidSolanaAddress)
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSolanaAddress, err)
	}
	if len(raw) != SolanaPublicKeyLength {
		return fmt.Errorf("%w: decoded to %d bytes", ErrInvalidSolanaAddress, len(raw))
	}
	return nil
}
