package blockchain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/pkg/utils"
)

const signatureLength = 64

type solanaRPC interface {
	LatestBlockhash(ctx context.Context, commitment string) (string, error)
	SendTransaction(ctx context.Context, signedTx string) (string, error)
	SignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
}

// SolanaSettlementGateway moves funds out of the custody wallet on Solana.
// The settlement reference is the transaction signature.
type SolanaSettlementGateway struct {
	client     solanaRPC
	signer     Signer
	usdcMint   string
	commitment string
}

// NewSolanaSettlementGateway creates a gateway that treats finalized transactions as confirmed
func NewSolanaSettlementGateway(client *SolanaClient, signer Signer, usdcMint string) *SolanaSettlementGateway {
	return &SolanaSettlementGateway{
		client:     client,
		signer:     signer,
		usdcMint:   usdcMint,
		commitment: CommitmentFinalized,
	}
}

// Prepare signs a transfer of amount to destination without broadcasting it.
// The reference is the first signature of the signed transaction.
func (g *SolanaSettlementGateway) Prepare(ctx context.Context, destination string, amount decimal.Decimal, asset entities.AssetType) (entities.PreparedSettlement, error) {
	if err := utils.ValidateSolanaAddress(destination); err != nil {
		return entities.PreparedSettlement{}, err
	}
	units, err := asset.ToBaseUnits(amount)
	if err != nil {
		return entities.PreparedSettlement{}, err
	}
	if units == 0 {
		return entities.PreparedSettlement{}, fmt.Errorf("amount %s rounds to zero base units", amount)
	}

	blockhash, err := g.client.LatestBlockhash(ctx, g.commitment)
	if err != nil {
		return entities.PreparedSettlement{}, err
	}

	ix := TransferInstruction{
		Destination:     destination,
		Amount:          units,
		Decimals:        asset.Decimals(),
		RecentBlockhash: blockhash,
	}
	if !asset.Native() {
		ix.Mint = g.usdcMint
	}

	signed, err := g.signer.SignTransfer(ctx, ix)
	if err != nil {
		return entities.PreparedSettlement{}, err
	}
	signature, err := TransactionSignature(signed)
	if err != nil {
		return entities.PreparedSettlement{}, err
	}
	return entities.PreparedSettlement{Reference: signature, Payload: signed}, nil
}

// Broadcast sends a prepared transaction. A JSON-RPC error response means the
// node refused it and is reported as ErrSettlementRejected; transport errors
// leave the outcome unknown.
func (g *SolanaSettlementGateway) Broadcast(ctx context.Context, prepared entities.PreparedSettlement) error {
	signature, err := g.client.SendTransaction(ctx, prepared.Payload)
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return fmt.Errorf("%w: %v", domainerrors.ErrSettlementRejected, err)
		}
		return err
	}
	if signature != prepared.Reference {
		return fmt.Errorf("sendTransaction returned signature %s, expected %s", signature, prepared.Reference)
	}
	return nil
}

// Confirm maps the signature status onto CONFIRMED, FAILED or PENDING
func (g *SolanaSettlementGateway) Confirm(ctx context.Context, reference string) (entities.SettlementStatus, error) {
	status, err := g.client.SignatureStatus(ctx, reference)
	if err != nil {
		return entities.SettlementPending, err
	}
	if status == nil {
		return entities.SettlementPending, nil
	}
	if status.Err != nil {
		return entities.SettlementFailed, nil
	}
	if status.ConfirmationStatus == g.commitment {
		return entities.SettlementConfirmed, nil
	}
	return entities.SettlementPending, nil
}

// TransactionSignature returns the base58 fee payer signature of a signed,
// base64 encoded transaction. The wire format starts with a compact-u16
// signature count followed by 64 byte signatures.
func TransactionSignature(signedTx string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(signedTx)
	if err != nil {
		return "", fmt.Errorf("signed transaction is not base64: %w", err)
	}
	count, offset, err := decodeCompactU16(raw)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", errors.New("signed transaction carries no signature")
	}
	if len(raw) < offset+signatureLength {
		return "", errors.New("signed transaction is truncated")
	}
	sig := raw[offset : offset+signatureLength]
	empty := true
	for _, b := range sig {
		if b != 0 {
			empty = false
			break
		}
	}
	if empty {
		return "", errors.New("signed transaction is not signed")
	}
	return base58.Encode(sig), nil
}

func decodeCompactU16(b []byte) (value, size int, err error) {
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, errors.New("signed transaction is truncated")
		}
		value |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, errors.New("invalid compact-u16 length")
}
