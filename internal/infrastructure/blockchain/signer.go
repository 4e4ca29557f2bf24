package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// TransferInstruction describes the transfer the custody wallet should sign.
// Mint is empty for native SOL, otherwise the SPL token mint.
type TransferInstruction struct {
	Destination     string `json:"destination"`
	Amount          uint64 `json:"amount"`
	Mint            string `json:"mint,omitempty"`
	Decimals        int32  `json:"decimals"`
	RecentBlockhash string `json:"recentBlockhash"`
	Memo            string `json:"memo,omitempty"`
}

// Signer returns a signed, base64 encoded transaction for the instruction.
// Keys never leave the custody service.
type Signer interface {
	SignTransfer(ctx context.Context, ix TransferInstruction) (string, error)
}

type signTransferResult struct {
	Transaction string `json:"transaction"`
}

// RemoteSigner calls the custody service over JSON-RPC
type RemoteSigner struct {
	client *rpc.Client
}

// NewRemoteSigner dials the custody signer endpoint
func NewRemoteSigner(ctx context.Context, url string) (*RemoteSigner, error) {
	client, err := dialRPCClient(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial custody signer: %w", err)
	}
	return &RemoteSigner{client: client}, nil
}

func (s *RemoteSigner) SignTransfer(ctx context.Context, ix TransferInstruction) (string, error) {
	var res signTransferResult
	if err := s.client.CallContext(ctx, &res, "custody_signTransfer", ix); err != nil {
		return "", fmt.Errorf("custody_signTransfer: %w", err)
	}
	if res.Transaction == "" {
		return "", fmt.Errorf("custody_signTransfer: empty transaction")
	}
	return res.Transaction, nil
}

// Close tears down the RPC connection
func (s *RemoteSigner) Close() {
	s.client.Close()
}
