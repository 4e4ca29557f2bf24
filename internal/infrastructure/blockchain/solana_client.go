package blockchain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
	"paymenow.backend/internal/infrastructure/metrics"
)

var dialRPCClient = rpc.DialContext

// Solana commitment levels
const (
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// SignatureStatus is one entry of getSignatureStatuses
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type latestBlockhashResult struct {
	Context rpcContext `json:"context"`
	Value   struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

type signatureStatusesResult struct {
	Context rpcContext         `json:"context"`
	Value   []*SignatureStatus `json:"value"`
}

// SolanaClient talks JSON-RPC to a Solana node, rate limited per client
type SolanaClient struct {
	client  *rpc.Client
	limiter *rate.Limiter
	rpcURL  string
}

// NewSolanaClient dials rpcURL. ratePerSecond <= 0 disables rate limiting.
func NewSolanaClient(ctx context.Context, rpcURL string, ratePerSecond int) (*SolanaClient, error) {
	client, err := dialRPCClient(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond)
	}

	return &SolanaClient{
		client:  client,
		limiter: limiter,
		rpcURL:  rpcURL,
	}, nil
}

// URL returns the RPC endpoint
func (c *SolanaClient) URL() string {
	return c.rpcURL
}

func (c *SolanaClient) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", method, err)
	}
	start := time.Now()
	err := c.client.CallContext(ctx, result, method, args...)
	metrics.RecordSettlementCall(method, time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// LatestBlockhash returns the most recent blockhash at the given commitment
func (c *SolanaClient) LatestBlockhash(ctx context.Context, commitment string) (string, error) {
	var res latestBlockhashResult
	if err := c.call(ctx, &res, "getLatestBlockhash", map[string]string{"commitment": commitment}); err != nil {
		return "", err
	}
	if res.Value.Blockhash == "" {
		return "", fmt.Errorf("getLatestBlockhash: empty blockhash")
	}
	return res.Value.Blockhash, nil
}

// SendTransaction submits a signed, base64 encoded transaction and returns its signature
func (c *SolanaClient) SendTransaction(ctx context.Context, signedTx string) (string, error) {
	var signature string
	opts := map[string]interface{}{
		"encoding":            "base64",
		"preflightCommitment": CommitmentConfirmed,
	}
	if err := c.call(ctx, &signature, "sendTransaction", signedTx, opts); err != nil {
		return "", err
	}
	if signature == "" {
		return "", fmt.Errorf("sendTransaction: empty signature")
	}
	return signature, nil
}

// SignatureStatus returns the status of one signature, or nil when the node has not seen it
func (c *SolanaClient) SignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var res signatureStatusesResult
	opts := map[string]bool{"searchTransactionHistory": true}
	if err := c.call(ctx, &res, "getSignatureStatuses", []string{signature}, opts); err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

// Close tears down the RPC connection
func (c *SolanaClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
