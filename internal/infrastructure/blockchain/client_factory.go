package blockchain

import (
	"context"
	"fmt"
	"sync"
)

var beforeGetSolanaClientWriteLockHook = func(string) {}

// ClientFactory caches one Solana RPC client per endpoint
type ClientFactory struct {
	solanaClients map[string]*SolanaClient
	ratePerSecond int
	mu            sync.RWMutex
}

// NewClientFactory creates a new client factory
func NewClientFactory(ratePerSecond int) *ClientFactory {
	return &ClientFactory{
		solanaClients: make(map[string]*SolanaClient),
		ratePerSecond: ratePerSecond,
	}
}

// GetSolanaClient returns the client for rpcURL, dialing it on first use
func (f *ClientFactory) GetSolanaClient(ctx context.Context, rpcURL string) (*SolanaClient, error) {
	f.mu.RLock()
	client, ok := f.solanaClients[rpcURL]
	f.mu.RUnlock()
	if ok {
		return client, nil
	}

	beforeGetSolanaClientWriteLockHook(rpcURL)

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if client, ok := f.solanaClients[rpcURL]; ok {
		return client, nil
	}

	newClient, err := NewSolanaClient(ctx, rpcURL, f.ratePerSecond)
	if err != nil {
		return nil, fmt.Errorf("failed to create Solana client: %w", err)
	}

	f.solanaClients[rpcURL] = newClient
	return newClient, nil
}

// RegisterSolanaClient injects/overrides the cached client for rpcURL.
func (f *ClientFactory) RegisterSolanaClient(rpcURL string, client *SolanaClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.solanaClients[rpcURL] = client
}

// Close closes every cached client
func (f *ClientFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for url, c := range f.solanaClients {
		c.Close()
		delete(f.solanaClients, url)
	}
}
