// Package chain implements read-only queries against the externally-owned
// curve and tracker contracts via go-ethereum. All chain mutation (trades,
// redemptions, payouts) happens in the contract-call layer owned by the
// frontend wallet session; nothing here signs or submits transactions.
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientConfig holds connection parameters for the chain RPC client.
type ClientConfig struct {
	RPCURL      string
	ChainID     int
	CallTimeout time.Duration
}

// Client wraps an ethclient.Client with a bounded per-call timeout.
type Client struct {
	eth         *ethclient.Client
	chainID     int
	callTimeout time.Duration
}

// New dials the RPC endpoint and verifies the chain id matches the
// configured one.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	id, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if cfg.ChainID > 0 && id.Int64() != int64(cfg.ChainID) {
		eth.Close()
		return nil, fmt.Errorf("chain: connected to chain %d, expected %d", id.Int64(), cfg.ChainID)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{eth: eth, chainID: cfg.ChainID, callTimeout: timeout}, nil
}

// Underlying returns the raw ethclient for sub-components.
func (c *Client) Underlying() *ethclient.Client {
	return c.eth
}

// callCtx derives a per-call context bounded by the configured timeout.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.callTimeout)
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
