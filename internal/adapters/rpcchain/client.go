// Package rpcchain drives the clock and accounts of a hardhat or anvil dev
// node over JSON-RPC.
package rpcchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/usecase"
)

// Client implements usecase.ChainControl against a dev node
type Client struct {
	rpc *rpc.Client
	log *slog.Logger
}

// Dial connects to url. HTTP endpoints are not contacted until the first call.
func Dial(ctx context.Context, url string, log *slog.Logger) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", url, err)
	}
	return NewClient(c, log), nil
}

// NewClient wraps an existing rpc client
func NewClient(c *rpc.Client, log *slog.Logger) *Client {
	return &Client{rpc: c, log: log.With("component", "rpcchain")}
}

// ProvideClient dials the node configured in cfg
func ProvideClient(cfg *config.RuntimeConfig, log *slog.Logger) (*Client, error) {
	if !cfg.IsLive() {
		return nil, fmt.Errorf("%w: no rpc url", domain.ErrNotConfigured)
	}
	return Dial(context.Background(), cfg.RPCURL, log)
}

// RPC exposes the underlying client for adapters that share the connection
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// Close closes the connection
func (c *Client) Close() {
	c.rpc.Close()
}

// MineBlock mines one block
func (c *Client) MineBlock(ctx context.Context) error {
	if err := c.rpc.CallContext(ctx, nil, "evm_mine"); err != nil {
		return fmt.Errorf("evm_mine: %w", err)
	}
	return nil
}

// MineBlocks mines n blocks with hardhat_mine, falling back to one evm_mine
// per block on nodes without it
func (c *Client) MineBlocks(ctx context.Context, n uint64) error {
	if n == 0 {
		return nil
	}
	err := c.rpc.CallContext(ctx, nil, "hardhat_mine", hexutil.Uint64(n))
	if err == nil {
		c.log.Debug("mined blocks", "count", n)
		return nil
	}
	if !isMethodNotFound(err) {
		return fmt.Errorf("hardhat_mine: %w", err)
	}
	for i := uint64(0); i < n; i++ {
		if err := c.MineBlock(ctx); err != nil {
			return err
		}
	}
	c.log.Debug("mined blocks one by one", "count", n)
	return nil
}

// SetNextBlockTimestamp pins the timestamp of the next mined block
func (c *Client) SetNextBlockTimestamp(ctx context.Context, ts uint64) error {
	if err := c.rpc.CallContext(ctx, nil, "evm_setNextBlockTimestamp", hexutil.Uint64(ts)); err != nil {
		return fmt.Errorf("evm_setNextBlockTimestamp: %w", err)
	}
	return nil
}

// ImpersonateAccount unlocks addr on the node
func (c *Client) ImpersonateAccount(ctx context.Context, addr common.Address) error {
	if err := c.rpc.CallContext(ctx, nil, "hardhat_impersonateAccount", addr); err != nil {
		return fmt.Errorf("hardhat_impersonateAccount: %w", err)
	}
	return nil
}

type rpcBlock struct {
	Number    hexutil.Uint64 `json:"number"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// GetBlock returns the latest block
func (c *Client) GetBlock(ctx context.Context) (*domain.Block, error) {
	var head *rpcBlock
	if err := c.rpc.CallContext(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber: %w", err)
	}
	if head == nil {
		return nil, fmt.Errorf("%w: latest block", domain.ErrNotFound)
	}
	return &domain.Block{Number: uint64(head.Number), Timestamp: uint64(head.Timestamp)}, nil
}

// GetBalance returns the latest balance of addr
func (c *Client) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var bal hexutil.Big
	if err := c.rpc.CallContext(ctx, &bal, "eth_getBalance", addr, "latest"); err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", err)
	}
	return bal.ToInt(), nil
}

// SetBalance overwrites the balance of addr
func (c *Client) SetBalance(ctx context.Context, addr common.Address, amount *big.Int) error {
	if err := c.rpc.CallContext(ctx, nil, "hardhat_setBalance", addr, (*hexutil.Big)(amount)); err != nil {
		return fmt.Errorf("hardhat_setBalance: %w", err)
	}
	return nil
}

// Accounts returns the node's unlocked accounts
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("eth_accounts: %w", err)
	}
	return accounts, nil
}

func isMethodNotFound(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == -32601 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "method not found") || strings.Contains(msg, "does not exist")
}

var _ usecase.ChainControl = (*Client)(nil)
