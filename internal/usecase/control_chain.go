package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
)

// ChainOperation names a ControlChain operation
type ChainOperation string

const (
	ChainMine        ChainOperation = "mine"
	ChainWarp        ChainOperation = "warp"
	ChainImpersonate ChainOperation = "impersonate"
	ChainBlock       ChainOperation = "block"
	ChainBalance     ChainOperation = "balance"
	ChainSetBalance  ChainOperation = "set-balance"
)

// ControlChain handles dev chain clock and account operations
type ControlChain struct {
	chain    ChainControl
	progress ProgressSink
}

// NewControlChain creates a new chain control use case
func NewControlChain(chain ChainControl, progress ProgressSink) *ControlChain {
	return &ControlChain{
		chain:    chain,
		progress: progress,
	}
}

// ControlChainParams contains parameters for chain operations
type ControlChainParams struct {
	Operation ChainOperation
	Blocks    uint64 // mine
	Timestamp uint64 // warp
	Address   common.Address
	Amount    *big.Int // set-balance
}

// ControlChainResult contains the result of a chain operation
type ControlChainResult struct {
	Operation ChainOperation `json:"operation"`
	Before    *domain.Block  `json:"before,omitempty"`
	Block     *domain.Block  `json:"block"`
	Address   string         `json:"address,omitempty"`
	Balance   *big.Int       `json:"balance,omitempty"`
}

// Execute performs the chain operation
func (c *ControlChain) Execute(ctx context.Context, params ControlChainParams) (*ControlChainResult, error) {
	before, err := c.chain.GetBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get head block: %w", err)
	}
	result := &ControlChainResult{Operation: params.Operation, Before: before}

	switch params.Operation {
	case ChainMine:
		n := params.Blocks
		if n == 0 {
			n = 1
		}
		if err := c.chain.MineBlocks(ctx, n); err != nil {
			return nil, fmt.Errorf("failed to mine %d blocks: %w", n, err)
		}
		c.progress.Info(fmt.Sprintf("Mined %d block(s)", n))
	case ChainWarp:
		if params.Timestamp <= before.Timestamp {
			return nil, fmt.Errorf("%w: timestamp %d is not after head timestamp %d",
				domain.ErrInvalidArgument, params.Timestamp, before.Timestamp)
		}
		if err := c.chain.SetNextBlockTimestamp(ctx, params.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to set next block timestamp: %w", err)
		}
		if err := c.chain.MineBlock(ctx); err != nil {
			return nil, fmt.Errorf("failed to mine: %w", err)
		}
	case ChainImpersonate:
		if err := c.chain.ImpersonateAccount(ctx, params.Address); err != nil {
			return nil, fmt.Errorf("failed to impersonate %s: %w", params.Address.Hex(), err)
		}
		result.Address = params.Address.Hex()
	case ChainBlock:
		result.Before = nil
	case ChainBalance:
		result.Before = nil
		result.Address = params.Address.Hex()
	case ChainSetBalance:
		if params.Amount == nil || params.Amount.Sign() < 0 {
			return nil, fmt.Errorf("%w: balance must be a non-negative amount", domain.ErrInvalidArgument)
		}
		if err := c.chain.SetBalance(ctx, params.Address, params.Amount); err != nil {
			return nil, fmt.Errorf("failed to set balance of %s: %w", params.Address.Hex(), err)
		}
		result.Address = params.Address.Hex()
	default:
		return nil, fmt.Errorf("unknown operation: %s", params.Operation)
	}

	if result.Block, err = c.chain.GetBlock(ctx); err != nil {
		return nil, fmt.Errorf("failed to get head block: %w", err)
	}
	if result.Address != "" {
		if result.Balance, err = c.chain.GetBalance(ctx, params.Address); err != nil {
			return nil, fmt.Errorf("failed to get balance of %s: %w", params.Address.Hex(), err)
		}
	}
	return result, nil
}
