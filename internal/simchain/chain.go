// Package simchain is an in-process ledger with block and clock control.
//
// Transactions execute against the current head block and never mine it;
// the block number and timestamp only move through MineBlock. Every
// transaction is all-or-nothing: a failure restores balances and the state
// of every contract to what it was before the call.
package simchain

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/samber/lo"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/domain/config"
)

// Chain is a simulated ledger. All methods are safe for concurrent use;
// operations are serialized.
type Chain struct {
	mu     sync.Mutex
	logger *slog.Logger
	cfg    config.ChainConfig

	head   domain.Block
	pinned *uint64

	balances     map[common.Address]*big.Int
	nonces       map[common.Address]uint64
	contracts    map[common.Address]Contract
	accounts     []common.Address
	managed      map[common.Address]bool
	impersonated map[common.Address]bool

	receipts  map[common.Hash]*domain.Receipt
	snapshots []*ledgerSnapshot
	txLogs    []domain.Log
}

// New creates a chain at block 0 with cfg.Accounts funded dev accounts.
func New(cfg config.ChainConfig, logger *slog.Logger) *Chain {
	c := &Chain{
		logger:       logger.With("component", "simchain"),
		cfg:          cfg,
		head:         domain.Block{Number: 0, Timestamp: cfg.GenesisTimestamp},
		balances:     make(map[common.Address]*big.Int),
		nonces:       make(map[common.Address]uint64),
		contracts:    make(map[common.Address]Contract),
		managed:      make(map[common.Address]bool),
		impersonated: make(map[common.Address]bool),
		receipts:     make(map[common.Hash]*domain.Receipt),
	}

	balance := cfg.AccountBalance
	if balance == nil {
		balance = new(big.Int)
	}
	for i := 0; i < cfg.Accounts; i++ {
		addr := devAccount(i)
		c.accounts = append(c.accounts, addr)
		c.managed[addr] = true
		c.balances[addr] = new(big.Int).Set(balance)
	}
	return c
}

// devAccount derives the i-th dev account from a fixed keccak seed.
func devAccount(i int) common.Address {
	seed := make([]byte, 8)
	binary.BigEndian.PutUint64(seed, uint64(i))
	key := crypto.Keccak256([]byte("govsim dev account"), seed)
	for {
		pk, err := crypto.ToECDSA(key)
		if err == nil {
			return crypto.PubkeyToAddress(pk.PublicKey)
		}
		key = crypto.Keccak256(key)
	}
}

// Accounts returns the managed dev accounts in a stable order.
func (c *Chain) Accounts() []common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Address(nil), c.accounts...)
}

// Account returns the i-th dev account. It panics if i is out of range.
func (c *Chain) Account(i int) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accounts[i]
}

// Head returns the current block.
func (c *Chain) Head() domain.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// MineBlock advances the head by one block.
func (c *Chain) MineBlock(ctx context.Context) error {
	return c.MineBlocks(ctx, 1)
}

// MineBlocks mines n blocks. A pinned timestamp applies to the first one.
func (c *Chain) MineBlocks(ctx context.Context, n uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := uint64(0); i < n; i++ {
		c.mine()
	}
	c.logger.Debug("mined blocks", "count", n, "head", c.head.Number, "timestamp", c.head.Timestamp)
	return nil
}

func (c *Chain) mine() {
	c.head.Number++
	if c.pinned != nil {
		c.head.Timestamp = *c.pinned
		c.pinned = nil
		return
	}
	c.head.Timestamp += c.cfg.BlockTime
}

// SetNextBlockTimestamp pins the timestamp of the next mined block.
func (c *Chain) SetNextBlockTimestamp(ctx context.Context, ts uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts <= c.head.Timestamp {
		return fmt.Errorf("%w: timestamp %d is lower than or equal to previous block's timestamp %d",
			domain.ErrInvalidArgument, ts, c.head.Timestamp)
	}
	c.pinned = &ts
	return nil
}

// ImpersonateAccount lets transactions be sent from addr without a key.
func (c *Chain) ImpersonateAccount(ctx context.Context, addr common.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.impersonated[addr] = true
	c.logger.Debug("impersonating account", "address", addr.Hex())
	return nil
}

// StopImpersonatingAccount reverses ImpersonateAccount.
func (c *Chain) StopImpersonatingAccount(ctx context.Context, addr common.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.impersonated, addr)
	return nil
}

// GetBlock returns the head block.
func (c *Chain) GetBlock(ctx context.Context) (*domain.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	head := c.Head()
	return &head, nil
}

// GetBalance returns the native balance of addr.
func (c *Chain) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balance(addr)), nil
}

// SetBalance overwrites the native balance of addr.
func (c *Chain) SetBalance(ctx context.Context, addr common.Address, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: balance must be non-negative", domain.ErrInvalidArgument)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[addr] = new(big.Int).Set(amount)
	return nil
}

// Receipt returns the receipt of a past transaction.
func (c *Chain) Receipt(hash common.Hash) (*domain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), domain.ErrNotFound)
	}
	return r, nil
}

// Contracts returns the addresses of all deployed contracts.
func (c *Chain) Contracts() []common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Keys(c.contracts)
}

func (c *Chain) balance(addr common.Address) *big.Int {
	if b, ok := c.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (c *Chain) transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	fromBal := c.balance(from)
	if fromBal.Cmp(amount) < 0 {
		return domain.Revert(domain.ErrInsufficientFunds,
			fmt.Sprintf("sender %s doesn't have enough funds to send tx: balance %s, value %s", from.Hex(), fromBal, amount))
	}
	c.balances[from] = new(big.Int).Sub(fromBal, amount)
	c.balances[to] = new(big.Int).Add(c.balance(to), amount)
	return nil
}

func (c *Chain) canSign(addr common.Address) bool {
	return c.managed[addr] || c.impersonated[addr]
}
