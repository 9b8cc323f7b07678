package simchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
)

type ledgerSnapshot struct {
	head         domain.Block
	pinned       *uint64
	balances     map[common.Address]*big.Int
	nonces       map[common.Address]uint64
	contracts    map[common.Address]Contract
	states       map[common.Address]any
	impersonated map[common.Address]bool
}

func (c *Chain) snapshot() *ledgerSnapshot {
	s := &ledgerSnapshot{
		head:         c.head,
		balances:     make(map[common.Address]*big.Int, len(c.balances)),
		nonces:       make(map[common.Address]uint64, len(c.nonces)),
		contracts:    make(map[common.Address]Contract, len(c.contracts)),
		states:       make(map[common.Address]any, len(c.contracts)),
		impersonated: make(map[common.Address]bool, len(c.impersonated)),
	}
	if c.pinned != nil {
		ts := *c.pinned
		s.pinned = &ts
	}
	for addr, bal := range c.balances {
		s.balances[addr] = new(big.Int).Set(bal)
	}
	for addr, n := range c.nonces {
		s.nonces[addr] = n
	}
	for addr, contract := range c.contracts {
		s.contracts[addr] = contract
		s.states[addr] = contract.Snapshot()
	}
	for addr := range c.impersonated {
		s.impersonated[addr] = true
	}
	return s
}

// restore consumes s; it must not be restored twice.
func (c *Chain) restore(s *ledgerSnapshot) {
	c.head = s.head
	c.pinned = s.pinned
	c.balances = s.balances
	c.nonces = s.nonces
	c.contracts = s.contracts
	c.impersonated = s.impersonated
	for addr, contract := range c.contracts {
		contract.Restore(s.states[addr])
	}
}

// Snapshot records the whole ledger and returns an id for Revert, like
// evm_snapshot.
func (c *Chain) Snapshot(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshots = append(c.snapshots, c.snapshot())
	id := uint64(len(c.snapshots))
	c.logger.Debug("snapshot taken", "id", id, "head", c.head.Number)
	return id, nil
}

// Revert restores the ledger to snapshot id. The snapshot and every later
// one are discarded, like evm_revert.
func (c *Chain) Revert(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == 0 || id > uint64(len(c.snapshots)) || c.snapshots[id-1] == nil {
		return fmt.Errorf("snapshot %d: %w", id, domain.ErrNotFound)
	}
	c.restore(c.snapshots[id-1])
	c.snapshots = c.snapshots[:id-1]
	c.logger.Debug("reverted to snapshot", "id", id, "head", c.head.Number)
	return nil
}
