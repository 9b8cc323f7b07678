// Package evm runs governance scenarios against a DopeDAO deployment on a
// hardhat or anvil node. Every transaction is sent with eth_sendTransaction
// from an impersonated account, so no keys are involved.
package evm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dopedao/govsim/internal/adapters/rpcchain"
	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/usecase"
)

// Backend implements usecase.GovernanceBackend for a live node
type Backend struct {
	*rpcchain.Client
	cfg config.LiveConfig
	tx  *transactor
	log *slog.Logger

	mu  sync.Mutex
	gov *usecase.GovernanceDeployment
}

// NewBackend shares client's connection for contract calls
func NewBackend(client *rpcchain.Client, cfg *config.RuntimeConfig, log *slog.Logger) *Backend {
	log = log.With("component", "evm")
	return &Backend{
		Client: client,
		cfg:    cfg.Live,
		log:    log,
		tx: &transactor{
			rpc:      client.RPC(),
			eth:      ethclient.NewClient(client.RPC()),
			gasLimit: cfg.Live.GasLimit,
			poll:     defaultPollInterval,
			log:      log,
		},
	}
}

// Governance resolves the configured deployment. Voters default to the
// holders of loot tokens 1 through quorumVotes+1.
func (b *Backend) Governance(ctx context.Context) (*usecase.GovernanceDeployment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gov != nil {
		return b.gov, nil
	}

	if b.cfg.Governor == (common.Address{}) || b.cfg.Timelock == (common.Address{}) {
		return nil, fmt.Errorf("%w: live.governor and live.timelock are required", domain.ErrNotConfigured)
	}
	if b.cfg.Proposer == (common.Address{}) {
		return nil, fmt.Errorf("%w: live.proposer is required", domain.ErrNotConfigured)
	}

	accounts, err := b.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	var guardian common.Address
	if len(accounts) > 0 {
		guardian = accounts[0]
	}

	gov := newGovernorClient(b.tx, b.cfg.Governor, guardian)
	tl := newTimelockClient(b.tx, b.cfg.Timelock)

	admin := b.cfg.TimelockAdmin
	if admin == (common.Address{}) {
		if admin, err = tl.Admin(ctx); err != nil {
			return nil, fmt.Errorf("failed to read timelock admin: %w", err)
		}
	}

	holders, err := b.holders(ctx, gov)
	if err != nil {
		return nil, err
	}

	named := map[string]common.Address{
		"governor": b.cfg.Governor,
		"timelock": b.cfg.Timelock,
	}
	if b.cfg.Loot != (common.Address{}) {
		named["loot"] = b.cfg.Loot
	}
	if b.cfg.Receiver != (common.Address{}) {
		named["receiver"] = b.cfg.Receiver
	}

	b.gov = &usecase.GovernanceDeployment{
		Governor:      gov,
		Timelock:      tl,
		Named:         named,
		TimelockAdmin: admin,
		Proposer:      b.cfg.Proposer,
		Holders:       holders,
	}
	b.log.Debug("resolved live deployment", "governor", b.cfg.Governor.Hex(), "holders", len(holders))
	return b.gov, nil
}

func (b *Backend) holders(ctx context.Context, gov *governorClient) ([]common.Address, error) {
	if len(b.cfg.Voters) > 0 {
		return b.cfg.Voters, nil
	}
	if b.cfg.Loot == (common.Address{}) {
		return nil, fmt.Errorf("%w: set live.voters or live.loot", domain.ErrNotConfigured)
	}
	quorum, err := gov.QuorumVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read quorum: %w", err)
	}
	needed, err := uint64Out(quorum, "quorumVotes")
	if err != nil {
		return nil, err
	}
	loot := bind.NewBoundContract(b.cfg.Loot, lootABI, b.tx.eth, b.tx.eth, b.tx.eth)

	seen := make(map[common.Address]bool)
	var holders []common.Address
	for id := uint64(1); id <= needed+1; id++ {
		owner, err := ownerOf(ctx, loot, id)
		if err != nil {
			return nil, fmt.Errorf("ownerOf(%d): %w", id, err)
		}
		if !seen[owner] {
			seen[owner] = true
			holders = append(holders, owner)
		}
	}
	return holders, nil
}

var _ usecase.GovernanceBackend = (*Backend)(nil)
