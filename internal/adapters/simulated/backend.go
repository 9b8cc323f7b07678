// Package simulated runs the governance and staking contracts on an
// in-process chain and exposes them through the use case ports.
package simulated

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/contracts/governor"
	"github.com/dopedao/govsim/internal/contracts/nftstake"
	"github.com/dopedao/govsim/internal/contracts/receiver"
	"github.com/dopedao/govsim/internal/contracts/timelock"
	"github.com/dopedao/govsim/internal/contracts/token"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/simchain"
	"github.com/dopedao/govsim/internal/usecase"
)

const lootSupply = 8000

// Backend owns a simulated chain and deploys contracts on first use.
// Chain control comes from the embedded chain.
type Backend struct {
	*simchain.Chain

	cfg *config.RuntimeConfig
	log *slog.Logger

	mu      sync.Mutex
	gov     *governance
	staking *staking
}

type governance struct {
	loot     *token.ERC721
	timelock *timelock.Timelock
	governor *governor.Governor
	receiver *receiver.Receiver
	voters   []common.Address
}

type staking struct {
	paper *token.ERC20
	stake *nftstake.NftStake
}

// NewBackend creates a backend on a fresh chain shaped by cfg.Chain
func NewBackend(cfg *config.RuntimeConfig, log *slog.Logger) *Backend {
	return &Backend{
		Chain: simchain.New(cfg.Chain, log),
		cfg:   cfg,
		log:   log.With("component", "simulated"),
	}
}

func (b *Backend) deployer() common.Address {
	return b.Account(0)
}

// Governance deploys loot, timelock, governor and receiver, has each voter
// claim one loot and funds the treasury. The deployer is the guardian and
// the first timelock admin.
func (b *Backend) Governance(ctx context.Context) (*usecase.GovernanceDeployment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.deployGovernance(ctx); err != nil {
		return nil, err
	}
	g := b.gov
	return &usecase.GovernanceDeployment{
		Governor: &governorClient{chain: b.Chain, gov: g.governor},
		Timelock: &timelockClient{chain: b.Chain, tl: g.timelock},
		Named: map[string]common.Address{
			"governor": g.governor.Address(),
			"timelock": g.timelock.Address(),
			"receiver": g.receiver.Address(),
			"loot":     g.loot.Address(),
		},
		TimelockAdmin: b.deployer(),
		Proposer:      g.voters[0],
		Holders:       append([]common.Address(nil), g.voters...),
	}, nil
}

func (b *Backend) deployGovernance(ctx context.Context) error {
	if b.gov != nil {
		return nil
	}
	deployer := b.deployer()
	accounts := b.Accounts()
	if b.cfg.Simulation.Voters >= len(accounts) {
		return fmt.Errorf("need %d accounts for %d voters, chain has %d", b.cfg.Simulation.Voters+1, b.cfg.Simulation.Voters, len(accounts))
	}
	g := &governance{voters: accounts[1 : b.cfg.Simulation.Voters+1]}

	var err error
	g.loot, _, err = simchain.Deploy(ctx, b.Chain, deployer, func(env *simchain.Env) (*token.ERC721, error) {
		return token.NewERC721(env, "DOPE", "DOPE", lootSupply)
	})
	if err != nil {
		return fmt.Errorf("failed to deploy loot: %w", err)
	}
	g.timelock, _, err = simchain.Deploy(ctx, b.Chain, deployer, func(env *simchain.Env) (*timelock.Timelock, error) {
		return timelock.New(env, deployer, b.cfg.Timelock.Delay, b.cfg.Timelock)
	})
	if err != nil {
		return fmt.Errorf("failed to deploy timelock: %w", err)
	}
	g.governor, _, err = simchain.Deploy(ctx, b.Chain, deployer, func(env *simchain.Env) (*governor.Governor, error) {
		return governor.New(env, g.loot, g.timelock, b.cfg.Governor)
	})
	if err != nil {
		return fmt.Errorf("failed to deploy governor: %w", err)
	}
	g.receiver, _, err = simchain.Deploy(ctx, b.Chain, deployer, receiver.New)
	if err != nil {
		return fmt.Errorf("failed to deploy receiver: %w", err)
	}

	for i, voter := range g.voters {
		id := uint64(i + 1)
		_, err := b.Transact(ctx, simchain.Message{From: voter, To: g.loot.Address()}, func(env *simchain.Env) error {
			return g.loot.Claim(env, id)
		})
		if err != nil {
			return fmt.Errorf("voter %s failed to claim loot %d: %w", voter.Hex(), id, err)
		}
	}
	if treasury := b.cfg.Simulation.Treasury; treasury != nil && treasury.Sign() > 0 {
		if _, err := b.Send(ctx, deployer, g.timelock.Address(), treasury); err != nil {
			return fmt.Errorf("failed to fund treasury: %w", err)
		}
	}
	// votes must be checkpointed before the first proposal's snapshot block
	if err := b.MineBlock(ctx); err != nil {
		return err
	}

	b.gov = g
	b.log.Debug("governance deployed",
		"governor", g.governor.Address().Hex(), "timelock", g.timelock.Address().Hex(), "voters", len(g.voters))
	return nil
}

// Staking deploys the PAPER reward token and the stake contract over the
// governance loot, funds the reward pool and hands the emission rate to
// the timelock.
func (b *Backend) Staking(ctx context.Context) (*usecase.StakingDeployment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.deployGovernance(ctx); err != nil {
		return nil, err
	}
	if err := b.deployStaking(ctx); err != nil {
		return nil, err
	}
	g, s := b.gov, b.staking

	stakers := make(map[common.Address]uint64, len(g.voters))
	for i, voter := range g.voters {
		id := uint64(i + 1)
		var owner common.Address
		err := b.Call(ctx, voter, g.loot.Address(), func(env *simchain.Env) error {
			var err error
			owner, err = g.loot.OwnerOf(id)
			return err
		})
		if err == nil && owner == voter {
			stakers[voter] = id
		}
	}

	return &usecase.StakingDeployment{
		Staking: &stakingClient{chain: b.Chain, stake: s.stake},
		NFT:     &nftClient{chain: b.Chain, nft: g.loot},
		Reward:  &tokenClient{chain: b.Chain, token: s.paper},
		DAO:     s.stake.DAO(),
		Stakers: stakers,
	}, nil
}

func (b *Backend) deployStaking(ctx context.Context) error {
	if b.staking != nil {
		return nil
	}
	deployer := b.deployer()
	g := b.gov
	s := &staking{}

	var err error
	s.paper, _, err = simchain.Deploy(ctx, b.Chain, deployer, func(env *simchain.Env) (*token.ERC20, error) {
		return token.NewERC20(env, "Paper", "PAPER")
	})
	if err != nil {
		return fmt.Errorf("failed to deploy reward token: %w", err)
	}
	rate := b.cfg.Staking.EmissionRate
	if rate == nil {
		rate = new(big.Int)
	}
	s.stake, _, err = simchain.Deploy(ctx, b.Chain, deployer, func(env *simchain.Env) (*nftstake.NftStake, error) {
		return nftstake.New(env, g.loot, s.paper, rate, g.timelock.Address())
	})
	if err != nil {
		return fmt.Errorf("failed to deploy stake contract: %w", err)
	}
	if pool := b.cfg.Staking.RewardPool; pool != nil && pool.Sign() > 0 {
		_, err := b.Transact(ctx, simchain.Message{From: deployer, To: s.paper.Address()}, func(env *simchain.Env) error {
			return s.paper.Mint(env, s.stake.Address(), pool)
		})
		if err != nil {
			return fmt.Errorf("failed to fund reward pool: %w", err)
		}
	}

	b.staking = s
	b.log.Debug("staking deployed", "stake", s.stake.Address().Hex(), "paper", s.paper.Address().Hex())
	return nil
}
