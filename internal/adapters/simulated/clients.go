package simulated

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/contracts/governor"
	"github.com/dopedao/govsim/internal/contracts/nftstake"
	"github.com/dopedao/govsim/internal/contracts/timelock"
	"github.com/dopedao/govsim/internal/contracts/token"
	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/simchain"
	"github.com/dopedao/govsim/internal/usecase"
)

var (
	_ usecase.GovernorClient = (*governorClient)(nil)
	_ usecase.TimelockClient = (*timelockClient)(nil)
	_ usecase.StakingClient  = (*stakingClient)(nil)
	_ usecase.NFTClient      = (*nftClient)(nil)
	_ usecase.TokenClient    = (*tokenClient)(nil)
)

// view runs a read against the head block with no particular caller
func view(ctx context.Context, chain *simchain.Chain, to common.Address, fn func(env *simchain.Env) error) error {
	return chain.Call(ctx, common.Address{}, to, fn)
}

type governorClient struct {
	chain *simchain.Chain
	gov   *governor.Governor
}

func (c *governorClient) Address() common.Address { return c.gov.Address() }

func (c *governorClient) transact(ctx context.Context, from common.Address, fn func(env *simchain.Env) error) (*domain.Receipt, error) {
	return c.chain.Transact(ctx, simchain.Message{From: from, To: c.gov.Address()}, fn)
}

func (c *governorClient) Propose(ctx context.Context, from common.Address, actions []domain.ProposalAction, description string) (uint64, *domain.Receipt, error) {
	var id uint64
	targets, values, signatures, calldatas := domain.SplitActions(actions)
	receipt, err := c.transact(ctx, from, func(env *simchain.Env) error {
		var err error
		id, err = c.gov.Propose(env, targets, values, signatures, calldatas, description)
		return err
	})
	if err != nil {
		return 0, receipt, err
	}
	return id, receipt, nil
}

func (c *governorClient) CastVote(ctx context.Context, from common.Address, id uint64, support domain.VoteSupport) (*domain.Receipt, error) {
	return c.transact(ctx, from, func(env *simchain.Env) error {
		return c.gov.CastVote(env, id, support)
	})
}

func (c *governorClient) Queue(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error) {
	return c.transact(ctx, from, func(env *simchain.Env) error {
		return c.gov.Queue(env, id)
	})
}

func (c *governorClient) Execute(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error) {
	return c.transact(ctx, from, func(env *simchain.Env) error {
		return c.gov.Execute(env, id)
	})
}

func (c *governorClient) Cancel(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error) {
	return c.transact(ctx, from, func(env *simchain.Env) error {
		return c.gov.Cancel(env, id)
	})
}

func (c *governorClient) AcceptAdmin(ctx context.Context, from common.Address) (*domain.Receipt, error) {
	return c.transact(ctx, from, c.gov.AcceptAdmin)
}

func (c *governorClient) State(ctx context.Context, id uint64) (domain.ProposalState, error) {
	var st domain.ProposalState
	err := view(ctx, c.chain, c.gov.Address(), func(env *simchain.Env) error {
		var err error
		st, err = c.gov.State(env, id)
		return err
	})
	return st, err
}

func (c *governorClient) Proposal(ctx context.Context, id uint64) (*domain.Proposal, error) {
	var p *domain.Proposal
	err := view(ctx, c.chain, c.gov.Address(), func(*simchain.Env) error {
		var err error
		p, err = c.gov.Proposal(id)
		return err
	})
	return p, err
}

func (c *governorClient) Receipt(ctx context.Context, id uint64, voter common.Address) (*domain.VoteReceipt, error) {
	var r domain.VoteReceipt
	err := view(ctx, c.chain, c.gov.Address(), func(*simchain.Env) error {
		r = c.gov.Receipt(id, voter)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *governorClient) VotingDelay(context.Context) (uint64, error) {
	return c.gov.VotingDelay(), nil
}

func (c *governorClient) QuorumVotes(context.Context) (*big.Int, error) {
	return c.gov.QuorumVotes(), nil
}

func (c *governorClient) Guardian(context.Context) (common.Address, error) {
	return c.gov.Guardian(), nil
}

type timelockClient struct {
	chain *simchain.Chain
	tl    *timelock.Timelock
}

func (c *timelockClient) Address() common.Address { return c.tl.Address() }

func (c *timelockClient) QueueTransaction(ctx context.Context, from common.Address, tx domain.TimelockTransaction) (*domain.Receipt, error) {
	return c.chain.Transact(ctx, simchain.Message{From: from, To: c.tl.Address()}, func(env *simchain.Env) error {
		_, err := c.tl.QueueTransaction(env, tx)
		return err
	})
}

func (c *timelockClient) ExecuteTransaction(ctx context.Context, from common.Address, tx domain.TimelockTransaction) (*domain.Receipt, error) {
	return c.chain.Transact(ctx, simchain.Message{From: from, To: c.tl.Address()}, func(env *simchain.Env) error {
		_, err := c.tl.ExecuteTransaction(env, tx)
		return err
	})
}

func (c *timelockClient) Admin(ctx context.Context) (common.Address, error) {
	var admin common.Address
	err := view(ctx, c.chain, c.tl.Address(), func(*simchain.Env) error {
		admin = c.tl.Admin()
		return nil
	})
	return admin, err
}

func (c *timelockClient) Delay(ctx context.Context) (uint64, error) {
	var delay uint64
	err := view(ctx, c.chain, c.tl.Address(), func(*simchain.Env) error {
		delay = c.tl.Delay()
		return nil
	})
	return delay, err
}

type stakingClient struct {
	chain *simchain.Chain
	stake *nftstake.NftStake
}

func (c *stakingClient) Address() common.Address { return c.stake.Address() }

func (c *stakingClient) transact(ctx context.Context, from common.Address, fn func(env *simchain.Env) error) (*domain.Receipt, error) {
	return c.chain.Transact(ctx, simchain.Message{From: from, To: c.stake.Address()}, fn)
}

func (c *stakingClient) Stake(ctx context.Context, from common.Address, ids []uint64, accepted bool) (*domain.Receipt, error) {
	return c.transact(ctx, from, func(env *simchain.Env) error {
		return c.stake.Stake(env, ids, accepted)
	})
}

func (c *stakingClient) Unstake(ctx context.Context, from common.Address, ids []uint64, accepted bool) (*domain.Receipt, error) {
	return c.transact(ctx, from, func(env *simchain.Env) error {
		return c.stake.Unstake(env, ids, accepted)
	})
}

func (c *stakingClient) Harvest(ctx context.Context, from common.Address, ids []uint64, accepted bool) (*domain.Receipt, error) {
	return c.transact(ctx, from, func(env *simchain.Env) error {
		return c.stake.Harvest(env, ids, accepted)
	})
}

func (c *stakingClient) SetEmissionRate(ctx context.Context, from common.Address, rate *big.Int) (*domain.Receipt, error) {
	return c.transact(ctx, from, func(env *simchain.Env) error {
		return c.stake.SetEmissionRate(env, rate)
	})
}

func (c *stakingClient) RewardOf(ctx context.Context, id uint64) (*big.Int, error) {
	var reward *big.Int
	err := view(ctx, c.chain, c.stake.Address(), func(env *simchain.Env) error {
		reward = c.stake.RewardOf(env, id)
		return nil
	})
	return reward, err
}

func (c *stakingClient) EmissionRate(ctx context.Context) (*big.Int, error) {
	var rate *big.Int
	err := view(ctx, c.chain, c.stake.Address(), func(*simchain.Env) error {
		rate = c.stake.EmissionRate()
		return nil
	})
	return rate, err
}

func (c *stakingClient) StakeReceipt(ctx context.Context, id uint64) (domain.StakeReceipt, error) {
	var r domain.StakeReceipt
	err := view(ctx, c.chain, c.stake.Address(), func(*simchain.Env) error {
		r = c.stake.Receipt(id)
		return nil
	})
	return r, err
}

type nftClient struct {
	chain *simchain.Chain
	nft   *token.ERC721
}

func (c *nftClient) Address() common.Address { return c.nft.Address() }

func (c *nftClient) Approve(ctx context.Context, from, to common.Address, id uint64) (*domain.Receipt, error) {
	return c.chain.Transact(ctx, simchain.Message{From: from, To: c.nft.Address()}, func(env *simchain.Env) error {
		return c.nft.Approve(env, to, id)
	})
}

func (c *nftClient) OwnerOf(ctx context.Context, id uint64) (common.Address, error) {
	var owner common.Address
	err := view(ctx, c.chain, c.nft.Address(), func(*simchain.Env) error {
		var err error
		owner, err = c.nft.OwnerOf(id)
		return err
	})
	return owner, err
}

type tokenClient struct {
	chain *simchain.Chain
	token *token.ERC20
}

func (c *tokenClient) Address() common.Address { return c.token.Address() }

func (c *tokenClient) BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	var bal *big.Int
	err := view(ctx, c.chain, c.token.Address(), func(*simchain.Env) error {
		bal = c.token.BalanceOf(addr)
		return nil
	})
	return bal, err
}
