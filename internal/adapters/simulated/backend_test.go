package simulated

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/logging"
)

func testConfig() *config.RuntimeConfig {
	cfg := config.DefaultRuntimeConfig()
	cfg.Governor.VotingPeriod = 10
	return cfg
}

func TestGovernance(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	b := NewBackend(cfg, logging.Discard())

	dep, err := b.Governance(ctx)
	require.NoError(t, err)

	assert.Equal(t, b.Account(0), dep.TimelockAdmin)
	assert.Equal(t, b.Account(1), dep.Proposer)
	assert.Len(t, dep.Holders, cfg.Simulation.Voters)
	assert.ElementsMatch(t, []string{"governor", "timelock", "receiver", "loot"}, keys(dep.Named))
	assert.Equal(t, dep.Governor.Address(), dep.Named["governor"])

	admin, err := dep.Timelock.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.Account(0), admin)

	guardian, err := dep.Governor.Guardian(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.Account(0), guardian)

	treasury, err := b.GetBalance(ctx, dep.Timelock.Address())
	require.NoError(t, err)
	assert.Equal(t, cfg.Simulation.Treasury, treasury)

	head, err := b.GetBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head.Number, "claims are mined before any proposal")

	again, err := b.Governance(ctx)
	require.NoError(t, err)
	assert.Equal(t, dep.Named, again.Named, "contracts are deployed once")
}

func TestGovernance_TooFewAccounts(t *testing.T) {
	cfg := testConfig()
	cfg.Chain.Accounts = 3
	cfg.Simulation.Voters = 3
	b := NewBackend(cfg, logging.Discard())

	_, err := b.Governance(context.Background())
	assert.ErrorContains(t, err, "need 4 accounts for 3 voters")
}

func TestGovernance_ProposeAndVote(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testConfig(), logging.Discard())
	dep, err := b.Governance(ctx)
	require.NoError(t, err)

	actions := []domain.ProposalAction{{Target: dep.Named["receiver"], Value: big.NewInt(1)}}
	id, receipt, err := dep.Governor.Propose(ctx, dep.Proposer, actions, "pay")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	require.Len(t, receipt.Events(string(domain.EventTypeProposalCreated)), 1)

	st, err := dep.Governor.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatePending, st)

	require.NoError(t, b.MineBlock(ctx))
	_, err = dep.Governor.CastVote(ctx, dep.Holders[1], id, domain.VoteFor)
	require.NoError(t, err)

	ballot, err := dep.Governor.Receipt(ctx, id, dep.Holders[1])
	require.NoError(t, err)
	assert.True(t, ballot.HasVoted)
	assert.Equal(t, big.NewInt(1), ballot.Votes)

	_, err = dep.Governor.CastVote(ctx, dep.Holders[1], id, domain.VoteFor)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestStaking(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	b := NewBackend(cfg, logging.Discard())

	dep, err := b.Staking(ctx)
	require.NoError(t, err)
	gov, err := b.Governance(ctx)
	require.NoError(t, err)

	assert.Equal(t, gov.Timelock.Address(), dep.DAO)
	assert.Equal(t, gov.Named["loot"], dep.NFT.Address())
	assert.Len(t, dep.Stakers, cfg.Simulation.Voters)
	for staker, id := range dep.Stakers {
		owner, err := dep.NFT.OwnerOf(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, staker, owner)
	}

	pool, err := dep.Reward.BalanceOf(ctx, dep.Staking.Address())
	require.NoError(t, err)
	assert.Equal(t, cfg.Staking.RewardPool, pool)

	rate, err := dep.Staking.EmissionRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.Staking.EmissionRate, rate)

	_, err = dep.Staking.SetEmissionRate(ctx, b.Account(0), big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
