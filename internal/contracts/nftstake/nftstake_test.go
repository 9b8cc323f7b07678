package nftstake_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dopedao/govsim/internal/contracts/nftstake"
	"github.com/dopedao/govsim/internal/contracts/token"
	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/simchain"
	"github.com/dopedao/govsim/internal/simchain/simtest"
)

const (
	emission = 10
	pool     = 10_000
)

type fixture struct {
	chain *simchain.Chain
	nft   *token.ERC721
	paper *token.ERC20
	stake *nftstake.NftStake

	user1 common.Address
	user2 common.Address
	dao   common.Address
}

// newFixture gives user1 token 1 and user2 token 2 and funds the reward pool.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	chain := simtest.NewChain(t)
	f := &fixture{
		chain: chain,
		user1: chain.Account(1),
		user2: chain.Account(2),
		dao:   chain.Account(5),
	}
	admin := chain.Account(0)

	f.nft = simtest.Deploy(t, chain, admin, func(env *simchain.Env) (*token.ERC721, error) {
		return token.NewERC721(env, "DOPE", "DOPE", 8000)
	})
	f.paper = simtest.Deploy(t, chain, admin, func(env *simchain.Env) (*token.ERC20, error) {
		return token.NewERC20(env, "Paper", "PAPER")
	})
	f.stake = simtest.Deploy(t, chain, admin, func(env *simchain.Env) (*nftstake.NftStake, error) {
		return nftstake.New(env, f.nft, f.paper, big.NewInt(emission), f.dao)
	})
	simtest.MustSend(t, chain, admin, f.paper.Address(), func(env *simchain.Env) error {
		return f.paper.Mint(env, f.stake.Address(), big.NewInt(pool))
	})
	for i, user := range []common.Address{f.user1, f.user2} {
		id := uint64(i + 1)
		simtest.MustSend(t, chain, user, f.nft.Address(), func(env *simchain.Env) error {
			return f.nft.Claim(env, id)
		})
	}
	simtest.Mine(t, chain, 1)
	return f
}

func (f *fixture) approve(t *testing.T, from common.Address, id uint64) {
	t.Helper()
	simtest.MustSend(t, f.chain, from, f.nft.Address(), func(env *simchain.Env) error {
		return f.nft.Approve(env, f.stake.Address(), id)
	})
}

func (f *fixture) call(t *testing.T, from common.Address, fn func(env *simchain.Env) error) error {
	t.Helper()
	return simtest.Send(t, f.chain, from, f.stake.Address(), fn)
}

func (f *fixture) stakeTokens(t *testing.T, from common.Address, accepted bool, ids ...uint64) error {
	t.Helper()
	return f.call(t, from, func(env *simchain.Env) error { return f.stake.Stake(env, ids, accepted) })
}

func (f *fixture) unstake(t *testing.T, from common.Address, accepted bool, ids ...uint64) error {
	t.Helper()
	return f.call(t, from, func(env *simchain.Env) error { return f.stake.Unstake(env, ids, accepted) })
}

func (f *fixture) harvest(t *testing.T, from common.Address, accepted bool, ids ...uint64) error {
	t.Helper()
	return f.call(t, from, func(env *simchain.Env) error { return f.stake.Harvest(env, ids, accepted) })
}

func (f *fixture) setRate(t *testing.T, from common.Address, rate int64) error {
	t.Helper()
	return f.call(t, from, func(env *simchain.Env) error { return f.stake.SetEmissionRate(env, big.NewInt(rate)) })
}

func (f *fixture) rewardOf(t *testing.T, id uint64) int64 {
	t.Helper()
	var reward *big.Int
	simtest.View(t, f.chain, f.stake.Address(), func(env *simchain.Env) error {
		reward = f.stake.RewardOf(env, id)
		return nil
	})
	return reward.Int64()
}

func (f *fixture) ownerOf(t *testing.T, id uint64) common.Address {
	t.Helper()
	owner, err := f.nft.OwnerOf(id)
	require.NoError(t, err)
	return owner
}

func (f *fixture) paid(user common.Address) int64 {
	return f.paper.BalanceOf(user).Int64()
}

func TestStake(t *testing.T) {
	f := newFixture(t)

	err := f.stakeTokens(t, f.user1, true, 1)
	simtest.RequireRevert(t, err, "ERC721: transfer caller is not owner nor approved")

	f.approve(t, f.user1, 1)
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))
	assert.Equal(t, f.stake.Address(), f.ownerOf(t, 1))

	r := f.stake.Receipt(1)
	assert.Equal(t, f.user1, r.Owner)
	assert.Equal(t, f.chain.Head().Number, r.From)
	assert.Equal(t, []uint64{1}, f.stake.StakedBy(f.user1))
}

func TestStakeTwice(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))

	err := f.stakeTokens(t, f.user1, true, 1)
	simtest.RequireRevert(t, err, "ERC721: transfer of token that is not own")
}

func TestStakeTokenNotOwned(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)

	err := f.stakeTokens(t, f.user2, true, 1)
	require.Error(t, err)
	assert.True(t, domain.IsRevert(err))
	assert.Equal(t, f.user1, f.ownerOf(t, 1))
}

func TestTermsAreCheckedFirst(t *testing.T) {
	f := newFixture(t)

	err := f.stakeTokens(t, f.user2, false, 1)
	simtest.RequireRevert(t, err, "nftstake: must accept terms of service")
	assert.ErrorIs(t, err, domain.ErrTermsNotAccepted)

	err = f.unstake(t, f.user2, false, 1)
	simtest.RequireRevert(t, err, "nftstake: must accept terms of service")
	err = f.harvest(t, f.user2, false, 1)
	simtest.RequireRevert(t, err, "nftstake: must accept terms of service")
}

func TestUnstake(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))

	simtest.Mine(t, f.chain, 1)
	estimated := int64(f.chain.Head().Number-f.stake.Receipt(1).From) * emission
	assert.Equal(t, estimated, f.rewardOf(t, 1))

	err := f.unstake(t, f.user2, true, 1)
	simtest.RequireRevert(t, err, "nftstake: not owner")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.unstake(t, f.user1, true, 1))
	assert.Equal(t, f.user1, f.ownerOf(t, 1))
	assert.Equal(t, estimated, f.paid(f.user1))
	assert.False(t, f.stake.Receipt(1).Active())
	assert.Zero(t, f.rewardOf(t, 1))
}

func TestUnstakeSameBlock(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))
	assert.Zero(t, f.rewardOf(t, 1))

	require.NoError(t, f.unstake(t, f.user1, true, 1))
	assert.Equal(t, f.user1, f.ownerOf(t, 1))
	assert.Zero(t, f.paid(f.user1))
}

func TestRewardOfUnstakedToken(t *testing.T) {
	f := newFixture(t)
	assert.Zero(t, f.rewardOf(t, 9999))
}

func TestRewardAccruesPerBlock(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))

	simtest.Mine(t, f.chain, 4)
	assert.Equal(t, int64(4*emission), f.rewardOf(t, 1))
}

func TestHarvest(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))
	simtest.Mine(t, f.chain, 4)

	earned := f.rewardOf(t, 1)
	assert.Equal(t, uint64(4), f.chain.Head().Number-f.stake.Receipt(1).From)
	assert.Zero(t, f.paid(f.user1))

	err := f.harvest(t, f.user2, true, 1)
	simtest.RequireRevert(t, err, "nftstake: not owner")

	require.NoError(t, f.harvest(t, f.user1, true, 1))
	assert.Equal(t, earned, f.paid(f.user1))
	assert.Equal(t, f.chain.Head().Number, f.stake.Receipt(1).From)
	assert.Zero(t, f.rewardOf(t, 1))
	assert.Equal(t, f.stake.Address(), f.ownerOf(t, 1))

	simtest.Mine(t, f.chain, 1)
	assert.Equal(t, int64(emission), f.rewardOf(t, 1))
}

func TestUnstakeWhenRewardExceedsPool(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)
	require.NoError(t, f.setRate(t, f.dao, 10_000))
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))
	simtest.Mine(t, f.chain, 2)

	require.NoError(t, f.unstake(t, f.user1, true, 1))
	assert.Equal(t, f.user1, f.ownerOf(t, 1))
	assert.Zero(t, f.paid(f.user1))
	assert.Equal(t, int64(pool), f.paid(f.stake.Address()))
}

func TestHarvestWhenRewardExceedsPool(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)
	require.NoError(t, f.setRate(t, f.dao, 10_000))
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))
	simtest.Mine(t, f.chain, 2)

	err := f.harvest(t, f.user1, true, 1)
	simtest.RequireRevert(t, err, "ERC20: transfer amount exceeds balance")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(20_000), f.rewardOf(t, 1))
}

func TestSetEmissionRate(t *testing.T) {
	f := newFixture(t)

	err := f.setRate(t, f.user1, 1)
	simtest.RequireRevert(t, err, "nftstake: only dao")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	f.approve(t, f.user1, 1)
	require.NoError(t, f.stakeTokens(t, f.user1, true, 1))
	simtest.Mine(t, f.chain, 2)

	// two blocks at 10, then three at 20
	require.NoError(t, f.setRate(t, f.dao, 30))
	require.NoError(t, f.setRate(t, f.dao, 20))
	simtest.Mine(t, f.chain, 3)
	assert.Equal(t, int64(2*10+3*20), f.rewardOf(t, 1))
	assert.Equal(t, int64(20), f.stake.EmissionRate().Int64())
	assert.Len(t, f.stake.RateHistory(), 2)

	require.NoError(t, f.harvest(t, f.user1, true, 1))
	assert.Equal(t, int64(80), f.paid(f.user1))
}

func TestBatchStakeByCalldata(t *testing.T) {
	f := newFixture(t)
	simtest.MustSend(t, f.chain, f.user1, f.nft.Address(), func(env *simchain.Env) error {
		return f.nft.SetApprovalForAll(env, f.stake.Address(), true)
	})
	simtest.MustSend(t, f.chain, f.user1, f.nft.Address(), func(env *simchain.Env) error {
		return f.nft.Claim(env, 3)
	})

	sig := "stake(uint256[],bool)"
	data, err := simchain.EncodeCall(sig, []*big.Int{big.NewInt(1), big.NewInt(3)}, true)
	require.NoError(t, err)
	receipt, err := f.chain.Invoke(t.Context(), simchain.Message{From: f.user1, To: f.stake.Address()},
		append(simchain.Selector(sig), data...))
	require.NoError(t, err)

	assert.Len(t, receipt.Events(string(domain.EventTypeStaked)), 2)
	assert.Equal(t, []uint64{1, 3}, f.stake.StakedBy(f.user1))
}

func TestStakeTokenIDBeyondUint64(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)

	// 2^64 + 1 must not be read as token 1
	wide := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
	sig := "stake(uint256[],bool)"
	data, err := simchain.EncodeCall(sig, []*big.Int{wide}, true)
	require.NoError(t, err)
	_, err = f.chain.Invoke(t.Context(), simchain.Message{From: f.user1, To: f.stake.Address()},
		append(simchain.Selector(sig), data...))
	simtest.RequireRevert(t, err, "nftstake: invalid token id")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Empty(t, f.stake.StakedBy(f.user1))
}

func TestBatchIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.approve(t, f.user1, 1)

	// token 2 belongs to user2
	err := f.stakeTokens(t, f.user1, true, 1, 2)
	require.Error(t, err)
	assert.Equal(t, f.user1, f.ownerOf(t, 1))
	assert.False(t, f.stake.Receipt(1).Active())
}
