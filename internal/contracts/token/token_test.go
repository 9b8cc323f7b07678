package token_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dopedao/govsim/internal/contracts/token"
	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/simchain"
	"github.com/dopedao/govsim/internal/simchain/simtest"
)

func deployLoot(t *testing.T, chain *simchain.Chain) *token.ERC721 {
	t.Helper()
	return simtest.Deploy(t, chain, chain.Account(0), func(env *simchain.Env) (*token.ERC721, error) {
		return token.NewERC721(env, "DOPE", "DOPE", 8000)
	})
}

func TestERC721Claim(t *testing.T) {
	chain := simtest.NewChain(t)
	loot := deployLoot(t, chain)
	alice := chain.Account(1)

	simtest.MustSend(t, chain, alice, loot.Address(), func(env *simchain.Env) error {
		return loot.Claim(env, 1)
	})

	err := simtest.Send(t, chain, chain.Account(2), loot.Address(), func(env *simchain.Env) error {
		return loot.Claim(env, 1)
	})
	simtest.RequireRevert(t, err, "ERC721: token already minted")
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	err = simtest.Send(t, chain, alice, loot.Address(), func(env *simchain.Env) error {
		return loot.Claim(env, 8001)
	})
	simtest.RequireRevert(t, err, "Token ID invalid")

	simtest.View(t, chain, loot.Address(), func(env *simchain.Env) error {
		owner, err := loot.OwnerOf(1)
		require.NoError(t, err)
		assert.Equal(t, alice, owner)
		assert.Equal(t, uint64(1), loot.BalanceOf(alice))
		return nil
	})
}

func TestERC721TransferChecks(t *testing.T) {
	chain := simtest.NewChain(t)
	loot := deployLoot(t, chain)
	alice, bob, operator := chain.Account(1), chain.Account(2), chain.Account(3)

	simtest.MustSend(t, chain, alice, loot.Address(), func(env *simchain.Env) error {
		return loot.Claim(env, 7)
	})

	t.Run("approval is checked before ownership", func(t *testing.T) {
		err := simtest.Send(t, chain, operator, loot.Address(), func(env *simchain.Env) error {
			return loot.TransferFrom(env, bob, operator, 7)
		})
		simtest.RequireRevert(t, err, "ERC721: transfer caller is not owner nor approved")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("approved operator with wrong from", func(t *testing.T) {
		simtest.MustSend(t, chain, alice, loot.Address(), func(env *simchain.Env) error {
			return loot.Approve(env, operator, 7)
		})
		err := simtest.Send(t, chain, operator, loot.Address(), func(env *simchain.Env) error {
			return loot.TransferFrom(env, bob, operator, 7)
		})
		simtest.RequireRevert(t, err, "ERC721: transfer of token that is not own")
	})

	t.Run("approved transfer clears approval", func(t *testing.T) {
		simtest.MustSend(t, chain, operator, loot.Address(), func(env *simchain.Env) error {
			return loot.TransferFrom(env, alice, bob, 7)
		})
		simtest.View(t, chain, loot.Address(), func(env *simchain.Env) error {
			owner, _ := loot.OwnerOf(7)
			assert.Equal(t, bob, owner)
			assert.Equal(t, common.Address{}, loot.GetApproved(7))
			assert.Zero(t, loot.BalanceOf(alice))
			return nil
		})
	})

	t.Run("operator for all", func(t *testing.T) {
		simtest.MustSend(t, chain, bob, loot.Address(), func(env *simchain.Env) error {
			return loot.SetApprovalForAll(env, operator, true)
		})
		simtest.MustSend(t, chain, operator, loot.Address(), func(env *simchain.Env) error {
			return loot.TransferFrom(env, bob, alice, 7)
		})
	})

	t.Run("nonexistent token", func(t *testing.T) {
		err := simtest.Send(t, chain, alice, loot.Address(), func(env *simchain.Env) error {
			return loot.Approve(env, bob, 99)
		})
		simtest.RequireRevert(t, err, "ERC721: owner query for nonexistent token")
	})
}

func TestERC721Votes(t *testing.T) {
	chain := simtest.NewChain(t)
	loot := deployLoot(t, chain)
	alice, bob := chain.Account(1), chain.Account(2)

	// block 0: alice claims two tokens
	simtest.MustSend(t, chain, alice, loot.Address(), func(env *simchain.Env) error {
		if err := loot.Claim(env, 1); err != nil {
			return err
		}
		return loot.Claim(env, 2)
	})
	simtest.Mine(t, chain, 1)

	// block 1: one token moves to bob
	simtest.MustSend(t, chain, alice, loot.Address(), func(env *simchain.Env) error {
		return loot.TransferFrom(env, alice, bob, 2)
	})

	t.Run("current block is not final", func(t *testing.T) {
		err := chain.Call(t.Context(), alice, loot.Address(), func(env *simchain.Env) error {
			_, err := loot.GetPriorVotes(env, alice, 1)
			return err
		})
		simtest.RequireRevert(t, err, "ERC721Checkpointable::getPriorVotes: not yet determined")
		assert.ErrorIs(t, err, domain.ErrTooEarly)
	})

	simtest.Mine(t, chain, 1)

	simtest.View(t, chain, loot.Address(), func(env *simchain.Env) error {
		at0, err := loot.GetPriorVotes(env, alice, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), at0.Int64())

		at1, err := loot.GetPriorVotes(env, alice, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), at1.Int64())

		bobAt0, err := loot.GetPriorVotes(env, bob, 0)
		require.NoError(t, err)
		assert.Zero(t, bobAt0.Sign())

		assert.Equal(t, int64(1), loot.GetCurrentVotes(bob).Int64())
		return nil
	})
}

func TestERC20(t *testing.T) {
	chain := simtest.NewChain(t)
	minter, alice, bob := chain.Account(0), chain.Account(1), chain.Account(2)
	paper := simtest.Deploy(t, chain, minter, func(env *simchain.Env) (*token.ERC20, error) {
		return token.NewERC20(env, "Paper", "PAPER")
	})

	err := simtest.Send(t, chain, alice, paper.Address(), func(env *simchain.Env) error {
		return paper.Mint(env, alice, big.NewInt(100))
	})
	simtest.RequireRevert(t, err, "Ownable: caller is not the owner")

	simtest.MustSend(t, chain, minter, paper.Address(), func(env *simchain.Env) error {
		return paper.Mint(env, alice, big.NewInt(100))
	})

	err = simtest.Send(t, chain, alice, paper.Address(), func(env *simchain.Env) error {
		return paper.Transfer(env, bob, big.NewInt(101))
	})
	simtest.RequireRevert(t, err, "ERC20: transfer amount exceeds balance")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	simtest.MustSend(t, chain, alice, paper.Address(), func(env *simchain.Env) error {
		return paper.Transfer(env, bob, big.NewInt(40))
	})

	simtest.View(t, chain, paper.Address(), func(env *simchain.Env) error {
		assert.Equal(t, int64(60), paper.BalanceOf(alice).Int64())
		assert.Equal(t, int64(40), paper.BalanceOf(bob).Int64())
		assert.Equal(t, int64(100), paper.TotalSupply().Int64())
		return nil
	})
}

func TestERC721ClaimBeyondUint64ByCalldata(t *testing.T) {
	chain := simtest.NewChain(t)
	loot := deployLoot(t, chain)
	alice := chain.Account(1)

	// 2^64 + 1 must not be read as token 1
	wide := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
	args, err := simchain.EncodeCall("claim(uint256)", wide)
	require.NoError(t, err)
	_, err = chain.Invoke(t.Context(), simchain.Message{From: alice, To: loot.Address()},
		append(simchain.Selector("claim(uint256)"), args...))
	simtest.RequireRevert(t, err, "Token ID invalid")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	simtest.View(t, chain, loot.Address(), func(env *simchain.Env) error {
		assert.Zero(t, loot.BalanceOf(alice))
		return nil
	})
}

func TestERC20TransferByCalldata(t *testing.T) {
	chain := simtest.NewChain(t)
	minter, bob := chain.Account(0), chain.Account(2)
	paper := simtest.Deploy(t, chain, minter, func(env *simchain.Env) (*token.ERC20, error) {
		return token.NewERC20(env, "Paper", "PAPER")
	})
	simtest.MustSend(t, chain, minter, paper.Address(), func(env *simchain.Env) error {
		return paper.Mint(env, minter, big.NewInt(10))
	})

	args, err := simchain.EncodeCall("transfer(address,uint256)", bob, big.NewInt(4))
	require.NoError(t, err)
	_, err = chain.Invoke(t.Context(), simchain.Message{From: minter, To: paper.Address()},
		append(simchain.Selector("transfer(address,uint256)"), args...))
	require.NoError(t, err)

	simtest.View(t, chain, paper.Address(), func(env *simchain.Env) error {
		assert.Equal(t, int64(4), paper.BalanceOf(bob).Int64())
		return nil
	})
}
