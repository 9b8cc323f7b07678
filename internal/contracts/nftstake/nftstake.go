// Package nftstake locks NFTs and pays a per-block reward in an ERC-20
// held by the contract. Every mutating call takes an explicit terms flag.
package nftstake

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/simchain"
)

// NFT is the staked collection.
type NFT interface {
	Address() common.Address
	TransferFrom(env *simchain.Env, from, to common.Address, id uint64) error
}

// RewardToken is the token rewards are paid in.
type RewardToken interface {
	Address() common.Address
	BalanceOf(addr common.Address) *big.Int
	Transfer(env *simchain.Env, to common.Address, amount *big.Int) error
}

const (
	reasonTerms    = "nftstake: must accept terms of service"
	reasonNotOwner = "nftstake: not owner"
	reasonOnlyDAO  = "nftstake: only dao"
	reasonTokenID  = "nftstake: invalid token id"
)

type state struct {
	receipts map[uint64]domain.StakeReceipt
	rates    []domain.RateChange
}

func (s *state) clone() *state {
	c := &state{
		receipts: make(map[uint64]domain.StakeReceipt, len(s.receipts)),
		rates:    make([]domain.RateChange, len(s.rates)),
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	for i, r := range s.rates {
		c.rates[i] = domain.RateChange{FromBlock: r.FromBlock, Rate: new(big.Int).Set(r.Rate)}
	}
	return c
}

// NftStake is the staking contract.
type NftStake struct {
	address common.Address
	dao     common.Address
	nft     NFT
	reward  RewardToken
	state   *state
}

// New deploys a staking contract paying rate reward units per block. Only
// dao may change the rate later.
func New(env *simchain.Env, nft NFT, reward RewardToken, rate *big.Int, dao common.Address) (*NftStake, error) {
	if rate == nil || rate.Sign() < 0 {
		return nil, domain.Revert(domain.ErrInvalidArgument, "nftstake: invalid emission rate")
	}
	return &NftStake{
		address: env.Self,
		dao:     dao,
		nft:     nft,
		reward:  reward,
		state: &state{
			receipts: make(map[uint64]domain.StakeReceipt),
			rates:    []domain.RateChange{{FromBlock: env.Block.Number, Rate: new(big.Int).Set(rate)}},
		},
	}, nil
}

func (s *NftStake) Address() common.Address { return s.address }
func (s *NftStake) DAO() common.Address     { return s.dao }

func (s *NftStake) Snapshot() any { return s.state.clone() }

func (s *NftStake) Restore(st any) { s.state = st.(*state) }

func (s *NftStake) Methods() simchain.Methods {
	batch := func(fn func(*simchain.Env, []uint64, bool) error) simchain.Handler {
		return func(env *simchain.Env, args []any) ([]byte, error) {
			ids, err := simchain.Uint64s(args[0], reasonTokenID)
			if err != nil {
				return nil, err
			}
			return nil, fn(env, ids, args[1].(bool))
		}
	}
	return simchain.NewMethods(
		simchain.Func("stake(uint256[],bool)", batch(s.Stake)),
		simchain.Func("unstake(uint256[],bool)", batch(s.Unstake)),
		simchain.Func("harvest(uint256[],bool)", batch(s.Harvest)),
		simchain.Func("setEmissionRate(uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			return nil, s.SetEmissionRate(env, args[0].(*big.Int))
		}),
	)
}

// Stake takes custody of each token and starts its accrual at the current
// block. The caller must have approved this contract on the NFT.
func (s *NftStake) Stake(env *simchain.Env, ids []uint64, accepted bool) error {
	if !accepted {
		return domain.Revert(domain.ErrTermsNotAccepted, reasonTerms)
	}
	nftEnv := env.Frame(s.nft.Address())
	for _, id := range ids {
		if err := s.nft.TransferFrom(nftEnv, env.Sender, s.address, id); err != nil {
			return err
		}
		if s.state.receipts[id].Active() {
			return domain.Revert(domain.ErrDuplicate, "nftstake: token already staked")
		}
		s.state.receipts[id] = domain.StakeReceipt{TokenID: id, Owner: env.Sender, From: env.Block.Number}
		env.Emit(domain.StakeEvent{Type: domain.EventTypeStaked, Owner: env.Sender, TokenID: id, Reward: new(big.Int)})
	}
	return nil
}

// Unstake returns each token to its owner and pays what it accrued. A
// reward the pool cannot cover is skipped; the token is returned anyway.
func (s *NftStake) Unstake(env *simchain.Env, ids []uint64, accepted bool) error {
	if !accepted {
		return domain.Revert(domain.ErrTermsNotAccepted, reasonTerms)
	}
	for _, id := range ids {
		r, err := s.ownedReceipt(env, id)
		if err != nil {
			return err
		}

		reward := s.accrued(r.From, env.Block.Number)
		paid := new(big.Int)
		if reward.Sign() > 0 && reward.Cmp(s.reward.BalanceOf(s.address)) <= 0 {
			if err := s.reward.Transfer(env.Frame(s.reward.Address()), r.Owner, reward); err != nil {
				return err
			}
			paid = reward
		}

		if err := s.nft.TransferFrom(env.Frame(s.nft.Address()), s.address, r.Owner, id); err != nil {
			return err
		}
		delete(s.state.receipts, id)
		env.Emit(domain.StakeEvent{Type: domain.EventTypeUnstaked, Owner: r.Owner, TokenID: id, Reward: paid})
	}
	return nil
}

// Harvest pays the accrued reward of each token and restarts its accrual
// at the current block. The tokens stay staked.
func (s *NftStake) Harvest(env *simchain.Env, ids []uint64, accepted bool) error {
	if !accepted {
		return domain.Revert(domain.ErrTermsNotAccepted, reasonTerms)
	}
	for _, id := range ids {
		r, err := s.ownedReceipt(env, id)
		if err != nil {
			return err
		}

		reward := s.accrued(r.From, env.Block.Number)
		if reward.Sign() > 0 {
			if err := s.reward.Transfer(env.Frame(s.reward.Address()), r.Owner, reward); err != nil {
				return err
			}
		}
		r.From = env.Block.Number
		s.state.receipts[id] = r
		env.Emit(domain.StakeEvent{Type: domain.EventTypeHarvested, Owner: r.Owner, TokenID: id, Reward: reward})
	}
	return nil
}

// SetEmissionRate changes the rate from the current block on. Blocks
// before it keep the rate they accrued at.
func (s *NftStake) SetEmissionRate(env *simchain.Env, rate *big.Int) error {
	if env.Sender != s.dao {
		return domain.Revert(domain.ErrUnauthorized, reasonOnlyDAO)
	}
	if rate == nil || rate.Sign() < 0 {
		return domain.Revert(domain.ErrInvalidArgument, "nftstake: invalid emission rate")
	}

	change := domain.RateChange{FromBlock: env.Block.Number, Rate: new(big.Int).Set(rate)}
	if last := len(s.state.rates) - 1; s.state.rates[last].FromBlock == change.FromBlock {
		s.state.rates[last] = change
	} else {
		s.state.rates = append(s.state.rates, change)
	}
	env.Emit(domain.EmissionRateSetEvent{Rate: new(big.Int).Set(rate), Block: env.Block.Number})
	return nil
}

// RewardOf is what id has accrued by the head block, or zero if it is not staked.
func (s *NftStake) RewardOf(env *simchain.Env, id uint64) *big.Int {
	r, ok := s.state.receipts[id]
	if !ok {
		return new(big.Int)
	}
	return s.accrued(r.From, env.Block.Number)
}

// EmissionRate is the rate in effect now.
func (s *NftStake) EmissionRate() *big.Int {
	return new(big.Int).Set(s.state.rates[len(s.state.rates)-1].Rate)
}

// RateHistory returns every rate change, oldest first.
func (s *NftStake) RateHistory() []domain.RateChange {
	return s.Snapshot().(*state).rates
}

// Receipt returns the stake receipt of id; a zero receipt means not staked.
func (s *NftStake) Receipt(id uint64) domain.StakeReceipt {
	return s.state.receipts[id]
}

// StakedBy lists the tokens owner has staked.
func (s *NftStake) StakedBy(owner common.Address) []uint64 {
	ids := lo.FilterMap(lo.Values(s.state.receipts), func(r domain.StakeReceipt, _ int) (uint64, bool) {
		return r.TokenID, r.Owner == owner
	})
	slices.Sort(ids)
	return ids
}

func (s *NftStake) ownedReceipt(env *simchain.Env, id uint64) (domain.StakeReceipt, error) {
	r, ok := s.state.receipts[id]
	if !ok || r.Owner != env.Sender {
		return domain.StakeReceipt{}, domain.Revert(domain.ErrUnauthorized, reasonNotOwner)
	}
	return r, nil
}

// accrued sums blocks [from, to) at the rate in effect for each block.
func (s *NftStake) accrued(from, to uint64) *big.Int {
	total := new(big.Int)
	rates := s.state.rates
	for i, rc := range rates {
		start := max(rc.FromBlock, from)
		end := to
		if i+1 < len(rates) {
			end = min(rates[i+1].FromBlock, to)
		}
		if end <= start {
			continue
		}
		blocks := new(big.Int).SetUint64(end - start)
		total.Add(total, blocks.Mul(blocks, rc.Rate))
	}
	return total
}
