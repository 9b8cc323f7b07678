// Package token holds minimal ERC-20 and ERC-721 ledgers for the
// simulated chain. Methods without an Env argument are views and must run
// inside a simchain transaction or call.
package token

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/simchain"
)

type checkpoint struct {
	fromBlock uint64
	votes     uint64
}

type erc721State struct {
	owners      map[uint64]common.Address
	balances    map[common.Address]uint64
	approvals   map[uint64]common.Address
	operators   map[common.Address]map[common.Address]bool
	checkpoints map[common.Address][]checkpoint
}

func (s *erc721State) clone() *erc721State {
	c := &erc721State{
		owners:      make(map[uint64]common.Address, len(s.owners)),
		balances:    make(map[common.Address]uint64, len(s.balances)),
		approvals:   make(map[uint64]common.Address, len(s.approvals)),
		operators:   make(map[common.Address]map[common.Address]bool, len(s.operators)),
		checkpoints: make(map[common.Address][]checkpoint, len(s.checkpoints)),
	}
	for k, v := range s.owners {
		c.owners[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.approvals {
		c.approvals[k] = v
	}
	for owner, ops := range s.operators {
		m := make(map[common.Address]bool, len(ops))
		for op, ok := range ops {
			m[op] = ok
		}
		c.operators[owner] = m
	}
	for k, v := range s.checkpoints {
		c.checkpoints[k] = append([]checkpoint(nil), v...)
	}
	return c
}

// ERC721 is a loot-style NFT whose holders get one vote per token.
type ERC721 struct {
	address   common.Address
	owner     common.Address
	name      string
	symbol    string
	maxSupply uint64
	state     *erc721State
}

// NewERC721 is the constructor; the deployer becomes the minter.
func NewERC721(env *simchain.Env, name, symbol string, maxSupply uint64) (*ERC721, error) {
	return &ERC721{
		address:   env.Self,
		owner:     env.Sender,
		name:      name,
		symbol:    symbol,
		maxSupply: maxSupply,
		state: &erc721State{
			owners:      make(map[uint64]common.Address),
			balances:    make(map[common.Address]uint64),
			approvals:   make(map[uint64]common.Address),
			operators:   make(map[common.Address]map[common.Address]bool),
			checkpoints: make(map[common.Address][]checkpoint),
		},
	}, nil
}

func (t *ERC721) Address() common.Address { return t.address }
func (t *ERC721) Name() string            { return t.name }
func (t *ERC721) Symbol() string          { return t.symbol }

func (t *ERC721) Snapshot() any { return t.state.clone() }

func (t *ERC721) Restore(state any) { t.state = state.(*erc721State) }

func (t *ERC721) Methods() simchain.Methods {
	return simchain.NewMethods(
		simchain.Func("claim(uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			id, err := tokenID(args[0])
			if err != nil {
				return nil, err
			}
			return nil, t.Claim(env, id)
		}),
		simchain.Func("approve(address,uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			id, err := tokenID(args[1])
			if err != nil {
				return nil, err
			}
			return nil, t.Approve(env, args[0].(common.Address), id)
		}),
		simchain.Func("setApprovalForAll(address,bool)", func(env *simchain.Env, args []any) ([]byte, error) {
			return nil, t.SetApprovalForAll(env, args[0].(common.Address), args[1].(bool))
		}),
		simchain.Func("transferFrom(address,address,uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			id, err := tokenID(args[2])
			if err != nil {
				return nil, err
			}
			return nil, t.TransferFrom(env, args[0].(common.Address), args[1].(common.Address), id)
		}),
	)
}

func tokenID(v any) (uint64, error) {
	return simchain.Uint64(v, "Token ID invalid")
}

// Claim mints id to the caller if it is within the claimable range.
func (t *ERC721) Claim(env *simchain.Env, id uint64) error {
	if id == 0 || id > t.maxSupply {
		return domain.Revert(domain.ErrInvalidArgument, "Token ID invalid")
	}
	return t.mint(env, env.Sender, id)
}

// Mint mints id to `to`. Only the deployer may mint.
func (t *ERC721) Mint(env *simchain.Env, to common.Address, id uint64) error {
	if env.Sender != t.owner {
		return domain.Revert(domain.ErrUnauthorized, "Ownable: caller is not the owner")
	}
	return t.mint(env, to, id)
}

func (t *ERC721) mint(env *simchain.Env, to common.Address, id uint64) error {
	if to == (common.Address{}) {
		return domain.Revert(domain.ErrInvalidArgument, "ERC721: mint to the zero address")
	}
	if _, ok := t.state.owners[id]; ok {
		return domain.Revert(domain.ErrDuplicate, "ERC721: token already minted")
	}
	t.state.owners[id] = to
	t.state.balances[to]++
	t.moveVotes(env, common.Address{}, to)
	env.Emit(domain.TransferEvent{To: to, Amount: new(big.Int).SetUint64(id)})
	return nil
}

// Approve lets `to` transfer id on the owner's behalf.
func (t *ERC721) Approve(env *simchain.Env, to common.Address, id uint64) error {
	owner, err := t.OwnerOf(id)
	if err != nil {
		return err
	}
	if to == owner {
		return domain.Revert(domain.ErrInvalidArgument, "ERC721: approval to current owner")
	}
	if env.Sender != owner && !t.IsApprovedForAll(owner, env.Sender) {
		return domain.Revert(domain.ErrUnauthorized, "ERC721: approve caller is not owner nor approved for all")
	}
	t.state.approvals[id] = to
	env.Emit(domain.ApprovalEvent{Owner: owner, Approved: to, TokenID: id})
	return nil
}

// SetApprovalForAll grants or revokes operator rights over all the caller's tokens.
func (t *ERC721) SetApprovalForAll(env *simchain.Env, operator common.Address, approved bool) error {
	if operator == env.Sender {
		return domain.Revert(domain.ErrInvalidArgument, "ERC721: approve to caller")
	}
	ops, ok := t.state.operators[env.Sender]
	if !ok {
		ops = make(map[common.Address]bool)
		t.state.operators[env.Sender] = ops
	}
	ops[operator] = approved
	return nil
}

// TransferFrom moves id from `from` to `to`. The approval check comes
// before the ownership check.
func (t *ERC721) TransferFrom(env *simchain.Env, from, to common.Address, id uint64) error {
	owner, ok := t.state.owners[id]
	if !ok {
		return domain.Revert(domain.ErrNotFound, "ERC721: operator query for nonexistent token")
	}
	spender := env.Sender
	if spender != owner && t.state.approvals[id] != spender && !t.IsApprovedForAll(owner, spender) {
		return domain.Revert(domain.ErrUnauthorized, "ERC721: transfer caller is not owner nor approved")
	}
	if owner != from {
		return domain.Revert(domain.ErrUnauthorized, "ERC721: transfer of token that is not own")
	}
	if to == (common.Address{}) {
		return domain.Revert(domain.ErrInvalidArgument, "ERC721: transfer to the zero address")
	}

	delete(t.state.approvals, id)
	t.state.balances[from]--
	t.state.balances[to]++
	t.state.owners[id] = to
	t.moveVotes(env, from, to)
	env.Emit(domain.TransferEvent{From: from, To: to, Amount: new(big.Int).SetUint64(id)})
	return nil
}

// OwnerOf returns the holder of id.
func (t *ERC721) OwnerOf(id uint64) (common.Address, error) {
	owner, ok := t.state.owners[id]
	if !ok {
		return common.Address{}, domain.Revert(domain.ErrNotFound, "ERC721: owner query for nonexistent token")
	}
	return owner, nil
}

// BalanceOf returns how many tokens addr holds.
func (t *ERC721) BalanceOf(addr common.Address) uint64 {
	return t.state.balances[addr]
}

// GetApproved returns the single-token approval for id.
func (t *ERC721) GetApproved(id uint64) common.Address {
	return t.state.approvals[id]
}

func (t *ERC721) IsApprovedForAll(owner, operator common.Address) bool {
	return t.state.operators[owner][operator]
}

// GetCurrentVotes returns the latest checkpointed votes of account.
func (t *ERC721) GetCurrentVotes(account common.Address) *big.Int {
	cps := t.state.checkpoints[account]
	if len(cps) == 0 {
		return new(big.Int)
	}
	return new(big.Int).SetUint64(cps[len(cps)-1].votes)
}

// GetPriorVotes returns the votes of account at the end of block. The
// block must be final, i.e. before the head.
func (t *ERC721) GetPriorVotes(env *simchain.Env, account common.Address, block uint64) (*big.Int, error) {
	if block >= env.Block.Number {
		return nil, domain.Revert(domain.ErrTooEarly, "ERC721Checkpointable::getPriorVotes: not yet determined")
	}
	cps := t.state.checkpoints[account]
	// first checkpoint after block
	i := sort.Search(len(cps), func(i int) bool { return cps[i].fromBlock > block })
	if i == 0 {
		return new(big.Int), nil
	}
	return new(big.Int).SetUint64(cps[i-1].votes), nil
}

func (t *ERC721) moveVotes(env *simchain.Env, from, to common.Address) {
	if from != (common.Address{}) {
		t.writeCheckpoint(env.Block.Number, from, t.state.balances[from])
	}
	if to != (common.Address{}) {
		t.writeCheckpoint(env.Block.Number, to, t.state.balances[to])
	}
}

func (t *ERC721) writeCheckpoint(block uint64, account common.Address, votes uint64) {
	cps := t.state.checkpoints[account]
	if n := len(cps); n > 0 && cps[n-1].fromBlock == block {
		cps[n-1].votes = votes
		return
	}
	t.state.checkpoints[account] = append(cps, checkpoint{fromBlock: block, votes: votes})
}
