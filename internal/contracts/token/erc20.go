package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/simchain"
)

type erc20State struct {
	balances    map[common.Address]*big.Int
	totalSupply *big.Int
}

func (s *erc20State) clone() *erc20State {
	c := &erc20State{
		balances:    make(map[common.Address]*big.Int, len(s.balances)),
		totalSupply: new(big.Int).Set(s.totalSupply),
	}
	for k, v := range s.balances {
		c.balances[k] = new(big.Int).Set(v)
	}
	return c
}

// ERC20 is a mintable fungible token, used as the staking reward.
type ERC20 struct {
	address common.Address
	owner   common.Address
	name    string
	symbol  string
	state   *erc20State
}

// NewERC20 is the constructor; the deployer becomes the minter.
func NewERC20(env *simchain.Env, name, symbol string) (*ERC20, error) {
	return &ERC20{
		address: env.Self,
		owner:   env.Sender,
		name:    name,
		symbol:  symbol,
		state: &erc20State{
			balances:    make(map[common.Address]*big.Int),
			totalSupply: new(big.Int),
		},
	}, nil
}

func (t *ERC20) Address() common.Address { return t.address }
func (t *ERC20) Symbol() string          { return t.symbol }

func (t *ERC20) Snapshot() any { return t.state.clone() }

func (t *ERC20) Restore(state any) { t.state = state.(*erc20State) }

func (t *ERC20) Methods() simchain.Methods {
	return simchain.NewMethods(
		simchain.Func("transfer(address,uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			return nil, t.Transfer(env, args[0].(common.Address), args[1].(*big.Int))
		}),
		simchain.Func("mint(address,uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			return nil, t.Mint(env, args[0].(common.Address), args[1].(*big.Int))
		}),
	)
}

// Mint creates amount tokens for `to`. Only the deployer may mint.
func (t *ERC20) Mint(env *simchain.Env, to common.Address, amount *big.Int) error {
	if env.Sender != t.owner {
		return domain.Revert(domain.ErrUnauthorized, "Ownable: caller is not the owner")
	}
	if to == (common.Address{}) {
		return domain.Revert(domain.ErrInvalidArgument, "ERC20: mint to the zero address")
	}
	t.state.balances[to] = new(big.Int).Add(t.BalanceOf(to), amount)
	t.state.totalSupply.Add(t.state.totalSupply, amount)
	env.Emit(domain.TransferEvent{To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Transfer moves amount from the caller to `to`.
func (t *ERC20) Transfer(env *simchain.Env, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return domain.Revert(domain.ErrInvalidArgument, "ERC20: transfer to the zero address")
	}
	from := env.Sender
	bal := t.BalanceOf(from)
	if bal.Cmp(amount) < 0 {
		return domain.Revert(domain.ErrInsufficientFunds, "ERC20: transfer amount exceeds balance")
	}
	t.state.balances[from] = new(big.Int).Sub(bal, amount)
	t.state.balances[to] = new(big.Int).Add(t.BalanceOf(to), amount)
	env.Emit(domain.TransferEvent{From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// BalanceOf returns the token balance of addr.
func (t *ERC20) BalanceOf(addr common.Address) *big.Int {
	if b, ok := t.state.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *ERC20) TotalSupply() *big.Int {
	return new(big.Int).Set(t.state.totalSupply)
}
