package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StakeReceipt records who staked a token and the block accrual starts from.
// A zero Owner means the token is not staked.
type StakeReceipt struct {
	TokenID uint64         `json:"tokenId"`
	Owner   common.Address `json:"owner"`
	From    uint64         `json:"from"`
}

// Active reports whether the receipt belongs to a staked token.
func (r StakeReceipt) Active() bool {
	return r.Owner != (common.Address{})
}

// RateChange is an emission rate effective from a block onwards.
type RateChange struct {
	FromBlock uint64   `json:"fromBlock"`
	Rate      *big.Int `json:"rate"`
}
