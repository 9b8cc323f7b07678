package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TimelockTransaction is the tuple a timelock queues and executes.
type TimelockTransaction struct {
	Target    common.Address `json:"target"`
	Value     *big.Int       `json:"value"`
	Signature string         `json:"signature"`
	Data      []byte         `json:"data"`
	Eta       uint64         `json:"eta"`
}

var timelockTxArgs = mustArguments("address", "uint256", "string", "bytes", "uint256")

// Hash is keccak256(abi.encode(target, value, signature, data, eta)).
func (tx TimelockTransaction) Hash() common.Hash {
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	data := tx.Data
	if data == nil {
		data = []byte{}
	}
	packed, err := timelockTxArgs.Pack(tx.Target, value, tx.Signature, data, new(big.Int).SetUint64(tx.Eta))
	if err != nil {
		// Every field has a fixed Go type matching its ABI type.
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// Calldata returns the bytes the timelock sends: the selector of Signature
// followed by Data, or Data alone when Signature is empty.
func (tx TimelockTransaction) Calldata() []byte {
	if tx.Signature == "" {
		return common.CopyBytes(tx.Data)
	}
	return append(crypto.Keccak256([]byte(tx.Signature))[:4], tx.Data...)
}

func mustArguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		args[i] = abi.Argument{Type: typ}
	}
	return args
}

// SetPendingAdminSignature is the timelock's self-call that nominates an admin.
const SetPendingAdminSignature = "setPendingAdmin(address)"

var addressArgs = mustArguments("address")

// NewSetPendingAdminTx builds the timelock transaction that makes pending
// the timelock's pending admin.
func NewSetPendingAdminTx(timelock, pending common.Address, eta uint64) TimelockTransaction {
	data, err := addressArgs.Pack(pending)
	if err != nil {
		panic(err)
	}
	return TimelockTransaction{
		Target:    timelock,
		Value:     new(big.Int),
		Signature: SetPendingAdminSignature,
		Data:      data,
		Eta:       eta,
	}
}
