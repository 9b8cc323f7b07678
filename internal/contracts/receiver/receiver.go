// Package receiver is a payable contract used as the target of test proposals.
package receiver

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/simchain"
)

// ReceiveEthSignature is the payable entry point proposals call.
const ReceiveEthSignature = "receiveEth(string)"

// Receiver accepts ether and logs every payment.
type Receiver struct {
	address common.Address
	count   uint64
}

func New(env *simchain.Env) (*Receiver, error) {
	return &Receiver{address: env.Self}, nil
}

func (r *Receiver) Address() common.Address { return r.address }

// Count is the number of payments received.
func (r *Receiver) Count() uint64 { return r.count }

func (r *Receiver) Snapshot() any { return r.count }

func (r *Receiver) Restore(s any) { r.count = s.(uint64) }

func (r *Receiver) Methods() simchain.Methods {
	return simchain.NewMethods(
		simchain.Receive(func(env *simchain.Env, _ []any) ([]byte, error) {
			return nil, r.ReceiveEth(env, "")
		}),
		simchain.PayableFunc(ReceiveEthSignature, func(env *simchain.Env, args []any) ([]byte, error) {
			return nil, r.ReceiveEth(env, args[0].(string))
		}),
	)
}

// ReceiveEth records the value that came with the call.
func (r *Receiver) ReceiveEth(env *simchain.Env, message string) error {
	r.count++
	env.Emit(domain.ReceivedEvent{Sender: env.Sender, Value: new(big.Int).Set(env.Value), Message: message})
	return nil
}
