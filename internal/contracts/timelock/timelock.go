// Package timelock is a delay-enforcing executor: an admin queues a call
// with an eta, and the call can run only between eta and eta plus the grace
// period. The admin can only be replaced through the timelock's own queue.
package timelock

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/simchain"
)

type state struct {
	admin        common.Address
	pendingAdmin common.Address
	delay        uint64
	queued       map[common.Hash]bool
}

func (s *state) clone() *state {
	c := *s
	c.queued = make(map[common.Hash]bool, len(s.queued))
	for k, v := range s.queued {
		c.queued[k] = v
	}
	return &c
}

// Timelock holds the treasury and runs queued administrative calls.
type Timelock struct {
	address      common.Address
	minimumDelay uint64
	maximumDelay uint64
	gracePeriod  uint64
	state        *state
}

// New is the constructor.
func New(env *simchain.Env, admin common.Address, delay uint64, params config.TimelockConfig) (*Timelock, error) {
	if delay < params.MinimumDelay {
		return nil, domain.Revert(domain.ErrInvalidArgument, "Timelock::constructor: Delay must exceed minimum delay.")
	}
	if delay > params.MaximumDelay {
		return nil, domain.Revert(domain.ErrInvalidArgument, reasonMaxDelay)
	}
	return &Timelock{
		address:      env.Self,
		minimumDelay: params.MinimumDelay,
		maximumDelay: params.MaximumDelay,
		gracePeriod:  params.GracePeriod,
		state: &state{
			admin:  admin,
			delay:  delay,
			queued: make(map[common.Hash]bool),
		},
	}, nil
}

func (t *Timelock) Address() common.Address { return t.address }

func (t *Timelock) Snapshot() any { return t.state.clone() }

func (t *Timelock) Restore(s any) { t.state = s.(*state) }

const reasonMaxDelay = "Timelock::setDelay: Delay must not exceed maximum delay."

func (t *Timelock) Methods() simchain.Methods {
	return simchain.NewMethods(
		simchain.Receive(func(env *simchain.Env, _ []any) ([]byte, error) { return nil, nil }),
		simchain.Func("setPendingAdmin(address)", func(env *simchain.Env, args []any) ([]byte, error) {
			return nil, t.SetPendingAdmin(env, args[0].(common.Address))
		}),
		simchain.Func("setDelay(uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			delay, err := simchain.Uint64(args[0], reasonMaxDelay)
			if err != nil {
				return nil, err
			}
			return nil, t.SetDelay(env, delay)
		}),
		simchain.Func("acceptAdmin()", func(env *simchain.Env, _ []any) ([]byte, error) {
			return nil, t.AcceptAdmin(env)
		}),
	)
}

func (t *Timelock) Admin() common.Address        { return t.state.admin }
func (t *Timelock) PendingAdmin() common.Address { return t.state.pendingAdmin }
func (t *Timelock) Delay() uint64                { return t.state.delay }
func (t *Timelock) GracePeriod() uint64          { return t.gracePeriod }

// QueuedTransactions reports whether hash is queued.
func (t *Timelock) QueuedTransactions(hash common.Hash) bool {
	return t.state.queued[hash]
}

// SetDelay may only be called by the timelock itself.
func (t *Timelock) SetDelay(env *simchain.Env, delay uint64) error {
	if env.Sender != t.address {
		return domain.Revert(domain.ErrUnauthorized, "Timelock::setDelay: Call must come from Timelock.")
	}
	if delay < t.minimumDelay {
		return domain.Revert(domain.ErrInvalidArgument, "Timelock::setDelay: Delay must exceed minimum delay.")
	}
	if delay > t.maximumDelay {
		return domain.Revert(domain.ErrInvalidArgument, reasonMaxDelay)
	}
	t.state.delay = delay
	env.Emit(domain.NewDelayEvent{Delay: delay})
	return nil
}

// SetPendingAdmin may only be called by the timelock itself.
func (t *Timelock) SetPendingAdmin(env *simchain.Env, pending common.Address) error {
	if env.Sender != t.address {
		return domain.Revert(domain.ErrUnauthorized, "Timelock::setPendingAdmin: Call must come from Timelock.")
	}
	t.state.pendingAdmin = pending
	env.Emit(domain.AdminEvent{Type: domain.EventTypeNewPendingAdmin, Admin: pending})
	return nil
}

// AcceptAdmin completes an admin transfer; only the pending admin may call it.
func (t *Timelock) AcceptAdmin(env *simchain.Env) error {
	if env.Sender != t.state.pendingAdmin {
		return domain.Revert(domain.ErrUnauthorized, "Timelock::acceptAdmin: Call must come from pendingAdmin.")
	}
	t.state.admin = env.Sender
	t.state.pendingAdmin = common.Address{}
	env.Emit(domain.AdminEvent{Type: domain.EventTypeNewAdmin, Admin: env.Sender})
	return nil
}

// QueueTransaction stores the hash of tx. The eta must be at least delay
// seconds after the current block's timestamp.
func (t *Timelock) QueueTransaction(env *simchain.Env, tx domain.TimelockTransaction) (common.Hash, error) {
	if env.Sender != t.state.admin {
		return common.Hash{}, domain.Revert(domain.ErrUnauthorized, "Timelock::queueTransaction: Call must come from admin.")
	}
	if tx.Eta < env.Block.Timestamp+t.state.delay {
		return common.Hash{}, domain.Revert(domain.ErrTooEarly, "Timelock::queueTransaction: Estimated execution block must satisfy delay.")
	}

	hash := tx.Hash()
	t.state.queued[hash] = true
	env.Emit(domain.TimelockTransactionEvent{Type: domain.EventTypeQueueTransaction, TxHash: hash, Tx: tx})
	return hash, nil
}

// CancelTransaction removes a queued tx.
func (t *Timelock) CancelTransaction(env *simchain.Env, tx domain.TimelockTransaction) error {
	if env.Sender != t.state.admin {
		return domain.Revert(domain.ErrUnauthorized, "Timelock::cancelTransaction: Call must come from admin.")
	}
	hash := tx.Hash()
	delete(t.state.queued, hash)
	env.Emit(domain.TimelockTransactionEvent{Type: domain.EventTypeCancelTransaction, TxHash: hash, Tx: tx})
	return nil
}

// ExecuteTransaction runs a queued tx with the timelock as sender. The hash
// is cleared before the call so a tx can never run twice.
func (t *Timelock) ExecuteTransaction(env *simchain.Env, tx domain.TimelockTransaction) ([]byte, error) {
	if env.Sender != t.state.admin {
		return nil, domain.Revert(domain.ErrUnauthorized, "Timelock::executeTransaction: Call must come from admin.")
	}

	hash := tx.Hash()
	if !t.state.queued[hash] {
		return nil, domain.Revert(domain.ErrNotFound, "Timelock::executeTransaction: Transaction hasn't been queued.")
	}
	if env.Block.Timestamp < tx.Eta {
		return nil, domain.Revert(domain.ErrTooEarly, "Timelock::executeTransaction: Transaction hasn't surpassed time lock.")
	}
	if env.Block.Timestamp > tx.Eta+t.gracePeriod {
		return nil, domain.Revert(domain.ErrStale, "Timelock::executeTransaction: Transaction is stale.")
	}

	delete(t.state.queued, hash)

	ret, err := env.Call(tx.Target, tx.Value, tx.Signature, tx.Data)
	if err != nil {
		return nil, &domain.RevertError{
			Reason: "Timelock::executeTransaction: Transaction execution reverted.",
			Kind:   kindOf(err),
			Cause:  err,
		}
	}

	env.Emit(domain.TimelockTransactionEvent{Type: domain.EventTypeExecuteTransaction, TxHash: hash, Tx: tx})
	return ret, nil
}

// kindOf keeps the classification of a failed inner call.
func kindOf(err error) error {
	var rerr *domain.RevertError
	if errors.As(err, &rerr) && rerr.Kind != nil {
		return rerr.Kind
	}
	return domain.ErrInvalidState
}

func (t *Timelock) String() string {
	return fmt.Sprintf("Timelock(%s, admin=%s, delay=%ds)", t.address.Hex(), t.state.admin.Hex(), t.state.delay)
}
