package simchain

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dopedao/govsim/internal/domain"
)

const maxCallDepth = 1024

// Message is the envelope of a transaction.
type Message struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// Env is the execution frame a contract sees: who called it, with what
// value, in which block.
type Env struct {
	chain *Chain

	Origin common.Address
	Sender common.Address
	Self   common.Address
	Value  *big.Int
	Block  domain.Block

	depth    int
	readOnly bool
}

// Transact runs fn as a transaction from msg.From to msg.To in the head
// block. msg.Value moves to msg.To before fn runs. If fn is nil the
// transaction is a plain call: msg.To's receive function when it is a
// contract, a value transfer otherwise. Any error rolls back every state
// change and is returned together with a failed receipt.
func (c *Chain) Transact(ctx context.Context, msg Message, fn func(env *Env) error) (*domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.canSign(msg.From) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAccount, msg.From.Hex())
	}

	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}

	snap := c.snapshot()
	c.txLogs = nil

	nonce := c.nonces[msg.From]
	receipt := &domain.Receipt{
		TxHash:      txHash(c.cfg.ChainID, msg.From, nonce),
		From:        msg.From,
		To:          msg.To,
		Value:       new(big.Int).Set(value),
		BlockNumber: c.head.Number,
		Status:      domain.ReceiptStatusSuccessful,
	}

	env := &Env{
		chain:  c,
		Origin: msg.From,
		Sender: msg.From,
		Self:   msg.To,
		Value:  value,
		Block:  c.head,
	}

	err := c.transfer(msg.From, msg.To, value)
	if err == nil {
		if fn != nil {
			err = fn(env)
		} else if target, ok := c.contracts[msg.To]; ok {
			_, err = dispatch(env, target, "", nil)
		}
	}

	if err != nil {
		c.restore(snap)
		c.nonces[msg.From] = nonce + 1
		receipt.Status = domain.ReceiptStatusFailed
		receipt.RevertReason, _ = domain.RevertReason(err)
		c.receipts[receipt.TxHash] = receipt
		c.logger.Debug("transaction reverted",
			"from", msg.From.Hex(), "to", msg.To.Hex(), "block", c.head.Number, "error", err)
		return receipt, err
	}

	c.nonces[msg.From] = nonce + 1
	receipt.Logs = c.txLogs
	c.txLogs = nil
	c.receipts[receipt.TxHash] = receipt
	c.logger.Debug("transaction applied",
		"from", msg.From.Hex(), "to", msg.To.Hex(), "block", c.head.Number, "logs", len(receipt.Logs))
	return receipt, nil
}

// Send is a plain value transfer from one account to another.
func (c *Chain) Send(ctx context.Context, from, to common.Address, value *big.Int) (*domain.Receipt, error) {
	return c.Transact(ctx, Message{From: from, To: to, Value: value}, nil)
}

// Invoke sends ABI calldata (selector included) to a contract.
func (c *Chain) Invoke(ctx context.Context, msg Message, calldata []byte) (*domain.Receipt, error) {
	return c.Transact(ctx, msg, func(env *Env) error {
		target, ok := c.contracts[msg.To]
		if !ok {
			return nil
		}
		_, err := dispatch(env, target, "", calldata)
		return err
	})
}

// Call runs a read-only fn against the head block, as if sent by from.
func (c *Chain) Call(ctx context.Context, from, to common.Address, fn func(env *Env) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	env := &Env{
		chain:    c,
		Origin:   from,
		Sender:   from,
		Self:     to,
		Value:    new(big.Int),
		Block:    c.head,
		readOnly: true,
	}
	return fn(env)
}

// Deploy creates a contract at the next address of from. build runs as the
// constructor with env.Self set to the new address.
func Deploy[T Contract](ctx context.Context, c *Chain, from common.Address, build func(env *Env) (T, error)) (T, *domain.Receipt, error) {
	var deployed T

	receipt, err := c.Transact(ctx, Message{From: from}, func(env *Env) error {
		addr := crypto.CreateAddress(from, c.nonces[from])
		env.Self = addr
		contract, err := build(env)
		if err != nil {
			return err
		}
		c.contracts[addr] = contract
		deployed = contract
		return nil
	})
	if err != nil {
		return deployed, receipt, fmt.Errorf("deploy from %s: %w", from.Hex(), err)
	}
	c.logger.Debug("contract deployed", "from", from.Hex(), "type", fmt.Sprintf("%T", deployed))
	return deployed, receipt, nil
}

func txHash(chainID uint64, from common.Address, nonce uint64) common.Hash {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], chainID)
	binary.BigEndian.PutUint64(buf[8:], nonce)
	return crypto.Keccak256Hash(from.Bytes(), buf)
}

// Frame returns the environment for a call from the current contract into
// callee, without value.
func (e *Env) Frame(callee common.Address) *Env {
	return &Env{
		chain:    e.chain,
		Origin:   e.Origin,
		Sender:   e.Self,
		Self:     callee,
		Value:    new(big.Int),
		Block:    e.Block,
		depth:    e.depth + 1,
		readOnly: e.readOnly,
	}
}

// Call performs a message call from the current contract. With an empty
// signature the selector is read from data; with both empty it is a plain
// value transfer. Calls to addresses without code succeed.
func (e *Env) Call(to common.Address, value *big.Int, signature string, data []byte) ([]byte, error) {
	if e.readOnly {
		return nil, domain.Revert(domain.ErrInvalidState, "state change in read-only call")
	}
	if e.depth+1 > maxCallDepth {
		return nil, domain.Revert(domain.ErrInvalidState, "max call depth exceeded")
	}
	if value == nil {
		value = new(big.Int)
	}
	if err := e.chain.transfer(e.Self, to, value); err != nil {
		return nil, err
	}

	target, ok := e.chain.contracts[to]
	if !ok {
		return nil, nil
	}
	child := e.Frame(to)
	child.Value = value
	return dispatch(child, target, signature, data)
}

// Emit records an event from the current contract.
func (e *Env) Emit(ev domain.Event) {
	if e.readOnly {
		return
	}
	e.chain.txLogs = append(e.chain.txLogs, domain.Log{Address: e.Self, Event: ev})
}

// Balance returns the native balance of addr.
func (e *Env) Balance(addr common.Address) *big.Int {
	return new(big.Int).Set(e.chain.balance(addr))
}

// IsContract reports whether addr has code.
func (e *Env) IsContract(addr common.Address) bool {
	_, ok := e.chain.contracts[addr]
	return ok
}
