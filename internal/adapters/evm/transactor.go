package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/dopedao/govsim/internal/domain"
)

const defaultPollInterval = 200 * time.Millisecond

// transactor sends transactions from node-managed (unlocked or impersonated)
// accounts and waits for them to be mined.
type transactor struct {
	rpc      *rpc.Client
	eth      *ethclient.Client
	gasLimit uint64
	poll     time.Duration
	log      *slog.Logger
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Gas   hexutil.Uint64  `json:"gas"`
	Value *hexutil.Big    `json:"value"`
	Data  hexutil.Bytes   `json:"data"`
}

// send submits data to `to` and returns its receipt. A reverted transaction
// returns the failed receipt together with a *domain.RevertError.
func (t *transactor) send(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (*domain.Receipt, error) {
	receipt, _, err := t.sendRaw(ctx, from, to, value, data)
	return receipt, err
}

// sendRaw is send that also returns the node's receipt, nil if the
// transaction never reached a block
func (t *transactor) sendRaw(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (*domain.Receipt, *types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}
	failed := &domain.Receipt{From: from, To: to, Value: value, Status: domain.ReceiptStatusFailed}

	var hash common.Hash
	args := sendTxArgs{From: from, To: &to, Gas: hexutil.Uint64(t.gasLimit), Value: (*hexutil.Big)(value), Data: data}
	if err := t.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		if rerr := revertFromError(err); rerr != nil {
			failed.RevertReason = rerr.Reason
			return failed, nil, rerr
		}
		return nil, nil, fmt.Errorf("eth_sendTransaction from %s: %w", from.Hex(), err)
	}
	t.log.Debug("sent transaction", "hash", hash.Hex(), "from", from.Hex(), "to", to.Hex())

	receipt, err := t.waitMined(ctx, hash)
	if err != nil {
		return nil, nil, err
	}
	out := &domain.Receipt{
		TxHash:      hash,
		From:        from,
		To:          to,
		Value:       value,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Status:      receipt.Status,
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return out, receipt, nil
	}

	rerr := t.replay(ctx, from, to, value, data, receipt.BlockNumber)
	out.RevertReason = rerr.Reason
	return out, receipt, rerr
}

func (t *transactor) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()
	for {
		receipt, err := t.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// replay re-runs a reverted transaction as a call on the parent block to
// recover its revert reason
func (t *transactor) replay(ctx context.Context, from, to common.Address, value *big.Int, data []byte, block *big.Int) *domain.RevertError {
	parent := new(big.Int).Sub(block, common.Big1)
	_, err := t.eth.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Gas: t.gasLimit, Value: value, Data: data}, parent)
	if err == nil {
		return domain.Revert(domain.ErrInvalidState, "")
	}
	if rerr := revertFromError(err); rerr != nil {
		return rerr
	}
	t.log.Debug("replay failed", "error", err)
	return &domain.RevertError{Kind: domain.ErrInvalidState, Cause: err}
}

// call runs a read-only method of a bound contract
func call(ctx context.Context, c *bind.BoundContract, parsed *abi.ABI, method string, args ...any) ([]any, error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	out, err := c.CallRaw(&bind.CallOpts{Context: ctx}, input)
	if err != nil {
		if rerr := revertFromError(err); rerr != nil {
			return nil, rerr
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}

// revertFromError extracts an Error(string) revert from a node error. It
// returns nil when err is not a revert.
func revertFromError(err error) *domain.RevertError {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if raw, derr := hexutil.Decode(s); derr == nil {
				reason, _ := abi.UnpackRevert(raw)
				return &domain.RevertError{Reason: reason, Kind: classifyRevert(reason), Cause: err}
			}
		}
	}

	// Nodes without error data put the reason in the message
	msg := err.Error()
	for _, marker := range []string{"reverted with reason string", "execution reverted"} {
		i := strings.Index(msg, marker)
		if i < 0 {
			continue
		}
		reason := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg[i+len(marker):]), ":"))
		reason = strings.Trim(reason, "'\"")
		return &domain.RevertError{Reason: reason, Kind: classifyRevert(reason), Cause: err}
	}
	return nil
}

var revertKinds = []struct {
	fragment string
	kind     error
}{
	{"must come from", domain.ErrUnauthorized},
	{"only guardian", domain.ErrUnauthorized},
	{"caller is not", domain.ErrUnauthorized},
	{"surpassed time lock", domain.ErrTooEarly},
	{"satisfy delay", domain.ErrTooEarly},
	{"is stale", domain.ErrStale},
	{"already", domain.ErrDuplicate},
	{"accept terms", domain.ErrTermsNotAccepted},
	{"insufficient", domain.ErrInsufficientFunds},
}

// classifyRevert maps a revert reason to the sentinel the simulated
// contracts would have used
func classifyRevert(reason string) error {
	lower := strings.ToLower(reason)
	for _, k := range revertKinds {
		if strings.Contains(lower, k.fragment) {
			return k.kind
		}
	}
	return domain.ErrInvalidState
}
