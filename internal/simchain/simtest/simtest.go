// Package simtest has helpers for tests that drive contracts on a simulated chain.
package simtest

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/logging"
	"github.com/dopedao/govsim/internal/simchain"
)

// NewChain returns a chain with 6 funded accounts and 12 second blocks.
func NewChain(t *testing.T) *simchain.Chain {
	t.Helper()
	return simchain.New(config.ChainConfig{
		ChainID:          31337,
		BlockTime:        12,
		GenesisTimestamp: config.DefaultGenesisTimestamp,
		Accounts:         6,
		AccountBalance:   new(big.Int).Mul(big.NewInt(1000), config.Ether),
	}, logging.Discard())
}

// Deploy deploys a contract and fails the test on error.
func Deploy[T simchain.Contract](t *testing.T, chain *simchain.Chain, from common.Address, build func(env *simchain.Env) (T, error)) T {
	t.Helper()
	c, _, err := simchain.Deploy(context.Background(), chain, from, build)
	require.NoError(t, err)
	return c
}

// Send runs fn as a transaction from `from` to `to` and returns its error.
func Send(t *testing.T, chain *simchain.Chain, from, to common.Address, fn func(env *simchain.Env) error) error {
	t.Helper()
	_, err := chain.Transact(context.Background(), simchain.Message{From: from, To: to}, fn)
	return err
}

// MustSend is Send that fails the test on error.
func MustSend(t *testing.T, chain *simchain.Chain, from, to common.Address, fn func(env *simchain.Env) error) *domain.Receipt {
	t.Helper()
	receipt, err := chain.Transact(context.Background(), simchain.Message{From: from, To: to}, fn)
	require.NoError(t, err)
	return receipt
}

// View runs a read-only fn and fails the test on error.
func View(t *testing.T, chain *simchain.Chain, to common.Address, fn func(env *simchain.Env) error) {
	t.Helper()
	require.NoError(t, chain.Call(context.Background(), common.Address{}, to, fn))
}

// Mine mines n blocks.
func Mine(t *testing.T, chain *simchain.Chain, n uint64) {
	t.Helper()
	require.NoError(t, chain.MineBlocks(context.Background(), n))
}

// RequireRevert asserts err is a revert with the given reason.
func RequireRevert(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	got, ok := domain.RevertReason(err)
	require.True(t, ok, "expected a revert, got %v", err)
	require.Equal(t, reason, got)
}
