package receiver_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dopedao/govsim/internal/contracts/receiver"
	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/simchain"
	"github.com/dopedao/govsim/internal/simchain/simtest"
)

func TestReceiveEth(t *testing.T) {
	chain := simtest.NewChain(t)
	ctx := t.Context()
	from := chain.Account(1)
	r := simtest.Deploy(t, chain, chain.Account(0), receiver.New)

	data, err := simchain.EncodeCall(receiver.ReceiveEthSignature, "hello")
	require.NoError(t, err)
	receipt, err := chain.Invoke(ctx, simchain.Message{From: from, To: r.Address(), Value: big.NewInt(25)},
		append(simchain.Selector(receiver.ReceiveEthSignature), data...))
	require.NoError(t, err)

	events := receipt.Events(string(domain.EventTypeReceived))
	require.Len(t, events, 1)
	ev := events[0].(domain.ReceivedEvent)
	assert.Equal(t, from, ev.Sender)
	assert.Equal(t, int64(25), ev.Value.Int64())
	assert.Equal(t, "hello", ev.Message)

	_, err = chain.Send(ctx, from, r.Address(), big.NewInt(5))
	require.NoError(t, err)

	bal, err := chain.GetBalance(ctx, r.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(30), bal.Int64())
	assert.Equal(t, uint64(2), r.Count())
}
