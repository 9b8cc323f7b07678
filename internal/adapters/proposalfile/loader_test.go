package proposalfile

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dopedao/govsim/internal/domain"
)

const dip6 = `
description: |
  # DIP-6: Pay contributors

  Monthly payouts.
actions:
  - target: "0x000000000000000000000000000000000000dEaD"
    value: "12.5"
  - target: "0x000000000000000000000000000000000000bEEF"
    value: "0.000000000000000001 ether"
  - target: "@receiver"
    value: "1"
    signature: receiveEth(string)
    args: ["gang"]
  - target: "@timelock"
    signature: setDelay(uint256)
    calldata: "0x000000000000000000000000000000000000000000000000000000000002a300"
`

func TestParse(t *testing.T) {
	draft, err := Parse([]byte(dip6))
	require.NoError(t, err)

	assert.Equal(t, "# DIP-6: Pay contributors\n\nMonthly payouts.", draft.Description)
	require.Len(t, draft.Actions, 4)

	twelveAndAHalf, _ := new(big.Int).SetString("12500000000000000000", 10)
	assert.Equal(t, twelveAndAHalf, draft.Actions[0].Value)
	assert.Empty(t, draft.Actions[0].Signature)
	assert.Nil(t, draft.Actions[0].Calldata)

	assert.Equal(t, big.NewInt(1), draft.Actions[1].Value)

	recv := draft.Actions[2]
	assert.Equal(t, "@receiver", recv.Target)
	assert.Equal(t, "receiveEth(string)", recv.Signature)
	out, err := abi.Arguments{{Type: mustType(t, "string")}}.Unpack(recv.Calldata)
	require.NoError(t, err)
	assert.Equal(t, "gang", out[0])

	delay := draft.Actions[3]
	assert.Zero(t, delay.Value.Sign())
	assert.Equal(t, big.NewInt(172800), new(big.Int).SetBytes(delay.Calldata))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no actions", "description: nothing\n", "proposal has no actions"},
		{"missing target", "actions:\n  - value: \"1\"\n", "action 0: invalid argument: missing target"},
		{"bad value", "actions:\n  - target: \"@x\"\n    value: lots\n", "invalid ether amount \"lots\""},
		{"negative value", "actions:\n  - target: \"@x\"\n    value: \"-1\"\n", "negative ether amount"},
		{"too precise", "actions:\n  - target: \"@x\"\n    value: \"0.0000000000000000001\"\n", "more than 18 decimals"},
		{"args and calldata", "actions:\n  - target: \"@x\"\n    signature: f(uint256)\n    args: [\"1\"]\n    calldata: \"0x01\"\n", "either args or calldata"},
		{"arity", "actions:\n  - target: \"@x\"\n    signature: f(uint256,address)\n    args: [\"1\"]\n", "takes 2 arguments, got 1"},
		{"bad address", "actions:\n  - target: \"@x\"\n    signature: f(address)\n    args: [\"bob\"]\n", "invalid address"},
		{"array", "actions:\n  - target: \"@x\"\n    signature: f(uint256[])\n    args: [\"1\"]\n", "need raw calldata"},
		{"bad yaml", "actions: [", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEncodeArgs(t *testing.T) {
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	data, err := EncodeArgs("transfer(address,uint256,bool,uint8,bytes32)", []string{
		to.Hex(), "0x10", "true", "255", "0x" + common.Bytes2Hex(common.LeftPadBytes([]byte{7}, 32)),
	})
	require.NoError(t, err)

	out, err := abi.Arguments{
		{Type: mustType(t, "address")},
		{Type: mustType(t, "uint256")},
		{Type: mustType(t, "bool")},
		{Type: mustType(t, "uint8")},
		{Type: mustType(t, "bytes32")},
	}.Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, to, out[0])
	assert.Equal(t, big.NewInt(16), out[1])
	assert.Equal(t, true, out[2])
	assert.Equal(t, uint8(255), out[3])

	_, err = EncodeArgs("f(uint8)", []string{"256"})
	assert.ErrorContains(t, err, "overflows")

	empty, err := EncodeArgs("acceptAdmin()", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEncodeArgs_IntegerBounds(t *testing.T) {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	tests := []struct {
		signature string
		arg       string
		wantErr   bool
	}{
		{"f(int8)", "-128", false},
		{"f(int8)", "127", false},
		{"f(int8)", "-129", true},
		{"f(int8)", "128", true},
		{"f(int64)", "-9223372036854775808", false},
		{"f(int256)", "-1", false},
		{"f(uint8)", "-1", true},
		{"f(uint256)", "-1", true},
		{"f(uint256)", maxUint256.String(), false},
		{"f(uint256)", new(big.Int).Add(maxUint256, big.NewInt(1)).String(), true},
		{"f(uint24)", "16777215", false},
		{"f(uint24)", "16777216", true},
	}

	for _, tt := range tests {
		t.Run(tt.signature+" "+tt.arg, func(t *testing.T) {
			_, err := EncodeArgs(tt.signature, []string{tt.arg})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidArgument)
				assert.ErrorContains(t, err, "overflows")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dip6.yaml"), []byte(dip6), 0o644))
	loader := NewLoader(dir)

	draft, err := loader.Load(context.Background(), "dip6.yaml")
	require.NoError(t, err)
	assert.Len(t, draft.Actions, 4)

	_, err = loader.Load(context.Background(), "missing.yaml")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("description: x\n"), 0o644))
	_, err = loader.Load(context.Background(), filepath.Join(dir, "bad.yaml"))
	assert.ErrorContains(t, err, "bad.yaml: invalid argument")
}

func mustType(t *testing.T, s string) abi.Type {
	t.Helper()
	typ, err := abi.NewType(s, "", nil)
	require.NoError(t, err)
	return typ
}
