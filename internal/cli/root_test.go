package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("GOVSIM_RPC_URL", "")

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Commands(t *testing.T) {
	root := NewRootCmd()

	for _, path := range [][]string{
		{"dao", "run"},
		{"dao", "bootstrap"},
		{"stake", "run"},
		{"chain", "mine"},
		{"chain", "warp"},
		{"chain", "impersonate"},
		{"chain", "block"},
		{"chain", "balance"},
		{"chain", "set-balance"},
		{"version"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	for _, flag := range []string{"debug", "json", "rpc-url", "timeout"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "govsim version dev\n", out)
}

func TestGetApp_NotInitialized(t *testing.T) {
	cmd := NewVersionCmd()
	cmd.SetContext(t.Context())

	_, err := getApp(cmd)
	assert.EqualError(t, err, "app not initialized")
}

func TestChainBlockCmd_JSON(t *testing.T) {
	out, err := execute(t, "chain", "block", "--json")
	require.NoError(t, err)

	var result struct {
		Operation string `json:"operation"`
		Block     struct {
			Number    uint64 `json:"number"`
			Timestamp uint64 `json:"timestamp"`
		} `json:"block"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "block", result.Operation)
	assert.Equal(t, uint64(1_630_454_400), result.Block.Timestamp)
}

func TestChainCmd_InvalidArgs(t *testing.T) {
	_, err := execute(t, "chain", "balance", "0x1234")
	assert.EqualError(t, err, "invalid address: 0x1234")

	_, err = execute(t, "chain", "mine", "zero")
	assert.EqualError(t, err, "invalid block count: zero")
}

func TestStakeRunCmd_JSON(t *testing.T) {
	out, err := execute(t, "stake", "run", "--json", "--blocks", "6", "--rate", "3")
	require.NoError(t, err)

	var result struct {
		Blocks        uint64 `json:"blocks"`
		Rate          int64  `json:"rate"`
		Accrued       int64  `json:"accrued"`
		AfterHarvest  int64  `json:"afterHarvest"`
		OneBlockLater int64  `json:"oneBlockLater"`
		Returned      bool   `json:"returned"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, uint64(6), result.Blocks)
	assert.Equal(t, int64(3), result.Rate)
	assert.Equal(t, int64(18), result.Accrued)
	assert.Zero(t, result.AfterHarvest)
	assert.Equal(t, int64(3), result.OneBlockLater)
	assert.True(t, result.Returned)
}

func TestDAORunCmd(t *testing.T) {
	out, err := execute(t, "dao", "run")
	require.NoError(t, err)

	assert.Contains(t, out, "handed to governor")
	assert.Contains(t, out, "Proposal 1")
	assert.Contains(t, out, "Executed")
	assert.Contains(t, out, "@receiver")
}
