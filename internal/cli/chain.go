package cli

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/dopedao/govsim/internal/cli/render"
	"github.com/dopedao/govsim/internal/usecase"
	"github.com/dopedao/govsim/pkg/units"
)

// NewChainCmd creates the chain command group
func NewChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Dev chain clock and account controls",
		Long: `Control the chain clock and accounts. Against --rpc-url these use the
node's evm_* and hardhat_* methods; without it they act on a fresh
in-process chain and are mostly useful to inspect its genesis.`,
	}

	cmd.AddCommand(
		newChainMineCmd(),
		newChainWarpCmd(),
		newChainImpersonateCmd(),
		newChainBlockCmd(),
		newChainBalanceCmd(),
		newChainSetBalanceCmd(),
	)

	return cmd
}

func newChainMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine [blocks]",
		Short: "Mine blocks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := usecase.ControlChainParams{Operation: usecase.ChainMine, Blocks: 1}
			if len(args) == 1 {
				n, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil || n == 0 {
					return fmt.Errorf("invalid block count: %s", args[0])
				}
				params.Blocks = n
			}
			return runChain(cmd, params)
		},
	}
}

func newChainWarpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warp <timestamp>",
		Short: "Mine a block at the given unix timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", args[0])
			}
			return runChain(cmd, usecase.ControlChainParams{Operation: usecase.ChainWarp, Timestamp: ts})
		},
	}
}

func newChainImpersonateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "impersonate <address>",
		Short: "Allow sending transactions from an address without its key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return runChain(cmd, usecase.ControlChainParams{Operation: usecase.ChainImpersonate, Address: addr})
		},
	}
}

func newChainBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block",
		Short: "Show the head block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(cmd, usecase.ControlChainParams{Operation: usecase.ChainBlock})
		},
	}
}

func newChainBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show the ether balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return runChain(cmd, usecase.ControlChainParams{Operation: usecase.ChainBalance, Address: addr})
		},
	}
}

func newChainSetBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set-balance <address> <amount>",
		Short:   "Set the ether balance of an address",
		Example: "  govsim chain set-balance 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 100ether",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := units.ParseEther(args[1])
			if err != nil {
				return err
			}
			return runChain(cmd, usecase.ControlChainParams{Operation: usecase.ChainSetBalance, Address: addr, Amount: amount})
		},
	}
}

func runChain(cmd *cobra.Command, params usecase.ControlChainParams) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	result, err := app.ControlChain.Execute(cmd.Context(), params)
	if err != nil {
		return err
	}

	if app.Config.JSON {
		return render.JSON(cmd.OutOrStdout(), result)
	}
	return render.NewChainRenderer(cmd.OutOrStdout()).Render(result)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %s", s)
	}
	return common.HexToAddress(s), nil
}
