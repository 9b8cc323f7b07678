package cli

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/dopedao/govsim/internal/cli/render"
	"github.com/dopedao/govsim/internal/usecase"
	"github.com/dopedao/govsim/pkg/units"
)

// NewStakeCmd creates the stake command group
func NewStakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stake",
		Short: "Loot staking scenarios",
	}

	cmd.AddCommand(newStakeRunCmd())

	return cmd
}

func newStakeRunCmd() *cobra.Command {
	var (
		blocks uint64
		rate   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stake a loot token, accrue, harvest and unstake",
		Long: `Stake one loot token, mine blocks, and check that the accrued reward is
rate times blocks, that harvesting zeroes it, that one more block accrues
exactly the rate and that unstaking returns the token.

Staking always runs on the in-process chain.`,
		Example: `  govsim stake run
  govsim stake run --blocks 10 --rate 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var emission *big.Int
			if rate != "" {
				if emission, err = units.ParseAmount(rate); err != nil {
					return fmt.Errorf("invalid --rate: %w", err)
				}
			}

			if app.Config.IsLive() && !app.Config.JSON {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: staking ignores --rpc-url and runs on the in-process chain")
			}

			result, err := app.RunStakingScenario.Run(cmd.Context(), usecase.RunStakingParams{
				Blocks: blocks,
				Rate:   emission,
			})
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), result)
			}
			return render.NewStakingRenderer(cmd.OutOrStdout()).Render(result)
		},
	}

	cmd.Flags().Uint64Var(&blocks, "blocks", usecase.DefaultStakeBlocks, "Blocks to accrue before harvesting")
	cmd.Flags().StringVar(&rate, "rate", "", "Emission rate per block, set by the DAO before staking")

	return cmd
}
