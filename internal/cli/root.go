package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dopedao/govsim/internal/adapters/progress"
	"github.com/dopedao/govsim/internal/app"
	"github.com/dopedao/govsim/internal/config"
	"github.com/dopedao/govsim/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "govsim",
		Short: "DopeDAO governance and staking simulator",
		Long: `govsim drives the DopeDAO governor, its Compound timelock and the loot
staking contract through complete scenarios.

Without --rpc-url every command runs against a fresh in-process chain.
With it, governance commands drive the deployment configured in the
[live] section of govsim.toml on a dev node that allows impersonation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			// Progress goes to stderr and is silenced for machine output
			var sink usecase.ProgressSink
			if v.GetBool("json") {
				sink = progress.NewNopSink()
			} else {
				sink = progress.NewSpinnerProgressReporter(cmd.ErrOrStderr())
			}

			appInstance, err := app.InitApp(v, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}
			cmd.SetContext(ctx)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")
	rootCmd.PersistentFlags().String("rpc-url", "", "Drive a live dev node instead of the in-process chain")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Abort the command after this long (default 5m)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "governance",
		Title: "Governance Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "chain",
		Title: "Chain Commands",
	})

	daoCmd := NewDAOCmd()
	daoCmd.GroupID = "governance"
	rootCmd.AddCommand(daoCmd)

	stakeCmd := NewStakeCmd()
	stakeCmd.GroupID = "governance"
	rootCmd.AddCommand(stakeCmd)

	chainCmd := NewChainCmd()
	chainCmd.GroupID = "chain"
	rootCmd.AddCommand(chainCmd)

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	a, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return a, nil
}
