package cli

import (
	"github.com/spf13/cobra"

	"github.com/dopedao/govsim/internal/cli/render"
	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/usecase"
)

// NewDAOCmd creates the dao command group
func NewDAOCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dao",
		Short: "Governor and timelock scenarios",
	}

	cmd.AddCommand(newDAORunCmd())
	cmd.AddCommand(newDAOBootstrapCmd())

	return cmd
}

func newDAORunCmd() *cobra.Command {
	var (
		proposalFile  string
		skipBootstrap bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a proposal from creation to execution",
		Long: `Propose, vote, queue and execute a proposal, then report the balance
change of every action target.

Without --proposal the proposal sends the whole treasury to @receiver.
Proposal files are YAML; targets may name deployed contracts as @governor,
@timelock, @loot or @receiver.`,
		Example: `  # Drain the treasury to the receiver
  govsim dao run

  # Run a proposal from a file
  govsim dao run --proposal proposals/grant.yaml

  # Against a node whose timelock is already administered by the governor
  govsim dao run --rpc-url http://localhost:8545 --skip-bootstrap`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var draft *domain.ProposalDraft
			if proposalFile != "" {
				draft, err = app.ProposalLoader.Load(cmd.Context(), proposalFile)
				if err != nil {
					return err
				}
			}

			result, err := app.RunProposalLifecycle.Run(cmd.Context(), usecase.RunProposalLifecycleParams{
				Draft:     draft,
				Bootstrap: !skipBootstrap,
			})
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), result)
			}
			return render.NewLifecycleRenderer(cmd.OutOrStdout()).Render(result)
		},
	}

	cmd.Flags().StringVarP(&proposalFile, "proposal", "p", "", "YAML proposal file")
	cmd.Flags().BoolVar(&skipBootstrap, "skip-bootstrap", false, "Do not hand the timelock to the governor first")

	return cmd
}

func newDAOBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Hand timelock administration to the governor",
		Long: `Queue setPendingAdmin(governor) on the timelock from its current admin,
wait out the delay, execute it and have the guardian accept the admin role.
Running it again once the governor is admin changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.BootstrapTimelockAdmin.Run(cmd.Context())
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), result)
			}
			return render.NewBootstrapRenderer(cmd.OutOrStdout()).Render(result)
		},
	}
}
