package app

import (
	"log/slog"

	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Use cases
	RunProposalLifecycle   *usecase.RunProposalLifecycle
	BootstrapTimelockAdmin *usecase.BootstrapTimelockAdmin
	RunStakingScenario     *usecase.RunStakingScenario
	ControlChain           *usecase.ControlChain

	// Adapters the commands use directly
	ProposalLoader usecase.ProposalLoader
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	runProposalLifecycle *usecase.RunProposalLifecycle,
	bootstrapTimelockAdmin *usecase.BootstrapTimelockAdmin,
	runStakingScenario *usecase.RunStakingScenario,
	controlChain *usecase.ControlChain,
	proposalLoader usecase.ProposalLoader,
) (*App, error) {
	return &App{
		Config:                 cfg,
		Log:                    log,
		RunProposalLifecycle:   runProposalLifecycle,
		BootstrapTimelockAdmin: bootstrapTimelockAdmin,
		RunStakingScenario:     runStakingScenario,
		ControlChain:           controlChain,
		ProposalLoader:         proposalLoader,
	}, nil
}
