//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"

	"github.com/dopedao/govsim/internal/adapters"
	"github.com/dopedao/govsim/internal/config"
	"github.com/dopedao/govsim/internal/logging"
	"github.com/dopedao/govsim/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		config.ConfigSet,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewBootstrapTimelockAdmin,
		usecase.NewRunProposalLifecycle,
		usecase.NewRunStakingScenario,
		usecase.NewControlChain,

		// App
		NewApp,
	)
	return nil, nil
}
