package adapters

import (
	"log/slog"

	"github.com/google/wire"

	"github.com/dopedao/govsim/internal/adapters/evm"
	"github.com/dopedao/govsim/internal/adapters/proposalfile"
	"github.com/dopedao/govsim/internal/adapters/rpcchain"
	"github.com/dopedao/govsim/internal/adapters/simulated"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/usecase"
)

// ProvideProjectPath provides the project path from RuntimeConfig
func ProvideProjectPath(cfg *config.RuntimeConfig) string {
	return cfg.ProjectRoot
}

// ProvideGovernanceBackend returns the live node when an RPC URL is
// configured and the shared in-process chain otherwise
func ProvideGovernanceBackend(cfg *config.RuntimeConfig, sim *simulated.Backend, log *slog.Logger) (usecase.GovernanceBackend, error) {
	if !cfg.IsLive() {
		return sim, nil
	}
	client, err := rpcchain.ProvideClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return evm.NewBackend(client, cfg, log), nil
}

// ProvideChainControl drives the same chain the governance backend uses
func ProvideChainControl(backend usecase.GovernanceBackend) usecase.ChainControl {
	return backend
}

// SimulatedSet provides the in-process chain. Staking scenarios always run
// on it; live nodes carry no staking deployment.
var SimulatedSet = wire.NewSet(
	simulated.NewBackend,
	wire.Bind(new(usecase.StakingProvider), new(*simulated.Backend)),
)

// ChainSet selects the chain every governance use case talks to
var ChainSet = wire.NewSet(
	ProvideGovernanceBackend,
	ProvideChainControl,
)

// ProposalFileSet provides YAML proposal loading
var ProposalFileSet = wire.NewSet(
	ProvideProjectPath,
	proposalfile.NewLoader,
	wire.Bind(new(usecase.ProposalLoader), new(*proposalfile.Loader)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	SimulatedSet,
	ChainSet,
	ProposalFileSet,
)
