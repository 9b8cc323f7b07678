package config

import (
	"math/big"
	"time"
)

const (
	DefaultChainID          = uint64(31337)
	DefaultBlockTime        = uint64(12)
	DefaultGenesisTimestamp = uint64(1_630_454_400) // 2021-09-01T00:00:00Z
	DefaultAccounts         = 10

	DefaultVotingDelay   = uint64(1)
	DefaultVotingPeriod  = uint64(13_140)
	DefaultMaxOperations = 10

	DefaultTimelockDelay = uint64(2 * 24 * 60 * 60)
	MinimumTimelockDelay = uint64(2 * 24 * 60 * 60)
	MaximumTimelockDelay = uint64(30 * 24 * 60 * 60)
	GracePeriod          = uint64(14 * 24 * 60 * 60)

	DefaultVoters  = 5
	DefaultTimeout = 5 * time.Minute
)

// Ether is 10^18 wei
var Ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// DefaultRuntimeConfig returns the configuration used when no govsim.toml is found
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		ConfigSource: "defaults",
		Timeout:      DefaultTimeout,
		Chain: ChainConfig{
			ChainID:          DefaultChainID,
			BlockTime:        DefaultBlockTime,
			GenesisTimestamp: DefaultGenesisTimestamp,
			Accounts:         DefaultAccounts,
			AccountBalance:   new(big.Int).Mul(big.NewInt(10_000), Ether),
		},
		Governor: GovernorConfig{
			VotingDelay:       DefaultVotingDelay,
			VotingPeriod:      DefaultVotingPeriod,
			QuorumVotes:       big.NewInt(3),
			ProposalThreshold: big.NewInt(0),
			MaxOperations:     DefaultMaxOperations,
		},
		Timelock: TimelockConfig{
			Delay:        DefaultTimelockDelay,
			MinimumDelay: MinimumTimelockDelay,
			MaximumDelay: MaximumTimelockDelay,
			GracePeriod:  GracePeriod,
		},
		Staking: StakingConfig{
			EmissionRate: big.NewInt(10),
			RewardPool:   big.NewInt(10_000),
		},
		Simulation: SimulationConfig{
			Voters:   DefaultVoters,
			Treasury: new(big.Int).Set(Ether),
		},
		Live: LiveConfig{
			GasLimit: 500_000,
		},
	}
}
