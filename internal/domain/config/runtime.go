package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot  string
	ConfigSource string // path of govsim.toml, or "defaults"

	// Execution settings
	Debug   bool
	JSON    bool // Output in JSON format
	Timeout time.Duration

	// RPCURL selects a live node. Empty means the in-process simulated chain.
	RPCURL string

	Chain      ChainConfig
	Governor   GovernorConfig
	Timelock   TimelockConfig
	Staking    StakingConfig
	Simulation SimulationConfig
	Live       LiveConfig
}

// ChainConfig shapes the simulated ledger
type ChainConfig struct {
	ChainID          uint64
	BlockTime        uint64 // seconds added per mined block
	GenesisTimestamp uint64
	Accounts         int
	AccountBalance   *big.Int
}

// GovernorConfig holds the governor's voting parameters
type GovernorConfig struct {
	VotingDelay       uint64 // blocks between proposal and voting start
	VotingPeriod      uint64 // blocks voting stays open
	QuorumVotes       *big.Int
	ProposalThreshold *big.Int
	MaxOperations     int
}

// TimelockConfig holds the timelock delays, all in seconds
type TimelockConfig struct {
	Delay        uint64
	MinimumDelay uint64
	MaximumDelay uint64
	GracePeriod  uint64
}

// StakingConfig holds the staking engine parameters
type StakingConfig struct {
	EmissionRate *big.Int // reward units per block per token
	RewardPool   *big.Int // reward tokens minted to the stake contract at deploy
}

// SimulationConfig shapes the simulated deployments
type SimulationConfig struct {
	Voters   int      // accounts that each claim one loot token
	Treasury *big.Int // wei sent to the timelock at deploy
}

// LiveConfig addresses an existing deployment on a live node
type LiveConfig struct {
	Governor      common.Address
	Timelock      common.Address
	Loot          common.Address
	Receiver      common.Address
	TimelockAdmin common.Address
	Proposer      common.Address
	Voters        []common.Address
	GasLimit      uint64
}

// IsLive reports whether a live node is configured
func (c *RuntimeConfig) IsLive() bool {
	return c.RPCURL != ""
}

// Validate checks parameter combinations the contracts would reject
func (c *RuntimeConfig) Validate() error {
	if c.Governor.VotingDelay == 0 {
		return fmt.Errorf("governor.voting_delay must be at least 1 block")
	}
	if c.Governor.VotingPeriod == 0 {
		return fmt.Errorf("governor.voting_period must be at least 1 block")
	}
	if c.Governor.MaxOperations <= 0 {
		return fmt.Errorf("governor.max_operations must be positive")
	}
	if c.Timelock.MinimumDelay > c.Timelock.MaximumDelay {
		return fmt.Errorf("timelock.minimum_delay (%d) exceeds timelock.maximum_delay (%d)",
			c.Timelock.MinimumDelay, c.Timelock.MaximumDelay)
	}
	if c.Timelock.Delay < c.Timelock.MinimumDelay || c.Timelock.Delay > c.Timelock.MaximumDelay {
		return fmt.Errorf("timelock.delay %d outside [%d, %d]",
			c.Timelock.Delay, c.Timelock.MinimumDelay, c.Timelock.MaximumDelay)
	}
	if c.Chain.Accounts < 2 {
		return fmt.Errorf("chain.accounts must be at least 2")
	}
	if c.Simulation.Voters < 1 || c.Simulation.Voters > c.Chain.Accounts {
		return fmt.Errorf("simulation.voters must be between 1 and chain.accounts (%d)", c.Chain.Accounts)
	}
	return nil
}
