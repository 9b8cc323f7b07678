package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/pkg/units"
)

// LoadProjectConfig builds a RuntimeConfig from defaults overlaid with
// govsim.toml in projectRoot, if present. Values may reference environment
// variables as ${VAR}; .env and .env.local are loaded first.
func LoadProjectConfig(projectRoot string) (*config.RuntimeConfig, error) {
	loadEnvFiles(projectRoot)

	cfg := config.DefaultRuntimeConfig()

	path := filepath.Join(projectRoot, ProjectFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var raw config.ProjectConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFile, err)
	}
	if err := applyProjectConfig(cfg, &raw); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ProjectFile, err)
	}
	cfg.ConfigSource = path
	return cfg, nil
}

func loadEnvFiles(projectRoot string) {
	envFiles := []string{
		filepath.Join(projectRoot, ".env"),
		filepath.Join(projectRoot, ".env.local"),
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}
}

func applyProjectConfig(cfg *config.RuntimeConfig, raw *config.ProjectConfig) error {
	var err error

	if raw.Chain.ChainID != 0 {
		cfg.Chain.ChainID = raw.Chain.ChainID
	}
	if raw.Chain.BlockTime != 0 {
		cfg.Chain.BlockTime = raw.Chain.BlockTime
	}
	if raw.Chain.GenesisTimestamp != 0 {
		cfg.Chain.GenesisTimestamp = raw.Chain.GenesisTimestamp
	}
	if raw.Chain.Accounts != 0 {
		cfg.Chain.Accounts = raw.Chain.Accounts
	}
	if raw.Chain.AccountBalance != "" {
		if cfg.Chain.AccountBalance, err = units.ParseEther(expand(raw.Chain.AccountBalance)); err != nil {
			return fmt.Errorf("chain.account_balance: %w", err)
		}
	}

	if raw.Governor.VotingDelay != 0 {
		cfg.Governor.VotingDelay = raw.Governor.VotingDelay
	}
	if raw.Governor.VotingPeriod != 0 {
		cfg.Governor.VotingPeriod = raw.Governor.VotingPeriod
	}
	if raw.Governor.MaxOperations != 0 {
		cfg.Governor.MaxOperations = raw.Governor.MaxOperations
	}
	if cfg.Governor.QuorumVotes, err = amountOr(raw.Governor.QuorumVotes, cfg.Governor.QuorumVotes); err != nil {
		return fmt.Errorf("governor.quorum_votes: %w", err)
	}
	if cfg.Governor.ProposalThreshold, err = amountOr(raw.Governor.ProposalThreshold, cfg.Governor.ProposalThreshold); err != nil {
		return fmt.Errorf("governor.proposal_threshold: %w", err)
	}

	if raw.Timelock.Delay != 0 {
		cfg.Timelock.Delay = raw.Timelock.Delay
	}
	if raw.Timelock.MinimumDelay != 0 {
		cfg.Timelock.MinimumDelay = raw.Timelock.MinimumDelay
	}
	if raw.Timelock.MaximumDelay != 0 {
		cfg.Timelock.MaximumDelay = raw.Timelock.MaximumDelay
	}
	if raw.Timelock.GracePeriod != 0 {
		cfg.Timelock.GracePeriod = raw.Timelock.GracePeriod
	}

	if cfg.Staking.EmissionRate, err = amountOr(raw.Staking.EmissionRate, cfg.Staking.EmissionRate); err != nil {
		return fmt.Errorf("staking.emission_rate: %w", err)
	}
	if cfg.Staking.RewardPool, err = amountOr(raw.Staking.RewardPool, cfg.Staking.RewardPool); err != nil {
		return fmt.Errorf("staking.reward_pool: %w", err)
	}

	if raw.Simulation.Voters != 0 {
		cfg.Simulation.Voters = raw.Simulation.Voters
	}
	if raw.Simulation.Treasury != "" {
		if cfg.Simulation.Treasury, err = units.ParseEther(expand(raw.Simulation.Treasury)); err != nil {
			return fmt.Errorf("simulation.treasury: %w", err)
		}
	}

	return applyLiveSection(cfg, &raw.Live)
}

func applyLiveSection(cfg *config.RuntimeConfig, raw *config.LiveSection) error {
	cfg.RPCURL = expand(raw.RPCURL)
	if raw.GasLimit != 0 {
		cfg.Live.GasLimit = raw.GasLimit
	}

	fields := []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"live.governor", raw.Governor, &cfg.Live.Governor},
		{"live.timelock", raw.Timelock, &cfg.Live.Timelock},
		{"live.loot", raw.Loot, &cfg.Live.Loot},
		{"live.receiver", raw.Receiver, &cfg.Live.Receiver},
		{"live.timelock_admin", raw.TimelockAdmin, &cfg.Live.TimelockAdmin},
		{"live.proposer", raw.Proposer, &cfg.Live.Proposer},
	}
	for _, f := range fields {
		value := expand(f.value)
		if value == "" {
			continue
		}
		addr, err := parseAddress(value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = addr
	}

	for i, v := range raw.Voters {
		addr, err := parseAddress(expand(v))
		if err != nil {
			return fmt.Errorf("live.voters[%d]: %w", i, err)
		}
		cfg.Live.Voters = append(cfg.Live.Voters, addr)
	}
	return nil
}

func amountOr(raw string, fallback *big.Int) (*big.Int, error) {
	if raw == "" {
		return fallback, nil
	}
	return units.ParseAmount(expand(raw))
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func expand(s string) string {
	return strings.TrimSpace(os.ExpandEnv(s))
}
