package config

// ProjectConfig is the on-disk shape of govsim.toml. Large numbers and
// addresses are strings so they can carry ${VAR} references and exceed int64.
type ProjectConfig struct {
	Chain      ChainSection      `toml:"chain"`
	Governor   GovernorSection   `toml:"governor"`
	Timelock   TimelockSection   `toml:"timelock"`
	Staking    StakingSection    `toml:"staking"`
	Simulation SimulationSection `toml:"simulation"`
	Live       LiveSection       `toml:"live"`
}

type ChainSection struct {
	ChainID          uint64 `toml:"chain_id"`
	BlockTime        uint64 `toml:"block_time"`
	GenesisTimestamp uint64 `toml:"genesis_timestamp"`
	Accounts         int    `toml:"accounts"`
	AccountBalance   string `toml:"account_balance"` // ether
}

type GovernorSection struct {
	VotingDelay       uint64 `toml:"voting_delay"`
	VotingPeriod      uint64 `toml:"voting_period"`
	QuorumVotes       string `toml:"quorum_votes"`
	ProposalThreshold string `toml:"proposal_threshold"`
	MaxOperations     int    `toml:"max_operations"`
}

type TimelockSection struct {
	Delay        uint64 `toml:"delay"`
	MinimumDelay uint64 `toml:"minimum_delay"`
	MaximumDelay uint64 `toml:"maximum_delay"`
	GracePeriod  uint64 `toml:"grace_period"`
}

type StakingSection struct {
	EmissionRate string `toml:"emission_rate"`
	RewardPool   string `toml:"reward_pool"`
}

type SimulationSection struct {
	Voters   int    `toml:"voters"`
	Treasury string `toml:"treasury"` // ether
}

type LiveSection struct {
	RPCURL        string   `toml:"rpc_url"`
	Governor      string   `toml:"governor"`
	Timelock      string   `toml:"timelock"`
	Loot          string   `toml:"loot"`
	Receiver      string   `toml:"receiver"`
	TimelockAdmin string   `toml:"timelock_admin"`
	Proposer      string   `toml:"proposer"`
	Voters        []string `toml:"voters"`
	GasLimit      uint64   `toml:"gas_limit"`
}
