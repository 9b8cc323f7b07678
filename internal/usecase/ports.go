package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
)

// ChainControl drives the block clock of a dev chain
type ChainControl interface {
	MineBlock(ctx context.Context) error
	MineBlocks(ctx context.Context, n uint64) error
	SetNextBlockTimestamp(ctx context.Context, ts uint64) error
	ImpersonateAccount(ctx context.Context, addr common.Address) error
	GetBlock(ctx context.Context) (*domain.Block, error)
	GetBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	SetBalance(ctx context.Context, addr common.Address, amount *big.Int) error
}

// GovernorClient sends transactions to and reads from the governor.
// Mutating calls return the receipt and, on revert, a *domain.RevertError.
type GovernorClient interface {
	Address() common.Address
	Propose(ctx context.Context, from common.Address, actions []domain.ProposalAction, description string) (uint64, *domain.Receipt, error)
	CastVote(ctx context.Context, from common.Address, id uint64, support domain.VoteSupport) (*domain.Receipt, error)
	Queue(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error)
	Execute(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error)
	Cancel(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error)
	AcceptAdmin(ctx context.Context, from common.Address) (*domain.Receipt, error)

	State(ctx context.Context, id uint64) (domain.ProposalState, error)
	Proposal(ctx context.Context, id uint64) (*domain.Proposal, error)
	Receipt(ctx context.Context, id uint64, voter common.Address) (*domain.VoteReceipt, error)
	VotingDelay(ctx context.Context) (uint64, error)
	QuorumVotes(ctx context.Context) (*big.Int, error)
	Guardian(ctx context.Context) (common.Address, error)
}

// TimelockClient sends transactions to and reads from the timelock
type TimelockClient interface {
	Address() common.Address
	QueueTransaction(ctx context.Context, from common.Address, tx domain.TimelockTransaction) (*domain.Receipt, error)
	ExecuteTransaction(ctx context.Context, from common.Address, tx domain.TimelockTransaction) (*domain.Receipt, error)
	Admin(ctx context.Context) (common.Address, error)
	Delay(ctx context.Context) (uint64, error)
}

// GovernanceDeployment is a governor, its timelock and the accounts a
// lifecycle run acts with
type GovernanceDeployment struct {
	Governor GovernorClient
	Timelock TimelockClient

	// Named resolves @name targets in proposal drafts
	Named map[string]common.Address

	// TimelockAdmin can queue on the timelock before the governor is admin
	TimelockAdmin common.Address
	Proposer      common.Address
	Holders       []common.Address
}

// GovernanceBackend is a chain with a governance deployment on it
type GovernanceBackend interface {
	ChainControl
	Governance(ctx context.Context) (*GovernanceDeployment, error)
}

// StakingClient sends transactions to and reads from the stake contract
type StakingClient interface {
	Address() common.Address
	Stake(ctx context.Context, from common.Address, ids []uint64, accepted bool) (*domain.Receipt, error)
	Unstake(ctx context.Context, from common.Address, ids []uint64, accepted bool) (*domain.Receipt, error)
	Harvest(ctx context.Context, from common.Address, ids []uint64, accepted bool) (*domain.Receipt, error)
	SetEmissionRate(ctx context.Context, from common.Address, rate *big.Int) (*domain.Receipt, error)
	RewardOf(ctx context.Context, id uint64) (*big.Int, error)
	EmissionRate(ctx context.Context) (*big.Int, error)
	StakeReceipt(ctx context.Context, id uint64) (domain.StakeReceipt, error)
}

// NFTClient is the staked collection
type NFTClient interface {
	Address() common.Address
	Approve(ctx context.Context, from, to common.Address, id uint64) (*domain.Receipt, error)
	OwnerOf(ctx context.Context, id uint64) (common.Address, error)
}

// TokenClient is the reward token
type TokenClient interface {
	Address() common.Address
	BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error)
}

// StakingDeployment is a stake contract with its NFT and reward token
type StakingDeployment struct {
	Staking StakingClient
	NFT     NFTClient
	Reward  TokenClient
	DAO     common.Address

	// Stakers maps each staking account to a token it owns
	Stakers map[common.Address]uint64
}

// StakingProvider is a chain with a staking deployment on it
type StakingProvider interface {
	ChainControl
	Staking(ctx context.Context) (*StakingDeployment, error)
}

// ProposalLoader reads a proposal draft from a file
type ProposalLoader interface {
	Load(ctx context.Context, path string) (*domain.ProposalDraft, error)
}

// Progress tracking interfaces

// Stage names a step of a scenario run
type Stage string

const (
	StageBootstrap Stage = "bootstrap"
	StagePropose   Stage = "propose"
	StageVote      Stage = "vote"
	StageQueue     Stage = "queue"
	StageExecute   Stage = "execute"
	StageStake     Stage = "stake"
	StageHarvest   Stage = "harvest"
	StageUnstake   Stage = "unstake"
	StageCompleted Stage = "completed"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    Stage
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
