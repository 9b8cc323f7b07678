package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/dopedao/govsim/internal/domain"
)

// DefaultStakeBlocks is how many blocks a staking run accrues for
const DefaultStakeBlocks = 4

// RunStakingScenario stakes one token, lets it accrue, harvests and
// unstakes, checking the reward at every step
type RunStakingScenario struct {
	provider StakingProvider
	progress ProgressSink
	log      *slog.Logger
}

// NewRunStakingScenario creates a new staking use case
func NewRunStakingScenario(provider StakingProvider, progress ProgressSink, log *slog.Logger) *RunStakingScenario {
	return &RunStakingScenario{
		provider: provider,
		progress: progress,
		log:      log.With("component", "RunStakingScenario"),
	}
}

// RunStakingParams contains parameters for a staking run
type RunStakingParams struct {
	Blocks uint64
	// Rate, when set, is applied by the DAO before staking
	Rate *big.Int
}

// StakingResult contains the observations of a staking run
type StakingResult struct {
	Owner         common.Address `json:"owner"`
	TokenID       uint64         `json:"tokenId"`
	Rate          *big.Int       `json:"rate"`
	Blocks        uint64         `json:"blocks"`
	StakedAt      uint64         `json:"stakedAt"`
	TermsRevert   string         `json:"termsRevert"`
	Accrued       *big.Int       `json:"accrued"`
	AfterHarvest  *big.Int       `json:"afterHarvest"`
	OneBlockLater *big.Int       `json:"oneBlockLater"`
	Paid          *big.Int       `json:"paid"`
	Returned      bool           `json:"returned"`
}

// Run executes the scenario
func (r *RunStakingScenario) Run(ctx context.Context, params RunStakingParams) (*StakingResult, error) {
	if params.Blocks == 0 {
		params.Blocks = DefaultStakeBlocks
	}
	dep, err := r.provider.Staking(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load staking deployment: %w", err)
	}
	if len(dep.Stakers) == 0 {
		return nil, fmt.Errorf("%w: no account holds a token to stake", domain.ErrNotConfigured)
	}
	stakers := lo.Keys(dep.Stakers)
	slices.SortFunc(stakers, func(a, b common.Address) int { return a.Cmp(b) })
	owner := stakers[0]
	id := dep.Stakers[owner]
	stake := dep.Staking

	if params.Rate != nil {
		if err := impersonate(ctx, r.provider, dep.DAO); err != nil {
			return nil, err
		}
		if _, err := stake.SetEmissionRate(ctx, dep.DAO, params.Rate); err != nil {
			return nil, fmt.Errorf("failed to set emission rate: %w", err)
		}
	}
	rate, err := stake.EmissionRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read emission rate: %w", err)
	}
	paidBefore, err := dep.Reward.BalanceOf(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read reward balance: %w", err)
	}
	result := &StakingResult{Owner: owner, TokenID: id, Rate: rate, Blocks: params.Blocks}

	// stake
	r.progress.OnProgress(ctx, ProgressEvent{Stage: StageStake, Message: fmt.Sprintf("Staking token %d", id), Spinner: true})
	if _, err := dep.NFT.Approve(ctx, owner, stake.Address(), id); err != nil {
		return nil, fmt.Errorf("failed to approve token %d: %w", id, err)
	}
	_, err = stake.Stake(ctx, owner, []uint64{id}, false)
	if result.TermsRevert, err = expectRevert("stake without accepting terms", err); err != nil {
		return nil, err
	}
	if _, err := stake.Stake(ctx, owner, []uint64{id}, true); err != nil {
		return nil, fmt.Errorf("failed to stake token %d: %w", id, err)
	}
	receipt, err := stake.StakeReceipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read stake receipt: %w", err)
	}
	result.StakedAt = receipt.From

	if err := r.provider.MineBlocks(ctx, params.Blocks); err != nil {
		return nil, fmt.Errorf("failed to mine: %w", err)
	}
	if result.Accrued, err = stake.RewardOf(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to read reward: %w", err)
	}
	want := new(big.Int).Mul(new(big.Int).SetUint64(params.Blocks), rate)
	if result.Accrued.Cmp(want) != 0 {
		return result, checkf("reward after %d blocks is %s, want %s", params.Blocks, result.Accrued, want)
	}

	// harvest
	r.progress.OnProgress(ctx, ProgressEvent{Stage: StageHarvest, Message: fmt.Sprintf("Harvesting token %d", id), Spinner: true})
	if _, err := stake.Harvest(ctx, owner, []uint64{id}, true); err != nil {
		return nil, fmt.Errorf("failed to harvest token %d: %w", id, err)
	}
	if result.AfterHarvest, err = stake.RewardOf(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to read reward: %w", err)
	}
	if result.AfterHarvest.Sign() != 0 {
		return result, checkf("reward right after harvest is %s, want 0", result.AfterHarvest)
	}
	if err := r.provider.MineBlock(ctx); err != nil {
		return nil, fmt.Errorf("failed to mine: %w", err)
	}
	if result.OneBlockLater, err = stake.RewardOf(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to read reward: %w", err)
	}
	if result.OneBlockLater.Cmp(rate) != 0 {
		return result, checkf("reward one block after harvest is %s, want %s", result.OneBlockLater, rate)
	}

	// unstake
	r.progress.OnProgress(ctx, ProgressEvent{Stage: StageUnstake, Message: fmt.Sprintf("Unstaking token %d", id), Spinner: true})
	if _, err := stake.Unstake(ctx, owner, []uint64{id}, true); err != nil {
		return nil, fmt.Errorf("failed to unstake token %d: %w", id, err)
	}
	holder, err := dep.NFT.OwnerOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner of token %d: %w", id, err)
	}
	result.Returned = holder == owner
	paidAfter, err := dep.Reward.BalanceOf(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read reward balance: %w", err)
	}
	result.Paid = new(big.Int).Sub(paidAfter, paidBefore)
	r.progress.OnProgress(ctx, ProgressEvent{Stage: StageCompleted, Message: "Staking scenario complete"})
	r.log.Debug("staking scenario done", "token", id, "paid", result.Paid)

	if !result.Returned {
		return result, checkf("token %d owned by %s after unstake, want %s", id, holder.Hex(), owner.Hex())
	}
	return result, nil
}
