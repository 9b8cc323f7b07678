package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/dopedao/govsim/internal/domain"
)

// DefaultProposalMessage is sent with the default treasury proposal
const DefaultProposalMessage = "gang"

// RunProposalLifecycle takes one proposal from propose to execute, checking
// that every step is refused before its time
type RunProposalLifecycle struct {
	backend   GovernanceBackend
	bootstrap *BootstrapTimelockAdmin
	progress  ProgressSink
	log       *slog.Logger
}

// NewRunProposalLifecycle creates a new lifecycle use case
func NewRunProposalLifecycle(
	backend GovernanceBackend,
	bootstrap *BootstrapTimelockAdmin,
	progress ProgressSink,
	log *slog.Logger,
) *RunProposalLifecycle {
	return &RunProposalLifecycle{
		backend:   backend,
		bootstrap: bootstrap,
		progress:  progress,
		log:       log.With("component", "RunProposalLifecycle"),
	}
}

// RunProposalLifecycleParams contains parameters for a lifecycle run
type RunProposalLifecycleParams struct {
	// Draft is the proposal to run. Nil proposes sending the whole treasury
	// to @receiver.
	Draft *domain.ProposalDraft
	// Bootstrap hands the timelock to the governor first
	Bootstrap bool
}

// VoteRecord is one ballot cast during a run
type VoteRecord struct {
	Voter   common.Address `json:"voter"`
	Votes   *big.Int       `json:"votes"`
	Skipped string         `json:"skipped,omitempty"`
}

// BalanceChange is the native balance of an action target around execution
type BalanceChange struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name,omitempty"`
	Before   *big.Int       `json:"before"`
	After    *big.Int       `json:"after"`
	Expected *big.Int       `json:"expected"`
	// Checked is false for accounts that paid gas during the run
	Checked bool `json:"checked"`
}

// Delta is After - Before
func (b BalanceChange) Delta() *big.Int {
	return new(big.Int).Sub(b.After, b.Before)
}

// LifecycleResult contains the result of a lifecycle run
type LifecycleResult struct {
	Bootstrap    *BootstrapResult      `json:"bootstrap,omitempty"`
	ProposalID   uint64                `json:"proposalId"`
	Proposal     *domain.Proposal      `json:"proposal"`
	State        domain.ProposalState  `json:"state"`
	Votes        []VoteRecord          `json:"votes"`
	EarlyQueue   string                `json:"earlyQueueRevert"`
	EarlyExecute string                `json:"earlyExecuteRevert"`
	Balances     []BalanceChange       `json:"balances"`
	Receipts     []*domain.Receipt     `json:"-"`
	Deployment   *GovernanceDeployment `json:"-"`
}

// Run executes the lifecycle
func (r *RunProposalLifecycle) Run(ctx context.Context, params RunProposalLifecycleParams) (*LifecycleResult, error) {
	dep, err := r.backend.Governance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load governance deployment: %w", err)
	}
	gov := dep.Governor
	result := &LifecycleResult{Deployment: dep}

	if params.Bootstrap {
		r.progress.OnProgress(ctx, ProgressEvent{Stage: StageBootstrap, Message: "Handing timelock to governor", Spinner: true})
		if result.Bootstrap, err = r.bootstrap.run(ctx, dep); err != nil {
			return nil, fmt.Errorf("bootstrap failed: %w", err)
		}
	}

	draft := params.Draft
	if draft == nil {
		if draft, err = r.defaultDraft(ctx, dep); err != nil {
			return nil, err
		}
	}
	actions, err := ResolveDraft(draft, dep.Named)
	if err != nil {
		return nil, err
	}

	result.Balances, err = r.balances(ctx, dep, actions, nil)
	if err != nil {
		return nil, err
	}

	// propose
	r.progress.OnProgress(ctx, ProgressEvent{Stage: StagePropose, Message: fmt.Sprintf("Proposing %d action(s)", len(actions)), Spinner: true})
	if err := impersonate(ctx, r.backend, dep.Proposer); err != nil {
		return nil, err
	}
	id, receipt, err := gov.Propose(ctx, dep.Proposer, actions, draft.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to propose: %w", err)
	}
	result.ProposalID = id
	result.Receipts = append(result.Receipts, receipt)
	r.log.Debug("proposal created", "id", id, "proposer", dep.Proposer.Hex())

	votingDelay, err := gov.VotingDelay(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read voting delay: %w", err)
	}
	if err := r.backend.MineBlocks(ctx, votingDelay); err != nil {
		return nil, fmt.Errorf("failed to mine voting delay: %w", err)
	}

	// vote
	if result.Votes, err = r.vote(ctx, dep, id); err != nil {
		return nil, err
	}
	ballot, err := gov.Receipt(ctx, id, dep.Proposer)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposer receipt: %w", err)
	}
	if !ballot.HasVoted {
		return nil, checkf("proposer vote was not recorded")
	}

	_, err = gov.Queue(ctx, dep.Proposer, id)
	if result.EarlyQueue, err = expectRevert("queue before voting ends", err); err != nil {
		return nil, err
	}

	// queue
	proposal, err := gov.Proposal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposal: %w", err)
	}
	head, err := r.backend.GetBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get head block: %w", err)
	}
	if head.Number <= proposal.EndBlock {
		toEnd := proposal.EndBlock - head.Number + 1
		r.progress.OnProgress(ctx, ProgressEvent{Stage: StageQueue, Message: fmt.Sprintf("Mining %d blocks to end of voting", toEnd), Spinner: true})
		if err := r.backend.MineBlocks(ctx, toEnd); err != nil {
			return nil, fmt.Errorf("failed to mine to end of voting: %w", err)
		}
	}

	r.progress.OnProgress(ctx, ProgressEvent{Stage: StageQueue, Message: "Queueing proposal", Spinner: true})
	if receipt, err = gov.Queue(ctx, dep.Proposer, id); err != nil {
		return nil, fmt.Errorf("failed to queue proposal: %w", err)
	}
	result.Receipts = append(result.Receipts, receipt)

	_, err = gov.Execute(ctx, dep.Proposer, id)
	if result.EarlyExecute, err = expectRevert("execute before eta", err); err != nil {
		return nil, err
	}

	// execute
	if proposal, err = gov.Proposal(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to read proposal: %w", err)
	}
	if err := r.backend.SetNextBlockTimestamp(ctx, proposal.Eta+1); err != nil {
		return nil, fmt.Errorf("failed to set next block timestamp: %w", err)
	}
	if err := r.backend.MineBlock(ctx); err != nil {
		return nil, fmt.Errorf("failed to mine: %w", err)
	}

	r.progress.OnProgress(ctx, ProgressEvent{Stage: StageExecute, Message: "Executing proposal", Spinner: true})
	if receipt, err = gov.Execute(ctx, dep.Proposer, id); err != nil {
		return nil, fmt.Errorf("failed to execute proposal: %w", err)
	}
	result.Receipts = append(result.Receipts, receipt)

	if result.Proposal, err = gov.Proposal(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to read proposal: %w", err)
	}
	if result.State, err = gov.State(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to read proposal state: %w", err)
	}
	if result.Balances, err = r.balances(ctx, dep, actions, result.Balances); err != nil {
		return nil, err
	}
	r.progress.OnProgress(ctx, ProgressEvent{Stage: StageCompleted, Message: "Proposal executed"})

	if !result.Proposal.Executed {
		return result, checkf("proposal %d not marked executed", id)
	}
	for _, b := range result.Balances {
		if b.Checked && b.Delta().Cmp(b.Expected) != 0 {
			return result, checkf("incorrect final balance of %s: got +%s, want +%s", b.Address.Hex(), b.Delta(), b.Expected)
		}
	}
	return result, nil
}

// vote casts For with the proposer and every holder once. Holders without
// gas are skipped.
func (r *RunProposalLifecycle) vote(ctx context.Context, dep *GovernanceDeployment, id uint64) ([]VoteRecord, error) {
	voters := lo.Uniq(append([]common.Address{dep.Proposer}, dep.Holders...))
	records := make([]VoteRecord, 0, len(voters))

	for i, voter := range voters {
		r.progress.OnProgress(ctx, ProgressEvent{
			Stage: StageVote, Current: i + 1, Total: len(voters),
			Message: fmt.Sprintf("Voting as %s", voter.Hex()), Spinner: true,
		})
		if err := r.backend.ImpersonateAccount(ctx, voter); err != nil {
			return nil, fmt.Errorf("failed to impersonate %s: %w", voter.Hex(), err)
		}
		bal, err := r.backend.GetBalance(ctx, voter)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance of %s: %w", voter.Hex(), err)
		}
		if bal.Sign() == 0 {
			records = append(records, VoteRecord{Voter: voter, Votes: new(big.Int), Skipped: "no gas"})
			continue
		}
		if _, err := dep.Governor.CastVote(ctx, voter, id, domain.VoteFor); err != nil {
			return nil, fmt.Errorf("failed to vote as %s: %w", voter.Hex(), err)
		}
		ballot, err := dep.Governor.Receipt(ctx, id, voter)
		if err != nil {
			return nil, fmt.Errorf("failed to read receipt of %s: %w", voter.Hex(), err)
		}
		records = append(records, VoteRecord{Voter: voter, Votes: ballot.Votes})
	}
	return records, nil
}

// defaultDraft sends the whole treasury to the receiver contract
func (r *RunProposalLifecycle) defaultDraft(ctx context.Context, dep *GovernanceDeployment) (*domain.ProposalDraft, error) {
	if _, ok := dep.Named["receiver"]; !ok {
		return nil, fmt.Errorf("%w: no receiver contract for the default proposal", domain.ErrNotConfigured)
	}
	treasury, err := r.backend.GetBalance(ctx, dep.Timelock.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get treasury balance: %w", err)
	}
	data, err := stringArgs.Pack(DefaultProposalMessage)
	if err != nil {
		return nil, err
	}
	r.log.Debug("default proposal", "treasury", treasury)
	return &domain.ProposalDraft{
		Description: "send funds",
		Actions: []domain.DraftAction{{
			Target:    "@receiver",
			Value:     treasury,
			Signature: "receiveEth(string)",
			Calldata:  data,
		}},
	}, nil
}

// balances reads the balance of every action target. With prev set it
// fills in After and returns prev.
func (r *RunProposalLifecycle) balances(ctx context.Context, dep *GovernanceDeployment, actions []domain.ProposalAction, prev []BalanceChange) ([]BalanceChange, error) {
	if prev != nil {
		for i := range prev {
			bal, err := r.backend.GetBalance(ctx, prev[i].Address)
			if err != nil {
				return nil, fmt.Errorf("failed to get balance of %s: %w", prev[i].Address.Hex(), err)
			}
			prev[i].After = bal
		}
		return prev, nil
	}

	names := lo.Invert(dep.Named)
	senders := lo.SliceToMap(append([]common.Address{dep.Proposer, dep.TimelockAdmin}, dep.Holders...),
		func(a common.Address) (common.Address, bool) { return a, true })
	var changes []BalanceChange
	for _, target := range lo.Uniq(lo.Map(actions, func(a domain.ProposalAction, _ int) common.Address { return a.Target })) {
		if target == dep.Timelock.Address() {
			continue
		}
		bal, err := r.backend.GetBalance(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance of %s: %w", target.Hex(), err)
		}
		expected := lo.Reduce(actions, func(sum *big.Int, a domain.ProposalAction, _ int) *big.Int {
			if a.Target == target && a.Value != nil {
				sum.Add(sum, a.Value)
			}
			return sum
		}, new(big.Int))
		changes = append(changes, BalanceChange{Address: target, Name: names[target], Before: bal, After: bal, Expected: expected, Checked: !senders[target]})
	}
	return changes, nil
}

var stringArgs = abi.Arguments{{Type: mustType("string")}}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

// ResolveDraft turns draft targets into addresses. A target is a hex
// address or @name of a deployment contract.
func ResolveDraft(draft *domain.ProposalDraft, named map[string]common.Address) ([]domain.ProposalAction, error) {
	actions := make([]domain.ProposalAction, 0, len(draft.Actions))
	for i, a := range draft.Actions {
		var target common.Address
		switch {
		case strings.HasPrefix(a.Target, "@"):
			addr, ok := named[strings.TrimPrefix(a.Target, "@")]
			if !ok {
				return nil, fmt.Errorf("%w: action %d: unknown target %s (known: %s)", domain.ErrNotFound, i,
					a.Target, strings.Join(lo.Map(sortedKeys(named), func(k string, _ int) string { return "@" + k }), ", "))
			}
			target = addr
		case common.IsHexAddress(a.Target):
			target = common.HexToAddress(a.Target)
		default:
			return nil, fmt.Errorf("%w: action %d: invalid target %q", domain.ErrInvalidArgument, i, a.Target)
		}
		value := a.Value
		if value == nil {
			value = new(big.Int)
		}
		actions = append(actions, domain.ProposalAction{
			Target:    target,
			Value:     new(big.Int).Set(value),
			Signature: a.Signature,
			Calldata:  common.CopyBytes(a.Calldata),
		})
	}
	return actions, nil
}
