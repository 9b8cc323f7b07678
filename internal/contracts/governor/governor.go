// Package governor implements token-weighted proposals executed through a
// timelock. A proposal moves Pending -> Active -> Succeeded or Defeated ->
// Queued -> Executed or Expired, and can be Canceled until it executes.
package governor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/simchain"
)

// VotingPower supplies vote weights.
type VotingPower interface {
	GetPriorVotes(env *simchain.Env, account common.Address, block uint64) (*big.Int, error)
	GetCurrentVotes(account common.Address) *big.Int
}

// Executor is the timelock a governor administers.
type Executor interface {
	Address() common.Address
	Delay() uint64
	GracePeriod() uint64
	QueuedTransactions(hash common.Hash) bool
	QueueTransaction(env *simchain.Env, tx domain.TimelockTransaction) (common.Hash, error)
	ExecuteTransaction(env *simchain.Env, tx domain.TimelockTransaction) ([]byte, error)
	CancelTransaction(env *simchain.Env, tx domain.TimelockTransaction) error
	AcceptAdmin(env *simchain.Env) error
}

type state struct {
	proposalCount uint64
	proposals     map[uint64]*domain.Proposal
	receipts      map[uint64]map[common.Address]domain.VoteReceipt
	latest        map[common.Address]uint64
}

func (s *state) clone() *state {
	c := &state{
		proposalCount: s.proposalCount,
		proposals:     make(map[uint64]*domain.Proposal, len(s.proposals)),
		receipts:      make(map[uint64]map[common.Address]domain.VoteReceipt, len(s.receipts)),
		latest:        make(map[common.Address]uint64, len(s.latest)),
	}
	for id, p := range s.proposals {
		c.proposals[id] = p.Clone()
	}
	for id, votes := range s.receipts {
		m := make(map[common.Address]domain.VoteReceipt, len(votes))
		for voter, r := range votes {
			m[voter] = r
		}
		c.receipts[id] = m
	}
	for k, v := range s.latest {
		c.latest[k] = v
	}
	return c
}

// Governor is the DAO contract.
type Governor struct {
	address  common.Address
	guardian common.Address
	params   config.GovernorConfig
	votes    VotingPower
	timelock Executor
	state    *state
}

// New is the constructor. The deployer becomes the guardian.
func New(env *simchain.Env, votes VotingPower, timelock Executor, params config.GovernorConfig) (*Governor, error) {
	if params.VotingDelay == 0 {
		return nil, domain.Revert(domain.ErrInvalidArgument, "DopeDAO::constructor: invalid voting delay")
	}
	if params.VotingPeriod == 0 {
		return nil, domain.Revert(domain.ErrInvalidArgument, "DopeDAO::constructor: invalid voting period")
	}
	return &Governor{
		address:  env.Self,
		guardian: env.Sender,
		params:   params,
		votes:    votes,
		timelock: timelock,
		state: &state{
			proposals: make(map[uint64]*domain.Proposal),
			receipts:  make(map[uint64]map[common.Address]domain.VoteReceipt),
			latest:    make(map[common.Address]uint64),
		},
	}, nil
}

func (g *Governor) Address() common.Address  { return g.address }
func (g *Governor) Guardian() common.Address { return g.guardian }
func (g *Governor) Timelock() common.Address { return g.timelock.Address() }
func (g *Governor) VotingDelay() uint64      { return g.params.VotingDelay }
func (g *Governor) VotingPeriod() uint64     { return g.params.VotingPeriod }
func (g *Governor) ProposalCount() uint64    { return g.state.proposalCount }

func (g *Governor) QuorumVotes() *big.Int {
	return new(big.Int).Set(g.params.QuorumVotes)
}

func (g *Governor) ProposalThreshold() *big.Int {
	return new(big.Int).Set(g.params.ProposalThreshold)
}

func (g *Governor) Snapshot() any { return g.state.clone() }

func (g *Governor) Restore(s any) { g.state = s.(*state) }

const reasonInvalidID = "DopeDAO::state: invalid proposal id"

var proposalIDOutput = simchain.MustArguments("uint256")

func (g *Governor) Methods() simchain.Methods {
	return simchain.NewMethods(
		simchain.Func("propose(address[],uint256[],string[],bytes[],string)", func(env *simchain.Env, args []any) ([]byte, error) {
			id, err := g.Propose(env,
				args[0].([]common.Address), args[1].([]*big.Int), args[2].([]string), args[3].([][]byte), args[4].(string))
			if err != nil {
				return nil, err
			}
			return proposalIDOutput.Pack(new(big.Int).SetUint64(id))
		}),
		simchain.Func("castVote(uint256,uint8)", func(env *simchain.Env, args []any) ([]byte, error) {
			id, err := simchain.Uint64(args[0], reasonInvalidID)
			if err != nil {
				return nil, err
			}
			return nil, g.CastVote(env, id, domain.VoteSupport(args[1].(uint8)))
		}),
		simchain.Func("queue(uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			id, err := simchain.Uint64(args[0], reasonInvalidID)
			if err != nil {
				return nil, err
			}
			return nil, g.Queue(env, id)
		}),
		simchain.Func("execute(uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			id, err := simchain.Uint64(args[0], reasonInvalidID)
			if err != nil {
				return nil, err
			}
			return nil, g.Execute(env, id)
		}),
		simchain.Func("cancel(uint256)", func(env *simchain.Env, args []any) ([]byte, error) {
			id, err := simchain.Uint64(args[0], reasonInvalidID)
			if err != nil {
				return nil, err
			}
			return nil, g.Cancel(env, id)
		}),
		simchain.Func("__acceptAdmin()", func(env *simchain.Env, _ []any) ([]byte, error) {
			return nil, g.AcceptAdmin(env)
		}),
	)
}

// Propose creates a proposal and returns its id. Voting opens votingDelay
// blocks after the current block and lasts votingPeriod blocks.
func (g *Governor) Propose(env *simchain.Env, targets []common.Address, values []*big.Int, signatures []string, calldatas [][]byte, description string) (uint64, error) {
	proposer := env.Sender

	if g.votes.GetCurrentVotes(proposer).Cmp(g.params.ProposalThreshold) <= 0 {
		return 0, domain.Revert(domain.ErrUnauthorized, "DopeDAO::propose: proposer votes below proposal threshold")
	}
	actions, err := domain.ZipActions(targets, values, signatures, calldatas)
	if err != nil {
		return 0, &domain.RevertError{
			Reason: "DopeDAO::propose: proposal function information arity mismatch",
			Kind:   domain.ErrInvalidArgument,
			Cause:  err,
		}
	}
	if len(actions) == 0 {
		return 0, domain.Revert(domain.ErrInvalidArgument, "DopeDAO::propose: must provide actions")
	}
	if len(actions) > g.params.MaxOperations {
		return 0, domain.Revert(domain.ErrInvalidArgument, "DopeDAO::propose: too many actions")
	}

	if latest, ok := g.state.latest[proposer]; ok {
		switch g.stateOf(env, g.state.proposals[latest]) {
		case domain.ProposalStateActive:
			return 0, domain.Revert(domain.ErrDuplicate, "DopeDAO::propose: one live proposal per proposer, found an already active proposal")
		case domain.ProposalStatePending:
			return 0, domain.Revert(domain.ErrDuplicate, "DopeDAO::propose: one live proposal per proposer, found an already pending proposal")
		}
	}

	for i := range actions {
		actions[i] = actions[i].Clone()
		if actions[i].Value == nil {
			actions[i].Value = new(big.Int)
		}
	}

	g.state.proposalCount++
	p := &domain.Proposal{
		ID:            g.state.proposalCount,
		Proposer:      proposer,
		Actions:       actions,
		Description:   description,
		SnapshotBlock: env.Block.Number,
		StartBlock:    env.Block.Number + g.params.VotingDelay,
		EndBlock:      env.Block.Number + g.params.VotingDelay + g.params.VotingPeriod,
		ForVotes:      new(big.Int),
		AgainstVotes:  new(big.Int),
		AbstainVotes:  new(big.Int),
	}
	g.state.proposals[p.ID] = p
	g.state.latest[proposer] = p.ID

	env.Emit(domain.ProposalCreatedEvent{
		ProposalID:  p.ID,
		Proposer:    proposer,
		Actions:     p.Clone().Actions,
		StartBlock:  p.StartBlock,
		EndBlock:    p.EndBlock,
		Description: description,
	})
	return p.ID, nil
}

// CastVote records the caller's vote, weighted by their votes at the block
// the proposal was created in.
func (g *Governor) CastVote(env *simchain.Env, id uint64, support domain.VoteSupport) error {
	p, err := g.proposal(id)
	if err != nil {
		return err
	}
	if support > domain.VoteAbstain {
		return domain.Revert(domain.ErrInvalidArgument, "DopeDAO::castVote: invalid vote type")
	}

	switch g.stateOf(env, p) {
	case domain.ProposalStateActive:
	case domain.ProposalStatePending:
		return domain.Revert(domain.ErrTooEarly, "DopeDAO::castVote: voting is closed")
	default:
		return domain.Revert(domain.ErrInvalidState, "DopeDAO::castVote: voting is closed")
	}

	voter := env.Sender
	if g.state.receipts[id][voter].HasVoted {
		return domain.Revert(domain.ErrDuplicate, "DopeDAO::castVote: voter already voted")
	}

	weight, err := g.votes.GetPriorVotes(env, voter, p.SnapshotBlock)
	if err != nil {
		return err
	}

	switch support {
	case domain.VoteFor:
		p.ForVotes.Add(p.ForVotes, weight)
	case domain.VoteAgainst:
		p.AgainstVotes.Add(p.AgainstVotes, weight)
	case domain.VoteAbstain:
		p.AbstainVotes.Add(p.AbstainVotes, weight)
	}

	if g.state.receipts[id] == nil {
		g.state.receipts[id] = make(map[common.Address]domain.VoteReceipt)
	}
	g.state.receipts[id][voter] = domain.VoteReceipt{HasVoted: true, Support: support, Votes: weight}

	env.Emit(domain.VoteCastEvent{Voter: voter, ProposalID: id, Support: support, Votes: new(big.Int).Set(weight)})
	return nil
}

// State derives the lifecycle state of a proposal from the current block.
func (g *Governor) State(env *simchain.Env, id uint64) (domain.ProposalState, error) {
	p, err := g.proposal(id)
	if err != nil {
		return 0, err
	}
	return g.stateOf(env, p), nil
}

func (g *Governor) stateOf(env *simchain.Env, p *domain.Proposal) domain.ProposalState {
	switch {
	case p.Canceled:
		return domain.ProposalStateCanceled
	case env.Block.Number < p.StartBlock:
		return domain.ProposalStatePending
	case env.Block.Number <= p.EndBlock:
		return domain.ProposalStateActive
	case p.ForVotes.Cmp(p.AgainstVotes) <= 0 || p.ForVotes.Cmp(g.params.QuorumVotes) <= 0:
		return domain.ProposalStateDefeated
	case p.Eta == 0:
		return domain.ProposalStateSucceeded
	case p.Executed:
		return domain.ProposalStateExecuted
	case env.Block.Timestamp >= p.Eta+g.timelock.GracePeriod():
		return domain.ProposalStateExpired
	default:
		return domain.ProposalStateQueued
	}
}

// Queue schedules every action of a succeeded proposal in the timelock at
// eta = now + timelock delay.
func (g *Governor) Queue(env *simchain.Env, id uint64) error {
	p, err := g.proposal(id)
	if err != nil {
		return err
	}

	switch g.stateOf(env, p) {
	case domain.ProposalStateSucceeded:
	case domain.ProposalStatePending, domain.ProposalStateActive:
		return domain.Revert(domain.ErrTooEarly, "DopeDAO::queue: proposal can only be queued if it is succeeded")
	default:
		return domain.Revert(domain.ErrInvalidState, "DopeDAO::queue: proposal can only be queued if it is succeeded")
	}

	eta := env.Block.Timestamp + g.timelock.Delay()
	frame := env.Frame(g.timelock.Address())
	for _, a := range p.Actions {
		tx := timelockTx(a, eta)
		if g.timelock.QueuedTransactions(tx.Hash()) {
			return domain.Revert(domain.ErrDuplicate, "DopeDAO::_queueOrRevert: proposal action already queued at eta")
		}
		if _, err := g.timelock.QueueTransaction(frame, tx); err != nil {
			return err
		}
	}

	p.Eta = eta
	env.Emit(domain.ProposalQueuedEvent{ProposalID: id, Eta: eta})
	return nil
}

// Execute runs every action of a queued proposal through the timelock. The
// timelock rejects the call until eta has passed.
func (g *Governor) Execute(env *simchain.Env, id uint64) error {
	p, err := g.proposal(id)
	if err != nil {
		return err
	}
	if g.stateOf(env, p) != domain.ProposalStateQueued {
		return domain.Revert(domain.ErrInvalidState, "DopeDAO::execute: proposal can only be executed if it is queued")
	}

	p.Executed = true
	frame := env.Frame(g.timelock.Address())
	for _, a := range p.Actions {
		if _, err := g.timelock.ExecuteTransaction(frame, timelockTx(a, p.Eta)); err != nil {
			return err
		}
	}

	env.Emit(domain.ProposalExecutedEvent{ProposalID: id})
	return nil
}

// Cancel stops a proposal that has not executed. The guardian and the
// proposer may always cancel; anyone may once the proposer's votes fall to
// the threshold.
func (g *Governor) Cancel(env *simchain.Env, id uint64) error {
	p, err := g.proposal(id)
	if err != nil {
		return err
	}
	if g.stateOf(env, p) == domain.ProposalStateExecuted {
		return domain.Revert(domain.ErrInvalidState, "DopeDAO::cancel: cannot cancel executed proposal")
	}
	if env.Sender != g.guardian && env.Sender != p.Proposer &&
		g.votes.GetCurrentVotes(p.Proposer).Cmp(g.params.ProposalThreshold) > 0 {
		return domain.Revert(domain.ErrUnauthorized, "DopeDAO::cancel: proposer above threshold")
	}

	p.Canceled = true
	if p.Eta != 0 {
		frame := env.Frame(g.timelock.Address())
		for _, a := range p.Actions {
			if err := g.timelock.CancelTransaction(frame, timelockTx(a, p.Eta)); err != nil {
				return err
			}
		}
	}

	env.Emit(domain.ProposalCanceledEvent{ProposalID: id})
	return nil
}

// AcceptAdmin makes the governor accept the timelock's pending admin role.
func (g *Governor) AcceptAdmin(env *simchain.Env) error {
	if env.Sender != g.guardian {
		return domain.Revert(domain.ErrUnauthorized, "DopeDAO::__acceptAdmin: sender must be gov guardian")
	}
	return g.timelock.AcceptAdmin(env.Frame(g.timelock.Address()))
}

// Proposal returns a copy of proposal id.
func (g *Governor) Proposal(id uint64) (*domain.Proposal, error) {
	p, err := g.proposal(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Receipt returns the ballot of voter on proposal id.
func (g *Governor) Receipt(id uint64, voter common.Address) domain.VoteReceipt {
	r, ok := g.state.receipts[id][voter]
	if !ok {
		return domain.VoteReceipt{Votes: new(big.Int)}
	}
	r.Votes = new(big.Int).Set(r.Votes)
	return r
}

func (g *Governor) HasVoted(id uint64, voter common.Address) bool {
	return g.state.receipts[id][voter].HasVoted
}

func (g *Governor) proposal(id uint64) (*domain.Proposal, error) {
	p, ok := g.state.proposals[id]
	if !ok {
		return nil, domain.Revert(domain.ErrNotFound, reasonInvalidID)
	}
	return p, nil
}

func timelockTx(a domain.ProposalAction, eta uint64) domain.TimelockTransaction {
	return domain.TimelockTransaction{
		Target:    a.Target,
		Value:     a.Value,
		Signature: a.Signature,
		Data:      a.Calldata,
		Eta:       eta,
	}
}
