package governor_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/suite"

	"github.com/dopedao/govsim/internal/contracts/governor"
	"github.com/dopedao/govsim/internal/contracts/timelock"
	"github.com/dopedao/govsim/internal/contracts/token"
	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/domain/config"
	"github.com/dopedao/govsim/internal/simchain"
	"github.com/dopedao/govsim/internal/simchain/simtest"
)

const (
	delay        = 60
	votingPeriod = 5
)

var recipient = common.HexToAddress("0xc2407b34b19d2227addc5c6eae5c5d99432a0c99")

func TestGovernor(t *testing.T) {
	suite.Run(t, new(GovernorSuite))
}

type GovernorSuite struct {
	suite.Suite

	chain    *simchain.Chain
	loot     *token.ERC721
	timelock *timelock.Timelock
	gov      *governor.Governor

	guardian common.Address
	voters   []common.Address
}

var _ suite.SetupTestSuite = &GovernorSuite{}

// SetupTest deploys a fresh DAO before each test. Accounts 1-5 each hold one
// token, the timelock holds 1 ether and the chain is at block 1.
func (s *GovernorSuite) SetupTest() {
	t := s.T()
	s.chain = simtest.NewChain(t)
	s.guardian = s.chain.Account(0)
	s.voters = s.chain.Accounts()[1:6]

	s.loot = simtest.Deploy(t, s.chain, s.guardian, func(env *simchain.Env) (*token.ERC721, error) {
		return token.NewERC721(env, "DOPE", "DOPE", 8000)
	})

	// the governor is the guardian's third deployment
	govAddr := crypto.CreateAddress(s.guardian, 2)
	s.timelock = simtest.Deploy(t, s.chain, s.guardian, func(env *simchain.Env) (*timelock.Timelock, error) {
		return timelock.New(env, govAddr, delay, config.TimelockConfig{
			Delay:        delay,
			MinimumDelay: delay,
			MaximumDelay: config.MaximumTimelockDelay,
			GracePeriod:  config.GracePeriod,
		})
	})
	s.gov = simtest.Deploy(t, s.chain, s.guardian, func(env *simchain.Env) (*governor.Governor, error) {
		return governor.New(env, s.loot, s.timelock, config.GovernorConfig{
			VotingDelay:       1,
			VotingPeriod:      votingPeriod,
			QuorumVotes:       big.NewInt(3),
			ProposalThreshold: big.NewInt(0),
			MaxOperations:     config.DefaultMaxOperations,
		})
	})
	s.Require().Equal(govAddr, s.gov.Address())

	for i, voter := range s.voters {
		id := uint64(i + 1)
		simtest.MustSend(t, s.chain, voter, s.loot.Address(), func(env *simchain.Env) error {
			return s.loot.Claim(env, id)
		})
	}
	_, err := s.chain.Send(t.Context(), s.guardian, s.timelock.Address(), config.Ether)
	s.Require().NoError(err)
	simtest.Mine(t, s.chain, 1)
}

func (s *GovernorSuite) transferAction(amount int64) domain.ProposalAction {
	return domain.ProposalAction{Target: recipient, Value: big.NewInt(amount)}
}

func (s *GovernorSuite) propose(from common.Address, actions ...domain.ProposalAction) (uint64, error) {
	var id uint64
	err := simtest.Send(s.T(), s.chain, from, s.gov.Address(), func(env *simchain.Env) error {
		targets, values, signatures, calldatas := domain.SplitActions(actions)
		var err error
		id, err = s.gov.Propose(env, targets, values, signatures, calldatas, "# Test proposal")
		return err
	})
	return id, err
}

func (s *GovernorSuite) mustPropose(actions ...domain.ProposalAction) uint64 {
	id, err := s.propose(s.voters[0], actions...)
	s.Require().NoError(err)
	return id
}

func (s *GovernorSuite) vote(voter common.Address, id uint64, support domain.VoteSupport) error {
	return simtest.Send(s.T(), s.chain, voter, s.gov.Address(), func(env *simchain.Env) error {
		return s.gov.CastVote(env, id, support)
	})
}

func (s *GovernorSuite) send(from common.Address, fn func(env *simchain.Env) error) error {
	return simtest.Send(s.T(), s.chain, from, s.gov.Address(), fn)
}

func (s *GovernorSuite) state(id uint64) domain.ProposalState {
	var st domain.ProposalState
	simtest.View(s.T(), s.chain, s.gov.Address(), func(env *simchain.Env) error {
		var err error
		st, err = s.gov.State(env, id)
		return err
	})
	return st
}

func (s *GovernorSuite) proposal(id uint64) *domain.Proposal {
	p, err := s.gov.Proposal(id)
	s.Require().NoError(err)
	return p
}

// mineUntilEnded mines past the proposal's end block.
func (s *GovernorSuite) mineUntilEnded(id uint64) {
	p := s.proposal(id)
	simtest.Mine(s.T(), s.chain, p.EndBlock-s.chain.Head().Number+1)
}

func (s *GovernorSuite) warp(ts uint64) {
	s.Require().NoError(s.chain.SetNextBlockTimestamp(s.T().Context(), ts))
	simtest.Mine(s.T(), s.chain, 1)
}

// passed returns a proposal that won with four votes for and one against.
func (s *GovernorSuite) passed(actions ...domain.ProposalAction) uint64 {
	id := s.mustPropose(actions...)
	simtest.Mine(s.T(), s.chain, 1)
	for i, voter := range s.voters {
		support := domain.VoteFor
		if i == len(s.voters)-1 {
			support = domain.VoteAgainst
		}
		s.Require().NoError(s.vote(voter, id, support))
	}
	s.mineUntilEnded(id)
	return id
}

func (s *GovernorSuite) queued(actions ...domain.ProposalAction) uint64 {
	id := s.passed(actions...)
	s.Require().NoError(s.send(s.voters[1], func(env *simchain.Env) error { return s.gov.Queue(env, id) }))
	return id
}

func (s *GovernorSuite) TestLifecycle() {
	id := s.mustPropose(s.transferAction(400))
	s.Equal(uint64(1), id)
	s.Equal(domain.ProposalStatePending, s.state(id))

	p := s.proposal(id)
	s.Equal(uint64(1), p.SnapshotBlock)
	s.Equal(uint64(2), p.StartBlock)
	s.Equal(uint64(2+votingPeriod), p.EndBlock)

	err := s.vote(s.voters[0], id, domain.VoteFor)
	simtest.RequireRevert(s.T(), err, "DopeDAO::castVote: voting is closed")
	s.ErrorIs(err, domain.ErrTooEarly)

	simtest.Mine(s.T(), s.chain, 1)
	s.Equal(domain.ProposalStateActive, s.state(id))

	for _, voter := range s.voters[:4] {
		s.Require().NoError(s.vote(voter, id, domain.VoteFor))
	}
	s.Require().NoError(s.vote(s.voters[4], id, domain.VoteAgainst))

	err = s.vote(s.voters[0], id, domain.VoteAgainst)
	simtest.RequireRevert(s.T(), err, "DopeDAO::castVote: voter already voted")
	s.ErrorIs(err, domain.ErrDuplicate)

	err = s.send(s.voters[0], func(env *simchain.Env) error { return s.gov.Queue(env, id) })
	simtest.RequireRevert(s.T(), err, "DopeDAO::queue: proposal can only be queued if it is succeeded")
	s.ErrorIs(err, domain.ErrTooEarly)

	s.mineUntilEnded(id)
	s.Equal(domain.ProposalStateSucceeded, s.state(id))
	s.Equal(int64(4), s.proposal(id).ForVotes.Int64())
	s.Equal(int64(1), s.proposal(id).AgainstVotes.Int64())

	queuedAt := s.chain.Head().Timestamp
	receipt := simtest.MustSend(s.T(), s.chain, s.voters[2], s.gov.Address(), func(env *simchain.Env) error {
		return s.gov.Queue(env, id)
	})
	s.Len(receipt.Events(string(domain.EventTypeQueueTransaction)), 1)
	s.Equal(domain.ProposalStateQueued, s.state(id))
	eta := s.proposal(id).Eta
	s.Equal(queuedAt+delay, eta)

	err = s.send(s.voters[2], func(env *simchain.Env) error { return s.gov.Execute(env, id) })
	simtest.RequireRevert(s.T(), err, "Timelock::executeTransaction: Transaction hasn't surpassed time lock.")
	s.ErrorIs(err, domain.ErrTooEarly)
	s.Equal(domain.ProposalStateQueued, s.state(id))

	s.warp(eta + 1)
	s.Require().NoError(s.send(s.voters[3], func(env *simchain.Env) error { return s.gov.Execute(env, id) }))
	s.Equal(domain.ProposalStateExecuted, s.state(id))

	bal, err := s.chain.GetBalance(s.T().Context(), recipient)
	s.Require().NoError(err)
	s.Equal(int64(400), bal.Int64())

	err = s.send(s.guardian, func(env *simchain.Env) error { return s.gov.Cancel(env, id) })
	simtest.RequireRevert(s.T(), err, "DopeDAO::cancel: cannot cancel executed proposal")
}

func (s *GovernorSuite) TestVoteWeightIsTakenAtCreation() {
	id := s.mustPropose(s.transferAction(1))
	simtest.Mine(s.T(), s.chain, 1)

	// voter 4 hands their token to voter 0 once voting is open
	simtest.MustSend(s.T(), s.chain, s.voters[4], s.loot.Address(), func(env *simchain.Env) error {
		return s.loot.TransferFrom(env, s.voters[4], s.voters[0], 5)
	})

	s.Require().NoError(s.vote(s.voters[0], id, domain.VoteFor))
	s.Require().NoError(s.vote(s.voters[4], id, domain.VoteAbstain))

	p := s.proposal(id)
	s.Equal(int64(1), p.ForVotes.Int64())
	s.Equal(int64(1), p.AbstainVotes.Int64())

	r := s.gov.Receipt(id, s.voters[4])
	s.True(r.HasVoted)
	s.Equal(domain.VoteAbstain, r.Support)
	s.False(s.gov.HasVoted(id, s.voters[1]))
}

func (s *GovernorSuite) TestInvalidVoteType() {
	id := s.mustPropose(s.transferAction(1))
	simtest.Mine(s.T(), s.chain, 1)
	err := s.vote(s.voters[0], id, domain.VoteSupport(3))
	simtest.RequireRevert(s.T(), err, "DopeDAO::castVote: invalid vote type")
}

func (s *GovernorSuite) TestVotingClosesAfterEndBlock() {
	id := s.mustPropose(s.transferAction(1))
	s.mineUntilEnded(id)
	err := s.vote(s.voters[0], id, domain.VoteFor)
	simtest.RequireRevert(s.T(), err, "DopeDAO::castVote: voting is closed")
	s.ErrorIs(err, domain.ErrInvalidState)
}

func (s *GovernorSuite) TestQuorumIsStrict() {
	id := s.mustPropose(s.transferAction(1))
	simtest.Mine(s.T(), s.chain, 1)
	for _, voter := range s.voters[:3] {
		s.Require().NoError(s.vote(voter, id, domain.VoteFor))
	}
	s.mineUntilEnded(id)
	s.Equal(domain.ProposalStateDefeated, s.state(id))

	err := s.send(s.voters[0], func(env *simchain.Env) error { return s.gov.Queue(env, id) })
	simtest.RequireRevert(s.T(), err, "DopeDAO::queue: proposal can only be queued if it is succeeded")
	s.ErrorIs(err, domain.ErrInvalidState)
}

func (s *GovernorSuite) TestTieIsDefeated() {
	id := s.mustPropose(s.transferAction(1))
	simtest.Mine(s.T(), s.chain, 1)
	s.Require().NoError(s.vote(s.voters[0], id, domain.VoteFor))
	s.Require().NoError(s.vote(s.voters[1], id, domain.VoteFor))
	s.Require().NoError(s.vote(s.voters[2], id, domain.VoteAgainst))
	s.Require().NoError(s.vote(s.voters[3], id, domain.VoteAgainst))
	s.mineUntilEnded(id)
	s.Equal(domain.ProposalStateDefeated, s.state(id))
}

func (s *GovernorSuite) TestProposeValidation() {
	s.Run("below threshold", func() {
		_, err := s.propose(s.guardian, s.transferAction(1))
		simtest.RequireRevert(s.T(), err, "DopeDAO::propose: proposer votes below proposal threshold")
		s.ErrorIs(err, domain.ErrUnauthorized)
	})

	s.Run("arity mismatch", func() {
		err := s.send(s.voters[0], func(env *simchain.Env) error {
			_, err := s.gov.Propose(env, []common.Address{recipient}, nil, []string{""}, [][]byte{nil}, "")
			return err
		})
		simtest.RequireRevert(s.T(), err, "DopeDAO::propose: proposal function information arity mismatch")
	})

	s.Run("no actions", func() {
		_, err := s.propose(s.voters[0])
		simtest.RequireRevert(s.T(), err, "DopeDAO::propose: must provide actions")
	})

	s.Run("too many actions", func() {
		actions := make([]domain.ProposalAction, config.DefaultMaxOperations+1)
		for i := range actions {
			actions[i] = s.transferAction(int64(i + 1))
		}
		_, err := s.propose(s.voters[0], actions...)
		simtest.RequireRevert(s.T(), err, "DopeDAO::propose: too many actions")
	})

	s.Zero(s.gov.ProposalCount())
}

func (s *GovernorSuite) TestOneLiveProposalPerProposer() {
	s.mustPropose(s.transferAction(1))

	_, err := s.propose(s.voters[0], s.transferAction(2))
	simtest.RequireRevert(s.T(), err, "DopeDAO::propose: one live proposal per proposer, found an already pending proposal")
	s.ErrorIs(err, domain.ErrDuplicate)

	simtest.Mine(s.T(), s.chain, 1)
	_, err = s.propose(s.voters[0], s.transferAction(2))
	simtest.RequireRevert(s.T(), err, "DopeDAO::propose: one live proposal per proposer, found an already active proposal")

	id, err := s.propose(s.voters[1], s.transferAction(2))
	s.Require().NoError(err)
	s.Equal(uint64(2), id)
}

func (s *GovernorSuite) TestCancel() {
	s.Run("by stranger while proposer holds votes", func() {
		id := s.mustPropose(s.transferAction(1))
		err := s.send(s.voters[3], func(env *simchain.Env) error { return s.gov.Cancel(env, id) })
		simtest.RequireRevert(s.T(), err, "DopeDAO::cancel: proposer above threshold")

		s.Require().NoError(s.send(s.voters[0], func(env *simchain.Env) error { return s.gov.Cancel(env, id) }))
		s.Equal(domain.ProposalStateCanceled, s.state(id))
	})

	s.Run("queued proposal clears the timelock", func() {
		id := s.queued(s.transferAction(1))
		tx := domain.TimelockTransaction{Target: recipient, Value: big.NewInt(1), Eta: s.proposal(id).Eta}
		s.True(s.timelock.QueuedTransactions(tx.Hash()))

		s.Require().NoError(s.send(s.guardian, func(env *simchain.Env) error { return s.gov.Cancel(env, id) }))
		s.Equal(domain.ProposalStateCanceled, s.state(id))
		s.False(s.timelock.QueuedTransactions(tx.Hash()))
	})
}

func (s *GovernorSuite) TestDuplicateActionCannotBeQueued() {
	id := s.passed(s.transferAction(7), s.transferAction(7))
	err := s.send(s.voters[0], func(env *simchain.Env) error { return s.gov.Queue(env, id) })
	simtest.RequireRevert(s.T(), err, "DopeDAO::_queueOrRevert: proposal action already queued at eta")
	s.ErrorIs(err, domain.ErrDuplicate)
	s.Equal(domain.ProposalStateSucceeded, s.state(id))
}

func (s *GovernorSuite) TestExpired() {
	id := s.queued(s.transferAction(1))
	s.warp(s.proposal(id).Eta + config.GracePeriod)
	s.Equal(domain.ProposalStateExpired, s.state(id))

	err := s.send(s.voters[0], func(env *simchain.Env) error { return s.gov.Execute(env, id) })
	simtest.RequireRevert(s.T(), err, "DopeDAO::execute: proposal can only be executed if it is queued")
}

func (s *GovernorSuite) TestFailedActionRollsBackExecution() {
	// more than the treasury holds
	id := s.queued(domain.ProposalAction{Target: recipient, Value: new(big.Int).Mul(big.NewInt(2), config.Ether)})
	s.warp(s.proposal(id).Eta)

	err := s.send(s.voters[0], func(env *simchain.Env) error { return s.gov.Execute(env, id) })
	simtest.RequireRevert(s.T(), err, "Timelock::executeTransaction: Transaction execution reverted.")
	s.ErrorIs(err, domain.ErrInsufficientFunds)
	s.Equal(domain.ProposalStateQueued, s.state(id))
	s.False(s.proposal(id).Executed)
}

func (s *GovernorSuite) TestInvalidProposalID() {
	err := s.chain.Call(s.T().Context(), s.guardian, s.gov.Address(), func(env *simchain.Env) error {
		_, err := s.gov.State(env, 42)
		return err
	})
	simtest.RequireRevert(s.T(), err, "DopeDAO::state: invalid proposal id")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *GovernorSuite) TestAcceptAdminOnlyGuardian() {
	err := s.send(s.voters[0], s.gov.AcceptAdmin)
	simtest.RequireRevert(s.T(), err, "DopeDAO::__acceptAdmin: sender must be gov guardian")
}

func (s *GovernorSuite) TestProposeAndVoteByCalldata() {
	targets, values, signatures, calldatas := domain.SplitActions([]domain.ProposalAction{s.transferAction(5)})
	args, err := simchain.EncodeCall("propose(address[],uint256[],string[],bytes[],string)",
		targets, values, signatures, calldatas, "by calldata")
	s.Require().NoError(err)

	_, err = s.chain.Invoke(s.T().Context(), simchain.Message{From: s.voters[0], To: s.gov.Address()},
		append(simchain.Selector("propose(address[],uint256[],string[],bytes[],string)"), args...))
	s.Require().NoError(err)
	s.Equal(uint64(1), s.gov.ProposalCount())

	simtest.Mine(s.T(), s.chain, 1)
	vote, err := simchain.EncodeCall("castVote(uint256,uint8)", big.NewInt(1), uint8(domain.VoteFor))
	s.Require().NoError(err)
	_, err = s.chain.Invoke(s.T().Context(), simchain.Message{From: s.voters[1], To: s.gov.Address()},
		append(simchain.Selector("castVote(uint256,uint8)"), vote...))
	s.Require().NoError(err)
	s.True(s.gov.HasVoted(1, s.voters[1]))
}

func (s *GovernorSuite) TestProposalIDBeyondUint64ByCalldata() {
	id := s.mustPropose(s.transferAction(1))
	simtest.Mine(s.T(), s.chain, 1)

	// 2^64 + id must not alias proposal id
	wide := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), new(big.Int).SetUint64(id))
	for _, sig := range []string{"queue(uint256)", "execute(uint256)", "cancel(uint256)"} {
		args, err := simchain.EncodeCall(sig, wide)
		s.Require().NoError(err)
		_, err = s.chain.Invoke(s.T().Context(), simchain.Message{From: s.voters[0], To: s.gov.Address()},
			append(simchain.Selector(sig), args...))
		simtest.RequireRevert(s.T(), err, "DopeDAO::state: invalid proposal id")
		s.ErrorIs(err, domain.ErrInvalidArgument, sig)
	}

	vote, err := simchain.EncodeCall("castVote(uint256,uint8)", wide, uint8(domain.VoteFor))
	s.Require().NoError(err)
	_, err = s.chain.Invoke(s.T().Context(), simchain.Message{From: s.voters[1], To: s.gov.Address()},
		append(simchain.Selector("castVote(uint256,uint8)"), vote...))
	simtest.RequireRevert(s.T(), err, "DopeDAO::state: invalid proposal id")
	s.ErrorIs(err, domain.ErrInvalidArgument)

	s.False(s.gov.HasVoted(id, s.voters[1]))
	s.Zero(s.proposal(id).ForVotes.Sign())
	s.Equal(domain.ProposalStateActive, s.state(id))
}

func (s *GovernorSuite) TestAllHoldersVoteFor() {
	id := s.mustPropose(s.transferAction(1))
	simtest.Mine(s.T(), s.chain, 1)
	for _, voter := range s.voters {
		s.Require().NoError(s.vote(voter, id, domain.VoteFor))
	}
	s.Equal(int64(5), s.proposal(id).ForVotes.Int64())

	s.mineUntilEnded(id)
	s.Require().NoError(s.send(s.voters[0], func(env *simchain.Env) error { return s.gov.Queue(env, id) }))
	s.warp(s.proposal(id).Eta)
	s.Require().NoError(s.send(s.voters[0], func(env *simchain.Env) error { return s.gov.Execute(env, id) }))
	s.True(s.proposal(id).Executed)
}
