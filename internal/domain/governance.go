package domain

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ProposalState follows the numbering of the on-chain governor.
type ProposalState uint8

const (
	ProposalStatePending ProposalState = iota
	ProposalStateActive
	ProposalStateCanceled
	ProposalStateDefeated
	ProposalStateSucceeded
	ProposalStateQueued
	ProposalStateExpired
	ProposalStateExecuted
)

var proposalStateNames = [...]string{
	ProposalStatePending:   "Pending",
	ProposalStateActive:    "Active",
	ProposalStateCanceled:  "Canceled",
	ProposalStateDefeated:  "Defeated",
	ProposalStateSucceeded: "Succeeded",
	ProposalStateQueued:    "Queued",
	ProposalStateExpired:   "Expired",
	ProposalStateExecuted:  "Executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return fmt.Sprintf("ProposalState(%d)", uint8(s))
}

func (s ProposalState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// VoteSupport is the direction of a vote.
type VoteSupport uint8

const (
	VoteAgainst VoteSupport = 0
	VoteFor     VoteSupport = 1
	VoteAbstain VoteSupport = 2
)

func (v VoteSupport) String() string {
	switch v {
	case VoteAgainst:
		return "against"
	case VoteFor:
		return "for"
	case VoteAbstain:
		return "abstain"
	default:
		return fmt.Sprintf("VoteSupport(%d)", uint8(v))
	}
}

// ParseVoteSupport accepts "for", "against", "abstain" or their numeric forms.
func ParseVoteSupport(s string) (VoteSupport, error) {
	switch s {
	case "against", "0":
		return VoteAgainst, nil
	case "for", "1":
		return VoteFor, nil
	case "abstain", "2":
		return VoteAbstain, nil
	}
	return 0, fmt.Errorf("%w: vote support %q", ErrInvalidArgument, s)
}

// ProposalAction is one call the timelock performs when a proposal executes.
// An empty Signature means Calldata is sent as-is.
type ProposalAction struct {
	Target    common.Address `json:"target"`
	Value     *big.Int       `json:"value"`
	Signature string         `json:"signature"`
	Calldata  []byte         `json:"calldata"`
}

// Proposal is a governor proposal with its tallies.
type Proposal struct {
	ID            uint64           `json:"id"`
	Proposer      common.Address   `json:"proposer"`
	Actions       []ProposalAction `json:"actions,omitempty"`
	Description   string           `json:"description,omitempty"`
	SnapshotBlock uint64           `json:"snapshotBlock"`
	StartBlock    uint64           `json:"startBlock"`
	EndBlock      uint64           `json:"endBlock"`
	Eta           uint64           `json:"eta"`
	ForVotes      *big.Int         `json:"forVotes"`
	AgainstVotes  *big.Int         `json:"againstVotes"`
	AbstainVotes  *big.Int         `json:"abstainVotes"`
	Canceled      bool             `json:"canceled"`
	Executed      bool             `json:"executed"`
}

// Clone returns a deep copy of the proposal.
func (p *Proposal) Clone() *Proposal {
	c := *p
	c.ForVotes = new(big.Int).Set(p.ForVotes)
	c.AgainstVotes = new(big.Int).Set(p.AgainstVotes)
	c.AbstainVotes = new(big.Int).Set(p.AbstainVotes)
	c.Actions = make([]ProposalAction, len(p.Actions))
	for i, a := range p.Actions {
		c.Actions[i] = a.Clone()
	}
	return &c
}

func (a ProposalAction) Clone() ProposalAction {
	c := a
	if a.Value != nil {
		c.Value = new(big.Int).Set(a.Value)
	}
	c.Calldata = common.CopyBytes(a.Calldata)
	return c
}

// VoteReceipt records a single voter's ballot on a proposal.
type VoteReceipt struct {
	HasVoted bool        `json:"hasVoted"`
	Support  VoteSupport `json:"support"`
	Votes    *big.Int    `json:"votes"`
}

// ProposalDraft is a proposal before its targets are resolved against a
// deployment. Targets are hex addresses or @name references.
type ProposalDraft struct {
	Description string        `json:"description"`
	Actions     []DraftAction `json:"actions"`
}

type DraftAction struct {
	Target    string   `json:"target"`
	Value     *big.Int `json:"value"`
	Signature string   `json:"signature"`
	Calldata  []byte   `json:"calldata"`
}

// SplitActions returns the parallel arrays a governor's propose takes.
func SplitActions(actions []ProposalAction) (targets []common.Address, values []*big.Int, signatures []string, calldatas [][]byte) {
	for _, a := range actions {
		v := a.Value
		if v == nil {
			v = new(big.Int)
		}
		targets = append(targets, a.Target)
		values = append(values, v)
		signatures = append(signatures, a.Signature)
		calldatas = append(calldatas, a.Calldata)
	}
	return targets, values, signatures, calldatas
}

// ZipActions is the inverse of SplitActions. It fails if the lengths differ.
func ZipActions(targets []common.Address, values []*big.Int, signatures []string, calldatas [][]byte) ([]ProposalAction, error) {
	n := len(targets)
	if len(values) != n || len(signatures) != n || len(calldatas) != n {
		return nil, fmt.Errorf("%w: %d targets, %d values, %d signatures, %d calldatas",
			ErrInvalidArgument, len(targets), len(values), len(signatures), len(calldatas))
	}
	actions := make([]ProposalAction, n)
	for i := range targets {
		actions[i] = ProposalAction{Target: targets[i], Value: values[i], Signature: signatures[i], Calldata: calldatas[i]}
	}
	return actions, nil
}
