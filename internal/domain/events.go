package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type EventType string

const (
	EventTypeProposalCreated    EventType = "ProposalCreated"
	EventTypeVoteCast           EventType = "VoteCast"
	EventTypeProposalQueued     EventType = "ProposalQueued"
	EventTypeProposalExecuted   EventType = "ProposalExecuted"
	EventTypeProposalCanceled   EventType = "ProposalCanceled"
	EventTypeQueueTransaction   EventType = "QueueTransaction"
	EventTypeExecuteTransaction EventType = "ExecuteTransaction"
	EventTypeCancelTransaction  EventType = "CancelTransaction"
	EventTypeNewPendingAdmin    EventType = "NewPendingAdmin"
	EventTypeNewAdmin           EventType = "NewAdmin"
	EventTypeNewDelay           EventType = "NewDelay"
	EventTypeTransfer           EventType = "Transfer"
	EventTypeApproval           EventType = "Approval"
	EventTypeStaked             EventType = "Staked"
	EventTypeUnstaked           EventType = "Unstaked"
	EventTypeHarvested          EventType = "Harvested"
	EventTypeEmissionRateSet    EventType = "EmissionRateSet"
	EventTypeReceived           EventType = "Received"
)

// Event is the interface for all events emitted by simulated contracts
type Event interface {
	EventName() string
	String() string
}

type ProposalCreatedEvent struct {
	ProposalID  uint64
	Proposer    common.Address
	Actions     []ProposalAction
	StartBlock  uint64
	EndBlock    uint64
	Description string
}

func (ProposalCreatedEvent) EventName() string { return string(EventTypeProposalCreated) }

func (e ProposalCreatedEvent) String() string {
	return fmt.Sprintf("%s: id=%d, proposer=%s, actions=%d, start=%d, end=%d",
		e.EventName(), e.ProposalID, e.Proposer.Hex(), len(e.Actions), e.StartBlock, e.EndBlock)
}

type VoteCastEvent struct {
	Voter      common.Address
	ProposalID uint64
	Support    VoteSupport
	Votes      *big.Int
}

func (VoteCastEvent) EventName() string { return string(EventTypeVoteCast) }

func (e VoteCastEvent) String() string {
	return fmt.Sprintf("%s: id=%d, voter=%s, support=%s, votes=%s",
		e.EventName(), e.ProposalID, e.Voter.Hex(), e.Support, e.Votes)
}

type ProposalQueuedEvent struct {
	ProposalID uint64
	Eta        uint64
}

func (ProposalQueuedEvent) EventName() string { return string(EventTypeProposalQueued) }

func (e ProposalQueuedEvent) String() string {
	return fmt.Sprintf("%s: id=%d, eta=%d", e.EventName(), e.ProposalID, e.Eta)
}

type ProposalExecutedEvent struct {
	ProposalID uint64
}

func (ProposalExecutedEvent) EventName() string { return string(EventTypeProposalExecuted) }

func (e ProposalExecutedEvent) String() string {
	return fmt.Sprintf("%s: id=%d", e.EventName(), e.ProposalID)
}

type ProposalCanceledEvent struct {
	ProposalID uint64
}

func (ProposalCanceledEvent) EventName() string { return string(EventTypeProposalCanceled) }

func (e ProposalCanceledEvent) String() string {
	return fmt.Sprintf("%s: id=%d", e.EventName(), e.ProposalID)
}

// TimelockTransactionEvent covers QueueTransaction, ExecuteTransaction and CancelTransaction.
type TimelockTransactionEvent struct {
	Type   EventType
	TxHash common.Hash
	Tx     TimelockTransaction
}

func (e TimelockTransactionEvent) EventName() string { return string(e.Type) }

func (e TimelockTransactionEvent) String() string {
	return fmt.Sprintf("%s: hash=%s, target=%s, signature=%q, eta=%d",
		e.EventName(), e.TxHash.Hex()[:10]+"...", e.Tx.Target.Hex(), e.Tx.Signature, e.Tx.Eta)
}

// AdminEvent covers NewPendingAdmin and NewAdmin.
type AdminEvent struct {
	Type  EventType
	Admin common.Address
}

func (e AdminEvent) EventName() string { return string(e.Type) }

func (e AdminEvent) String() string {
	return fmt.Sprintf("%s: %s", e.EventName(), e.Admin.Hex())
}

type NewDelayEvent struct {
	Delay uint64
}

func (NewDelayEvent) EventName() string { return string(EventTypeNewDelay) }

func (e NewDelayEvent) String() string {
	return fmt.Sprintf("%s: %ds", e.EventName(), e.Delay)
}

// TransferEvent is emitted by both token kinds. Amount is the ERC-20 value
// or the ERC-721 token id.
type TransferEvent struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (TransferEvent) EventName() string { return string(EventTypeTransfer) }

func (e TransferEvent) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", e.EventName(), e.From.Hex(), e.To.Hex(), e.Amount)
}

type ApprovalEvent struct {
	Owner    common.Address
	Approved common.Address
	TokenID  uint64
}

func (ApprovalEvent) EventName() string { return string(EventTypeApproval) }

func (e ApprovalEvent) String() string {
	return fmt.Sprintf("%s: owner=%s, approved=%s, token=%d", e.EventName(), e.Owner.Hex(), e.Approved.Hex(), e.TokenID)
}

// StakeEvent covers Staked, Unstaked and Harvested.
type StakeEvent struct {
	Type    EventType
	Owner   common.Address
	TokenID uint64
	Reward  *big.Int
}

func (e StakeEvent) EventName() string { return string(e.Type) }

func (e StakeEvent) String() string {
	return fmt.Sprintf("%s: owner=%s, token=%d, reward=%s", e.EventName(), e.Owner.Hex(), e.TokenID, e.Reward)
}

type EmissionRateSetEvent struct {
	Rate  *big.Int
	Block uint64
}

func (EmissionRateSetEvent) EventName() string { return string(EventTypeEmissionRateSet) }

func (e EmissionRateSetEvent) String() string {
	return fmt.Sprintf("%s: rate=%s from block %d", e.EventName(), e.Rate, e.Block)
}

type ReceivedEvent struct {
	Sender  common.Address
	Value   *big.Int
	Message string
}

func (ReceivedEvent) EventName() string { return string(EventTypeReceived) }

func (e ReceivedEvent) String() string {
	return fmt.Sprintf("%s: %s wei from %s (%q)", e.EventName(), e.Value, e.Sender.Hex(), e.Message)
}
