package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/usecase"
)

var (
	_ usecase.GovernorClient = (*governorClient)(nil)
	_ usecase.TimelockClient = (*timelockClient)(nil)
)

// governorClient talks to a deployed DopeDAO governor. Proposal ids on
// chain are uint256 hashes; the client hands out sequential local ids and
// keeps the mapping. Ids it never handed out are passed through as-is.
type governorClient struct {
	tx       *transactor
	bound    *bind.BoundContract
	addr     common.Address
	guardian common.Address

	mu  sync.Mutex
	ids []*big.Int
}

func newGovernorClient(tx *transactor, addr, guardian common.Address) *governorClient {
	return &governorClient{
		tx:       tx,
		bound:    bind.NewBoundContract(addr, governorABI, tx.eth, tx.eth, tx.eth),
		addr:     addr,
		guardian: guardian,
	}
}

func (c *governorClient) Address() common.Address { return c.addr }

func (c *governorClient) onChainID(id uint64) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id >= 1 && id <= uint64(len(c.ids)) {
		return c.ids[id-1]
	}
	return new(big.Int).SetUint64(id)
}

func (c *governorClient) localID(onChain *big.Int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, known := range c.ids {
		if known.Cmp(onChain) == 0 {
			return uint64(i + 1)
		}
	}
	c.ids = append(c.ids, onChain)
	return uint64(len(c.ids))
}

func (c *governorClient) transact(ctx context.Context, from common.Address, method string, args ...any) (*domain.Receipt, error) {
	data, err := governorABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return c.tx.send(ctx, from, c.addr, nil, data)
}

func (c *governorClient) Propose(ctx context.Context, from common.Address, actions []domain.ProposalAction, description string) (uint64, *domain.Receipt, error) {
	targets, values, signatures, calldatas := domain.SplitActions(actions)
	for i := range calldatas {
		if calldatas[i] == nil {
			calldatas[i] = []byte{}
		}
	}
	data, err := governorABI.Pack("propose", targets, values, signatures, calldatas, description)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to pack propose: %w", err)
	}
	receipt, raw, err := c.tx.sendRaw(ctx, from, c.addr, nil, data)
	if err != nil {
		return 0, receipt, err
	}
	for _, l := range raw.Logs {
		ev, ok := c.unpackProposalCreated(l)
		if !ok {
			continue
		}
		receipt.Logs = append(receipt.Logs, domain.Log{Address: l.Address, Event: ev})
		return ev.ProposalID, receipt, nil
	}
	return 0, receipt, fmt.Errorf("%w: no ProposalCreated event in %s", domain.ErrNotFound, receipt.TxHash.Hex())
}

// governorProposalCreated mirrors the event's non-indexed fields
type governorProposalCreated struct {
	ProposalId  *big.Int
	Proposer    common.Address
	Targets     []common.Address
	Values      []*big.Int
	Signatures  []string
	Calldatas   [][]byte
	StartBlock  *big.Int
	EndBlock    *big.Int
	Description string
}

func (c *governorClient) unpackProposalCreated(l *types.Log) (domain.ProposalCreatedEvent, bool) {
	event := governorABI.Events["ProposalCreated"]
	if l.Address != c.addr || len(l.Topics) == 0 || l.Topics[0] != event.ID {
		return domain.ProposalCreatedEvent{}, false
	}
	var raw governorProposalCreated
	if err := governorABI.UnpackIntoInterface(&raw, "ProposalCreated", l.Data); err != nil {
		c.tx.log.Debug("undecodable ProposalCreated", "error", err)
		return domain.ProposalCreatedEvent{}, false
	}
	actions, err := domain.ZipActions(raw.Targets, raw.Values, raw.Signatures, raw.Calldatas)
	if err != nil {
		return domain.ProposalCreatedEvent{}, false
	}
	start, err := uint64Out(raw.StartBlock, "startBlock")
	if err != nil {
		c.tx.log.Debug("undecodable ProposalCreated", "error", err)
		return domain.ProposalCreatedEvent{}, false
	}
	end, err := uint64Out(raw.EndBlock, "endBlock")
	if err != nil {
		c.tx.log.Debug("undecodable ProposalCreated", "error", err)
		return domain.ProposalCreatedEvent{}, false
	}
	return domain.ProposalCreatedEvent{
		ProposalID:  c.localID(raw.ProposalId),
		Proposer:    raw.Proposer,
		Actions:     actions,
		StartBlock:  start + 1,
		EndBlock:    end,
		Description: raw.Description,
	}, true
}

func (c *governorClient) CastVote(ctx context.Context, from common.Address, id uint64, support domain.VoteSupport) (*domain.Receipt, error) {
	return c.transact(ctx, from, "castVote", c.onChainID(id), uint8(support))
}

func (c *governorClient) Queue(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error) {
	return c.transact(ctx, from, "queue", c.onChainID(id))
}

func (c *governorClient) Execute(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error) {
	return c.transact(ctx, from, "execute", c.onChainID(id))
}

func (c *governorClient) Cancel(ctx context.Context, from common.Address, id uint64) (*domain.Receipt, error) {
	return c.transact(ctx, from, "cancel", c.onChainID(id))
}

func (c *governorClient) AcceptAdmin(ctx context.Context, from common.Address) (*domain.Receipt, error) {
	return c.transact(ctx, from, "__acceptAdmin")
}

func (c *governorClient) State(ctx context.Context, id uint64) (domain.ProposalState, error) {
	out, err := call(ctx, c.bound, &governorABI, "state", c.onChainID(id))
	if err != nil {
		return 0, err
	}
	return domain.ProposalState(out[0].(uint8)), nil
}

func (c *governorClient) Proposal(ctx context.Context, id uint64) (*domain.Proposal, error) {
	onChain := c.onChainID(id)
	out, err := call(ctx, c.bound, &governorABI, "proposals", onChain)
	if err != nil {
		return nil, err
	}
	proposer := out[1].(common.Address)
	if proposer == (common.Address{}) {
		return nil, fmt.Errorf("%w: proposal %d", domain.ErrNotFound, id)
	}
	eta, err := uint64Out(out[2], "eta")
	if err != nil {
		return nil, err
	}
	start, err := uint64Out(out[3], "startBlock")
	if err != nil {
		return nil, err
	}
	end, err := uint64Out(out[4], "endBlock")
	if err != nil {
		return nil, err
	}
	p := &domain.Proposal{
		ID:            id,
		Proposer:      proposer,
		Eta:           eta,
		SnapshotBlock: start,
		StartBlock:    start + 1,
		EndBlock:      end,
		ForVotes:      out[5].(*big.Int),
		AgainstVotes:  out[6].(*big.Int),
		AbstainVotes:  out[7].(*big.Int),
		Canceled:      out[8].(bool),
		Executed:      out[9].(bool),
	}

	acts, err := call(ctx, c.bound, &governorABI, "getActions", onChain)
	if err != nil {
		return nil, err
	}
	p.Actions, err = domain.ZipActions(acts[0].([]common.Address), acts[1].([]*big.Int), acts[2].([]string), acts[3].([][]byte))
	if err != nil {
		return nil, err
	}
	return p, nil
}

type governorReceipt struct {
	HasVoted bool
	Support  uint8
	Votes    *big.Int
}

func (c *governorClient) Receipt(ctx context.Context, id uint64, voter common.Address) (*domain.VoteReceipt, error) {
	out, err := call(ctx, c.bound, &governorABI, "getReceipt", c.onChainID(id), voter)
	if err != nil {
		return nil, err
	}
	r := *abi.ConvertType(out[0], new(governorReceipt)).(*governorReceipt)
	return &domain.VoteReceipt{HasVoted: r.HasVoted, Support: domain.VoteSupport(r.Support), Votes: r.Votes}, nil
}

func (c *governorClient) VotingDelay(ctx context.Context) (uint64, error) {
	out, err := call(ctx, c.bound, &governorABI, "votingDelay")
	if err != nil {
		return 0, err
	}
	return uint64Out(out[0], "votingDelay")
}

func (c *governorClient) QuorumVotes(ctx context.Context) (*big.Int, error) {
	out, err := call(ctx, c.bound, &governorABI, "quorumVotes")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Guardian is the account that deployed the governor. The contract does not
// expose it, so it comes from configuration.
func (c *governorClient) Guardian(context.Context) (common.Address, error) {
	return c.guardian, nil
}

type timelockClient struct {
	tx    *transactor
	bound *bind.BoundContract
	addr  common.Address
}

func newTimelockClient(tx *transactor, addr common.Address) *timelockClient {
	return &timelockClient{tx: tx, bound: bind.NewBoundContract(addr, timelockABI, tx.eth, tx.eth, tx.eth), addr: addr}
}

func (c *timelockClient) Address() common.Address { return c.addr }

func (c *timelockClient) transact(ctx context.Context, from common.Address, method string, tx domain.TimelockTransaction) (*domain.Receipt, error) {
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	data := tx.Data
	if data == nil {
		data = []byte{}
	}
	input, err := timelockABI.Pack(method, tx.Target, value, tx.Signature, data, new(big.Int).SetUint64(tx.Eta))
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return c.tx.send(ctx, from, c.addr, nil, input)
}

func (c *timelockClient) QueueTransaction(ctx context.Context, from common.Address, tx domain.TimelockTransaction) (*domain.Receipt, error) {
	return c.transact(ctx, from, "queueTransaction", tx)
}

func (c *timelockClient) ExecuteTransaction(ctx context.Context, from common.Address, tx domain.TimelockTransaction) (*domain.Receipt, error) {
	return c.transact(ctx, from, "executeTransaction", tx)
}

func (c *timelockClient) Admin(ctx context.Context) (common.Address, error) {
	out, err := call(ctx, c.bound, &timelockABI, "admin")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (c *timelockClient) Delay(ctx context.Context) (uint64, error) {
	out, err := call(ctx, c.bound, &timelockABI, "delay")
	if err != nil {
		return 0, err
	}
	return uint64Out(out[0], "delay")
}

// uint64Out narrows a uint256 return value. Block numbers, timestamps and
// delays fit in 64 bits on any real chain; anything wider is rejected
// instead of wrapped.
func uint64Out(v any, field string) (uint64, error) {
	n := v.(*big.Int)
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s %s exceeds uint64", domain.ErrInvalidState, field, n)
	}
	return n.Uint64(), nil
}

// ownerOf reads the holder of a loot token
func ownerOf(ctx context.Context, loot *bind.BoundContract, id uint64) (common.Address, error) {
	out, err := call(ctx, loot, &lootABI, "ownerOf", new(big.Int).SetUint64(id))
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}
