package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dopedao/govsim/internal/domain"
)

// minGasBalance is topped up on impersonated accounts that hold nothing
var minGasBalance = big.NewInt(1_000_000_000_000_000_000)

// BootstrapTimelockAdmin hands the timelock's admin role to the governor
// through the timelock's own queue
type BootstrapTimelockAdmin struct {
	backend  GovernanceBackend
	progress ProgressSink
	log      *slog.Logger
}

// NewBootstrapTimelockAdmin creates a new bootstrap use case
func NewBootstrapTimelockAdmin(backend GovernanceBackend, progress ProgressSink, log *slog.Logger) *BootstrapTimelockAdmin {
	return &BootstrapTimelockAdmin{
		backend:  backend,
		progress: progress,
		log:      log.With("component", "BootstrapTimelockAdmin"),
	}
}

// BootstrapResult describes the admin handover
type BootstrapResult struct {
	Governor      common.Address `json:"governor"`
	Timelock      common.Address `json:"timelock"`
	PreviousAdmin common.Address `json:"previousAdmin"`
	Admin         common.Address `json:"admin"`
	Eta           uint64         `json:"eta"`
	EarlyRevert   string         `json:"earlyRevert,omitempty"`
	AlreadyAdmin  bool           `json:"alreadyAdmin"`
}

// Run queues setPendingAdmin(governor), checks it cannot run before eta,
// executes it at eta and has the governor accept.
func (b *BootstrapTimelockAdmin) Run(ctx context.Context) (*BootstrapResult, error) {
	dep, err := b.backend.Governance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load governance deployment: %w", err)
	}
	return b.run(ctx, dep)
}

func (b *BootstrapTimelockAdmin) run(ctx context.Context, dep *GovernanceDeployment) (*BootstrapResult, error) {
	gov, tl := dep.Governor, dep.Timelock

	admin, err := tl.Admin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read timelock admin: %w", err)
	}
	result := &BootstrapResult{
		Governor:      gov.Address(),
		Timelock:      tl.Address(),
		PreviousAdmin: admin,
		Admin:         admin,
	}
	if admin == gov.Address() {
		result.AlreadyAdmin = true
		b.progress.Info("Governor is already the timelock admin")
		return result, nil
	}
	if dep.TimelockAdmin != admin {
		return nil, fmt.Errorf("%w: configured timelock admin %s, on-chain admin %s",
			domain.ErrUnauthorized, dep.TimelockAdmin.Hex(), admin.Hex())
	}

	if err := b.impersonate(ctx, admin); err != nil {
		return nil, err
	}

	head, err := b.backend.GetBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get head block: %w", err)
	}
	delay, err := tl.Delay(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read timelock delay: %w", err)
	}
	eta := head.Timestamp + delay + 1
	tx := domain.NewSetPendingAdminTx(tl.Address(), gov.Address(), eta)
	result.Eta = eta

	b.progress.OnProgress(ctx, ProgressEvent{Stage: StageBootstrap, Message: "Queueing pending admin to governor", Spinner: true})
	if _, err := tl.QueueTransaction(ctx, admin, tx); err != nil {
		return nil, fmt.Errorf("failed to queue setPendingAdmin: %w", err)
	}

	_, err = tl.ExecuteTransaction(ctx, admin, tx)
	if result.EarlyRevert, err = expectRevert("execute setPendingAdmin before eta", err); err != nil {
		return nil, err
	}

	if err := b.backend.SetNextBlockTimestamp(ctx, eta); err != nil {
		return nil, fmt.Errorf("failed to set next block timestamp: %w", err)
	}
	if err := b.backend.MineBlock(ctx); err != nil {
		return nil, fmt.Errorf("failed to mine: %w", err)
	}

	b.progress.OnProgress(ctx, ProgressEvent{Stage: StageBootstrap, Message: "Executing pending admin to governor", Spinner: true})
	if _, err := tl.ExecuteTransaction(ctx, admin, tx); err != nil {
		return nil, fmt.Errorf("failed to execute setPendingAdmin: %w", err)
	}

	guardian, err := gov.Guardian(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read guardian: %w", err)
	}
	if err := b.impersonate(ctx, guardian); err != nil {
		return nil, err
	}
	if _, err := gov.AcceptAdmin(ctx, guardian); err != nil {
		return nil, fmt.Errorf("failed to accept admin: %w", err)
	}

	if result.Admin, err = tl.Admin(ctx); err != nil {
		return nil, fmt.Errorf("failed to read timelock admin: %w", err)
	}
	if result.Admin != gov.Address() {
		return nil, checkf("governor is not timelock admin (admin is %s)", result.Admin.Hex())
	}
	b.log.Debug("timelock admin handed over", "governor", gov.Address().Hex(), "eta", eta)
	return result, nil
}

// impersonate unlocks addr and funds it for gas if it is empty
func (b *BootstrapTimelockAdmin) impersonate(ctx context.Context, addr common.Address) error {
	return impersonate(ctx, b.backend, addr)
}

func impersonate(ctx context.Context, chain ChainControl, addr common.Address) error {
	if err := chain.ImpersonateAccount(ctx, addr); err != nil {
		return fmt.Errorf("failed to impersonate %s: %w", addr.Hex(), err)
	}
	bal, err := chain.GetBalance(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to get balance of %s: %w", addr.Hex(), err)
	}
	if bal.Sign() == 0 {
		if err := chain.SetBalance(ctx, addr, minGasBalance); err != nil {
			return fmt.Errorf("failed to fund %s: %w", addr.Hex(), err)
		}
	}
	return nil
}
