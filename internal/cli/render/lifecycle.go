package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/usecase"
)

// LifecycleRenderer renders proposal lifecycle runs
type LifecycleRenderer struct {
	out io.Writer
}

// NewLifecycleRenderer creates a new lifecycle renderer
func NewLifecycleRenderer(out io.Writer) *LifecycleRenderer {
	return &LifecycleRenderer{out: out}
}

// Render prints the bootstrap, the proposal, its votes and the balance
// changes of every action target
func (r *LifecycleRenderer) Render(result *usecase.LifecycleResult) error {
	if result.Bootstrap != nil {
		if err := NewBootstrapRenderer(r.out).Render(result.Bootstrap); err != nil {
			return err
		}
		fmt.Fprintln(r.out)
	}

	p := result.Proposal
	fmt.Fprintf(r.out, "%s %s\n", headerStyle.Sprintf("🏛  Proposal %d", result.ProposalID), stateStyle(result.State))
	if p != nil {
		fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Proposer:"), addressStyle.Sprint(p.Proposer.Hex()))
		fmt.Fprintf(r.out, "   %s start %s, end %s\n", labelStyle.Sprint("Voting:  "), FormatNumber(p.StartBlock), FormatNumber(p.EndBlock))
		fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Eta:     "), fmt.Sprint(p.Eta))
		fmt.Fprintf(r.out, "   %s for %s, against %s, abstain %s\n", labelStyle.Sprint("Tally:   "),
			FormatAmount(p.ForVotes), FormatAmount(p.AgainstVotes), FormatAmount(p.AbstainVotes))
	}
	fmt.Fprintln(r.out)

	if len(result.Votes) > 0 {
		t := newTable(r.out, table.Row{"Voter", "Votes", "Note"})
		for _, v := range result.Votes {
			t.AppendRow(table.Row{v.Voter.Hex(), FormatAmount(v.Votes), v.Skipped})
		}
		t.Render()
		fmt.Fprintln(r.out)
	}

	if result.EarlyQueue != "" {
		fmt.Fprintf(r.out, "Early queue reverted:   %s\n", revertStyle.Sprintf("%q", result.EarlyQueue))
	}
	if result.EarlyExecute != "" {
		fmt.Fprintf(r.out, "Early execute reverted: %s\n", revertStyle.Sprintf("%q", result.EarlyExecute))
	}

	if len(result.Balances) > 0 {
		fmt.Fprintln(r.out)
		t := newTable(r.out, table.Row{"Target", "Before", "After", "Change", ""})
		for _, b := range result.Balances {
			name := b.Address.Hex()
			if b.Name != "" {
				name = fmt.Sprintf("@%s (%s)", b.Name, b.Address.Hex())
			}
			mark := ""
			if b.Checked {
				mark = check(b.Delta().Cmp(b.Expected) == 0)
			}
			t.AppendRow(table.Row{name, FormatEther(b.Before), FormatEther(b.After), FormatSigned(b.Delta()), mark})
		}
		t.Render()
	}
	return nil
}

func stateStyle(s domain.ProposalState) string {
	switch s {
	case domain.ProposalStateExecuted, domain.ProposalStateSucceeded, domain.ProposalStateQueued:
		return okStyle.Sprint(s)
	case domain.ProposalStateDefeated, domain.ProposalStateCanceled, domain.ProposalStateExpired:
		return failStyle.Sprint(s)
	}
	return revertStyle.Sprint(s)
}

// BootstrapRenderer renders the timelock admin handover
type BootstrapRenderer struct {
	out io.Writer
}

// NewBootstrapRenderer creates a new bootstrap renderer
func NewBootstrapRenderer(out io.Writer) *BootstrapRenderer {
	return &BootstrapRenderer{out: out}
}

func (r *BootstrapRenderer) Render(result *usecase.BootstrapResult) error {
	if result.AlreadyAdmin {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Governor %s already administers timelock %s", result.Governor.Hex(), result.Timelock.Hex())))
		return nil
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Timelock %s handed to governor %s", result.Timelock.Hex(), result.Governor.Hex())))
	fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Previous admin:"), addressStyle.Sprint(result.PreviousAdmin.Hex()))
	fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Eta:           "), fmt.Sprint(result.Eta))
	if result.EarlyRevert != "" {
		fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Early execute: "), revertStyle.Sprintf("%q", result.EarlyRevert))
	}
	return nil
}

var (
	_ Renderer[*usecase.LifecycleResult] = (*LifecycleRenderer)(nil)
	_ Renderer[*usecase.BootstrapResult] = (*BootstrapRenderer)(nil)
)
