package render

import (
	"fmt"
	"io"
	"math/big"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dopedao/govsim/internal/usecase"
)

// StakingRenderer renders staking scenario runs
type StakingRenderer struct {
	out io.Writer
}

// NewStakingRenderer creates a new staking renderer
func NewStakingRenderer(out io.Writer) *StakingRenderer {
	return &StakingRenderer{out: out}
}

func (r *StakingRenderer) Render(result *usecase.StakingResult) error {
	fmt.Fprintf(r.out, "%s\n", headerStyle.Sprintf("🥩 Staked token #%d", result.TokenID))
	fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Owner:    "), addressStyle.Sprint(result.Owner.Hex()))
	fmt.Fprintf(r.out, "   %s block %s\n", labelStyle.Sprint("Staked at:"), FormatNumber(result.StakedAt))
	fmt.Fprintf(r.out, "   %s %s per block\n", labelStyle.Sprint("Rate:     "), FormatAmount(result.Rate))
	if result.TermsRevert != "" {
		fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("No terms: "), revertStyle.Sprintf("%q", result.TermsRevert))
	}
	fmt.Fprintln(r.out)

	t := newTable(r.out, table.Row{"Step", "Reward", ""})
	t.AppendRow(table.Row{fmt.Sprintf("after %d blocks", result.Blocks), FormatAmount(result.Accrued), check(result.Accrued.Cmp(expectedReward(result)) == 0)})
	t.AppendRow(table.Row{"after harvest", FormatAmount(result.AfterHarvest), check(result.AfterHarvest.Sign() == 0)})
	t.AppendRow(table.Row{"one block later", FormatAmount(result.OneBlockLater), check(result.OneBlockLater.Cmp(result.Rate) == 0)})
	t.AppendRow(table.Row{"paid in total", FormatAmount(result.Paid), ""})
	t.Render()

	fmt.Fprintln(r.out)
	if result.Returned {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Token #%d returned to %s", result.TokenID, result.Owner.Hex())))
	} else {
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("token #%d was not returned", result.TokenID)))
	}
	return nil
}

func expectedReward(result *usecase.StakingResult) *big.Int {
	return new(big.Int).Mul(result.Rate, new(big.Int).SetUint64(result.Blocks))
}

var _ Renderer[*usecase.StakingResult] = (*StakingRenderer)(nil)
