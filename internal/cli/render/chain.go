package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dopedao/govsim/internal/usecase"
)

// ChainRenderer renders chain control results
type ChainRenderer struct {
	out io.Writer
}

// NewChainRenderer creates a new chain renderer
func NewChainRenderer(out io.Writer) *ChainRenderer {
	return &ChainRenderer{out: out}
}

func (r *ChainRenderer) Render(result *usecase.ControlChainResult) error {
	op := cases.Title(language.English).String(strings.ReplaceAll(string(result.Operation), "-", " "))

	switch result.Operation {
	case usecase.ChainMine, usecase.ChainWarp:
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("%s: block %s -> %s", op,
			FormatNumber(result.Before.Number), FormatNumber(result.Block.Number))))
		fmt.Fprintf(r.out, "   %s %d -> %d\n", labelStyle.Sprint("Timestamp:"), result.Before.Timestamp, result.Block.Timestamp)
		return nil
	case usecase.ChainBlock:
		fmt.Fprintf(r.out, "%s %s\n", labelStyle.Sprint("Block:    "), FormatNumber(result.Block.Number))
		fmt.Fprintf(r.out, "%s %d\n", labelStyle.Sprint("Timestamp:"), result.Block.Timestamp)
		return nil
	case usecase.ChainImpersonate, usecase.ChainSetBalance:
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("%s: %s", op, result.Address)))
		fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Balance:"), FormatEther(result.Balance))
		return nil
	}

	fmt.Fprintf(r.out, "%s %s\n", addressStyle.Sprint(result.Address), FormatEther(result.Balance))
	return nil
}

var _ Renderer[*usecase.ControlChainResult] = (*ChainRenderer)(nil)
