package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dopedao/govsim/pkg/units"
)

var (
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
	addressStyle = color.New(color.FgWhite)
	labelStyle   = color.New(color.Faint)
	okStyle      = color.New(color.FgGreen)
	failStyle    = color.New(color.FgRed)
	revertStyle  = color.New(color.FgYellow)
)

var printer = message.NewPrinter(language.English)

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	// Extract just the error message part (after the last colon if it's an error chain)
	parts := strings.Split(message, ": ")
	msg := parts[len(parts)-1]

	// Capitalize first letter
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}

	return failStyle.Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return okStyle.Sprintf("✅ %s", message)
}

// FormatEther renders wei as ether
func FormatEther(wei *big.Int) string {
	return units.FormatEther(wei) + " ETH"
}

// FormatNumber groups digits, 13140 -> 13,140
func FormatNumber(n uint64) string {
	return printer.Sprintf("%d", n)
}

// FormatAmount groups the digits of a token amount that fits in a uint64
func FormatAmount(n *big.Int) string {
	if n == nil {
		return "0"
	}
	if n.IsUint64() {
		return FormatNumber(n.Uint64())
	}
	return n.String()
}

// FormatSigned is FormatEther with an explicit sign
func FormatSigned(wei *big.Int) string {
	if wei.Sign() > 0 {
		return "+" + FormatEther(wei)
	}
	return FormatEther(wei)
}

func check(ok bool) string {
	if ok {
		return okStyle.Sprint("✓")
	}
	return failStyle.Sprint("✗")
}

// JSON writes v indented
func JSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func newTable(out io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.AppendHeader(header)
	return t
}
