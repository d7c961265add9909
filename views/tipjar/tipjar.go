package tipjar

import (
	"fmt"
	"strings"
	"time"

	"tipjar-tui/flow"
	"tipjar-tui/helpers"
	"tipjar-tui/ledger"
	"tipjar-tui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// recentTips is how many deposits the page lists.
const recentTips = 5

// Data is everything the Tip Jar page shows.
type Data struct {
	Account   string
	Connected bool
	Loading   bool
	Balance   string

	Contract        string
	ContractBalance string // "" until loaded
	ContractLoading bool
	LoadedAt        time.Time
	Deposits        []ledger.DepositRecord

	LastTx flow.Transaction
	// Prompt is a rendered input (passphrase or tip form), "" when closed.
	Prompt string
	QR     string

	Spinner string
}

// Nav returns the navigation bar for the tip jar view
func Nav(width int, prompting, connected, owner bool) string {
	var keys []string
	switch {
	case prompting:
		keys = []string{
			styles.Key("Enter") + " submit",
			styles.Key("Esc") + " cancel",
		}
	case !connected:
		keys = []string{
			styles.Key("c") + " connect",
			styles.Key("r") + " refresh",
			styles.Key("q") + " qr",
			styles.Key("3") + " settings",
			styles.Key("l") + " logger",
			styles.Key("Ctrl+c") + " quit",
		}
	default:
		keys = []string{
			styles.Key("t") + " tip",
			styles.Key("r") + " refresh",
			styles.Key("y") + " copy tx",
			styles.Key("q") + " qr",
			styles.Key("a") + " next account",
			styles.Key("x") + " disconnect",
		}
		if owner {
			keys = append(keys, styles.Key("2")+" owner")
		}
		keys = append(keys, styles.Key("3")+" settings", styles.Key("l")+" logger")
	}
	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}

// Render renders the tip jar view
func Render(d Data) string {
	lines := []string{styles.TitleStyle.Render("Tip Jar"), ""}

	switch {
	case d.Loading:
		lines = append(lines, styles.Row("Account", d.Spinner+" waiting for wallet…"))
	case d.Connected:
		lines = append(lines,
			styles.Row("Account", helpers.FadeString(d.Account, styles.FadeFrom, styles.FadeTo)),
			styles.Row("Your balance", styles.ValueStyle.Render(d.Balance+" ETH")),
		)
	default:
		lines = append(lines, styles.Row("Account", styles.MutedStyle.Render("not connected, press ")+styles.Key("c")))
	}

	jar := styles.MutedStyle.Render("unknown")
	if d.ContractBalance != "" {
		jar = styles.ValueStyle.Render(d.ContractBalance + " ETH")
	}
	if d.ContractLoading {
		jar = d.Spinner + " " + jar
	}
	lines = append(lines,
		styles.Row("Tip jar", styles.MutedStyle.Render(d.Contract)),
		styles.Row("Jar balance", jar),
		styles.Row("", styles.MutedStyle.Render(helpers.LoadedAt(d.LoadedAt, d.ContractLoading))),
	)

	if d.LastTx != nil {
		lines = append(lines, "", RenderTx(d.LastTx, d.Spinner))
	}

	if d.Prompt != "" {
		lines = append(lines, "", d.Prompt)
	}

	if d.QR != "" {
		lines = append(lines, "", styles.TitleStyle.Render("Scan to tip"), d.QR)
	} else {
		lines = append(lines, "", renderDeposits(d.Deposits))
	}

	return strings.Join(lines, "\n")
}

// RenderTx renders one transaction line with its status.
func RenderTx(tx flow.Transaction, spinner string) string {
	rec := tx.Details()
	label := "Tip"
	if rec.Kind == flow.KindWithdraw {
		label = "Withdrawal"
	}
	hash := "not broadcast"
	if rec.Hash != (common.Hash{}) {
		hash = helpers.ShortenAddr(rec.Hash.Hex())
	}

	var status string
	switch t := tx.(type) {
	case flow.Pending:
		status = spinner + " " + lipgloss.NewStyle().Foreground(styles.CWarn).Render("pending")
	case flow.Succeeded:
		status = styles.HotkeyKeyStyle.Render("✓ confirmed")
		if t.Receipt != nil && t.Receipt.BlockNumber != nil {
			status += styles.MutedStyle.Render(fmt.Sprintf(" in block %s", t.Receipt.BlockNumber))
		}
	case flow.Failed:
		status = styles.ErrorStyle.Render("✗ " + flow.Describe(t.Err))
	}

	return styles.Row(label, fmt.Sprintf("%s ETH  %s  %s", rec.AmountETH(), styles.MutedStyle.Render(hash), status))
}

func renderDeposits(deps []ledger.DepositRecord) string {
	title := styles.TitleStyle.Render("Recent tips")
	if len(deps) == 0 {
		return title + "\n" + styles.MutedStyle.Render("No tips yet.")
	}

	lines := []string{title}
	start := helpers.Max(0, len(deps)-recentTips)
	for i := len(deps) - 1; i >= start; i-- {
		dep := deps[i]
		msg := dep.Message
		if msg == "" {
			msg = "—"
		}
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			styles.MutedStyle.Render(helpers.ShortenAddr(dep.Sender.Hex())),
			styles.ValueStyle.Render(helpers.FormatEther(dep.Amount)+" ETH"),
			msg,
		))
	}
	return strings.Join(lines, "\n")
}
