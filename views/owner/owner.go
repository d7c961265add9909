package owner

import (
	"strconv"
	"strings"

	"tipjar-tui/helpers"
	"tipjar-tui/styles"
)

// Nav returns the navigation bar for the owner view
func Nav(width int) string {
	keys := []string{
		styles.Key("w") + " withdraw",
		styles.Key("r") + " refresh",
		styles.Key("y") + " copy tx",
		styles.Key("1") + " tip jar",
		styles.Key("3") + " settings",
		styles.Key("l") + " logger",
	}
	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}

// Render renders the owner view. Callers only show it to the owner.
func Render(owner, contractBalance string, tips int, busy bool, spinner string) string {
	lines := []string{
		styles.TitleStyle.Render("Owner"),
		"",
		styles.Row("Owner", helpers.FadeString(owner, styles.FadeFrom, styles.FadeTo)),
		styles.Row("Tips received", styles.ValueStyle.Render(strconv.Itoa(tips))),
	}

	bal := styles.MutedStyle.Render("unknown")
	if contractBalance != "" {
		bal = styles.ValueStyle.Render(contractBalance + " ETH")
	}
	lines = append(lines, styles.Row("Withdrawable", bal), "")

	switch {
	case busy:
		lines = append(lines, spinner+" withdrawal pending…")
	case contractBalance == "" || contractBalance == "0":
		lines = append(lines, styles.MutedStyle.Render("Nothing to withdraw yet."))
	default:
		lines = append(lines, styles.ActiveButtonStyle.Render("Withdraw all"), styles.MutedStyle.Render("Press w to withdraw"))
	}
	return strings.Join(lines, "\n")
}
