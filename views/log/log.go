package log

import (
	"fmt"

	"tipjar-tui/helpers"
	"tipjar-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Height is how many viewport lines the log panel gets for a screen of
// the given height: a third of the screen, at most 15 lines and at
// least 5 when the screen allows.
func Height(screenHeight int) int {
	// header, nav, notice, title and borders
	const reserved = 12
	available := helpers.Max(5, screenHeight-reserved)
	return helpers.Min(available, helpers.Min(screenHeight/3, 15))
}

// Render renders the log panel. vp.Height must already be set with Height.
func Render(width int, logReady bool, logSpinnerView string, vp viewport.Model) string {
	title := lipgloss.NewStyle().
		Foreground(styles.CAccent2).
		Bold(true).
		Render("Log")

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(helpers.Max(0, width-2)).
		Height(vp.Height + 2)

	if !logReady {
		return border.Render(title + "\n\n" + "initializing...\n" + logSpinnerView)
	}

	info := styles.MutedStyle.Render(fmt.Sprintf(" %d lines", vp.TotalLineCount()))
	if vp.TotalLineCount() > vp.Height {
		info = styles.MutedStyle.Render(fmt.Sprintf(" [%d%%] pgup/pgdn", int(vp.ScrollPercent()*100)))
	}

	return border.Render(title + info + "\n\n" + vp.View())
}
