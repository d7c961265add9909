package main

import (
	"tipjar-tui/notify"
	"tipjar-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- THEME (Lip Gloss) --------------------
// Styles come from the styles package

var (
	cBorder  = styles.CBorder
	cMuted   = styles.CMuted
	cText    = styles.CText
	cAccent  = styles.CAccent
	cAccent2 = styles.CAccent2
	cWarn    = styles.CWarn
	cError   = styles.CError

	appStyle   = styles.AppStyle
	panelStyle = styles.PanelStyle
)

// noticeStyle colors a notification by severity.
func noticeStyle(sev notify.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch sev {
	case notify.Success:
		return base.Foreground(styles.CBg).Background(cAccent)
	case notify.Error:
		return base.Foreground(styles.CCream).Background(cError)
	case notify.Warning:
		return base.Foreground(styles.CBg).Background(cWarn)
	}
	return base.Foreground(styles.CBg).Background(cAccent2)
}
