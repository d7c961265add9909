package main

import (
	"fmt"
	"strings"
	"time"

	"tipjar-tui/config"
	"tipjar-tui/helpers"
	"tipjar-tui/rpc"
	"tipjar-tui/styles"
	logview "tipjar-tui/views/log"
	"tipjar-tui/views/owner"
	"tipjar-tui/views/settings"
	"tipjar-tui/views/tipjar"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- VIEW --------------------

// renderDialog renders a centered Yes/No confirmation
func (m *model) renderDialog(question string, yesSelected bool) string {
	msg := helpers.FadeString(question, styles.FadeFrom, styles.FadeTo)
	q := lipgloss.NewStyle().Width(50).Align(lipgloss.Center).Render(msg)

	// Apply active style to the selected button
	var okButton, cancelButton string
	if yesSelected {
		okButton = styles.ActiveButtonStyle.Render("Yes")
		cancelButton = styles.ButtonStyle.Render("No")
	} else {
		okButton = styles.ButtonStyle.MarginRight(2).Render("Yes")
		cancelButton = styles.ActiveButtonStyle.MarginRight(0).Render("No")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, okButton, cancelButton)
	ui := lipgloss.JoinVertical(lipgloss.Center, q, buttons)

	return lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		styles.DialogBoxStyle.Render(ui),
	)
}

func (m *model) globalHeader() string {
	availableWidth := max(0, m.w-8) // Account for panel padding

	var addrDisplay string
	switch {
	case m.state.Connected:
		addrDisplay = lipgloss.NewStyle().
			Foreground(cAccent2).
			Bold(true).
			Render("Account: " + helpers.FadeString(helpers.ShortenAddr(m.state.AddressHex()), styles.FadeFrom, styles.FadeTo))
	case m.state.Loading:
		addrDisplay = lipgloss.NewStyle().Foreground(cMuted).Render("Account: " + m.spin.View() + " connecting")
	default:
		addrDisplay = lipgloss.NewStyle().Foreground(cMuted).Render("Account: not connected")
	}

	// Network status with a dot
	statusIcon := "○"
	statusColor := lipgloss.Color("#c01c28")
	var statusText string
	switch {
	case m.dev:
		statusIcon, statusColor = "●", cAccent
		statusText = fmt.Sprintf("dev chain %v", m.chainID)
	case m.rpcURL == "":
		statusText = "No RPC"
	case m.rpcConnecting:
		statusText = "Connecting..."
	case !m.rpcConnected:
		statusText = "Connection Failed"
	default:
		statusIcon, statusColor = "●", cAccent
		statusText = m.rpcName()
		if m.chainID != nil {
			statusText += fmt.Sprintf(" · chain %v", m.chainID)
		}
	}

	rpcDisplay := lipgloss.NewStyle().
		Foreground(statusColor).
		Bold(true).
		Render(statusIcon + " " + statusText)

	titleText := lipgloss.NewStyle().
		Foreground(cAccent).
		Bold(true).
		Render(helpers.FadeString("tip jar", "#7EE787", "#82CFFD"))

	addrWidth := lipgloss.Width(addrDisplay)
	rpcWidth := lipgloss.Width(rpcDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := addrWidth + rpcWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		// Not enough space, stack vertically
		headerLine = addrDisplay + "\n" + titleText + "\n" + rpcDisplay
	} else {
		// Three-column layout: Address | Title (centered) | RPC
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		headerLine = addrDisplay +
			strings.Repeat(" ", max(1, leftPadding)) +
			titleText +
			strings.Repeat(" ", max(1, rightPadding)) +
			rpcDisplay
	}

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

// rpcName is the display name of the endpoint in use
func (m *model) rpcName() string {
	for _, r := range m.cfg.RPCURLs {
		if r.URL == m.rpcURL {
			return r.Name
		}
	}
	return "ETH_RPC_URL"
}

// renderNotice renders the current notification, or "" when none is visible
func (m *model) renderNotice() string {
	n, ok := m.notices.Current(time.Now())
	if !ok {
		return ""
	}
	return noticeStyle(n.Severity).Width(max(0, m.w-2)).Render(n.Text)
}

func (m *model) tipJarData() tipjar.Data {
	d := tipjar.Data{
		Account:         m.state.AddressHex(),
		Connected:       m.state.Connected,
		Loading:         m.state.Loading,
		Balance:         m.state.Balance,
		Contract:        helpers.AddressString(m.contract),
		ContractLoading: m.contractLoading,
		LoadedAt:        m.loadedAt,
		Deposits:        m.deposits,
		LastTx:          m.lastTx,
		Spinner:         m.spin.View(),
	}
	if d.Contract == "" {
		d.Contract = "not configured"
	}
	if m.contractBalance != nil {
		d.ContractBalance = helpers.FormatEther(m.contractBalance)
	}

	switch {
	case m.askingPass:
		d.Prompt = styles.TitleStyle.Render("Unlock keystore") + "\n\n" +
			m.passInput.View() + "\n" +
			styles.MutedStyle.Render("Enter unlock   Esc cancel")
	case m.tipForm != nil:
		d.Prompt = styles.TitleStyle.Render("Send a tip") + "\n\n" + m.tipForm.View()
	case m.txInFlight:
		d.Prompt = m.spin.View() + " waiting for the wallet and the network…"
	}

	if m.showQR && m.contract != (common.Address{}) {
		d.QR = rpc.GenerateQRCode(rpc.TipURI(m.contract, m.chainID, nil)) + "\n" +
			styles.MutedStyle.Render(rpc.TipURI(m.contract, m.chainID, nil))
	}
	return d
}

func (m *model) View() string {
	if m.showWithdrawDialog {
		bal := "the full balance"
		if m.contractBalance != nil {
			bal = helpers.FormatEther(m.contractBalance) + " ETH"
		}
		return appStyle.Render(m.renderDialog("Withdraw "+bal+" from the tip jar to the owner?", m.withdrawDialogYesSelected))
	}
	if m.showRPCDeleteDialog {
		return appStyle.Render(m.renderDialog("Are you sure you want to delete the RPC endpoint "+m.deleteRPCDialogName+"?", m.deleteRPCDialogYesSelected))
	}

	headerPanel := panelStyle.Width(max(0, m.w-2)).Render(m.globalHeader())
	prompting := m.askingPass || m.tipForm != nil

	var pageContent, nav string
	switch m.activePage {
	case config.PageTipJar:
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(tipjar.Render(m.tipJarData()))
		nav = tipjar.Nav(m.w-2, prompting, m.state.Connected, m.isOwner())

	case config.PageOwner:
		bal := ""
		if m.contractBalance != nil {
			bal = helpers.FormatEther(m.contractBalance)
		}
		content := owner.Render(helpers.AddressString(m.owner), bal, len(m.deposits), m.txInFlight, m.spin.View())
		if m.lastTx != nil {
			content += "\n\n" + tipjar.RenderTx(m.lastTx, m.spin.View())
		}
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(content)
		nav = owner.Nav(m.w - 2)

	case config.PageSettings:
		content := settings.Render(m.cfg.RPCURLs, m.selectedRPCIdx, settings.Info{
			Dev:         m.dev,
			KeystoreDir: m.keystoreDir(),
			Contract:    helpers.AddressString(m.contract),
			Owner:       helpers.AddressString(m.owner),
		})
		if m.settingsMode == settings.ModeAdd && m.form != nil {
			content = styles.TitleStyle.Render("Add RPC endpoint") + "\n\n" + m.form.View()
		}
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(content)
		nav = settings.Nav(m.w-2, m.settingsMode, m.dev)
	}

	parts := []string{headerPanel}
	if notice := m.renderNotice(); notice != "" {
		parts = append(parts, notice)
	}
	parts = append(parts, pageContent, nav)

	// Render log panel only if enabled
	if m.logEnabled {
		m.logViewport.Height = logview.Height(m.h)
		parts = append(parts, logview.Render(m.w, m.logReady, m.logSpinner.View(), m.logViewport))
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m *model) keystoreDir() string {
	if m.keystore == nil {
		return m.keystorePath + " (unavailable)"
	}
	return m.keystorePath
}
