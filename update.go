package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tipjar-tui/config"
	"tipjar-tui/flow"
	"tipjar-tui/helpers"
	"tipjar-tui/notify"
	"tipjar-tui/session"
	"tipjar-tui/views/settings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- TEMP FORM STORAGE --------------------
// Temporary form field storage (package-level to avoid pointer-to-copy issues)
var (
	tempTipAmount   string
	tempTipMessage  string
	tempRPCFormName string
	tempRPCFormURL  string
)

func validateTipAmount(s string) error {
	wei, err := helpers.ParseETH(s)
	if err != nil {
		return fmt.Errorf("amount must be a number like 0.01")
	}
	if wei.Sign() <= 0 {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}

// createTipForm opens the tip form. Values typed before a failed tip are
// kept; a successful tip clears them.
func (m *model) createTipForm() {
	m.tipForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount (ETH)").
				Description(fmt.Sprintf("Available: %s ETH", m.state.Balance)).
				Value(&tempTipAmount).
				Placeholder("0.01").
				Validate(validateTipAmount),

			huh.NewInput().
				Title("Message").
				Description("Optional, stored on chain with the tip").
				Value(&tempTipMessage).
				CharLimit(140).
				Placeholder("gg"),
		),
	).WithTheme(huh.ThemeCatppuccin())

	// Initialize the form
	m.tipForm.Init()
}

func (m *model) createAddRPCForm() {
	tempRPCFormName = ""
	tempRPCFormURL = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC Name").
				Description("A friendly name for this RPC endpoint").
				Value(&tempRPCFormName).
				Placeholder("Local anvil"),

			huh.NewInput().
				Title("RPC URL").
				Description("The complete RPC URL (http(s):// or ws(s)://)").
				Value(&tempRPCFormURL).
				Placeholder("http://127.0.0.1:8545"),
		),
	).WithTheme(huh.ThemeCatppuccin())

	// Initialize the form
	m.form.Init()
}

// startTip runs the tip flow with the form's values
func (m *model) startTip() tea.Cmd {
	m.txInFlight = true
	m.lastTx = nil
	req := flow.TipRequest{Amount: strings.TrimSpace(tempTipAmount), Message: tempTipMessage}
	m.addLog("info", fmt.Sprintf("Submitting tip of %s ETH", req.Amount))
	return submitTip(m.ctx, m.tipper, req, m.txUpdates)
}

// startWithdraw runs the withdrawal flow
func (m *model) startWithdraw() tea.Cmd {
	m.txInFlight = true
	m.lastTx = nil
	m.addLog("info", "Withdrawing tip jar balance")
	return withdrawAll(m.ctx, m.withdrawer, m.txUpdates)
}

func (m *model) saveConfig() {
	if err := config.Save(m.configPath, m.cfg); err != nil {
		m.addLog("error", fmt.Sprintf("Failed to save config: %v", err))
	}
}

// -------------------- UPDATE --------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// flows log from their own goroutines
	defer m.updateLogViewport()

	// Handle tip form updates first
	if m.tipForm != nil && !isAppMsg(msg) {
		// Intercept ESC key to cancel form
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
			m.tipForm = nil
			return m, nil
		}

		form, cmd := m.tipForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.tipForm = f

			if m.tipForm.State == huh.StateCompleted {
				m.tipForm = nil
				return m, m.startTip()
			}

			if m.tipForm.State == huh.StateAborted {
				m.tipForm = nil
				return m, nil
			}
		}
		return m, cmd
	}

	// Passphrase prompt
	if m.askingPass {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.askingPass = false
				m.passInput.SetValue("")
				m.passInput.Blur()
				return m, m.notify(notify.Info, "Connection cancelled.")
			case "enter":
				pass := m.passInput.Value()
				m.askingPass = false
				m.passInput.SetValue("")
				m.passInput.Blur()
				if m.prompt != nil {
					m.prompt.Provide(pass)
				}
				m.addLog("info", "Unlocking keystore")
				return m, connectWallet(m.ctx, m.session)
			}
			var cmd tea.Cmd
			m.passInput, cmd = m.passInput.Update(msg)
			return m, cmd
		}
	}

	if m.activePage == config.PageSettings && m.settingsMode == settings.ModeAdd && m.form != nil && !isAppMsg(msg) {
		// Intercept ESC key to cancel form
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
			m.settingsMode = settings.ModeList
			m.form = nil
			return m, nil
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f

			if m.form.State == huh.StateCompleted {
				m.settingsMode = settings.ModeList
				m.form = nil
				if err := m.cfg.AddRPC(tempRPCFormName, tempRPCFormURL); err != nil {
					return m, m.notify(notify.Error, "Could not add endpoint: "+err.Error())
				}
				m.saveConfig()
				return m, m.notify(notify.Success, fmt.Sprintf("Added RPC endpoint %s", strings.TrimSpace(tempRPCFormURL)))
			}

			if m.form.State == huh.StateAborted {
				m.settingsMode = settings.ModeList
				m.form = nil
				return m, nil
			}
		}
		return m, cmd
	}

	switch msg := msg.(type) {

	case logInitMsg:
		if !m.logEnabled {
			return m, nil
		}
		m.logReady = true
		m.logVersion = 0
		m.addLog("info", "Logger enabled")
		return m, nil

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		// Width accounts for border and padding
		m.logViewport.Width = max(0, msg.Width-6)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		var cmds []tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		// Update log spinner too if log is enabled but not ready
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case rpcConnectedMsg:
		m.rpcConnecting = false
		if msg.err != nil {
			m.rpcConnected = false
			return m, m.notify(notify.Error, fmt.Sprintf("RPC connection failed: %v", msg.err))
		}
		old := m.ethClient
		m.ethClient = msg.client
		m.rpcConnected = true
		m.chainID = msg.client.Chain
		m.addLog("success", fmt.Sprintf("RPC connected to `%s` (chain %v)", msg.client.URL, msg.client.Chain))
		if old != nil {
			old.Close()
		}
		if m.keystore != nil {
			// the wallet announces chainChanged, which reloads everything
			m.keystore.SwitchEndpoint(msg.client)
			return m, nil
		}
		return m, m.reload(msg.client.Chain)

	case sessionEventMsg:
		cmds := []tea.Cmd{listenSession(m.session.Updates())}
		switch msg.ev.Kind {
		case session.EventState:
			prev := m.state
			m.state = msg.ev.State
			if prev.Connected && m.state.Connected && prev.Address != m.state.Address {
				m.lastTx = nil
				cmds = append(cmds, m.notify(notify.Info, "Switched to "+helpers.ShortenAddr(m.state.AddressHex())))
			}
			if prev.Connected && !m.state.Connected && !m.state.Loading {
				m.addLog("info", "Wallet disconnected")
			}
			if m.activePage == config.PageOwner && !m.isOwner() {
				m.activePage = config.PageTipJar
			}
		case session.EventReload:
			if msg.ev.ChainID != nil {
				m.chainID = msg.ev.ChainID
			}
			cmds = append(cmds, m.reload(msg.ev.ChainID))
		}
		return m, tea.Batch(cmds...)

	case sessionClosedMsg:
		return m, nil

	case walletConnectedMsg:
		if msg.err != nil {
			return m, m.notifyErr(msg.err)
		}
		return m, m.notify(notify.Success, "Wallet connected.")

	case accountSwitchedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, errSingleAccount) {
				return m, m.notify(notify.Info, "Only one account is connected.")
			}
			return m, m.notifyErr(msg.err)
		}
		m.addLog("info", "Selected account "+msg.addr.Hex())
		return m, nil

	case contractLoadedMsg:
		m.contractLoading = false
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Failed to read tip jar: %v", msg.err))
			return m, nil
		}
		m.contractBalance = msg.balance
		m.deposits = msg.deposits
		m.loadedAt = time.Now()
		if msg.depositsErr != nil {
			m.addLog("warning", fmt.Sprintf("Failed to read tip history: %v", msg.depositsErr))
		}
		m.addLog("info", fmt.Sprintf("Tip jar holds %s ETH from %d tips", helpers.FormatEther(msg.balance), len(msg.deposits)))
		return m, nil

	case txUpdateMsg:
		// statuses that arrive after the final result are stale
		if m.txInFlight && msg.tx != nil {
			m.lastTx = msg.tx
		}
		return m, listenTx(m.txUpdates)

	case txDoneMsg:
		m.txInFlight = false
		if msg.tx != nil {
			m.lastTx = msg.tx
		}
		if msg.err != nil {
			return m, m.notifyErr(msg.err)
		}
		var text string
		switch msg.kind {
		case flow.KindTip:
			tempTipAmount = ""
			tempTipMessage = ""
			text = fmt.Sprintf("Tip of %s ETH sent. Thank you!", msg.tx.Details().AmountETH())
		case flow.KindWithdraw:
			text = fmt.Sprintf("Withdrew %s ETH.", msg.tx.Details().AmountETH())
		}
		return m, tea.Batch(m.notify(notify.Success, text), m.loadContract())

	case clipboardCopiedMsg:
		if msg.err != nil {
			return m, m.notify(notify.Error, "Clipboard unavailable: "+msg.err.Error())
		}
		return m, m.notify(notify.Info, "Copied "+helpers.ShortenAddr(msg.text)+" to clipboard")

	case noticeExpiredMsg:
		m.notices.Expire(msg.id)
		return m, nil

	case tea.MouseMsg:
		if m.logEnabled && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// isAppMsg reports messages that must reach the main switch even while a
// form has focus. Everything else belongs to the form.
func isAppMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case logInitMsg, rpcConnectedMsg, sessionEventMsg, sessionClosedMsg,
		walletConnectedMsg, accountSwitchedMsg, contractLoadedMsg,
		txUpdateMsg, txDoneMsg, clipboardCopiedMsg, noticeExpiredMsg,
		spinner.TickMsg, tea.WindowSizeMsg:
		return true
	}
	return false
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Dialogs first
	if m.showWithdrawDialog {
		switch msg.String() {
		case "left", "right", "tab":
			m.withdrawDialogYesSelected = !m.withdrawDialogYesSelected
		case "enter":
			m.showWithdrawDialog = false
			if m.withdrawDialogYesSelected {
				return m, m.startWithdraw()
			}
		case "esc":
			m.showWithdrawDialog = false
		}
		return m, nil
	}

	if m.showRPCDeleteDialog {
		switch msg.String() {
		case "left", "right", "tab":
			m.deleteRPCDialogYesSelected = !m.deleteRPCDialogYesSelected
		case "enter":
			m.showRPCDeleteDialog = false
			if m.deleteRPCDialogYesSelected && m.cfg.RemoveRPC(m.deleteRPCDialogIdx) {
				if m.selectedRPCIdx >= len(m.cfg.RPCURLs) && m.selectedRPCIdx > 0 {
					m.selectedRPCIdx--
				}
				m.saveConfig()
				m.addLog("warning", fmt.Sprintf("Deleted RPC endpoint `%s`", m.deleteRPCDialogName))
			}
		case "esc":
			m.showRPCDeleteDialog = false
		}
		return m, nil
	}

	// global keys
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "l", "L":
		// Toggle logger
		m.logEnabled = !m.logEnabled
		m.logSink.SetEnabled(m.logEnabled)
		m.cfg.Logger = m.logEnabled
		m.saveConfig()
		m.logReady = false
		if m.logEnabled {
			return m, tea.Batch(initLogViewport(), m.logSpinner.Tick)
		}
		return m, nil

	case "pgup", "pgdown":
		// Allow scrolling in log viewport when enabled
		if m.logEnabled && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case "1":
		m.activePage = config.PageTipJar
		return m, nil

	case "2":
		if !m.isOwner() {
			return m, m.notifyErr(flow.ErrUnauthorized)
		}
		m.activePage = config.PageOwner
		return m, nil

	case "3", "s":
		m.activePage = config.PageSettings
		m.settingsMode = settings.ModeList
		return m, nil

	case "tab":
		m.activePage = m.nextPage()
		return m, nil

	case "c":
		if m.state.Connected || m.state.Loading {
			return m, nil
		}
		if m.keystore != nil && !m.walletGranted() {
			m.askingPass = true
			m.passInput.SetValue("")
			return m, m.passInput.Focus()
		}
		m.addLog("info", "Connecting wallet")
		return m, connectWallet(m.ctx, m.session)

	case "x":
		if !m.state.Connected {
			return m, nil
		}
		m.session.Disconnect()
		return m, m.notify(notify.Info, "Disconnected. The wallet keeps its permission.")

	case "r":
		return m, m.refreshAll()

	case "y":
		if m.lastTx == nil || m.lastTx.Details().Hash == (common.Hash{}) {
			return m, m.notify(notify.Warning, "No transaction hash to copy yet.")
		}
		return m, copyToClipboard(m.lastTx.Details().Hash.Hex())

	case "q":
		m.showQR = !m.showQR && m.activePage == config.PageTipJar
		return m, nil

	case "w":
		if m.txInFlight {
			return m, m.notifyErr(flow.ErrBusy)
		}
		if !m.state.Connected {
			return m, m.notifyErr(flow.ErrNotConnected)
		}
		if !m.isOwner() {
			return m, m.notifyErr(flow.ErrUnauthorized)
		}
		m.showWithdrawDialog = true
		m.withdrawDialogYesSelected = true
		return m, nil

	case "esc":
		switch {
		case m.showQR:
			m.showQR = false
		case m.activePage != config.PageTipJar:
			m.activePage = config.PageTipJar
		default:
			m.notices.Dismiss()
		}
		return m, nil
	}

	// page-specific behavior
	switch m.activePage {

	case config.PageTipJar:
		switch msg.String() {
		case "t", "enter":
			if m.txInFlight {
				return m, m.notifyErr(flow.ErrBusy)
			}
			if !m.state.Connected {
				return m, m.notifyErr(flow.ErrNotConnected)
			}
			m.showQR = false
			m.createTipForm()
			return m, nil

		case "a":
			if !m.state.Connected {
				return m, m.notifyErr(flow.ErrNotConnected)
			}
			return m, switchAccount(m.ctx, m.session.Provider(), m.state.Address)
		}

	case config.PageOwner:
		if msg.String() == "enter" {
			return m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
		}

	case config.PageSettings:
		if m.dev {
			return m, nil
		}
		switch msg.String() {
		case "a", "A":
			m.settingsMode = settings.ModeAdd
			m.createAddRPCForm()
			return m, nil

		case "d", "delete", "backspace":
			if len(m.cfg.RPCURLs) > 0 && m.selectedRPCIdx < len(m.cfg.RPCURLs) {
				m.showRPCDeleteDialog = true
				m.deleteRPCDialogYesSelected = true
				m.deleteRPCDialogIdx = m.selectedRPCIdx
				name := strings.TrimSpace(m.cfg.RPCURLs[m.selectedRPCIdx].Name)
				if name == "" {
					name = m.cfg.RPCURLs[m.selectedRPCIdx].URL
				}
				m.deleteRPCDialogName = name
			}
			return m, nil

		case "up", "k":
			if m.selectedRPCIdx > 0 {
				m.selectedRPCIdx--
			}
			return m, nil

		case "down", "j":
			if m.selectedRPCIdx < len(m.cfg.RPCURLs)-1 {
				m.selectedRPCIdx++
			}
			return m, nil

		case "enter", " ":
			if !m.cfg.Activate(m.selectedRPCIdx) {
				return m, nil
			}
			m.rpcURL = m.cfg.RPCURLs[m.selectedRPCIdx].URL
			m.saveConfig()
			m.rpcConnecting = true
			m.rpcConnected = false
			m.addLog("info", fmt.Sprintf("Switching RPC to `%s`", m.rpcURL))
			return m, connectRPC(m.rpcURL)
		}
	}

	return m, nil
}

// walletGranted reports whether the wallet still holds an account grant,
// in which case connecting needs no passphrase.
func (m *model) walletGranted() bool {
	p := m.session.Provider()
	if p == nil {
		return false
	}
	accounts, err := p.Accounts(m.ctx)
	return err == nil && len(accounts) > 0
}

// nextPage cycles pages, skipping Owner for everyone but the owner
func (m *model) nextPage() config.Page {
	next := (m.activePage + 1) % (config.PageSettings + 1)
	if next == config.PageOwner && !m.isOwner() {
		next = config.PageSettings
	}
	return next
}
