package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"tipjar-tui/flow"
	"tipjar-tui/ledger"
	"tipjar-tui/notify"
	"tipjar-tui/rpc"
	"tipjar-tui/session"
	"tipjar-tui/wallet"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

const (
	readTimeout = 10 * time.Second
	// txTimeout bounds signing plus confirmation.
	txTimeout = 5 * time.Minute
)

var errSingleAccount = errors.New("the wallet has only one connected account")

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

// connectRPC establishes an RPC connection to the Ethereum node
func connectRPC(url string) tea.Cmd {
	return func() tea.Msg {
		result := rpc.Connect(url)
		return rpcConnectedMsg{client: result.Client, err: result.Error}
	}
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// listenSession waits for the next session event
func listenSession(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{ev: ev}
	}
}

// listenTx waits for the next intermediate transaction status
func listenTx(ch <-chan flow.Transaction) tea.Cmd {
	return func() tea.Msg {
		return txUpdateMsg{tx: <-ch}
	}
}

// checkConnection restores a previously granted account without prompting.
// The outcome arrives as a session event.
func checkConnection(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, readTimeout)
		defer cancel()
		s.CheckExistingConnection(ctx)
		return nil
	}
}

// connectWallet asks the wallet for account access
func connectWallet(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		return walletConnectedMsg{err: s.Connect(ctx)}
	}
}

// refreshBalance re-reads the connected account's balance
func refreshBalance(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, readTimeout)
		defer cancel()
		s.RefreshBalance(ctx)
		return nil
	}
}

// loadContractState reads the tip jar balance and its Deposit events
func loadContractState(ctx context.Context, backend ledger.Backend, addr common.Address) tea.Cmd {
	return func() tea.Msg {
		if backend == nil {
			return contractLoadedMsg{err: wallet.ErrUnavailable}
		}
		if addr == (common.Address{}) {
			return contractLoadedMsg{err: errors.New("contract address not configured")}
		}
		ctx, cancel := context.WithTimeout(ctx, readTimeout)
		defer cancel()

		c := ledger.NewContract(addr, backend)
		bal, err := c.Balance(ctx)
		if err != nil {
			return contractLoadedMsg{err: err}
		}
		deps, err := c.Deposits(ctx, nil)
		return contractLoadedMsg{balance: bal, deposits: deps, depositsErr: err}
	}
}

// submitTip runs the tip flow. Intermediate statuses go to updates.
func submitTip(ctx context.Context, t *flow.Tipper, req flow.TipRequest, updates chan<- flow.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, txTimeout)
		defer cancel()
		tx, err := t.Submit(ctx, req, forward(updates))
		return txDoneMsg{kind: flow.KindTip, tx: tx, err: err}
	}
}

// withdrawAll runs the withdrawal flow
func withdrawAll(ctx context.Context, w *flow.Withdrawer, updates chan<- flow.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, txTimeout)
		defer cancel()
		tx, err := w.Withdraw(ctx, forward(updates))
		return txDoneMsg{kind: flow.KindWithdraw, tx: tx, err: err}
	}
}

// forward passes statuses on without ever blocking the flow
func forward(ch chan<- flow.Transaction) func(flow.Transaction) {
	return func(tx flow.Transaction) {
		select {
		case ch <- tx:
		default:
		}
	}
}

// switchAccount makes the wallet's next granted account active. The
// session picks the change up through accountsChanged.
func switchAccount(ctx context.Context, p wallet.Provider, current common.Address) tea.Cmd {
	return func() tea.Msg {
		sel, ok := p.(accountSelector)
		if p == nil || !ok {
			return accountSwitchedMsg{err: wallet.ErrUnavailable}
		}
		accounts, err := p.Accounts(ctx)
		if err != nil {
			return accountSwitchedMsg{err: err}
		}
		if len(accounts) < 2 {
			return accountSwitchedMsg{err: errSingleAccount}
		}
		next := accounts[0]
		for i, a := range accounts {
			if a == current {
				next = accounts[(i+1)%len(accounts)]
				break
			}
		}
		return accountSwitchedMsg{addr: next, err: sel.Select(next)}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardCopiedMsg{text: text, err: clipboard.WriteAll(text)}
	}
}

// expireNotice clears notice id once its display window has passed
func expireNotice(id uint64) tea.Cmd {
	return tea.Tick(notify.DisplayWindow, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// -------------------- MODEL HELPER METHODS --------------------
// These methods help with state management and command generation

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string) {
	if m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message)
	case "success":
		m.logger.Info("✓", "msg", message)
	case "error":
		m.logger.Error(message)
	case "warning":
		m.logger.Warn(message)
	case "debug":
		m.logger.Debug(message)
	default:
		m.logger.Print(message)
	}

	m.updateLogViewport()
}

// notify shows a notice and schedules its expiry
func (m *model) notify(sev notify.Severity, text string) tea.Cmd {
	n := m.notices.Show(sev, text)
	switch sev {
	case notify.Error:
		m.addLog("error", text)
	case notify.Warning:
		m.addLog("warning", text)
	case notify.Success:
		m.addLog("success", text)
	default:
		m.addLog("info", text)
	}
	return expireNotice(n.ID)
}

// notifyErr shows err the way the user should read it
func (m *model) notifyErr(err error) tea.Cmd {
	return m.notify(notify.Error, flow.Describe(err))
}

// readBackend is what contract reads go through. Reads do not need a
// wallet, only a node.
func (m *model) readBackend() ledger.Backend {
	if m.chain != nil {
		return m.chain
	}
	if m.ethClient != nil {
		return m.ethClient
	}
	return nil
}

// loadContract refreshes the tip jar balance and history
func (m *model) loadContract() tea.Cmd {
	m.contractLoading = true
	return loadContractState(m.ctx, m.readBackend(), m.contract)
}

// refreshAll reloads both balances
func (m *model) refreshAll() tea.Cmd {
	m.addLog("info", "Refreshing balances")
	return tea.Batch(refreshBalance(m.ctx, m.session), m.loadContract())
}

// reload resets everything derived from the chain after a network change
func (m *model) reload(chainID *big.Int) tea.Cmd {
	m.addLog("warning", fmt.Sprintf("Network changed to chain %v, reloading", chainID))
	m.lastTx = nil
	m.contractBalance = nil
	m.deposits = nil
	m.showQR = false
	return tea.Batch(checkConnection(m.ctx, m.session), m.loadContract())
}

// isOwner reports whether the connected account owns the tip jar
func (m *model) isOwner() bool {
	return m.state.Connected && m.withdrawer.CanWithdraw(m.state.AddressHex())
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logReady || m.logSink == nil {
		return
	}

	content, version := m.logSink.Snapshot()
	if version == m.logVersion {
		return
	}
	m.logVersion = version
	m.logViewport.SetContent(content)
	// Scroll to bottom to show latest entries
	m.logViewport.GotoBottom()
}
