package main

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"tipjar-tui/config"
	"tipjar-tui/flow"
	"tipjar-tui/notify"
	"tipjar-tui/session"
	"tipjar-tui/wallet"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (*model, backend) {
	t.Helper()
	b := newDevBackend(config.Env{Dev: true}, 0)
	m := newModelWith(b, config.DefaultConfig(), filepath.Join(t.TempDir(), "cfg.json"))
	t.Cleanup(func() {
		m.shutdown()
		tempTipAmount, tempTipMessage = "", ""
	})
	return m, b
}

// connect connects the session directly and mirrors its state into the
// model, the way a session event would.
func connect(t *testing.T, m *model) {
	t.Helper()
	require.NoError(t, m.session.Connect(context.Background()))
	m.state = m.session.State()
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func currentNotice(t *testing.T, m *model) notify.Notice {
	t.Helper()
	n, ok := m.notices.Current(time.Now())
	require.True(t, ok, "expected a visible notice")
	return n
}

func TestTipSuccessClearsForm(t *testing.T) {
	m, b := newTestModel(t)
	connect(t, m)

	tempTipAmount, tempTipMessage = "0.25", "gg"
	msg := m.startTip()()
	done, ok := msg.(txDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	m.Update(done)
	assert.Empty(t, tempTipAmount)
	assert.Empty(t, tempTipMessage)
	assert.False(t, m.txInFlight)
	assert.Equal(t, flow.StatusSuccess, m.lastTx.Status())

	n := currentNotice(t, m)
	assert.Equal(t, notify.Success, n.Severity)
	assert.Contains(t, n.Text, "0.25")

	deps := b.chain.Ledger().Deposits()
	require.Len(t, deps, 1)
	assert.Equal(t, "gg", deps[0].Message)
	assert.Equal(t, 1, b.chain.Sent())
}

func TestTipFailureKeepsForm(t *testing.T) {
	m, b := newTestModel(t)
	connect(t, m)

	tempTipAmount, tempTipMessage = "abc", "gg"
	done := m.startTip()().(txDoneMsg)
	assert.ErrorIs(t, done.err, flow.ErrValidation)

	m.Update(done)
	assert.Equal(t, "abc", tempTipAmount)
	assert.Equal(t, "gg", tempTipMessage)
	assert.Equal(t, notify.Error, currentNotice(t, m).Severity)
	assert.Equal(t, 0, b.chain.Sent())
}

func TestTipKeyRequiresConnection(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(key('t'))
	assert.Nil(t, m.tipForm)
	assert.Equal(t, "Connect your wallet first.", currentNotice(t, m).Text)

	connect(t, m)
	m.Update(key('t'))
	assert.NotNil(t, m.tipForm)
}

func TestWithdrawKeyIsOwnerOnly(t *testing.T) {
	m, b := newTestModel(t)
	ctx := context.Background()

	_, err := b.chain.RequestAccounts(ctx)
	require.NoError(t, err)
	require.NoError(t, b.chain.Select(devTipper))
	connect(t, m)
	require.Equal(t, devTipper, m.state.Address)

	m.Update(key('w'))
	assert.False(t, m.showWithdrawDialog)
	assert.Equal(t, "Only the owner can withdraw.", currentNotice(t, m).Text)

	m.Update(key('2'))
	assert.Equal(t, config.PageTipJar, m.activePage)
}

func TestWithdrawAsOwner(t *testing.T) {
	m, b := newTestModel(t)
	connect(t, m)
	require.True(t, m.isOwner())

	tempTipAmount, tempTipMessage = "1", ""
	m.Update(m.startTip()())

	m.Update(key('w'))
	require.True(t, m.showWithdrawDialog)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.showWithdrawDialog)
	assert.True(t, m.txInFlight)

	done := cmd().(txDoneMsg)
	require.NoError(t, done.err)
	m.Update(done)
	assert.Equal(t, 0, b.chain.Ledger().Balance().Sign())
	assert.Contains(t, currentNotice(t, m).Text, "Withdrew 1 ETH")
}

func TestSessionEventsUpdateState(t *testing.T) {
	m, _ := newTestModel(t)
	m.activePage = config.PageOwner

	st := session.State{Address: devTipper, Connected: true, Balance: "10"}
	m.Update(sessionEventMsg{ev: session.Event{Kind: session.EventState, State: st}})
	assert.Equal(t, st.Address, m.state.Address)
	// the owner page is hidden from everyone else
	assert.Equal(t, config.PageTipJar, m.activePage)
}

func TestStaleTxUpdateIgnored(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(txUpdateMsg{tx: flow.Pending{}})
	assert.Nil(t, m.lastTx)

	m.txInFlight = true
	m.Update(txUpdateMsg{tx: flow.Pending{}})
	assert.Equal(t, flow.StatusPending, m.lastTx.Status())
}

func TestNoticeExpiry(t *testing.T) {
	m, _ := newTestModel(t)
	m.notify(notify.Info, "hello")
	n := currentNotice(t, m)

	m.notify(notify.Info, "newer")
	m.Update(noticeExpiredMsg{id: n.ID})
	assert.Equal(t, "newer", currentNotice(t, m).Text)
}

func TestPassphrasePrompt(t *testing.T) {
	p := &passphrasePrompt{}
	_, err := p.Prompt(context.Background())
	assert.ErrorIs(t, err, errNoPassphrase)

	p.Provide("hunter2")
	pass, err := p.Prompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pass)

	// a passphrase is used once
	_, err = p.Prompt(context.Background())
	assert.ErrorIs(t, err, errNoPassphrase)
}

func TestLogSink(t *testing.T) {
	s := &logSink{}
	_, err := s.Write([]byte("dropped\n"))
	require.NoError(t, err)
	out, v0 := s.Snapshot()
	assert.Empty(t, out)

	s.SetEnabled(true)
	_, _ = s.Write([]byte("kept\n"))
	out, v1 := s.Snapshot()
	assert.Equal(t, "kept\n", out)
	assert.NotEqual(t, v0, v1)

	s.SetEnabled(false)
	out, _ = s.Snapshot()
	assert.Empty(t, out)
}

func TestViewRenders(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	connect(t, m)

	out := m.View()
	assert.Contains(t, out, "Tip Jar")

	m.Update(key('q'))
	assert.True(t, m.showQR)
	assert.Contains(t, m.View(), "ethereum:")
}

// balanceNode is a node that only answers balance queries.
type balanceNode struct {
	wallet.Backend
	wei *big.Int
}

func (n balanceNode) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return new(big.Int).Set(n.wei), nil
}

func newKeystoreModel(t *testing.T) *model {
	t.Helper()
	dir := t.TempDir()
	_, err := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP).NewAccount("pw")
	require.NoError(t, err)

	prompt := &passphrasePrompt{}
	node := balanceNode{wei: big.NewInt(2 * params.Ether)}
	ks, err := wallet.NewKeystore(dir, prompt.Prompt, wallet.WithBackend(node))
	require.NoError(t, err)

	b := backend{
		provider:    ks,
		keystore:    ks,
		prompt:      prompt,
		keystoreDir: dir,
		contract:    common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
		owner:       devOwner,
	}
	m := newModelWith(b, config.DefaultConfig(), filepath.Join(t.TempDir(), "cfg.json"))
	t.Cleanup(m.shutdown)
	return m
}

func TestKeystoreReconnectSkipsPassphrase(t *testing.T) {
	m := newKeystoreModel(t)

	m.Update(key('c'))
	require.True(t, m.askingPass, "first connect asks for the passphrase")

	m.passInput.SetValue("pw")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	done := cmd().(walletConnectedMsg)
	require.NoError(t, done.err)
	m.state = m.session.State()
	require.True(t, m.state.Connected)
	first := m.state

	m.Update(key('x'))
	m.state = m.session.State()
	require.False(t, m.state.Connected)

	_, cmd = m.Update(key('c'))
	assert.False(t, m.askingPass, "a granted account reconnects without the passphrase")
	require.NotNil(t, cmd)
	// the prompt holds no passphrase now, so any new prompt would fail
	done = cmd().(walletConnectedMsg)
	require.NoError(t, done.err)

	again := m.session.State()
	assert.True(t, again.Connected)
	assert.Equal(t, first.Address, again.Address)
	assert.Equal(t, first.Balance, again.Balance)
	assert.Equal(t, "2", again.Balance)
}
