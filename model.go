package main

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"tipjar-tui/config"
	"tipjar-tui/devchain"
	"tipjar-tui/flow"
	"tipjar-tui/helpers"
	"tipjar-tui/ledger"
	"tipjar-tui/notify"
	"tipjar-tui/rpc"
	"tipjar-tui/session"
	"tipjar-tui/styles"
	"tipjar-tui/views/settings"
	"tipjar-tui/wallet"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- MODEL --------------------

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	activePage config.Page

	ctx    context.Context
	cancel context.CancelFunc

	// wallet side
	dev          bool
	chain        *devchain.Chain
	keystore     *wallet.Keystore
	keystorePath string
	prompt       *passphrasePrompt
	session      *session.Session
	tipper       *flow.Tipper
	withdrawer   *flow.Withdrawer
	state        session.State

	contract common.Address
	owner    common.Address
	chainID  *big.Int

	// rpc
	cfg           config.Config
	configPath    string
	rpcURL        string
	ethClient     *rpc.Client
	rpcConnected  bool
	rpcConnecting bool

	// ledger contract
	contractBalance *big.Int // nil until loaded
	contractLoading bool
	loadedAt        time.Time
	deposits        []ledger.DepositRecord

	// transactions
	txUpdates  chan flow.Transaction
	txInFlight bool
	lastTx     flow.Transaction

	// tip form and passphrase prompt
	tipForm    *huh.Form
	askingPass bool
	passInput  textinput.Model
	showQR     bool

	// settings state
	settingsMode   settings.Mode
	selectedRPCIdx int
	form           *huh.Form

	// confirmation dialogs
	showWithdrawDialog         bool
	withdrawDialogYesSelected  bool
	showRPCDeleteDialog        bool
	deleteRPCDialogName        string
	deleteRPCDialogIdx         int
	deleteRPCDialogYesSelected bool

	notices *notify.Center

	spin spinner.Model

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logSink     *logSink
	logVersion  uint64
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model
}

// -------------------- INIT --------------------

// newModel loads the config file and opens the wallet described by env.
func newModel(env config.Env, configPath string) *model {
	cfg := config.LoadOrCreate(configPath)
	b := newBackend(env, cfg)
	m := newModelWith(b, cfg, configPath)

	// the environment overrides the active endpoint for this run only
	if env.RPCURL != "" {
		m.rpcURL = env.RPCURL
	}
	if b.openErr != nil {
		m.logger.Warn("wallet unavailable", "err", b.openErr)
	}
	return m
}

func newModelWith(b backend, cfg config.Config, configPath string) *model {
	ctx, cancel := context.WithCancel(context.Background())

	// passphrase input
	in := textinput.New()
	in.Placeholder = "keystore passphrase"
	in.Prompt = "Passphrase: "
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	in.PromptStyle = lipgloss.NewStyle().Foreground(styles.CAccent)
	in.TextStyle = lipgloss.NewStyle().Foreground(styles.CText)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)
	in.Width = 48

	// spinner
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	// Initialize log viewport
	vp := viewport.New(0, 10) // resized on the first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	// Initialize log spinner
	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	sink := &logSink{}
	sink.SetEnabled(cfg.Logger)
	logger := newLogger(sink)

	sess := session.New(b.provider, session.WithLogger(logger.WithPrefix("session")))
	sess.Start(ctx)

	m := &model{
		activePage:   config.PageTipJar,
		ctx:          ctx,
		cancel:       cancel,
		dev:          b.chain != nil,
		chain:        b.chain,
		keystore:     b.keystore,
		keystorePath: b.keystoreDir,
		prompt:       b.prompt,
		session:      sess,
		tipper:       flow.NewTipper(sess, b.contract, flow.WithLogger(logger.WithPrefix("tip"))),
		withdrawer:   flow.NewWithdrawer(sess, b.contract, helpers.AddressString(b.owner), flow.WithLogger(logger.WithPrefix("withdraw"))),
		contract:     b.contract,
		owner:        b.owner,
		chainID:      b.chainID,
		cfg:          cfg,
		configPath:   configPath,
		rpcURL:       cfg.ActiveRPC(),
		txUpdates:    make(chan flow.Transaction, 8),
		passInput:    in,
		settingsMode: settings.ModeList,
		notices:      notify.NewCenter(),
		spin:         sp,
		logEnabled:   cfg.Logger,
		logger:       logger,
		logSink:      sink,
		logViewport:  vp,
		logSpinner:   logSpin,
	}
	return m
}

// Init implements tea.Model interface and returns initial commands
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spin.Tick,
		listenSession(m.session.Updates()),
		listenTx(m.txUpdates),
	}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	switch {
	case m.dev:
		m.addLog("info", "Using the development chain, contract "+m.contract.Hex())
		cmds = append(cmds, checkConnection(m.ctx, m.session), m.loadContract())
	case m.rpcURL != "":
		m.rpcConnecting = true
		cmds = append(cmds, connectRPC(m.rpcURL))
	}
	return tea.Batch(cmds...)
}

// shutdown releases the session subscriptions and the RPC client.
func (m *model) shutdown() {
	m.cancel()
	m.session.Close()
	if m.ethClient != nil {
		m.ethClient.Close()
	}
}

// -------------------- LOGGING --------------------

// newLogger creates the charm logger that feeds the log panel.
func newLogger(w *logSink) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	logger.SetLevel(log.DebugLevel)
	logger.SetStyles(&log.Styles{
		Timestamp: lipgloss.NewStyle().Foreground(cMuted),
		Caller:    lipgloss.NewStyle().Faint(true),
		Prefix:    lipgloss.NewStyle().Bold(true).Foreground(cAccent2),
		Message:   lipgloss.NewStyle().Foreground(cText),
		Key:       lipgloss.NewStyle().Foreground(cAccent),
		Value:     lipgloss.NewStyle().Foreground(cText),
		Separator: lipgloss.NewStyle().Faint(true),
		Levels: map[log.Level]lipgloss.Style{
			log.DebugLevel: lipgloss.NewStyle().Foreground(cMuted).SetString("DEBUG"),
			log.InfoLevel:  lipgloss.NewStyle().Foreground(cAccent2).SetString("INFO"),
			log.WarnLevel:  lipgloss.NewStyle().Foreground(cWarn).SetString("WARN"),
			log.ErrorLevel: lipgloss.NewStyle().Foreground(cError).SetString("ERROR"),
		},
	})
	return logger
}

// logSink is the log panel's buffer. Flows log from command goroutines
// while View reads it, so access is locked. Writes are dropped while the
// panel is hidden.
type logSink struct {
	mu      sync.Mutex
	buf     strings.Builder
	enabled bool
	version uint64
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return len(p), nil
	}
	s.version++
	return s.buf.Write(p)
}

// SetEnabled turns capture on or off. Disabling clears the buffer.
func (s *logSink) SetEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = on
	if !on {
		s.buf.Reset()
		s.version++
	}
}

// Snapshot returns the buffer and a counter that changes on every write.
func (s *logSink) Snapshot() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String(), s.version
}
