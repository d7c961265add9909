// Package session keeps the application's view of the connected wallet
// account and its balance, and follows the wallet's change notifications.
package session

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"sync"

	"tipjar-tui/helpers"
	"tipjar-tui/wallet"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// State is a snapshot of the session.
type State struct {
	Address    common.Address
	Connected  bool
	Balance    string // decimal ETH, "" until fetched
	BalanceWei *big.Int
	Loading    bool
}

// AddressHex returns the checksummed address, or "" when disconnected.
func (s State) AddressHex() string {
	return helpers.AddressString(s.Address)
}

// EventKind tells a state change from a reload request.
type EventKind int

const (
	// EventState carries a new State.
	EventState EventKind = iota
	// EventReload asks the application to rebuild everything chain
	// specific because the wallet switched networks.
	EventReload
)

// Event is delivered on Updates.
type Event struct {
	Kind    EventKind
	State   State
	ChainID *big.Int
}

// Session is created with New, activated with Start and torn down with
// Close. All methods are safe for concurrent use.
type Session struct {
	provider wallet.Provider
	logger   *log.Logger

	mu      sync.Mutex
	state   State
	updates chan Event
	closed  bool

	startOnce sync.Once
	closeOnce sync.Once
	quit      chan struct{}
	wg        sync.WaitGroup
	subs      []event.Subscription
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a disconnected session over provider, which may be nil
// when no wallet is available.
func New(provider wallet.Provider, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		logger:   log.New(io.Discard),
		updates:  make(chan Event, 16),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the wallet the session talks to.
func (s *Session) Provider() wallet.Provider {
	return s.provider
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Updates delivers state changes and reload requests. It is closed by Close.
func (s *Session) Updates() <-chan Event {
	return s.updates
}

func (s *Session) snapshot() State {
	st := s.state
	if st.BalanceWei != nil {
		st.BalanceWei = new(big.Int).Set(st.BalanceWei)
	}
	return st
}

// publish queues ev, dropping the oldest queued event when full.
// Caller holds s.mu.
func (s *Session) publish(ev Event) {
	if s.closed {
		return
	}
	for {
		select {
		case s.updates <- ev:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.publish(Event{Kind: EventState, State: s.snapshot()})
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.publish(Event{Kind: EventState, State: s.snapshot()})
}

// CheckExistingConnection adopts an account the wallet already granted,
// without prompting. Failures are logged and leave the state unchanged.
func (s *Session) CheckExistingConnection(ctx context.Context) {
	if s.provider == nil {
		return
	}
	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		s.logger.Warn("failed to read granted accounts", "err", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	addr := accounts[0]
	wei, err := s.provider.BalanceAt(ctx, addr)
	if err != nil {
		s.logger.Warn("failed to fetch balance", "account", addr.Hex(), "err", err)
		return
	}

	s.setState(State{
		Address:    addr,
		Connected:  true,
		Balance:    helpers.FormatEther(wei),
		BalanceWei: wei,
	})
	s.logger.Info("restored connection", "account", addr.Hex(), "balance", helpers.FormatEther(wei))
}

// Connect prompts the wallet for account access and adopts the first
// granted account. This is the only operation that may prompt.
func (s *Session) Connect(ctx context.Context) error {
	if s.provider == nil {
		return wallet.ErrUnavailable
	}
	s.update(func(st *State) { st.Loading = true })
	stopLoading := func() { s.update(func(st *State) { st.Loading = false }) }

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		stopLoading()
		s.logger.Error("connect failed", "err", err)
		return err
	}
	if len(accounts) == 0 {
		stopLoading()
		return fmt.Errorf("%w: wallet returned no accounts", wallet.ErrRejected)
	}

	addr := accounts[0]
	wei, err := s.provider.BalanceAt(ctx, addr)
	if err != nil {
		stopLoading()
		s.logger.Error("failed to fetch balance", "account", addr.Hex(), "err", err)
		return fmt.Errorf("failed to fetch balance: %w", err)
	}

	s.setState(State{
		Address:    addr,
		Connected:  true,
		Balance:    helpers.FormatEther(wei),
		BalanceWei: wei,
	})
	s.logger.Info("connected", "account", addr.Hex(), "balance", helpers.FormatEther(wei))
	return nil
}

// Disconnect forgets the account locally. The wallet keeps its grant, so
// CheckExistingConnection can restore it without a prompt.
func (s *Session) Disconnect() {
	s.setState(State{})
	s.logger.Info("disconnected")
}

// RefreshBalance re-reads the active account's balance. Failures are
// ignored.
func (s *Session) RefreshBalance(ctx context.Context) {
	st := s.State()
	if !st.Connected || s.provider == nil {
		return
	}
	wei, err := s.provider.BalanceAt(ctx, st.Address)
	if err != nil {
		s.logger.Debug("balance refresh failed", "err", err)
		return
	}
	s.update(func(cur *State) {
		// the account may have changed while we were reading
		if !cur.Connected || cur.Address != st.Address {
			return
		}
		cur.Balance = helpers.FormatEther(wei)
		cur.BalanceWei = wei
	})
}

// Start subscribes to the wallet's account and network notifications.
// Calling it more than once has no effect.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		if s.provider == nil {
			return
		}
		accCh := make(chan []common.Address, 8)
		chainCh := make(chan *big.Int, 8)
		accSub := s.provider.SubscribeAccountsChanged(accCh)
		chainSub := s.provider.SubscribeChainChanged(chainCh)

		s.mu.Lock()
		s.subs = []event.Subscription{accSub, chainSub}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.loop(ctx, accCh, chainCh, accSub, chainSub)
	})
}

func (s *Session) loop(ctx context.Context, accCh <-chan []common.Address, chainCh <-chan *big.Int, accSub, chainSub event.Subscription) {
	defer s.wg.Done()
	for {
		select {
		case accounts := <-accCh:
			if len(accounts) == 0 {
				s.logger.Info("wallet reported no accounts")
				s.Disconnect()
				continue
			}
			s.logger.Info("wallet account changed", "account", accounts[0].Hex())
			s.CheckExistingConnection(ctx)

		case id := <-chainCh:
			s.logger.Warn("wallet switched network, reloading", "chain", id)
			s.mu.Lock()
			s.publish(Event{Kind: EventReload, State: s.snapshot(), ChainID: id})
			s.mu.Unlock()

		case <-accSub.Err():
			return
		case <-chainSub.Err():
			return
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close releases the wallet subscriptions and closes Updates. It is safe
// to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)

		s.mu.Lock()
		subs := s.subs
		s.subs = nil
		s.mu.Unlock()
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		close(s.updates)
		s.mu.Unlock()
	})
}
