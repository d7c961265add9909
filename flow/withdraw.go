package flow

import (
	"context"
	"sync/atomic"

	"tipjar-tui/helpers"
	"tipjar-tui/ledger"
	"tipjar-tui/session"
	"tipjar-tui/wallet"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// Withdrawer lets the owner sweep the tip jar.
type Withdrawer struct {
	session  *session.Session
	contract common.Address
	owner    string
	logger   *log.Logger
	inFlight atomic.Bool
}

// NewWithdrawer creates a Withdrawer for the contract at addr whose
// expected owner is owner.
func NewWithdrawer(s *session.Session, contract common.Address, owner string, opts ...Option) *Withdrawer {
	o := buildOptions(opts)
	return &Withdrawer{session: s, contract: contract, owner: owner, logger: o.logger}
}

// CanWithdraw reports whether addr is the owner, ignoring case.
func (w *Withdrawer) CanWithdraw(addr string) bool {
	return helpers.SameAddress(addr, w.owner)
}

// Busy reports whether a withdrawal is awaiting confirmation.
func (w *Withdrawer) Busy() bool {
	return w.inFlight.Load()
}

// Withdraw sends withdraw() from the session's account. The owner check is
// repeated here regardless of what the UI shows. An empty tip jar returns
// ErrNothingToWithdraw without broadcasting anything.
func (w *Withdrawer) Withdraw(ctx context.Context, emit func(Transaction)) (Transaction, error) {
	if emit == nil {
		emit = func(Transaction) {}
	}

	st := w.session.State()
	if !st.Connected {
		return nil, ErrNotConnected
	}
	if !w.CanWithdraw(st.AddressHex()) {
		w.logger.Warn("withdrawal refused", "account", st.AddressHex(), "owner", w.owner)
		return nil, ErrUnauthorized
	}
	if w.contract == (common.Address{}) {
		return nil, invalid("contract address not configured")
	}
	provider := w.session.Provider()
	if provider == nil {
		return nil, wallet.ErrUnavailable
	}

	balance, err := ledger.NewContract(w.contract, provider).Balance(ctx)
	if err != nil {
		return nil, networkError(err)
	}
	if balance.Sign() <= 0 {
		w.logger.Info("nothing to withdraw", "contract", w.contract.Hex())
		return nil, ErrNothingToWithdraw
	}

	if !w.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer w.inFlight.Store(false)

	rec := Record{Kind: KindWithdraw, Amount: balance}
	w.logger.Info("withdrawing", "contract", w.contract.Hex(), "eth", rec.AmountETH())
	hash, err := provider.SendTransaction(ctx, wallet.TxRequest{
		From: st.Address,
		To:   w.contract,
		Data: ledger.PackWithdraw(),
	})
	if err != nil {
		err = networkError(err)
		w.logger.Error("withdrawal submission failed", "err", err)
		failed := Failed{Record: rec, Err: err}
		emit(failed)
		return failed, err
	}

	rec.Hash = hash
	pending := Pending{Record: rec}
	emit(pending)

	final, err := confirm(ctx, provider, pending, w.logger)
	if err != nil {
		emit(final)
		return final, err
	}

	w.session.RefreshBalance(ctx)
	emit(final)
	w.logger.Info("✓ withdrawal confirmed", "tx", hash.Hex(), "eth", rec.AmountETH())
	return final, nil
}
