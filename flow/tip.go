package flow

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"tipjar-tui/helpers"
	"tipjar-tui/ledger"
	"tipjar-tui/session"
	"tipjar-tui/wallet"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Option configures a flow.
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TipRequest is what the user typed into the tip form.
type TipRequest struct {
	Amount  string // decimal ETH
	Message string // optional
}

// Tipper sends tips from the session's account to the tip jar.
type Tipper struct {
	session  *session.Session
	contract common.Address
	logger   *log.Logger
	inFlight atomic.Bool
}

// NewTipper creates a Tipper for the contract at addr.
func NewTipper(s *session.Session, contract common.Address, opts ...Option) *Tipper {
	o := buildOptions(opts)
	return &Tipper{session: s, contract: contract, logger: o.logger}
}

// Busy reports whether a tip is awaiting confirmation.
func (t *Tipper) Busy() bool {
	return t.inFlight.Load()
}

// Submit validates req, then signs, broadcasts and confirms the tip. emit,
// when set, receives the Pending record right after broadcast and the
// final Succeeded or Failed record. Validation failures return before any
// network call and emit nothing.
func (t *Tipper) Submit(ctx context.Context, req TipRequest, emit func(Transaction)) (Transaction, error) {
	if emit == nil {
		emit = func(Transaction) {}
	}

	st := t.session.State()
	if !st.Connected {
		return nil, ErrNotConnected
	}
	if t.contract == (common.Address{}) {
		return nil, invalid("contract address not configured")
	}
	provider := t.session.Provider()
	if provider == nil {
		return nil, wallet.ErrUnavailable
	}
	wei, err := helpers.ParseETH(req.Amount)
	if err != nil {
		return nil, invalid("amount must be a number like 0.01")
	}
	if wei.Sign() <= 0 {
		return nil, invalid("amount must be greater than 0")
	}

	if !t.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer t.inFlight.Store(false)

	// a blank message means no message; anything else is stored verbatim
	message := req.Message
	if strings.TrimSpace(message) == "" {
		message = ""
	}
	rec := Record{Kind: KindTip, Amount: wei, Message: message}

	var data []byte
	if message != "" {
		data, err = ledger.PackDeposit(message)
		if err != nil {
			return nil, invalid("message cannot be encoded: %v", err)
		}
	}

	t.logger.Info("sending tip", "from", st.Address.Hex(), "to", t.contract.Hex(), "eth", rec.AmountETH(), "message", message)
	hash, err := provider.SendTransaction(ctx, wallet.TxRequest{
		From:  st.Address,
		To:    t.contract,
		Value: wei,
		Data:  data,
	})
	if err != nil {
		err = networkError(err)
		t.logger.Error("tip submission failed", "err", err)
		failed := Failed{Record: rec, Err: err}
		emit(failed)
		return failed, err
	}

	rec.Hash = hash
	pending := Pending{Record: rec}
	emit(pending)
	t.logger.Info("tip broadcast", "tx", hash.Hex())

	final, err := confirm(ctx, provider, pending, t.logger)
	if err != nil {
		emit(final)
		return final, err
	}

	t.session.RefreshBalance(ctx)
	emit(final)
	t.logger.Info("✓ tip confirmed", "tx", hash.Hex())
	return final, nil
}

// confirm waits for pending to be mined and returns the final record.
func confirm(ctx context.Context, provider wallet.Provider, pending Pending, logger *log.Logger) (Transaction, error) {
	receipt, err := provider.WaitMined(ctx, pending.Hash)
	if err != nil {
		err = networkError(err)
		logger.Error("confirmation failed", "tx", pending.Hash.Hex(), "err", err)
		return pending.Fail(err), err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		err = networkError(errors.New("transaction reverted"))
		logger.Error("transaction reverted", "tx", pending.Hash.Hex())
		return pending.Fail(err), err
	}
	return pending.Succeed(receipt), nil
}
