package flow

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"tipjar-tui/devchain"
	"tipjar-tui/ledger"
	"tipjar-tui/session"
	"tipjar-tui/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner  = common.HexToAddress("0x000000000000000000000000000000000000ABCD")
	tipper = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	eth    = big.NewInt(1_000_000_000_000_000_000)
)

// setup connects a session as the given account.
func setup(t *testing.T, as common.Address) (*devchain.Chain, *session.Session) {
	t.Helper()
	ctx := context.Background()
	chain := devchain.New(owner, devchain.WithAccount(tipper, eth))
	_, err := chain.RequestAccounts(ctx)
	require.NoError(t, err)
	require.NoError(t, chain.Select(as))

	s := session.New(chain)
	t.Cleanup(s.Close)
	require.NoError(t, s.Connect(ctx))
	require.Equal(t, as, s.State().Address)
	return chain, s
}

func record(list *[]Status) func(Transaction) {
	return func(tx Transaction) { *list = append(*list, tx.Status()) }
}

func TestTipSuccess(t *testing.T) {
	ctx := context.Background()
	chain, s := setup(t, tipper)
	tp := NewTipper(s, chain.ContractAddress())

	var seen []Status
	tx, err := tp.Submit(ctx, TipRequest{Amount: "0.01", Message: "gg"}, record(&seen))
	require.NoError(t, err)

	assert.Equal(t, []Status{StatusPending, StatusSuccess}, seen)
	done, ok := tx.(Succeeded)
	require.True(t, ok)
	assert.Equal(t, "gg", done.Message)
	assert.NotEqual(t, common.Hash{}, done.Hash)
	assert.Equal(t, "0.01", done.AmountETH())

	want := big.NewInt(10_000_000_000_000_000)
	assert.Equal(t, 0, chain.Ledger().Balance().Cmp(want))

	deposits := chain.Ledger().Deposits()
	require.Len(t, deposits, 1)
	assert.Equal(t, tipper, deposits[0].Sender)
	assert.Equal(t, "gg", deposits[0].Message)

	// the session balance was refreshed after confirmation
	assert.Equal(t, "0.99", s.State().Balance)
	assert.False(t, tp.Busy())
}

func TestTipWithoutMessageUsesPlainTransfer(t *testing.T) {
	ctx := context.Background()
	chain, s := setup(t, tipper)
	tp := NewTipper(s, chain.ContractAddress())

	_, err := tp.Submit(ctx, TipRequest{Amount: "0.5", Message: "   "}, nil)
	require.NoError(t, err)

	logs, err := ledger.NewContract(chain.ContractAddress(), chain).Deposits(ctx, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "", logs[0].Message)
	assert.Equal(t, "0.5", s.State().Balance)
}

func TestTipMessageStoredVerbatim(t *testing.T) {
	ctx := context.Background()
	chain, s := setup(t, tipper)
	tp := NewTipper(s, chain.ContractAddress())

	msg := "  thanks for the stream!\n"
	tx, err := tp.Submit(ctx, TipRequest{Amount: "0.01", Message: msg}, nil)
	require.NoError(t, err)
	assert.Equal(t, msg, tx.Details().Message)

	logs, err := ledger.NewContract(chain.ContractAddress(), chain).Deposits(ctx, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, msg, logs[0].Message)
}

func TestTipValidation(t *testing.T) {
	ctx := context.Background()
	chain, s := setup(t, tipper)
	tp := NewTipper(s, chain.ContractAddress())

	for _, amount := range []string{"0", "0.0", "-1", "abc", "", "1.2.3"} {
		t.Run(amount, func(t *testing.T) {
			var seen []Status
			tx, err := tp.Submit(ctx, TipRequest{Amount: amount}, record(&seen))
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, tx)
			assert.Empty(t, seen)
		})
	}
	assert.Equal(t, 0, chain.Sent())
	assert.Equal(t, 0, chain.Ledger().Balance().Sign())
}

func TestTipRequiresConnection(t *testing.T) {
	chain, s := setup(t, tipper)
	s.Disconnect()

	_, err := NewTipper(s, chain.ContractAddress()).Submit(context.Background(), TipRequest{Amount: "1"}, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 0, chain.Sent())
}

func TestTipRequiresContract(t *testing.T) {
	chain, s := setup(t, tipper)

	_, err := NewTipper(s, common.Address{}).Submit(context.Background(), TipRequest{Amount: "1"}, nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, chain.Sent())
}

func TestTipSubmissionFailure(t *testing.T) {
	chain, s := setup(t, tipper)
	chain.FailNextSend(errors.New("connection refused"))

	var seen []Status
	tx, err := NewTipper(s, chain.ContractAddress()).Submit(context.Background(), TipRequest{Amount: "0.01"}, record(&seen))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, []Status{StatusError}, seen)
	assert.Equal(t, StatusError, tx.Status())
	assert.Equal(t, "Transaction failed: connection refused", Describe(err))
}

func TestTipRejectedInWallet(t *testing.T) {
	chain, s := setup(t, tipper)
	chain.FailNextSend(wallet.ErrRejected)

	_, err := NewTipper(s, chain.ContractAddress()).Submit(context.Background(), TipRequest{Amount: "0.01"}, nil)
	assert.ErrorIs(t, err, wallet.ErrRejected)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "Request rejected in wallet.", Describe(err))
}

func TestTipReverted(t *testing.T) {
	chain, s := setup(t, tipper)
	chain.FailNextReceipt()

	var seen []Status
	tx, err := NewTipper(s, chain.ContractAddress()).Submit(context.Background(), TipRequest{Amount: "0.01"}, record(&seen))
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, []Status{StatusPending, StatusError}, seen)

	failed, ok := tx.(Failed)
	require.True(t, ok)
	assert.NotEqual(t, common.Hash{}, failed.Hash)
	assert.Equal(t, 0, chain.Ledger().Balance().Sign())
}

func TestCanWithdraw(t *testing.T) {
	w := NewWithdrawer(nil, common.Address{}, "0x000000000000000000000000000000000000abcd")
	assert.True(t, w.CanWithdraw("0x000000000000000000000000000000000000ABCD"))
	assert.True(t, w.CanWithdraw(strings.ToLower(owner.Hex())))
	assert.False(t, w.CanWithdraw(tipper.Hex()))
	assert.False(t, w.CanWithdraw(""))
}

func TestWithdrawAsOwner(t *testing.T) {
	ctx := context.Background()
	chain, s := setup(t, owner)
	chain.Ledger().Deposit(tipper, big.NewInt(1_500_000_000_000_000_000), "")

	w := NewWithdrawer(s, chain.ContractAddress(), owner.Hex())
	var seen []Status
	tx, err := w.Withdraw(ctx, record(&seen))
	require.NoError(t, err)

	assert.Equal(t, []Status{StatusPending, StatusSuccess}, seen)
	assert.Equal(t, "1.5", tx.Details().AmountETH())
	assert.Equal(t, 0, chain.Ledger().Balance().Sign())
	assert.Equal(t, "101.5", s.State().Balance)
}

func TestWithdrawNotOwner(t *testing.T) {
	chain, s := setup(t, tipper)
	chain.Ledger().Deposit(tipper, eth, "")

	_, err := NewWithdrawer(s, chain.ContractAddress(), owner.Hex()).Withdraw(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, chain.Sent())
	assert.Equal(t, 0, chain.Ledger().Balance().Cmp(eth))
}

func TestWithdrawNothing(t *testing.T) {
	chain, s := setup(t, owner)

	_, err := NewWithdrawer(s, chain.ContractAddress(), owner.Hex()).Withdraw(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
	assert.Equal(t, 0, chain.Sent())
	assert.Equal(t, "Nothing to withdraw.", Describe(err))
}

func TestWithdrawRequiresConnection(t *testing.T) {
	chain, s := setup(t, owner)
	s.Disconnect()

	_, err := NewWithdrawer(s, chain.ContractAddress(), owner.Hex()).Withdraw(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestPendingTransitions(t *testing.T) {
	p := Pending{Record: Record{Kind: KindTip, Hash: common.HexToHash("0x01"), Amount: eth}}
	assert.Equal(t, StatusPending, p.Status())

	f := p.Fail(ErrNetwork)
	assert.Equal(t, StatusError, f.Status())
	assert.Equal(t, p.Hash, f.Hash)
	assert.Equal(t, "1", f.AmountETH())

	s := p.Succeed(nil)
	assert.Equal(t, StatusSuccess, s.Status())
	assert.Equal(t, p.Details(), s.Details())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "", Describe(nil))
	assert.Equal(t, "Connect your wallet first.", Describe(ErrNotConnected))
	assert.Equal(t, "Amount must be greater than 0", Describe(invalid("amount must be greater than 0")))
	assert.Equal(t, "Only the owner can withdraw.", Describe(ErrUnauthorized))
	assert.Contains(t, Describe(wallet.ErrUnavailable), "No wallet found")
	assert.Equal(t, "Timed out waiting for the network.", Describe(context.DeadlineExceeded))
	assert.Equal(t, "Boom", Describe(errors.New("boom")))

	long := Describe(networkError(errors.New(strings.Repeat("x", 300))))
	assert.LessOrEqual(t, len(long), maxDescribeLen+len("…"))
	assert.True(t, strings.HasPrefix(long, "Transaction failed: "))
}
