package main

import (
	"math/big"

	"tipjar-tui/flow"
	"tipjar-tui/ledger"
	"tipjar-tui/rpc"
	"tipjar-tui/session"

	"github.com/ethereum/go-ethereum/common"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// rpcConnectedMsg contains result of RPC connection attempt
type rpcConnectedMsg struct {
	client *rpc.Client
	err    error
}

// sessionEventMsg carries a session state change or reload request
type sessionEventMsg struct {
	ev session.Event
}

// sessionClosedMsg means the session's update stream ended
type sessionClosedMsg struct{}

// walletConnectedMsg is the result of an explicit connect
type walletConnectedMsg struct {
	err error
}

// accountSwitchedMsg is the result of asking the wallet for the next account
type accountSwitchedMsg struct {
	addr common.Address
	err  error
}

// contractLoadedMsg contains the tip jar's balance and deposit history
type contractLoadedMsg struct {
	balance     *big.Int
	deposits    []ledger.DepositRecord
	err         error
	depositsErr error
}

// txUpdateMsg is an intermediate transaction status
type txUpdateMsg struct {
	tx flow.Transaction
}

// txDoneMsg is the outcome of a tip or withdrawal
type txDoneMsg struct {
	kind flow.Kind
	tx   flow.Transaction
	err  error
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	text string
	err  error
}

// noticeExpiredMsg fires when a notice's display window ends
type noticeExpiredMsg struct {
	id uint64
}
