// Package wallet defines the capability set the application consumes from
// a wallet: account access, balances, signing and broadcasting, and
// change notifications.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

var (
	// ErrUnavailable means no wallet is configured or reachable.
	ErrUnavailable = errors.New("no wallet available")
	// ErrRejected means the user declined a permission or signature prompt.
	ErrRejected = errors.New("request rejected by user")
)

// TxRequest describes a value transfer or contract call to sign.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Provider is a wallet attached to one network.
type Provider interface {
	// RequestAccounts asks the user for account access and returns the
	// granted accounts, active account first.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns previously granted accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)

	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)

	// SendTransaction signs req with req.From and broadcasts it.
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	// WaitMined blocks until the transaction has a receipt or ctx ends.
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	ethereum.ContractCaller
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// SubscribeAccountsChanged delivers the new account list whenever the
	// active account changes or access is revoked.
	SubscribeAccountsChanged(ch chan<- []common.Address) event.Subscription
	// SubscribeChainChanged delivers the new chain ID on network switches.
	SubscribeChainChanged(ch chan<- *big.Int) event.Subscription
}

// Notifier carries the change feeds shared by Provider implementations.
type Notifier struct {
	accountsFeed event.Feed
	chainFeed    event.Feed
}

// SubscribeAccountsChanged implements Provider.
func (n *Notifier) SubscribeAccountsChanged(ch chan<- []common.Address) event.Subscription {
	return n.accountsFeed.Subscribe(ch)
}

// SubscribeChainChanged implements Provider.
func (n *Notifier) SubscribeChainChanged(ch chan<- *big.Int) event.Subscription {
	return n.chainFeed.Subscribe(ch)
}

// EmitAccountsChanged notifies subscribers of a new account list.
func (n *Notifier) EmitAccountsChanged(accounts []common.Address) int {
	return n.accountsFeed.Send(append([]common.Address(nil), accounts...))
}

// EmitChainChanged notifies subscribers of a network switch.
func (n *Notifier) EmitChainChanged(chainID *big.Int) int {
	return n.chainFeed.Send(new(big.Int).Set(chainID))
}
