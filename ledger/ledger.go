// Package ledger models the tip jar contract: its wire interface, an
// in-memory reference implementation with the same rules, and a typed
// read binding for a deployed instance.
package ledger

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Revert reasons of the contract.
var (
	ErrZeroDeposit = errors.New("deposit must be greater than zero")
	ErrNotOwner    = errors.New("only owner can withdraw")
)

// DepositRecord is one accepted deposit, as emitted by the Deposit event.
type DepositRecord struct {
	Sender  common.Address
	Amount  *big.Int
	Message string

	TxHash common.Hash
	Block  uint64
}

// Ledger holds an owner and an accumulated balance. Only the owner can
// reduce the balance, and only by sweeping all of it.
type Ledger struct {
	mu       sync.Mutex
	owner    common.Address
	balance  *big.Int
	deposits []DepositRecord
}

// New creates an empty ledger owned by owner. The owner never changes.
func New(owner common.Address) *Ledger {
	return &Ledger{owner: owner, balance: new(big.Int)}
}

// Deposit accepts value from sender. Any value > 0 is accepted.
func (l *Ledger) Deposit(sender common.Address, value *big.Int, message string) (DepositRecord, error) {
	if value == nil || value.Sign() <= 0 {
		return DepositRecord{}, ErrZeroDeposit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance.Add(l.balance, value)
	rec := DepositRecord{
		Sender:  sender,
		Amount:  new(big.Int).Set(value),
		Message: message,
	}
	l.deposits = append(l.deposits, rec)
	return rec, nil
}

// Withdraw sweeps the whole balance to the owner and returns the amount
// swept. The balance is zeroed before the amount is handed out.
func (l *Ledger) Withdraw(caller common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return nil, ErrNotOwner
	}
	amount := l.balance
	l.balance = new(big.Int)
	return amount, nil
}

// Balance returns a copy of the current balance.
func (l *Ledger) Balance() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance)
}

// Owner returns the address fixed at creation.
func (l *Ledger) Owner() common.Address {
	return l.owner
}

// Deposits returns every accepted deposit in order.
func (l *Ledger) Deposits() []DepositRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]DepositRecord(nil), l.deposits...)
}
