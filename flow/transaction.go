// Package flow implements the tip and withdrawal flows on top of a session.
package flow

import (
	"math/big"

	"tipjar-tui/helpers"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Status of a transaction as shown to the user.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Kind says which flow produced a transaction.
type Kind string

const (
	KindTip      Kind = "tip"
	KindWithdraw Kind = "withdraw"
)

// Record is what every transaction variant carries.
type Record struct {
	Kind    Kind
	Hash    common.Hash // zero if the transaction never reached the network
	Amount  *big.Int
	Message string
}

// AmountETH renders Amount as decimal ETH.
func (r Record) AmountETH() string {
	return helpers.FormatEther(r.Amount)
}

// Transaction is one of Pending, Succeeded or Failed.
type Transaction interface {
	Status() Status
	Details() Record
}

// Pending has been broadcast and awaits confirmation. It is the only
// variant that can advance.
type Pending struct {
	Record
}

func (Pending) Status() Status { return StatusPending }
func (p Pending) Details() Record { return p.Record }

// Succeed records the confirmed receipt.
func (p Pending) Succeed(receipt *types.Receipt) Succeeded {
	return Succeeded{Record: p.Record, Receipt: receipt}
}

// Fail records a confirmation failure.
func (p Pending) Fail(err error) Failed {
	return Failed{Record: p.Record, Err: err}
}

// Succeeded is final.
type Succeeded struct {
	Record
	Receipt *types.Receipt
}

func (Succeeded) Status() Status { return StatusSuccess }
func (s Succeeded) Details() Record { return s.Record }

// Failed is final.
type Failed struct {
	Record
	Err error
}

func (Failed) Status() Status { return StatusError }
func (f Failed) Details() Record { return f.Record }
