// Package devchain is an in-process chain hosting a single tip jar, used
// to run the client offline and to exercise the flows in tests. Transfers
// cost no gas so balances move by exactly the transferred value.
package devchain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"tipjar-tui/ledger"
	"tipjar-tui/wallet"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// DefaultChainID is the chain ID reported unless overridden.
var DefaultChainID = big.NewInt(1337)

// ErrReverted wraps every contract revert.
var ErrReverted = errors.New("execution reverted")

var _ wallet.Provider = (*Chain)(nil)

// Chain implements wallet.Provider.
type Chain struct {
	wallet.Notifier

	mu       sync.Mutex
	chainID  *big.Int
	contract common.Address
	ledger   *ledger.Ledger

	accounts []common.Address
	granted  []common.Address
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64

	approve     func(ctx context.Context) error
	miningDelay time.Duration

	block    uint64
	receipts map[common.Hash]*types.Receipt
	logs     []types.Log
	sent     int

	failSend    error
	failReceipt bool
}

// Option configures a Chain.
type Option func(*Chain)

// WithChainID overrides DefaultChainID.
func WithChainID(id *big.Int) Option {
	return func(c *Chain) { c.chainID = new(big.Int).Set(id) }
}

// WithAccount adds a wallet account funded with wei.
func WithAccount(addr common.Address, wei *big.Int) Option {
	return func(c *Chain) {
		c.accounts = append(c.accounts, addr)
		c.balances[addr] = new(big.Int).Set(wei)
	}
}

// WithApproval makes RequestAccounts consult approve; an error is a rejection.
func WithApproval(approve func(ctx context.Context) error) Option {
	return func(c *Chain) { c.approve = approve }
}

// WithMiningDelay makes WaitMined take d before returning a receipt.
func WithMiningDelay(d time.Duration) Option {
	return func(c *Chain) { c.miningDelay = d }
}

// New creates a chain whose tip jar is owned by owner. The owner is the
// first wallet account and starts with 100 ETH.
func New(owner common.Address, opts ...Option) *Chain {
	c := &Chain{
		chainID:  new(big.Int).Set(DefaultChainID),
		contract: crypto.CreateAddress(owner, 0),
		ledger:   ledger.New(owner),
		accounts: []common.Address{owner},
		balances: map[common.Address]*big.Int{
			owner: new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether)),
		},
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContractAddress is where the tip jar lives.
func (c *Chain) ContractAddress() common.Address { return c.contract }

// Ledger exposes the contract state.
func (c *Chain) Ledger() *ledger.Ledger { return c.ledger }

// Sent counts broadcast transactions.
func (c *Chain) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// FailNextSend makes the next SendTransaction return err.
func (c *Chain) FailNextSend(err error) {
	c.mu.Lock()
	c.failSend = err
	c.mu.Unlock()
}

// FailNextReceipt makes the next mined transaction revert on chain after
// a successful broadcast.
func (c *Chain) FailNextReceipt() {
	c.mu.Lock()
	c.failReceipt = true
	c.mu.Unlock()
}

// Fund credits wei to addr.
func (c *Chain) Fund(addr common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credit(addr, wei)
}

// RequestAccounts implements wallet.Provider.
func (c *Chain) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if c.approve != nil {
		if err := c.approve(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", wallet.ErrRejected, err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.accounts {
		if !contains(c.granted, a) {
			c.granted = append(c.granted, a)
		}
	}
	return append([]common.Address(nil), c.granted...), nil
}

// Accounts implements wallet.Provider.
func (c *Chain) Accounts(context.Context) ([]common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Address(nil), c.granted...), nil
}

// Select makes addr the active account and notifies subscribers.
func (c *Chain) Select(addr common.Address) error {
	c.mu.Lock()
	if !contains(c.granted, addr) {
		c.mu.Unlock()
		return fmt.Errorf("account %s is not connected", addr.Hex())
	}
	next := []common.Address{addr}
	for _, a := range c.granted {
		if a != addr {
			next = append(next, a)
		}
	}
	c.granted = next
	snapshot := append([]common.Address(nil), next...)
	c.mu.Unlock()

	c.EmitAccountsChanged(snapshot)
	return nil
}

// RevokeAll withdraws every grant, as a wallet does when locked.
func (c *Chain) RevokeAll() {
	c.mu.Lock()
	c.granted = nil
	c.mu.Unlock()
	c.EmitAccountsChanged(nil)
}

// SwitchChain changes the chain ID and notifies subscribers.
func (c *Chain) SwitchChain(id *big.Int) {
	c.mu.Lock()
	c.chainID = new(big.Int).Set(id)
	c.mu.Unlock()
	c.EmitChainChanged(id)
}

// BalanceAt implements wallet.Provider.
func (c *Chain) BalanceAt(_ context.Context, account common.Address) (*big.Int, error) {
	if account == c.contract {
		return c.ledger.Balance(), nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// ChainID implements wallet.Provider.
func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.chainID), nil
}

// SendTransaction executes req immediately. Reverts are reported here,
// the way gas estimation surfaces them on a real node.
func (c *Chain) SendTransaction(_ context.Context, req wallet.TxRequest) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.failSend; err != nil {
		c.failSend = nil
		return common.Hash{}, err
	}
	if !contains(c.granted, req.From) {
		return common.Hash{}, fmt.Errorf("%w: account %s is not connected", wallet.ErrRejected, req.From.Hex())
	}

	value := new(big.Int)
	if req.Value != nil {
		value.Set(req.Value)
	}
	if value.Sign() < 0 {
		return common.Hash{}, errors.New("negative value")
	}
	if c.balanceOf(req.From).Cmp(value) < 0 {
		return common.Hash{}, errors.New("insufficient funds for transfer")
	}

	status := types.ReceiptStatusSuccessful
	var event *types.Log

	if c.failReceipt {
		c.failReceipt = false
		status = types.ReceiptStatusFailed
	} else if req.To == c.contract {
		l, err := c.execute(req.From, value, req.Data)
		if err != nil {
			return common.Hash{}, err
		}
		event = l
	} else {
		c.debit(req.From, value)
		c.credit(req.To, value)
	}

	hash := c.nextHash(req.From)
	var logs []*types.Log
	if event != nil {
		event.TxHash = hash
		event.BlockNumber = c.block
		logs = append(logs, event)
		c.logs = append(c.logs, *event)
	}

	c.sent++
	c.receipts[hash] = &types.Receipt{
		Status:      status,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(c.block),
		Logs:        logs,
	}
	return hash, nil
}

// execute applies a call to the tip jar. Caller holds c.mu.
func (c *Chain) execute(from common.Address, value *big.Int, data []byte) (*types.Log, error) {
	message := ""
	switch {
	case len(data) == 0:
	case len(data) >= 4 && string(data[:4]) == string(ledger.DepositSelector):
		msg, err := ledger.UnpackDeposit(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReverted, err)
		}
		message = msg
	case len(data) >= 4 && string(data[:4]) == string(ledger.WithdrawSelector):
		if value.Sign() != 0 {
			return nil, fmt.Errorf("%w: withdraw is not payable", ErrReverted)
		}
		amount, err := c.ledger.Withdraw(from)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReverted, err)
		}
		c.credit(c.ledger.Owner(), amount)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown function selector %x", ErrReverted, data[:min(4, len(data))])
	}

	rec, err := c.ledger.Deposit(from, value, message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReverted, err)
	}
	c.debit(from, value)

	topics, logData, err := ledger.PackDepositEvent(rec)
	if err != nil {
		return nil, err
	}
	return &types.Log{
		Address: c.contract,
		Topics:  topics,
		Data:    logData,
	}, nil
}

// WaitMined implements wallet.Provider.
func (c *Chain) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.miningDelay > 0 {
		t := time.NewTimer(c.miningDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// CallContract answers getBalance() and owner() on the tip jar.
func (c *Chain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if call.To == nil || *call.To != c.contract {
		return nil, nil
	}
	if len(call.Data) < 4 {
		return nil, fmt.Errorf("%w: no function selector", ErrReverted)
	}
	switch string(call.Data[:4]) {
	case string(ledger.GetBalanceSelector):
		return ledger.ABI.Methods["getBalance"].Outputs.Pack(c.ledger.Balance())
	case string(ledger.OwnerSelector):
		return ledger.ABI.Methods["owner"].Outputs.Pack(c.ledger.Owner())
	}
	return nil, fmt.Errorf("%w: unknown function selector %x", ErrReverted, call.Data[:4])
}

// FilterLogs implements wallet.Provider for address, topic0 and FromBlock.
func (c *Chain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []types.Log
	for _, l := range c.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !contains(q.Addresses, l.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && !containsHash(q.Topics[0], l.Topics[0]) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (c *Chain) nextHash(from common.Address) common.Hash {
	c.block++
	nonce := c.nonces[from]
	c.nonces[from] = nonce + 1

	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], nonce)
	binary.BigEndian.PutUint64(buf[8:], c.block)
	return crypto.Keccak256Hash(from.Bytes(), buf)
}

func (c *Chain) balanceOf(a common.Address) *big.Int {
	if b, ok := c.balances[a]; ok {
		return b
	}
	return new(big.Int)
}

func (c *Chain) credit(a common.Address, v *big.Int) {
	c.balances[a] = new(big.Int).Add(c.balanceOf(a), v)
}

func (c *Chain) debit(a common.Address, v *big.Int) {
	c.balances[a] = new(big.Int).Sub(c.balanceOf(a), v)
}

func contains(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}
