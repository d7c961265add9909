package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"tipjar-tui/rpc"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var _ Provider = (*Keystore)(nil)

// Prompt asks the user for the keystore passphrase. Returning an error
// means the user declined.
type Prompt func(ctx context.Context) (string, error)

// Backend is the node API the keystore wallet reads, signs and broadcasts
// through. *rpc.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ethereum.ChainIDReader
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Keystore is a Provider backed by an encrypted go-ethereum keystore
// directory and an RPC endpoint. Accounts unlocked by RequestAccounts stay
// granted for the life of the process, so a session can reconnect to them
// without prompting again.
type Keystore struct {
	Notifier

	ks     *keystore.KeyStore
	prompt Prompt

	mu      sync.Mutex
	backend Backend
	chain   *big.Int // nil means ask the backend
	granted []common.Address
}

// KeystoreOption configures a Keystore.
type KeystoreOption func(*Keystore)

// WithBackend attaches the node used for balances and transactions.
func WithBackend(b Backend) KeystoreOption {
	return func(k *Keystore) { k.backend = b }
}

// NewKeystore opens the keystore in dir.
func NewKeystore(dir string, prompt Prompt, opts ...KeystoreOption) (*Keystore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: keystore directory not set", ErrUnavailable)
	}
	k := &Keystore{
		ks:     keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		prompt: prompt,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// RequestAccounts prompts for the passphrase and unlocks every keystore
// account it opens. Once accounts are granted it returns them without
// prompting.
func (k *Keystore) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if granted, _ := k.Accounts(ctx); len(granted) > 0 {
		return granted, nil
	}

	all := k.ks.Accounts()
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: keystore has no accounts", ErrUnavailable)
	}
	if k.prompt == nil {
		return nil, fmt.Errorf("%w: no passphrase prompt", ErrUnavailable)
	}

	pass, err := k.prompt(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	var unlocked []common.Address
	for _, acc := range all {
		if err := k.ks.Unlock(acc, pass); err == nil {
			unlocked = append(unlocked, acc.Address)
		}
	}
	if len(unlocked) == 0 {
		return nil, fmt.Errorf("%w: passphrase did not unlock any account", ErrRejected)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, a := range unlocked {
		if !containsAddress(k.granted, a) {
			k.granted = append(k.granted, a)
		}
	}
	return append([]common.Address(nil), k.granted...), nil
}

// Accounts returns the granted accounts, active first.
func (k *Keystore) Accounts(context.Context) ([]common.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]common.Address(nil), k.granted...), nil
}

// Select makes addr the active account and notifies subscribers.
func (k *Keystore) Select(addr common.Address) error {
	k.mu.Lock()
	idx := indexAddress(k.granted, addr)
	if idx < 0 {
		k.mu.Unlock()
		return fmt.Errorf("account %s is not connected", addr.Hex())
	}
	reordered := append([]common.Address{addr}, k.granted[:idx]...)
	reordered = append(reordered, k.granted[idx+1:]...)
	k.granted = reordered
	snapshot := append([]common.Address(nil), k.granted...)
	k.mu.Unlock()

	k.EmitAccountsChanged(snapshot)
	return nil
}

// Revoke locks addr and withdraws its grant.
func (k *Keystore) Revoke(addr common.Address) error {
	k.mu.Lock()
	idx := indexAddress(k.granted, addr)
	if idx < 0 {
		k.mu.Unlock()
		return nil
	}
	k.granted = append(k.granted[:idx:idx], k.granted[idx+1:]...)
	snapshot := append([]common.Address(nil), k.granted...)
	k.mu.Unlock()

	if err := k.ks.Lock(addr); err != nil {
		return err
	}
	k.EmitAccountsChanged(snapshot)
	return nil
}

// SwitchEndpoint moves the wallet to another network.
func (k *Keystore) SwitchEndpoint(c *rpc.Client) {
	k.mu.Lock()
	if c != nil && c.Client != nil {
		k.backend, k.chain = c, c.Chain
	} else {
		k.backend, k.chain = nil, nil
	}
	k.mu.Unlock()

	if c != nil && c.Chain != nil {
		k.EmitChainChanged(c.Chain)
	}
}

func (k *Keystore) node() (Backend, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.backend == nil {
		return nil, fmt.Errorf("%w: no RPC endpoint connected", ErrUnavailable)
	}
	return k.backend, nil
}

// BalanceAt implements Provider.
func (k *Keystore) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	c, err := k.node()
	if err != nil {
		return nil, err
	}
	return c.BalanceAt(ctx, account, nil)
}

// ChainID implements Provider.
func (k *Keystore) ChainID(ctx context.Context) (*big.Int, error) {
	c, err := k.node()
	if err != nil {
		return nil, err
	}
	k.mu.Lock()
	chain := k.chain
	k.mu.Unlock()
	if chain != nil {
		return new(big.Int).Set(chain), nil
	}
	return c.ChainID(ctx)
}

// CallContract implements ethereum.ContractCaller.
func (k *Keystore) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c, err := k.node()
	if err != nil {
		return nil, err
	}
	return c.CallContract(ctx, call, blockNumber)
}

// FilterLogs implements Provider.
func (k *Keystore) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c, err := k.node()
	if err != nil {
		return nil, err
	}
	return c.FilterLogs(ctx, q)
}

// SendTransaction builds an EIP-1559 transaction for req, signs it with
// the unlocked key and broadcasts it.
func (k *Keystore) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	c, err := k.node()
	if err != nil {
		return common.Hash{}, err
	}

	k.mu.Lock()
	granted := containsAddress(k.granted, req.From)
	k.mu.Unlock()
	if !granted {
		return common.Hash{}, fmt.Errorf("%w: account %s is not connected", ErrRejected, req.From.Hex())
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	chainID, err := k.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain id: %w", err)
	}
	nonce, err := c.PendingNonceAt(ctx, req.From)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	tipCap, err := c.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas tip: %w", err)
	}
	head, err := c.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get head block: %w", err)
	}
	feeCap := new(big.Int).Set(tipCap)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := req.To
	gas, err := c.EstimateGas(ctx, ethereum.CallMsg{
		From:  req.From,
		To:    &to,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas estimation failed: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	signed, err := k.ks.SignTx(accounts.Account{Address: req.From}, tx, chainID)
	if err != nil {
		if errors.Is(err, keystore.ErrLocked) {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return signed.Hash(), nil
}

// WaitMined implements Provider.
func (k *Keystore) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	c, err := k.node()
	if err != nil {
		return nil, err
	}
	return bind.WaitMined(ctx, c, hash)
}

func indexAddress(list []common.Address, addr common.Address) int {
	for i, a := range list {
		if a == addr {
			return i
		}
	}
	return -1
}

func containsAddress(list []common.Address, addr common.Address) bool {
	return indexAddress(list, addr) >= 0
}
