package main

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"tipjar-tui/config"
	"tipjar-tui/devchain"
	"tipjar-tui/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// Development chain accounts. These are the first two accounts of the
// default anvil/hardhat mnemonic so addresses look familiar.
var (
	devOwner  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	devTipper = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

const devMiningDelay = 1500 * time.Millisecond

// backend is the wallet and chain the UI talks to.
type backend struct {
	provider wallet.Provider // nil when no wallet could be opened
	chain    *devchain.Chain
	keystore *wallet.Keystore
	prompt   *passphrasePrompt

	keystoreDir string
	contract    common.Address
	owner       common.Address
	chainID     *big.Int
	openErr     error
}

// newBackend opens the keystore wallet, or the development chain when
// env.Dev is set. A keystore that cannot be opened leaves provider nil and
// the reason in openErr, so the UI still starts and can explain it.
func newBackend(env config.Env, cfg config.Config) backend {
	if env.Dev {
		return newDevBackend(env, devMiningDelay)
	}

	b := backend{
		prompt:      &passphrasePrompt{},
		keystoreDir: env.KeystoreDir(cfg),
		contract:    env.Contract(),
		owner:       env.Owner(),
	}
	ks, err := wallet.NewKeystore(b.keystoreDir, b.prompt.Prompt)
	if err != nil {
		b.openErr = err
		return b
	}
	b.keystore = ks
	b.provider = ks
	return b
}

func newDevBackend(env config.Env, delay time.Duration) backend {
	owner := devOwner
	if env.OwnerAddress != "" {
		owner = env.Owner()
	}
	tenEth := new(big.Int).Mul(big.NewInt(10), big.NewInt(params.Ether))
	chain := devchain.New(owner,
		devchain.WithAccount(devTipper, tenEth),
		devchain.WithMiningDelay(delay),
	)
	return backend{
		provider: chain,
		chain:    chain,
		contract: chain.ContractAddress(),
		owner:    owner,
		chainID:  new(big.Int).Set(devchain.DefaultChainID),
	}
}

var errNoPassphrase = errors.New("no passphrase entered")

// passphrasePrompt hands the passphrase typed into the UI to the keystore
// wallet. Each passphrase is used once.
type passphrasePrompt struct {
	mu    sync.Mutex
	pass  string
	ready bool
}

func (p *passphrasePrompt) Provide(pass string) {
	p.mu.Lock()
	p.pass, p.ready = pass, true
	p.mu.Unlock()
}

// Prompt implements wallet.Prompt.
func (p *passphrasePrompt) Prompt(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return "", errNoPassphrase
	}
	pass := p.pass
	p.pass, p.ready = "", false
	return pass, nil
}

// accountSelector is implemented by wallets that can change the active
// account from the UI.
type accountSelector interface {
	Select(addr common.Address) error
}
