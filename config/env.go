package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tipjar-tui/helpers"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrInvalidEnv = errors.New("invalid environment")

// Env holds the settings read once from the environment at startup.
type Env struct {
	ContractAddress string `envconfig:"TIPJAR_CONTRACT_ADDRESS"`
	OwnerAddress    string `envconfig:"TIPJAR_OWNER_ADDRESS"`
	Keystore        string `envconfig:"TIPJAR_KEYSTORE"`
	Dev             bool   `envconfig:"TIPJAR_DEV" default:"false"`
	RPCURL          string `envconfig:"ETH_RPC_URL"`
}

// LoadEnv reads a .env file from the working directory when one exists,
// then processes the environment. Variables already set win over the
// file.
func LoadEnv() (Env, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Env{}, fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return ProcessEnv()
}

// ProcessEnv reads and validates Env from the process environment.
func ProcessEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, fmt.Errorf("failed to process env: %w", err)
	}
	env.ContractAddress = strings.TrimSpace(env.ContractAddress)
	env.OwnerAddress = strings.TrimSpace(env.OwnerAddress)
	env.RPCURL = strings.TrimSpace(env.RPCURL)
	if err := env.Validate(); err != nil {
		return Env{}, err
	}
	return env, nil
}

// Validate checks the addresses. Both are required outside dev mode,
// where the development chain supplies its own.
func (e Env) Validate() error {
	if e.ContractAddress != "" && !helpers.IsValidEthAddress(e.ContractAddress) {
		return fmt.Errorf("%w: TIPJAR_CONTRACT_ADDRESS %q is not an address", ErrInvalidEnv, e.ContractAddress)
	}
	if e.OwnerAddress != "" && !helpers.IsValidEthAddress(e.OwnerAddress) {
		return fmt.Errorf("%w: TIPJAR_OWNER_ADDRESS %q is not an address", ErrInvalidEnv, e.OwnerAddress)
	}
	if e.Dev {
		return nil
	}
	if e.ContractAddress == "" {
		return fmt.Errorf("%w: TIPJAR_CONTRACT_ADDRESS is required", ErrInvalidEnv)
	}
	if e.OwnerAddress == "" {
		return fmt.Errorf("%w: TIPJAR_OWNER_ADDRESS is required", ErrInvalidEnv)
	}
	return nil
}

// Contract returns the configured contract address, zero when unset.
func (e Env) Contract() common.Address {
	if e.ContractAddress == "" {
		return common.Address{}
	}
	return common.HexToAddress(e.ContractAddress)
}

// Owner returns the configured owner address, zero when unset.
func (e Env) Owner() common.Address {
	if e.OwnerAddress == "" {
		return common.Address{}
	}
	return common.HexToAddress(e.OwnerAddress)
}

// KeystoreDir picks the keystore directory from the env, then the config
// file, then the default geth keystore.
func (e Env) KeystoreDir(cfg Config) string {
	if e.Keystore != "" {
		return expandHome(e.Keystore)
	}
	if cfg.KeystoreDir != "" {
		return expandHome(cfg.KeystoreDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ethereum", "keystore")
}

// Path returns where the config file lives.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tipjar-config.json"
	}
	return filepath.Join(home, ".tipjar-config.json")
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
