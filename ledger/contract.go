package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the read side of a chain client needed by Contract.
// *ethclient.Client satisfies it.
type Backend interface {
	ethereum.ContractCaller
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Contract is a read binding for a deployed tip jar.
type Contract struct {
	Address common.Address
	backend Backend
}

// NewContract binds the tip jar at addr.
func NewContract(addr common.Address, backend Backend) *Contract {
	return &Contract{Address: addr, backend: backend}
}

func (c *Contract) call(ctx context.Context, method string, data []byte) ([]interface{}, error) {
	to := c.Address
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no data (is %s a tip jar?)", method, c.Address.Hex())
	}
	values, err := ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(values))
	}
	return values, nil
}

// Balance reads getBalance().
func (c *Contract) Balance(ctx context.Context) (*big.Int, error) {
	values, err := c.call(ctx, "getBalance", PackGetBalance())
	if err != nil {
		return nil, err
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getBalance returned %T", values[0])
	}
	return bal, nil
}

// Owner reads owner().
func (c *Contract) Owner(ctx context.Context) (common.Address, error) {
	values, err := c.call(ctx, "owner", PackOwner())
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("owner returned %T", values[0])
	}
	return owner, nil
}

// Deposits returns Deposit events emitted since fromBlock, oldest first.
func (c *Contract) Deposits(ctx context.Context, fromBlock *big.Int) ([]DepositRecord, error) {
	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: fromBlock,
		Addresses: []common.Address{c.Address},
		Topics:    [][]common.Hash{{DepositEventID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter deposit logs: %w", err)
	}

	recs := make([]DepositRecord, 0, len(logs))
	for _, l := range logs {
		rec, err := ParseDeposit(l)
		if err != nil {
			// skip logs that do not decode
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ParseDeposit decodes a Deposit log.
func ParseDeposit(l types.Log) (DepositRecord, error) {
	if len(l.Topics) != 2 || l.Topics[0] != DepositEventID {
		return DepositRecord{}, fmt.Errorf("log %s is not a Deposit event", l.TxHash.Hex())
	}
	values, err := ABI.Unpack("Deposit", l.Data)
	if err != nil {
		return DepositRecord{}, fmt.Errorf("failed to unpack Deposit: %w", err)
	}
	if len(values) != 2 {
		return DepositRecord{}, fmt.Errorf("Deposit has %d fields", len(values))
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return DepositRecord{}, fmt.Errorf("Deposit amount is %T", values[0])
	}
	msg, ok := values[1].(string)
	if !ok {
		return DepositRecord{}, fmt.Errorf("Deposit message is %T", values[1])
	}
	return DepositRecord{
		Sender:  common.BytesToAddress(l.Topics[1].Bytes()),
		Amount:  amount,
		Message: msg,
		TxHash:  l.TxHash,
		Block:   l.BlockNumber,
	}, nil
}
