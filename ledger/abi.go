package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// abiJSON is the interface of contracts/TipJar.sol.
const abiJSON = `[
	{"type":"constructor","inputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"deposit","inputs":[{"name":"message","type":"string"}],"outputs":[],"stateMutability":"payable"},
	{"type":"function","name":"withdraw","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getBalance","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"event","name":"Deposit","anonymous":false,"inputs":[
		{"name":"sender","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"message","type":"string","indexed":false}
	]},
	{"type":"receive","stateMutability":"payable"}
]`

// ABI is the parsed tip jar contract interface.
var ABI = mustParseABI(abiJSON)

// Method and event identifiers.
var (
	DepositSelector    = ABI.Methods["deposit"].ID
	WithdrawSelector   = ABI.Methods["withdraw"].ID
	GetBalanceSelector = ABI.Methods["getBalance"].ID
	OwnerSelector      = ABI.Methods["owner"].ID

	DepositEventID = ABI.Events["Deposit"].ID
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("ledger: invalid contract abi: %v", err))
	}
	return parsed
}

// PackDeposit returns calldata for deposit(message).
func PackDeposit(message string) ([]byte, error) {
	return ABI.Pack("deposit", message)
}

// PackWithdraw returns calldata for withdraw().
func PackWithdraw() []byte {
	return append([]byte(nil), WithdrawSelector...)
}

// PackGetBalance returns calldata for getBalance().
func PackGetBalance() []byte {
	return append([]byte(nil), GetBalanceSelector...)
}

// PackOwner returns calldata for owner().
func PackOwner() []byte {
	return append([]byte(nil), OwnerSelector...)
}

// UnpackDeposit decodes deposit(message) calldata, selector included.
func UnpackDeposit(data []byte) (string, error) {
	if len(data) < 4 {
		return "", fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	method, err := ABI.MethodById(data[:4])
	if err != nil {
		return "", err
	}
	if method.Name != "deposit" {
		return "", fmt.Errorf("calldata is for %s, not deposit", method.Name)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return "", fmt.Errorf("failed to unpack deposit: %w", err)
	}
	msg, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected deposit argument %T", args[0])
	}
	return msg, nil
}

// PackDepositEvent encodes the non-indexed Deposit fields as log data
// and returns the topics for sender.
func PackDepositEvent(rec DepositRecord) ([]common.Hash, []byte, error) {
	data, err := ABI.Events["Deposit"].Inputs.NonIndexed().Pack(rec.Amount, rec.Message)
	if err != nil {
		return nil, nil, err
	}
	topics := []common.Hash{DepositEventID, common.BytesToHash(rec.Sender.Bytes())}
	return topics, data, nil
}
