package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tipjar-tui/wallet"
)

var (
	ErrNotConnected      = errors.New("wallet not connected")
	ErrValidation        = errors.New("invalid input")
	ErrUnauthorized      = errors.New("only the owner can withdraw")
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
	ErrNetwork           = errors.New("network error")
	ErrBusy              = errors.New("a transaction is already pending")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// networkError tags err as a broadcast or confirmation failure unless it
// already is a wallet rejection.
func networkError(err error) error {
	if errors.Is(err, wallet.ErrRejected) || errors.Is(err, wallet.ErrUnavailable) || errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

const maxDescribeLen = 120

// Describe turns any flow error into a short message for the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, wallet.ErrUnavailable):
		return "No wallet found. Set TIPJAR_KEYSTORE or run with TIPJAR_DEV=true."
	case errors.Is(err, wallet.ErrRejected):
		return "Request rejected in wallet."
	case errors.Is(err, ErrNotConnected):
		return "Connect your wallet first."
	case errors.Is(err, ErrUnauthorized):
		return "Only the owner can withdraw."
	case errors.Is(err, ErrNothingToWithdraw):
		return "Nothing to withdraw."
	case errors.Is(err, ErrBusy):
		return "A transaction is already pending."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Timed out waiting for the network."
	case errors.Is(err, ErrValidation):
		return capitalize(strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "))
	case errors.Is(err, ErrNetwork):
		return truncate("Transaction failed: " + strings.TrimPrefix(err.Error(), ErrNetwork.Error()+": "))
	}
	return truncate(capitalize(err.Error()))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string) string {
	if len(s) <= maxDescribeLen {
		return s
	}
	return s[:maxDescribeLen-1] + "…"
}
