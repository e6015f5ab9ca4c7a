package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	ErrAccountNotFound = errors.New("account not found")

	ErrLayoutMismatch = errors.New("account layout mismatch")

	ErrPoolCompleted = errors.New("pool completed")

	ErrQuoteInvalid = errors.New("quote invalid")

	ErrAccountDerivationFailed = errors.New("account derivation failed")

	ErrStaleBlockhash = errors.New("stale blockhash")

	ErrRelayRejected = errors.New("relay rejected transaction")

	ErrRelayTimeout = errors.New("relay timeout")

	ErrRelayUnavailable = errors.New("relay not configured")

	ErrDeadlineExceeded = errors.New("detection deadline exceeded")

	ErrFiltered = errors.New("rejected by filter")

	ErrRetryExhausted = errors.New("retry policy exhausted")

	ErrTransactionFailed = errors.New("transaction failed")

	ErrNoPosition = errors.New("no open position")
)

// TradeError is returned for every trade that ends in Failed or Skipped.
type TradeError struct {
	Intent *TradeIntent
	Stage  State
	Err    error
}

func (e *TradeError) Error() string {
	if e.Intent == nil {
		return fmt.Sprintf("trade failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s failed at %s: %v", e.Intent.Direction, e.Intent.Mint, e.Stage, e.Err)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}
