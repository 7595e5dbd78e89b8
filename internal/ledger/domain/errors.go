package domain

import (
	"errors"
	"fmt"

	"cardledger/internal/common/money"
)

// Stable failure kinds callers branch on. Every engine failure maps to
// exactly one of these; none are swallowed or retried except the internal
// optimistic-concurrency retry, which is invisible until exhausted.
var (
	ErrCardNotFound         = errors.New("card not found")
	ErrOwnerNotFound        = errors.New("owner not found")
	ErrCardInactive         = errors.New("card is inactive")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrLimitExceeded        = errors.New("limit exceeded")
	ErrConcurrencyExhausted = errors.New("concurrent update retries exhausted")
	ErrStoreUnavailable     = errors.New("store unavailable")

	// ErrVersionConflict is the store-level compare-and-save miss. The
	// engine retries it internally; it never reaches a caller.
	ErrVersionConflict = errors.New("card version conflict")
)

// Limit identifies which policy limit a rejected operation would break.
type Limit string

const (
	LimitMaxSingleDebit   Limit = "MAX_SINGLE_DEBIT"
	LimitMaxSingleCredit  Limit = "MAX_SINGLE_CREDIT"
	LimitDailyDebit       Limit = "DAILY_DEBIT_LIMIT"
	LimitDailyCredit      Limit = "DAILY_CREDIT_LIMIT"
)

// LimitExceededError reports which limit was hit. It matches
// errors.Is(err, ErrLimitExceeded).
type LimitExceededError struct {
	Limit Limit
	Max   money.Amount
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limit exceeded: %s (%s)", e.Limit, e.Max)
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}
