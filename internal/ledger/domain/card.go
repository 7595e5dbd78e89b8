// Package domain contains the card ledger's core types: card state, the
// immutable transaction record, the policy limits, and the daily counter
// reset rule.
package domain

import (
	"errors"
	"strings"
	"time"

	"cardledger/internal/common/money"
)

// Process-wide policy limits. These are identical for every card and are
// configuration of the ledger, not per-card state.
var (
	MaxSingleDebit   = money.FromMajor(50000)
	DailyDebitLimit  = money.FromMajor(20000)
	DailyCreditLimit = money.FromMajor(50000)
	MaxSingleCredit  = money.FromMajor(50000)
)

// CardNumberLength is the length of a generated card number.
const CardNumberLength = 16

// Card is the ledger state of a single credit card. It is the unit of
// concurrency control: every mutation goes through a compare-and-save on
// Version.
type Card struct {
	ID            string       `json:"id"`
	CardNumber    string       `json:"card_number"`
	OwnerID       string       `json:"owner_id"`
	HolderName    string       `json:"holder_name"`
	CardType      string       `json:"card_type"`
	Active        bool         `json:"active"`
	TotalBalance  money.Amount `json:"total_balance"`
	DailyDebited  money.Amount `json:"daily_debited"`
	DailyCredited money.Amount `json:"daily_credited"`
	LastResetDate time.Time    `json:"last_reset_date"`
	IssueDate     time.Time    `json:"issue_date"`
	ExpiryDate    time.Time    `json:"expiry_date"`
	Version       int64        `json:"version"`
}

// NewCard creates a card at issuance: counters zero, version zero, expiry
// ten years out.
func NewCard(id, cardNumber, ownerID, holderName, cardType string, initialBalance money.Amount, active bool, now time.Time) (*Card, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if ownerID == "" {
		return nil, ErrOwnerNotFound
	}
	if strings.TrimSpace(cardType) == "" {
		return nil, errors.New("card type is required")
	}
	if !initialBalance.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now = now.UTC()
	return &Card{
		ID:            id,
		CardNumber:    cardNumber,
		OwnerID:       ownerID,
		HolderName:    holderName,
		CardType:      cardType,
		Active:        active,
		TotalBalance:  initialBalance,
		DailyDebited:  money.Zero,
		DailyCredited: money.Zero,
		LastResetDate: DateOf(now),
		IssueDate:     now,
		ExpiryDate:    now.AddDate(10, 0, 0),
		Version:       0,
	}, nil
}

// DateOf truncates a time to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RollCounters applies the daily reset policy: if the calendar date has
// advanced past LastResetDate, both daily counters go back to zero. It is
// called at the start of every mutating operation and nowhere else, so the
// reset is lazy and only becomes visible on the next operation.
func (c *Card) RollCounters(now time.Time) {
	today := DateOf(now)
	if today.After(c.LastResetDate) {
		c.DailyDebited = money.Zero
		c.DailyCredited = money.Zero
		c.LastResetDate = today
	}
}

// Debit validates a withdrawal against balance and limits and applies it.
// The card is left untouched when any check fails.
func (c *Card) Debit(amount money.Amount, now time.Time) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !c.Active {
		return ErrCardInactive
	}
	c.RollCounters(now)

	if amount.GreaterThan(c.TotalBalance) {
		return ErrInsufficientBalance
	}
	if amount.GreaterThan(MaxSingleDebit) {
		return &LimitExceededError{Limit: LimitMaxSingleDebit, Max: MaxSingleDebit}
	}
	if c.DailyDebited.Add(amount).GreaterThan(DailyDebitLimit) {
		return &LimitExceededError{Limit: LimitDailyDebit, Max: DailyDebitLimit}
	}

	c.TotalBalance = c.TotalBalance.Sub(amount)
	c.DailyDebited = c.DailyDebited.Add(amount)
	return nil
}

// Credit validates a deposit against limits and applies it. A credit that
// would break either limit is rejected outright, never clamped.
func (c *Card) Credit(amount money.Amount, now time.Time) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !c.Active {
		return ErrCardInactive
	}
	c.RollCounters(now)

	if amount.GreaterThan(MaxSingleCredit) {
		return &LimitExceededError{Limit: LimitMaxSingleCredit, Max: MaxSingleCredit}
	}
	if c.DailyCredited.Add(amount).GreaterThan(DailyCreditLimit) {
		return &LimitExceededError{Limit: LimitDailyCredit, Max: DailyCreditLimit}
	}

	c.TotalBalance = c.TotalBalance.Add(amount)
	c.DailyCredited = c.DailyCredited.Add(amount)
	return nil
}
