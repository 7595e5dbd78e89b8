package domain

import (
	"errors"
	"time"

	"cardledger/internal/common/money"
)

// TransactionType classifies a ledger mutation.
type TransactionType string

const (
	TransactionDebit  TransactionType = "DEBIT"
	TransactionCredit TransactionType = "CREDIT"
)

// TransactionRecord is the immutable record appended for every accepted
// mutation. Records are only ever appended, never updated or deleted, and a
// record exists if and only if the matching card state change was committed.
type TransactionRecord struct {
	ID          string          `json:"id"`
	CardID      string          `json:"card_id"`
	Type        TransactionType `json:"type"`
	Amount      money.Amount    `json:"amount"`
	CardType    string          `json:"card_type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewTransactionRecord creates a record for an accepted operation.
func NewTransactionRecord(id, cardID string, txType TransactionType, amount money.Amount, cardType, description string, now time.Time) (*TransactionRecord, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if cardID == "" {
		return nil, errors.New("card_id is required")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return &TransactionRecord{
		ID:          id,
		CardID:      cardID,
		Type:        txType,
		Amount:      amount,
		CardType:    cardType,
		Description: description,
		CreatedAt:   now.UTC(),
	}, nil
}
