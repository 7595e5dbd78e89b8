// Package ledger implements the credit-card ledger engine: debit and credit
// operations over shared card state with hard limits, optimistic concurrency
// and an immutable transaction record per accepted mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"cardledger/internal/common/money"
	"cardledger/internal/ledger/domain"
)

// maxCommitRetries bounds the optimistic-concurrency retry loop. A conflict
// past the last attempt surfaces as ErrConcurrencyExhausted.
const maxCommitRetries = 5

// Store is the durable card store and transaction log. Card state writes are
// compare-and-save on the card's version; CommitOperation persists the state
// change and appends the record as one transaction, so a crash can never
// leave one without the other.
type Store interface {
	// LoadCard returns the current card state or domain.ErrCardNotFound.
	LoadCard(ctx context.Context, cardID string) (*domain.Card, error)

	// CreateCard inserts a card at version 0.
	CreateCard(ctx context.Context, card *domain.Card) error

	// CardNumberExists reports whether a card number is already issued.
	CardNumberExists(ctx context.Context, number string) (bool, error)

	// CommitOperation persists card (expecting the stored row to still be
	// at card.Version) and appends rec atomically. On success both the
	// stored and in-memory version are card.Version+1. A lost race fails
	// with domain.ErrVersionConflict and changes nothing.
	CommitOperation(ctx context.Context, card *domain.Card, rec *domain.TransactionRecord) error

	// UpdateCard persists card with the same compare-and-save semantics,
	// without a transaction record. Used by administrative updates only.
	UpdateCard(ctx context.Context, card *domain.Card) error

	// DeleteCard removes a card or fails with domain.ErrCardNotFound.
	DeleteCard(ctx context.Context, cardID string) error

	// ListCardsByOwner returns all cards issued to an owner.
	ListCardsByOwner(ctx context.Context, ownerID string) ([]*domain.Card, error)

	// ListTransactions returns a card's records, newest first.
	ListTransactions(ctx context.Context, cardID string, limit, offset int) ([]*domain.TransactionRecord, int64, error)
}

// OwnerDirectory resolves card owners. The ledger only needs existence and a
// display name; everything else about customers lives outside this core.
type OwnerDirectory interface {
	// Lookup returns the owner's display name or domain.ErrOwnerNotFound.
	Lookup(ctx context.Context, ownerID string) (string, error)
}

// Service is the ledger engine.
type Service struct {
	store    Store
	owners   OwnerDirectory
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new ledger engine. notifier may be nil.
func NewService(store Store, owners OwnerDirectory, notifier Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		store:    store,
		owners:   owners,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Debit withdraws amount from a card. The load/validate/write sequence is
// retried on version conflict against freshly loaded state, a bounded number
// of times.
func (s *Service) Debit(ctx context.Context, cardID string, amount money.Amount) (*domain.Card, error) {
	card, err := s.mutate(ctx, cardID, amount, domain.TransactionDebit)
	s.report(ctx, cardID, "debit", amount, err)
	return card, err
}

// Credit deposits amount onto a card.
func (s *Service) Credit(ctx context.Context, cardID string, amount money.Amount) (*domain.Card, error) {
	card, err := s.mutate(ctx, cardID, amount, domain.TransactionCredit)
	s.report(ctx, cardID, "credit", amount, err)
	return card, err
}

func (s *Service) mutate(ctx context.Context, cardID string, amount money.Amount, txType domain.TransactionType) (*domain.Card, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		card, err := s.store.LoadCard(ctx, cardID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if txType == domain.TransactionDebit {
			err = card.Debit(amount, now)
		} else {
			err = card.Credit(amount, now)
		}
		if err != nil {
			return nil, err
		}

		desc := fmt.Sprintf("Credited %s", amount)
		if txType == domain.TransactionDebit {
			desc = fmt.Sprintf("Debited %s", amount)
		}
		rec, err := domain.NewTransactionRecord(
			ulid.Make().String(), card.ID, txType, amount, card.CardType, desc, now)
		if err != nil {
			return nil, err
		}

		err = s.store.CommitOperation(ctx, card, rec)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("operation committed",
			"card_id", card.ID,
			"type", txType,
			"amount", amount.String(),
			"balance", card.TotalBalance.String(),
			"version", card.Version,
		)
		return card, nil
	}

	return nil, domain.ErrConcurrencyExhausted
}

// GetCard is a pure read: it never rolls counters or mutates state, so
// repeated reads on the same day always return identical daily totals.
func (s *Service) GetCard(ctx context.Context, cardID string) (*domain.Card, error) {
	return s.store.LoadCard(ctx, cardID)
}

// ListCardsByOwner returns every card issued to an owner, after checking the
// owner exists.
func (s *Service) ListCardsByOwner(ctx context.Context, ownerID string) ([]*domain.Card, error) {
	if _, err := s.owners.Lookup(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListCardsByOwner(ctx, ownerID)
}

// ListTransactions returns a card's transaction history, newest first.
func (s *Service) ListTransactions(ctx context.Context, cardID string, limit, offset int) ([]*domain.TransactionRecord, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.store.LoadCard(ctx, cardID); err != nil {
		return nil, 0, err
	}
	return s.store.ListTransactions(ctx, cardID, limit, offset)
}

// UpdateCard applies the given field changes as one compare-and-save update:
// either every change lands or none does. Nil fields are left untouched.
func (s *Service) UpdateCard(ctx context.Context, cardID string, holderName *string, active *bool) (*domain.Card, error) {
	if holderName != nil && *holderName == "" {
		return nil, errors.New("holder name is required")
	}
	card, err := s.adminUpdate(ctx, cardID, func(c *domain.Card) error {
		if holderName != nil {
			c.HolderName = *holderName
		}
		if active != nil {
			c.Active = *active
		}
		return nil
	})
	s.report(ctx, cardID, "update", money.Zero, err)
	return card, err
}

// UpdateHolderName changes the card holder's display name.
func (s *Service) UpdateHolderName(ctx context.Context, cardID, holderName string) (*domain.Card, error) {
	return s.UpdateCard(ctx, cardID, &holderName, nil)
}

// SetActive activates or deactivates a card. An inactive card rejects all
// debit and credit operations.
func (s *Service) SetActive(ctx context.Context, cardID string, active bool) (*domain.Card, error) {
	return s.UpdateCard(ctx, cardID, nil, &active)
}

func (s *Service) adminUpdate(ctx context.Context, cardID string, apply func(*domain.Card) error) (*domain.Card, error) {
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		card, err := s.store.LoadCard(ctx, cardID)
		if err != nil {
			return nil, err
		}
		if err := apply(card); err != nil {
			return nil, err
		}

		err = s.store.UpdateCard(ctx, card)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return card, nil
	}
	return nil, domain.ErrConcurrencyExhausted
}

// DeleteCard removes a card from the store. Deleting an absent card fails
// with ErrCardNotFound rather than crashing.
func (s *Service) DeleteCard(ctx context.Context, cardID string) error {
	err := s.store.DeleteCard(ctx, cardID)
	s.report(ctx, cardID, "delete", money.Zero, err)
	return err
}

// report forwards the operation outcome to the notifier. The notifier is
// fire-and-forget: its result never alters the ledger outcome.
func (s *Service) report(ctx context.Context, cardID, operation string, amount money.Amount, opErr error) {
	outcome := OutcomeSuccess
	detail := ""
	if opErr != nil {
		outcome = OutcomeFailed
		detail = opErr.Error()
	}
	s.notifier.OperationResult(ctx, cardID, operation, amount, outcome, detail)
}

// ErrorCode maps an engine failure to a stable wire code. Kept here so the
// handler layer never needs to know the error taxonomy's internals.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrCardNotFound), errors.Is(err, domain.ErrOwnerNotFound):
		return "NOT_FOUND"
	case errors.Is(err, domain.ErrCardInactive):
		return "CARD_INACTIVE"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, domain.ErrLimitExceeded):
		return "LIMIT_EXCEEDED"
	case errors.Is(err, domain.ErrConcurrencyExhausted):
		return "CONCURRENCY_EXHAUSTED"
	default:
		return "STORE_UNAVAILABLE"
	}
}
