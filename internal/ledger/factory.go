package ledger

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/oklog/ulid/v2"

	"cardledger/internal/common/money"
	"cardledger/internal/ledger/domain"
)

// maxNumberAttempts caps the rejection-sampling loop for card numbers. The
// 16-digit space is large enough that hitting this cap means the store is
// lying about uniqueness, not that the space is full.
const maxNumberAttempts = 32

// IssueCardRequest is the request to issue a new card.
type IssueCardRequest struct {
	OwnerID        string       `json:"owner_id" validate:"required"`
	InitialBalance money.Amount `json:"initial_balance"`
	CardType       string       `json:"card_type" validate:"required"`
	Active         bool         `json:"active"`
}

// IssueCard issues a new card for an existing owner: validates the request,
// draws a unique 16-digit card number, zeroes the running counters and
// persists the card at version 0.
func (s *Service) IssueCard(ctx context.Context, req IssueCardRequest) (*domain.Card, error) {
	holderName, err := s.owners.Lookup(ctx, req.OwnerID)
	if err != nil {
		s.report(ctx, "", "issue", req.InitialBalance, err)
		return nil, err
	}

	number, err := s.uniqueCardNumber(ctx)
	if err != nil {
		s.report(ctx, "", "issue", req.InitialBalance, err)
		return nil, err
	}

	card, err := domain.NewCard(
		ulid.Make().String(),
		number,
		req.OwnerID,
		holderName,
		req.CardType,
		req.InitialBalance,
		req.Active,
		s.now(),
	)
	if err != nil {
		s.report(ctx, "", "issue", req.InitialBalance, err)
		return nil, err
	}

	if err := s.store.CreateCard(ctx, card); err != nil {
		s.report(ctx, card.ID, "issue", req.InitialBalance, err)
		return nil, err
	}

	s.logger.Info("card issued",
		"card_id", card.ID,
		"owner_id", card.OwnerID,
		"card_type", card.CardType,
		"balance", card.TotalBalance.String(),
	)
	s.report(ctx, card.ID, "issue", req.InitialBalance, nil)

	return card, nil
}

// uniqueCardNumber draws 16-digit numbers until one is not already present
// in the store. The loop is bounded rather than unbounded.
func (s *Service) uniqueCardNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := fmt.Sprintf("%d", 1_000_000_000_000_000+rand.Int64N(9_000_000_000_000_000))
		exists, err := s.store.CardNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("no unique card number after %d attempts", maxNumberAttempts)
}
