package store

import (
	"context"
	"sort"
	"sync"

	"cardledger/internal/ledger/domain"
)

// Memory implements ledger.Store in process memory. All access is guarded by
// one mutex, so compare-and-save plus record append is atomic by
// construction. It backs tests and single-process deployments.
type Memory struct {
	mu      sync.RWMutex
	cards   map[string]*domain.Card
	history map[string][]*domain.TransactionRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		cards:   make(map[string]*domain.Card),
		history: make(map[string][]*domain.TransactionRecord),
	}
}

// LoadCard returns a copy of the current card state.
func (s *Memory) LoadCard(ctx context.Context, cardID string) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[cardID]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return copyCard(card), nil
}

// CreateCard inserts a card at version 0.
func (s *Memory) CreateCard(ctx context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[card.ID]; ok {
		return domain.ErrVersionConflict
	}
	s.cards[card.ID] = copyCard(card)
	return nil
}

// CardNumberExists reports whether a card number is already issued.
func (s *Memory) CardNumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, card := range s.cards {
		if card.CardNumber == number {
			return true, nil
		}
	}
	return false, nil
}

// CommitOperation saves the card and appends the record under one lock, so
// the pair is atomic and appends for a card follow commit order.
func (s *Memory) CommitOperation(ctx context.Context, card *domain.Card, rec *domain.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.casLocked(card); err != nil {
		return err
	}

	recCopy := *rec
	s.history[card.ID] = append(s.history[card.ID], &recCopy)
	card.Version++
	return nil
}

// UpdateCard saves the card with compare-and-save semantics.
func (s *Memory) UpdateCard(ctx context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.casLocked(card); err != nil {
		return err
	}
	card.Version++
	return nil
}

func (s *Memory) casLocked(card *domain.Card) error {
	current, ok := s.cards[card.ID]
	if !ok {
		return domain.ErrCardNotFound
	}
	if current.Version != card.Version {
		return domain.ErrVersionConflict
	}

	saved := copyCard(card)
	saved.Version++
	s.cards[card.ID] = saved
	return nil
}

// DeleteCard removes a card and its history.
func (s *Memory) DeleteCard(ctx context.Context, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[cardID]; !ok {
		return domain.ErrCardNotFound
	}
	delete(s.cards, cardID)
	delete(s.history, cardID)
	return nil
}

// ListCardsByOwner returns all cards issued to an owner.
func (s *Memory) ListCardsByOwner(ctx context.Context, ownerID string) ([]*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cards []*domain.Card
	for _, card := range s.cards {
		if card.OwnerID == ownerID {
			cards = append(cards, copyCard(card))
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].IssueDate.Before(cards[j].IssueDate)
	})
	return cards, nil
}

// ListTransactions returns a card's records, newest first.
func (s *Memory) ListTransactions(ctx context.Context, cardID string, limit, offset int) ([]*domain.TransactionRecord, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.history[cardID]
	total := int64(len(all))
	if offset < 0 {
		offset = 0
	}

	// Newest first: history is stored in append (commit) order.
	var recs []*domain.TransactionRecord
	for i := len(all) - 1 - offset; i >= 0 && len(recs) < limit; i-- {
		recCopy := *all[i]
		recs = append(recs, &recCopy)
	}
	return recs, total, nil
}

func copyCard(card *domain.Card) *domain.Card {
	c := *card
	return &c
}
