// Package customer provides the owner directory the card ledger validates
// card owners against. Registration, login and session handling live outside
// this service; this is only the record the ledger needs.
package customer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"cardledger/internal/ledger/domain"
)

// Customer is a card owner.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists customers.
type Store interface {
	Create(ctx context.Context, c *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
}

// Service manages customers and acts as the ledger's owner directory.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new customer service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateRequest is the request to create a customer.
type CreateRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Customer, error) {
	c := &Customer{
		ID:        ulid.Make().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("customer created", "customer_id", c.ID)
	return c, nil
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.store.Get(ctx, id)
}

// Lookup implements the ledger's owner directory: it returns the customer's
// display name or ErrOwnerNotFound.
func (s *Service) Lookup(ctx context.Context, ownerID string) (string, error) {
	c, err := s.store.Get(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// ErrNotFound is the single not-found error this package reports; it is the
// ledger's ErrOwnerNotFound so callers branch on one kind.
var ErrNotFound = domain.ErrOwnerNotFound
