package customer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"cardledger/internal/common/database"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new PostgreSQL customer store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new customer.
func (s *PostgresStore) Create(ctx context.Context, c *Customer) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO customers (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Name, c.Email, c.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("customer with email %s: %w", c.Email, database.ErrAlreadyExists)
		}
		return fmt.Errorf("creating customer: %w", err)
	}
	return nil
}

// Get retrieves a customer by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	err := s.db.QueryRow(ctx, `
		SELECT id, name, email, created_at FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading customer: %w", err)
	}
	return &c, nil
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	customers map[string]*Customer
}

// NewMemoryStore creates an empty in-memory customer store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{customers: make(map[string]*Customer)}
}

// Create inserts a new customer.
func (s *MemoryStore) Create(ctx context.Context, c *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *c
	s.customers[c.ID] = &copied
	return nil
}

// Get retrieves a customer by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}
