// Package store provides the durable card store and transaction log, with a
// PostgreSQL implementation and an in-memory one for tests and
// single-process deployments.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cardledger/internal/common/database"
	"cardledger/internal/ledger/domain"
)

// Postgres implements ledger.Store on PostgreSQL. Card state writes are
// compare-and-save on the version column; the state update and the
// transaction record insert share one database transaction.
type Postgres struct {
	db *database.DB
}

// NewPostgres creates a new PostgreSQL card store.
func NewPostgres(db *database.DB) *Postgres {
	return &Postgres{db: db}
}

const cardColumns = `
	id, card_number, owner_id, holder_name, card_type, active,
	total_balance, daily_debited, daily_credited, last_reset_date,
	issue_date, expiry_date, version
`

// LoadCard returns the current card state.
func (s *Postgres) LoadCard(ctx context.Context, cardID string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	card, err := scanCard(s.db.QueryRow(ctx, query, cardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCardNotFound
		}
		return nil, fmt.Errorf("loading card: %w", err)
	}
	return card, nil
}

// CreateCard inserts a card at version 0.
func (s *Postgres) CreateCard(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.Exec(ctx, query,
		card.ID,
		card.CardNumber,
		card.OwnerID,
		card.HolderName,
		card.CardType,
		card.Active,
		card.TotalBalance.Minor(),
		card.DailyDebited.Minor(),
		card.DailyCredited.Minor(),
		card.LastResetDate,
		card.IssueDate,
		card.ExpiryDate,
		card.Version,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("card number %s already issued: %w", card.CardNumber, database.ErrAlreadyExists)
		}
		return fmt.Errorf("creating card: %w", err)
	}
	return nil
}

// CardNumberExists reports whether a card number is already issued.
func (s *Postgres) CardNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM cards WHERE card_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking card number: %w", err)
	}
	return exists, nil
}

// CommitOperation persists the card state change and appends the matching
// transaction record as one database transaction. The UPDATE carries the
// version predicate: a lost race updates zero rows, nothing is written, and
// the caller sees ErrVersionConflict.
func (s *Postgres) CommitOperation(ctx context.Context, card *domain.Card, rec *domain.TransactionRecord) error {
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := casUpdate(ctx, tx, card); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO card_transactions (id, card_id, type, amount, card_type, description, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			rec.ID,
			rec.CardID,
			rec.Type,
			rec.Amount.Minor(),
			rec.CardType,
			rec.Description,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("appending transaction record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	card.Version++
	return nil
}

// UpdateCard persists a card with compare-and-save semantics, without a
// transaction record.
func (s *Postgres) UpdateCard(ctx context.Context, card *domain.Card) error {
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return casUpdate(ctx, tx, card)
	})
	if err != nil {
		return err
	}

	card.Version++
	return nil
}

func casUpdate(ctx context.Context, tx pgx.Tx, card *domain.Card) error {
	tag, err := tx.Exec(ctx, `
		UPDATE cards
		SET holder_name = $1, card_type = $2, active = $3,
			total_balance = $4, daily_debited = $5, daily_credited = $6,
			last_reset_date = $7, version = version + 1
		WHERE id = $8 AND version = $9
	`,
		card.HolderName,
		card.CardType,
		card.Active,
		card.TotalBalance.Minor(),
		card.DailyDebited.Minor(),
		card.DailyCredited.Minor(),
		card.LastResetDate,
		card.ID,
		card.Version,
	)
	if err != nil {
		return fmt.Errorf("saving card: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM cards WHERE id = $1)`, card.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking card after conflict: %w", err)
		}
		if !exists {
			return domain.ErrCardNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

// DeleteCard removes a card and its (otherwise immutable) history in one
// transaction.
func (s *Postgres) DeleteCard(ctx context.Context, cardID string) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM card_transactions WHERE card_id = $1`, cardID); err != nil {
			return fmt.Errorf("deleting transaction records: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM cards WHERE id = $1`, cardID)
		if err != nil {
			return fmt.Errorf("deleting card: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrCardNotFound
		}
		return nil
	})
}

// ListCardsByOwner returns all cards issued to an owner.
func (s *Postgres) ListCardsByOwner(ctx context.Context, ownerID string) ([]*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 ORDER BY issue_date`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// ListTransactions returns a card's records, newest first.
func (s *Postgres) ListTransactions(ctx context.Context, cardID string, limit, offset int) ([]*domain.TransactionRecord, int64, error) {
	var total int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM card_transactions WHERE card_id = $1`, cardID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting transactions: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, card_id, type, amount, card_type, description, created_at
		FROM card_transactions
		WHERE card_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, cardID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var recs []*domain.TransactionRecord
	for rows.Next() {
		var rec domain.TransactionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.CardID,
			&rec.Type,
			&rec.Amount,
			&rec.CardType,
			&rec.Description,
			&rec.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning transaction: %w", err)
		}
		recs = append(recs, &rec)
	}
	return recs, total, rows.Err()
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var card domain.Card
	err := row.Scan(
		&card.ID,
		&card.CardNumber,
		&card.OwnerID,
		&card.HolderName,
		&card.CardType,
		&card.Active,
		&card.TotalBalance,
		&card.DailyDebited,
		&card.DailyCredited,
		&card.LastResetDate,
		&card.IssueDate,
		&card.ExpiryDate,
		&card.Version,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}
