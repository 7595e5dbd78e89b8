package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardledger/internal/common/money"
	"cardledger/internal/ledger/domain"
)

func seedCard(t *testing.T, s *Memory) *domain.Card {
	t.Helper()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	card, err := domain.NewCard("card-1", "4000123412341234", "owner-1", "Ada Lovelace", "VISA", money.FromMajor(1000), true, now)
	if err != nil {
		t.Fatalf("NewCard: %v", err)
	}
	if err := s.CreateCard(context.Background(), card); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	return card
}

func record(t *testing.T, id string, card *domain.Card, amount money.Amount) *domain.TransactionRecord {
	t.Helper()
	rec, err := domain.NewTransactionRecord(id, card.ID, domain.TransactionDebit, amount, card.CardType, "Debited "+amount.String(), time.Now())
	if err != nil {
		t.Fatalf("NewTransactionRecord: %v", err)
	}
	return rec
}

func TestCommitOperationCAS(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	seedCard(t, s)

	// Two loads of the same version race; the second commit must lose.
	first, err := s.LoadCard(ctx, "card-1")
	if err != nil {
		t.Fatalf("LoadCard: %v", err)
	}
	second, err := s.LoadCard(ctx, "card-1")
	if err != nil {
		t.Fatalf("LoadCard: %v", err)
	}

	first.TotalBalance = first.TotalBalance.Sub(money.FromMajor(100))
	if err := s.CommitOperation(ctx, first, record(t, "rec-1", first, money.FromMajor(100))); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("committed card version = %d, want 1", first.Version)
	}

	second.TotalBalance = second.TotalBalance.Sub(money.FromMajor(100))
	err = s.CommitOperation(ctx, second, record(t, "rec-2", second, money.FromMajor(100)))
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("stale commit: got %v, want ErrVersionConflict", err)
	}

	// The losing commit must change neither state nor history.
	got, err := s.LoadCard(ctx, "card-1")
	if err != nil {
		t.Fatalf("LoadCard: %v", err)
	}
	if got.TotalBalance != money.FromMajor(900) || got.Version != 1 {
		t.Fatalf("state after lost race: balance %s version %d", got.TotalBalance, got.Version)
	}
	if _, total, _ := s.ListTransactions(ctx, "card-1", 10, 0); total != 1 {
		t.Fatalf("%d records after lost race, want 1", total)
	}
}

func TestLoadCardReturnsCopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	seedCard(t, s)

	loaded, err := s.LoadCard(ctx, "card-1")
	if err != nil {
		t.Fatalf("LoadCard: %v", err)
	}
	loaded.TotalBalance = money.Zero

	again, err := s.LoadCard(ctx, "card-1")
	if err != nil {
		t.Fatalf("LoadCard: %v", err)
	}
	if again.TotalBalance != money.FromMajor(1000) {
		t.Fatal("mutating a loaded card leaked into the store")
	}
}

func TestListTransactionsOrderAndPaging(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	card := seedCard(t, s)

	for i := 1; i <= 4; i++ {
		loaded, err := s.LoadCard(ctx, card.ID)
		if err != nil {
			t.Fatalf("LoadCard: %v", err)
		}
		amount := money.FromMajor(int64(i))
		loaded.TotalBalance = loaded.TotalBalance.Sub(amount)
		if err := s.CommitOperation(ctx, loaded, record(t, "rec-"+amount.String(), loaded, amount)); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	recs, total, err := s.ListTransactions(ctx, card.ID, 2, 1)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if total != 4 || len(recs) != 2 {
		t.Fatalf("page = %d records (total %d), want 2 of 4", len(recs), total)
	}
	if recs[0].Amount != money.FromMajor(3) || recs[1].Amount != money.FromMajor(2) {
		t.Fatalf("page = %s, %s; want 3.00 then 2.00", recs[0].Amount, recs[1].Amount)
	}

	// A negative offset reads from the start instead of indexing out of range.
	recs, _, err = s.ListTransactions(ctx, card.ID, 2, -5)
	if err != nil {
		t.Fatalf("ListTransactions negative offset: %v", err)
	}
	if len(recs) != 2 || recs[0].Amount != money.FromMajor(4) {
		t.Fatalf("negative offset page = %d records", len(recs))
	}

	// Offset past the end yields an empty page, not an error.
	recs, _, err = s.ListTransactions(ctx, card.ID, 10, 10)
	if err != nil {
		t.Fatalf("ListTransactions past end: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("got %d records past the end", len(recs))
	}
}

func TestDeleteCard(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	card := seedCard(t, s)

	loaded, _ := s.LoadCard(ctx, card.ID)
	loaded.TotalBalance = loaded.TotalBalance.Sub(money.FromMajor(1))
	if err := s.CommitOperation(ctx, loaded, record(t, "rec-1", loaded, money.FromMajor(1))); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := s.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if _, err := s.LoadCard(ctx, card.ID); !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("got %v, want ErrCardNotFound", err)
	}
	if err := s.DeleteCard(ctx, card.ID); !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("second delete: got %v, want ErrCardNotFound", err)
	}
	if _, total, _ := s.ListTransactions(ctx, card.ID, 10, 0); total != 0 {
		t.Fatalf("history survived delete: %d records", total)
	}
}
