package domain

import (
	"errors"
	"testing"
	"time"

	"cardledger/internal/common/money"
)

var testNow = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

func newTestCard(t *testing.T, balance money.Amount) *Card {
	t.Helper()
	card, err := NewCard("card-1", "4000123412341234", "owner-1", "Ada Lovelace", "VISA", balance, true, testNow)
	if err != nil {
		t.Fatalf("NewCard: %v", err)
	}
	return card
}

func TestNewCard(t *testing.T) {
	card := newTestCard(t, money.FromMajor(1000))

	if card.Version != 0 {
		t.Fatalf("version = %d, want 0", card.Version)
	}
	if card.DailyDebited != money.Zero || card.DailyCredited != money.Zero {
		t.Fatal("daily counters must start at zero")
	}
	if !card.LastResetDate.Equal(DateOf(testNow)) {
		t.Fatalf("last reset date = %v, want %v", card.LastResetDate, DateOf(testNow))
	}
	if want := testNow.AddDate(10, 0, 0); !card.ExpiryDate.Equal(want) {
		t.Fatalf("expiry = %v, want %v", card.ExpiryDate, want)
	}

	if _, err := NewCard("id", "n", "", "h", "VISA", money.FromMajor(1), true, testNow); !errors.Is(err, ErrOwnerNotFound) {
		t.Fatalf("missing owner: got %v, want ErrOwnerNotFound", err)
	}
	if _, err := NewCard("id", "n", "o", "h", "  ", money.FromMajor(1), true, testNow); err == nil {
		t.Fatal("blank card type: expected error")
	}
	if _, err := NewCard("id", "n", "o", "h", "VISA", money.Zero, true, testNow); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero initial balance: got %v, want ErrInvalidAmount", err)
	}
}

func TestDebitChecks(t *testing.T) {
	t.Run("non-positive amount", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(1000))
		if err := card.Debit(money.Zero, testNow); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("got %v, want ErrInvalidAmount", err)
		}
		if err := card.Debit(money.FromMinor(-100), testNow); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("got %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("inactive card", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(1000))
		card.Active = false
		if err := card.Debit(money.FromMajor(10), testNow); !errors.Is(err, ErrCardInactive) {
			t.Fatalf("got %v, want ErrCardInactive", err)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(100))
		if err := card.Debit(money.FromMinor(10001), testNow); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("got %v, want ErrInsufficientBalance", err)
		}
		if card.TotalBalance != money.FromMajor(100) {
			t.Fatal("rejected debit must not change the balance")
		}
	})

	t.Run("balance is checked before single-debit limit", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(100))
		if err := card.Debit(money.FromMajor(60000), testNow); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("got %v, want ErrInsufficientBalance", err)
		}
	})

	t.Run("single debit limit", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(60000))
		err := card.Debit(money.FromMinor(5000001), testNow)
		var lim *LimitExceededError
		if !errors.As(err, &lim) || lim.Limit != LimitMaxSingleDebit {
			t.Fatalf("got %v, want MAX_SINGLE_DEBIT", err)
		}
		if !errors.Is(err, ErrLimitExceeded) {
			t.Fatal("limit error must match ErrLimitExceeded")
		}
	})

	t.Run("daily debit limit", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(60000))
		err := card.Debit(money.FromMinor(2000001), testNow)
		var lim *LimitExceededError
		if !errors.As(err, &lim) || lim.Limit != LimitDailyDebit {
			t.Fatalf("got %v, want DAILY_DEBIT_LIMIT", err)
		}
	})
}

// Counters at 19500.00, balance 1000.00: a 600.00 debit crosses the daily
// cap and is rejected, then a 400.00 debit lands exactly under it.
func TestDebitDailyCapBoundary(t *testing.T) {
	card := newTestCard(t, money.FromMajor(1000))
	card.DailyDebited = money.FromMajor(19500)

	err := card.Debit(money.FromMajor(600), testNow)
	var lim *LimitExceededError
	if !errors.As(err, &lim) || lim.Limit != LimitDailyDebit {
		t.Fatalf("600 over a 19500 counter: got %v, want DAILY_DEBIT_LIMIT", err)
	}
	if card.TotalBalance != money.FromMajor(1000) || card.DailyDebited != money.FromMajor(19500) {
		t.Fatal("rejected debit must leave the card untouched")
	}

	if err := card.Debit(money.FromMajor(400), testNow); err != nil {
		t.Fatalf("400 debit: %v", err)
	}
	if card.TotalBalance != money.FromMajor(600) {
		t.Fatalf("balance = %s, want 600.00", card.TotalBalance)
	}
	if card.DailyDebited != money.FromMajor(19900) {
		t.Fatalf("daily debited = %s, want 19900.00", card.DailyDebited)
	}
}

func TestCreditChecks(t *testing.T) {
	t.Run("single credit limit", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(100))
		err := card.Credit(money.FromMinor(5000001), testNow)
		var lim *LimitExceededError
		if !errors.As(err, &lim) || lim.Limit != LimitMaxSingleCredit {
			t.Fatalf("got %v, want MAX_SINGLE_CREDIT", err)
		}
	})

	t.Run("daily credit limit", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(100))
		if err := card.Credit(money.FromMajor(50000), testNow); err != nil {
			t.Fatalf("first credit at the cap: %v", err)
		}
		err := card.Credit(money.FromMinor(1), testNow)
		var lim *LimitExceededError
		if !errors.As(err, &lim) || lim.Limit != LimitDailyCredit {
			t.Fatalf("got %v, want DAILY_CREDIT_LIMIT", err)
		}
		if card.TotalBalance != money.FromMajor(50100) {
			t.Fatal("rejected credit must not change the balance")
		}
	})

	t.Run("inactive card", func(t *testing.T) {
		card := newTestCard(t, money.FromMajor(100))
		card.Active = false
		if err := card.Credit(money.FromMajor(10), testNow); !errors.Is(err, ErrCardInactive) {
			t.Fatalf("got %v, want ErrCardInactive", err)
		}
	})
}

func TestRollCounters(t *testing.T) {
	card := newTestCard(t, money.FromMajor(60000))

	if err := card.Debit(money.FromMajor(20000), testNow); err != nil {
		t.Fatalf("debit up to the daily cap: %v", err)
	}
	if err := card.Credit(money.FromMajor(50000), testNow); err != nil {
		t.Fatalf("credit up to the daily cap: %v", err)
	}

	// Later the same day nothing resets.
	sameDay := testNow.Add(8 * time.Hour)
	card.RollCounters(sameDay)
	if card.DailyDebited != money.FromMajor(20000) || card.DailyCredited != money.FromMajor(50000) {
		t.Fatal("counters must survive within the same calendar day")
	}

	// Crossing midnight UTC resets both counters and moves the reset date.
	nextDay := time.Date(2026, time.March, 11, 0, 0, 1, 0, time.UTC)
	card.RollCounters(nextDay)
	if card.DailyDebited != money.Zero || card.DailyCredited != money.Zero {
		t.Fatal("counters must reset on the next calendar day")
	}
	if !card.LastResetDate.Equal(DateOf(nextDay)) {
		t.Fatalf("last reset date = %v, want %v", card.LastResetDate, DateOf(nextDay))
	}

	// Multiple missed days collapse into a single reset.
	card.DailyDebited = money.FromMajor(5)
	muchLater := nextDay.AddDate(0, 0, 40)
	card.RollCounters(muchLater)
	if card.DailyDebited != money.Zero {
		t.Fatal("counters must reset after any number of skipped days")
	}
}

func TestDebitAfterDayBoundary(t *testing.T) {
	card := newTestCard(t, money.FromMajor(60000))
	if err := card.Debit(money.FromMajor(20000), testNow); err != nil {
		t.Fatalf("fill the daily cap: %v", err)
	}
	if err := card.Debit(money.FromMinor(1), testNow); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("cap full: got %v, want ErrLimitExceeded", err)
	}

	nextDay := testNow.AddDate(0, 0, 1)
	if err := card.Debit(money.FromMajor(20000), nextDay); err != nil {
		t.Fatalf("fresh cap next day: %v", err)
	}
	if card.TotalBalance != money.FromMajor(20000) {
		t.Fatalf("balance = %s, want 20000.00", card.TotalBalance)
	}
}
