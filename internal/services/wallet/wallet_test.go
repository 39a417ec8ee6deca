package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/infra/pgtestutil"
	"github.com/mightybites/coins-engine/internal/repos/ledger"
	"github.com/mightybites/coins-engine/internal/repos/wallets"
)

func mustApply(t *testing.T, svc *Service, d Delta) Applied {
	t.Helper()

	applied, err := svc.ApplyDelta(context.Background(), d)
	if err != nil {
		t.Fatalf("apply delta %+v: %v", d, err)
	}

	return applied
}

// checkInvariant asserts the projection equals the ledger sum.
func checkInvariant(t *testing.T, svc *Service, userID uuid.UUID) {
	t.Helper()

	balance, err := svc.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}

	sum, err := svc.SumLedger(context.Background(), userID)
	if err != nil {
		t.Fatalf("sum ledger: %v", err)
	}

	if balance != sum {
		t.Fatalf("balance invariant broken: projection %d, ledger sum %d", balance, sum)
	}
}

func TestApplyDelta_CreditThenDebit(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)
	userID := uuid.New()
	actorID := uuid.New()

	applied := mustApply(t, svc, Delta{UserID: userID, Amount: 100, EntryType: ledger.TypeTopup, ActorID: actorID})
	if applied.BalanceBefore != 0 || applied.BalanceAfter != 100 {
		t.Fatalf("credit: got before=%d after=%d, want 0/100", applied.BalanceBefore, applied.BalanceAfter)
	}

	applied = mustApply(t, svc, Delta{UserID: userID, Amount: -30, EntryType: ledger.TypePurchaseDeal, ActorID: userID})
	if applied.BalanceBefore != 100 || applied.BalanceAfter != 70 {
		t.Fatalf("debit: got before=%d after=%d, want 100/70", applied.BalanceBefore, applied.BalanceAfter)
	}

	checkInvariant(t, svc, userID)
}

func TestApplyDelta_InsufficientBalanceWritesNothing(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)
	userID := uuid.New()

	mustApply(t, svc, Delta{UserID: userID, Amount: 50, EntryType: ledger.TypeTopup, ActorID: userID})

	_, err := svc.ApplyDelta(context.Background(), Delta{UserID: userID, Amount: -80, EntryType: ledger.TypePurchaseDeal, ActorID: userID})
	if !errors.Is(err, wallets.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}

	balance, err := svc.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 50 {
		t.Fatalf("balance after rejected debit: got %d, want 50", balance)
	}

	entries, total, err := svc.ListLedger(context.Background(), userID, 1, 20)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("rejected debit left a ledger entry: total=%d", total)
	}

	checkInvariant(t, svc, userID)
}

func TestApplyDelta_ZeroAmountRejected(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)

	_, err := svc.ApplyDelta(context.Background(), Delta{UserID: uuid.New(), Amount: 0, EntryType: ledger.TypeTopup, ActorID: uuid.New()})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
}

func TestApplyDelta_ConcurrentDebitsSerialize(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)
	userID := uuid.New()

	mustApply(t, svc, Delta{UserID: userID, Amount: 55, EntryType: ledger.TypeTopup, ActorID: userID})

	const workers = 10
	const debit = 10

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.ApplyDelta(context.Background(), Delta{
				UserID:    userID,
				Amount:    -debit,
				EntryType: ledger.TypePurchaseDeal,
				ActorID:   userID,
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, wallets.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// 55 coins afford exactly 5 debits of 10 in any serial ordering.
	if succeeded != 5 || insufficient != 5 {
		t.Fatalf("got %d successes, %d insufficient; want 5/5", succeeded, insufficient)
	}

	balance, err := svc.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 5 {
		t.Fatalf("final balance: got %d, want 5", balance)
	}

	checkInvariant(t, svc, userID)
}

func TestApplyDelta_DisjointUsersDoNotInterfere(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)

	userA := uuid.New()
	userB := uuid.New()

	var wg sync.WaitGroup
	for _, u := range []uuid.UUID{userA, userB} {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < 5; j++ {
				_, err := svc.ApplyDelta(context.Background(), Delta{
					UserID: u, Amount: 10, EntryType: ledger.TypeTopup, ActorID: u,
				})
				if err != nil {
					t.Errorf("credit %s: %v", u, err)
				}
			}
		}()
	}
	wg.Wait()

	for _, u := range []uuid.UUID{userA, userB} {
		balance, err := svc.GetBalance(context.Background(), u)
		if err != nil {
			t.Fatalf("get balance: %v", err)
		}
		if balance != 50 {
			t.Fatalf("balance for %s: got %d, want 50", u, balance)
		}

		checkInvariant(t, svc, u)
	}
}

func TestListLedger_NewestFirstWithTotal(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		mustApply(t, svc, Delta{UserID: userID, Amount: int64(10 * (i + 1)), EntryType: ledger.TypeTopup, ActorID: userID})
	}

	entries, total, err := svc.ListLedger(context.Background(), userID, 1, 2)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if total != 3 {
		t.Fatalf("total: got %d, want 3", total)
	}
	if len(entries) != 2 {
		t.Fatalf("page size: got %d, want 2", len(entries))
	}
	if entries[0].Amount != 30 {
		t.Fatalf("newest first: got amount %d, want 30", entries[0].Amount)
	}
}
