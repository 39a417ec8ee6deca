package topup

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/infra/pgtestutil"
	"github.com/mightybites/coins-engine/internal/repos/ledger"
	"github.com/mightybites/coins-engine/internal/services/wallet"
)

func seedProfile(t *testing.T, db *sql.DB, userID uuid.UUID, code string, deleted bool) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO profiles (id, unique_code, is_profile_complete, is_deleted)
		VALUES ($1, $2, TRUE, $3)
	`, userID, code, deleted)
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestTopup_Validation(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)
	adminID := uuid.New()
	seedProfile(t, db, adminID, "#3001", false)

	targetID := uuid.New()
	seedProfile(t, db, targetID, "#3002", false)

	deletedID := uuid.New()
	seedProfile(t, db, deletedID, "#3003", true)

	tests := []struct {
		name    string
		code    string
		amount  int64
		kind    string
		wantErr error
	}{
		{name: "missing hash prefix", code: "3002", amount: 10, kind: ledger.TypeTopup, wantErr: ErrInvalidCode},
		{name: "bare hash", code: "#", amount: 10, kind: ledger.TypeTopup, wantErr: ErrInvalidCode},
		{name: "empty code", code: "", amount: 10, kind: ledger.TypeTopup, wantErr: ErrInvalidCode},
		{name: "zero amount", code: "#3002", amount: 0, kind: ledger.TypeTopup, wantErr: ErrInvalidAmount},
		{name: "negative amount", code: "#3002", amount: -5, kind: ledger.TypeTopup, wantErr: ErrInvalidAmount},
		{name: "unknown kind", code: "#3002", amount: 10, kind: "refund", wantErr: ErrInvalidType},
		{name: "purchase kind rejected", code: "#3002", amount: 10, kind: ledger.TypePurchaseDeal, wantErr: ErrInvalidType},
		{name: "unknown code", code: "#9999", amount: 10, kind: ledger.TypeTopup, wantErr: ErrUserNotFound},
		{name: "deleted user", code: "#3003", amount: 10, kind: ledger.TypeTopup, wantErr: ErrUserNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.Topup(context.Background(), adminID, tt.code, tt.amount, tt.kind)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("unexpected error: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTopup_CreditsTargetAndRecordsActor(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)
	adminID := uuid.New()
	seedProfile(t, db, adminID, "#3101", false)

	targetID := uuid.New()
	seedProfile(t, db, targetID, "#3102", false)

	credited, err := svc.Topup(context.Background(), adminID, " #3102 ", 50, ledger.TypeTopup)
	if err != nil {
		t.Fatalf("topup: %v", err)
	}

	if credited.TargetUserID != targetID {
		t.Fatalf("target: got %s, want %s", credited.TargetUserID, targetID)
	}
	if credited.BalanceBefore != 0 || credited.BalanceAfter != 50 {
		t.Fatalf("balances: got %d/%d, want 0/50", credited.BalanceBefore, credited.BalanceAfter)
	}

	var createdBy uuid.UUID
	err = db.QueryRow(`
		SELECT created_by FROM wallet_ledger WHERE user_id = $1 AND entry_type = $2
	`, targetID, ledger.TypeTopup).Scan(&createdBy)
	if err != nil {
		t.Fatalf("read ledger entry: %v", err)
	}
	if createdBy != adminID {
		t.Fatalf("ledger actor: got %s, want admin %s", createdBy, adminID)
	}

	balance, err := wallet.New(db).GetBalance(context.Background(), targetID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 50 {
		t.Fatalf("projected balance: got %d, want 50", balance)
	}
}

func TestTopup_AdminMintKind(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)
	adminID := uuid.New()
	seedProfile(t, db, adminID, "#3201", false)

	targetID := uuid.New()
	seedProfile(t, db, targetID, "#3202", false)

	if _, err := svc.Topup(context.Background(), adminID, "#3202", 25, ledger.TypeAdminMint); err != nil {
		t.Fatalf("topup: %v", err)
	}

	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM wallet_ledger WHERE user_id = $1 AND entry_type = $2 AND amount = 25
	`, targetID, ledger.TypeAdminMint).Scan(&n)
	if err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if n != 1 {
		t.Fatalf("admin_mint entries: got %d, want 1", n)
	}
}
