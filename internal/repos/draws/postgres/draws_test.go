package draws

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/infra/pgtestutil"
	"github.com/mightybites/coins-engine/internal/repos/draws"
)

func seedDraw(t *testing.T, db *sql.DB, d draws.Draw) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO draws (id, city, status, entry_fee, free_enabled, free_slots, reg_starts_at, reg_ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, d.City, d.Status, d.EntryFee, d.FreeEnabled, d.FreeSlots, d.RegStartsAt, d.RegEndsAt)
	if err != nil {
		t.Fatalf("seed draw: %v", err)
	}
}

func openDraw(id uuid.UUID) draws.Draw {
	now := time.Now()
	return draws.Draw{
		ID:          id,
		City:        "Beirut",
		Status:      draws.StatusOpen,
		EntryFee:    20,
		FreeEnabled: true,
		FreeSlots:   10,
		RegStartsAt: now.Add(-time.Hour),
		RegEndsAt:   now.Add(time.Hour),
	}
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}

	err = fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	return nil
}

func TestDraws_InsertEntry_SecondFreeRejected(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	drawID := uuid.New()
	userID := uuid.New()

	seedDraw(t, db, openDraw(drawID))

	err := inTx(t, db, func(tx *sql.Tx) error {
		return repo.InsertEntry(tx, draws.Entry{ID: uuid.New(), DrawID: drawID, UserID: userID, EntryType: draws.EntryFree})
	})
	if err != nil {
		t.Fatalf("first free entry: %v", err)
	}

	err = inTx(t, db, func(tx *sql.Tx) error {
		return repo.InsertEntry(tx, draws.Entry{ID: uuid.New(), DrawID: drawID, UserID: userID, EntryType: draws.EntryFree})
	})
	if !errors.Is(err, draws.ErrAlreadyJoinedFree) {
		t.Fatalf("second free entry: want ErrAlreadyJoinedFree, got %v", err)
	}

	// paid entries are not capped by the free-entry index
	for i := 0; i < 2; i++ {
		err = inTx(t, db, func(tx *sql.Tx) error {
			return repo.InsertEntry(tx, draws.Entry{ID: uuid.New(), DrawID: drawID, UserID: userID, EntryType: draws.EntryPaid})
		})
		if err != nil {
			t.Fatalf("paid entry: %v", err)
		}
	}
}

func TestDraws_SetWinner_SecondCommitRejected(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	drawID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	seedDraw(t, db, openDraw(drawID))

	err := inTx(t, db, func(tx *sql.Tx) error {
		return repo.SetWinner(tx, drawID, first, "#1002")
	})
	if err != nil {
		t.Fatalf("first winner commit: %v", err)
	}

	err = inTx(t, db, func(tx *sql.Tx) error {
		return repo.SetWinner(tx, drawID, second, "#1003")
	})
	if !errors.Is(err, draws.ErrDrawNotOpen) {
		t.Fatalf("second winner commit: want ErrDrawNotOpen, got %v", err)
	}

	d, err := repo.Get(context.Background(), drawID)
	if err != nil {
		t.Fatalf("get draw: %v", err)
	}
	if d.Status != draws.StatusPublished {
		t.Fatalf("status: got %s, want %s", d.Status, draws.StatusPublished)
	}
	if d.WinnerUserID == nil || *d.WinnerUserID != first {
		t.Fatalf("winner overwritten: got %v, want %s", d.WinnerUserID, first)
	}
}

func TestDraws_Get_NotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	_, err := repo.Get(context.Background(), uuid.New())
	if !errors.Is(err, draws.ErrDrawNotFound) {
		t.Fatalf("want ErrDrawNotFound, got %v", err)
	}
}
