package draws

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Draw lifecycle, monotonic: open -> closed -> published.
const (
	StatusOpen      = "open"
	StatusClosed    = "closed"
	StatusPublished = "published"
)

const (
	EntryFree = "free"
	EntryPaid = "paid"
)

var (
	ErrDrawNotFound      = errors.New("draw not found")
	ErrDrawNotOpen       = errors.New("draw not open")
	ErrAlreadyJoinedFree = errors.New("already joined free")
)

type Draw struct {
	ID           uuid.UUID
	City         string
	Status       string
	EntryFee     int64
	FreeEnabled  bool
	FreeSlots    int
	RegStartsAt  time.Time
	RegEndsAt    time.Time
	WinnerUserID *uuid.UUID
	WinnerCode   *string
}

type Entry struct {
	ID        uuid.UUID
	DrawID    uuid.UUID
	UserID    uuid.UUID
	EntryType string
	CreatedAt time.Time
}

type Draws interface {
	Get(ctx context.Context, id uuid.UUID) (Draw, error)
	// LockAndGet takes the draw row lock; registration and winner
	// selection for one draw serialize on it.
	LockAndGet(tx *sql.Tx, id uuid.UUID) (Draw, error)
	CountFreeEntries(tx *sql.Tx, drawID uuid.UUID) (int, error)
	InsertEntry(tx *sql.Tx, e Entry) error
	ListEntries(tx *sql.Tx, drawID uuid.UUID) ([]Entry, error)
	// SetWinner commits the winner fields and publishes the draw in one
	// conditional update; it fails with ErrDrawNotOpen if the draw has
	// already left the open state.
	SetWinner(tx *sql.Tx, drawID, winnerUserID uuid.UUID, winnerCode string) error
}
