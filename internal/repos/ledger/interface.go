package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Entry kinds. Positive amounts are credits, negative are debits.
const (
	TypeTopup         = "topup"
	TypeAdminMint     = "admin_mint"
	TypePurchaseDeal  = "purchase_deal"
	TypePurchaseMenu  = "purchase_menu"
	TypeDrawEntryPaid = "draw_entry_paid"
)

// Reference artifact kinds.
const (
	RefOrder     = "order"
	RefDrawEntry = "draw_entry"
)

type Entry struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	EntryType     string     `json:"entry_type"`
	Amount        int64      `json:"amount"`
	ReferenceType *string    `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Ledger is the append-only record of balance-affecting events.
// Rows are never updated or deleted.
type Ledger interface {
	Append(tx *sql.Tx, e Entry) error
	SumForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, int64, error)
}
