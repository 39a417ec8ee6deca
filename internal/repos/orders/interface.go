package orders

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const StatusPending = "pending"

// Order is the purchase artifact. Contact fields are snapshotted from
// the buyer's profile at purchase time. Exactly one of DealID and
// MenuItemID is set.
type Order struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	DealID       *uuid.UUID `json:"deal_id,omitempty"`
	MenuItemID   *uuid.UUID `json:"menu_item_id,omitempty"`
	CoinsPaid    int64      `json:"coins_paid"`
	Phone        *string    `json:"phone,omitempty"`
	Whatsapp     *string    `json:"whatsapp,omitempty"`
	Address      *string    `json:"address,omitempty"`
	City         *string    `json:"city,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Orders interface {
	Insert(tx *sql.Tx, o Order) error
}
