package orders

import (
	"database/sql"
	"fmt"

	"github.com/mightybites/coins-engine/internal/repos/orders"
)

var _ orders.Orders = (*ordersRepo)(nil)

type ordersRepo struct{ db *sql.DB }

func New(db *sql.DB) *ordersRepo {
	return &ordersRepo{db: db}
}

func (r *ordersRepo) Insert(tx *sql.Tx, o orders.Order) error {
	_, err := tx.Exec(`
		INSERT INTO orders (id, user_id, restaurant_id, deal_id, menu_item_id, coins_paid, phone, whatsapp, address, city, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, o.ID, o.UserID, o.RestaurantID, o.DealID, o.MenuItemID, o.CoinsPaid, o.Phone, o.Whatsapp, o.Address, o.City, o.Status)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}
