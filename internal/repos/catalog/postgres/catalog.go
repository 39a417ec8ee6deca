package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/repos/catalog"
)

var _ catalog.Catalog = (*catalogRepo)(nil)

type catalogRepo struct{ db *sql.DB }

func New(db *sql.DB) *catalogRepo {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) GetDeal(ctx context.Context, id uuid.UUID) (catalog.Item, error) {
	return r.getItem(ctx, "deals", id)
}

func (r *catalogRepo) GetMenuItem(ctx context.Context, id uuid.UUID) (catalog.Item, error) {
	return r.getItem(ctx, "menu_items", id)
}

func (r *catalogRepo) getItem(ctx context.Context, table string, id uuid.UUID) (catalog.Item, error) {
	var item catalog.Item

	// table is one of two compile-time constants, never user input.
	query := fmt.Sprintf(`
		SELECT id, restaurant_id, title, price_coins, is_active
		FROM %s
		WHERE id = $1
	`, table)

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.RestaurantID, &item.Title, &item.PriceCoins, &item.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Item{}, catalog.ErrItemNotFound
		}

		return catalog.Item{}, fmt.Errorf("get item from %s: %w", table, err)
	}

	return item, nil
}

func (r *catalogRepo) GetRestaurant(ctx context.Context, id uuid.UUID) (catalog.Restaurant, error) {
	var rest catalog.Restaurant

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, city, is_deleted, is_restricted
		FROM restaurants
		WHERE id = $1
	`, id).Scan(&rest.ID, &rest.Name, &rest.City, &rest.IsDeleted, &rest.IsRestricted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Restaurant{}, catalog.ErrRestaurantNotFound
		}

		return catalog.Restaurant{}, fmt.Errorf("get restaurant: %w", err)
	}

	return rest, nil
}
