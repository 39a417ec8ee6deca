package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrItemNotFound = errors.New("item not found")
var ErrRestaurantNotFound = errors.New("restaurant not found")

// Item is a purchasable deal or menu item. Read-only to this core;
// ownership lives with the restaurant management surface.
type Item struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Title        string
	PriceCoins   int64
	IsActive     bool
}

type Restaurant struct {
	ID           uuid.UUID
	Name         string
	City         string
	IsDeleted    bool
	IsRestricted bool
}

type Catalog interface {
	GetDeal(ctx context.Context, id uuid.UUID) (Item, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (Item, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error)
}
