// Package purchase authorizes and executes coin purchases of catalog
// items, producing the order artifact and the paired ledger debit as
// one atomic unit.
package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/infra/pgutils"
	"github.com/mightybites/coins-engine/internal/repos/catalog"
	pgcatalog "github.com/mightybites/coins-engine/internal/repos/catalog/postgres"
	"github.com/mightybites/coins-engine/internal/repos/ledger"
	"github.com/mightybites/coins-engine/internal/repos/orders"
	pgorders "github.com/mightybites/coins-engine/internal/repos/orders/postgres"
	"github.com/mightybites/coins-engine/internal/repos/profiles"
	pgprofiles "github.com/mightybites/coins-engine/internal/repos/profiles/postgres"
	"github.com/mightybites/coins-engine/internal/services/wallet"
)

var (
	ErrInvalidRequest       = errors.New("provide exactly one of deal or menu item")
	ErrProfileIncomplete    = errors.New("profile incomplete")
	ErrInvalidPrice         = errors.New("invalid item price")
	ErrRestaurantRestricted = errors.New("restaurant restricted")
)

// Input references the purchasable item: exactly one of the two IDs.
type Input struct {
	DealID     *uuid.UUID
	MenuItemID *uuid.UUID
}

type Receipt struct {
	OrderID       uuid.UUID `json:"order_id"`
	CoinsPaid     int64     `json:"coins_paid"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
}

type Service struct {
	db       *sql.DB
	profiles profiles.Profiles
	catalog  catalog.Catalog
	orders   orders.Orders
	wallet   *wallet.Service
}

func New(db *sql.DB) *Service {
	return &Service{
		db:       db,
		profiles: pgprofiles.New(db),
		catalog:  pgcatalog.New(db),
		orders:   pgorders.New(db),
		wallet:   wallet.New(db),
	}
}

// Purchase validates the full precondition ladder, then commits the
// order and the debit in a single transaction. Preconditions are
// checked in a fixed order and the first failure wins; nothing is
// written for a rejected purchase.
func (s *Service) Purchase(ctx context.Context, userID uuid.UUID, in Input) (Receipt, error) {
	prof, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			return Receipt{}, ErrProfileIncomplete
		}

		return Receipt{}, fmt.Errorf("fetch profile: %w", err)
	}
	if !prof.IsProfileComplete || prof.IsDeleted {
		return Receipt{}, ErrProfileIncomplete
	}

	if (in.DealID == nil) == (in.MenuItemID == nil) {
		return Receipt{}, ErrInvalidRequest
	}

	var (
		item      catalog.Item
		entryType string
	)

	if in.DealID != nil {
		item, err = s.catalog.GetDeal(ctx, *in.DealID)
		entryType = ledger.TypePurchaseDeal
	} else {
		item, err = s.catalog.GetMenuItem(ctx, *in.MenuItemID)
		entryType = ledger.TypePurchaseMenu
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("fetch item: %w", err)
	}
	if !item.IsActive {
		return Receipt{}, catalog.ErrItemNotFound
	}

	if item.PriceCoins <= 0 {
		return Receipt{}, ErrInvalidPrice
	}

	rest, err := s.catalog.GetRestaurant(ctx, item.RestaurantID)
	if err != nil {
		return Receipt{}, fmt.Errorf("fetch restaurant: %w", err)
	}
	if rest.IsDeleted {
		return Receipt{}, catalog.ErrRestaurantNotFound
	}
	if rest.IsRestricted {
		return Receipt{}, ErrRestaurantRestricted
	}

	orderID := uuid.New()

	var applied wallet.Applied

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.orders.Insert(tx, orders.Order{
			ID:           orderID,
			UserID:       userID,
			RestaurantID: item.RestaurantID,
			DealID:       in.DealID,
			MenuItemID:   in.MenuItemID,
			CoinsPaid:    item.PriceCoins,
			Phone:        prof.Phone,
			Whatsapp:     prof.Whatsapp,
			Address:      prof.Address,
			City:         prof.City,
			Status:       orders.StatusPending,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		refType := ledger.RefOrder
		refID := orderID

		applied, err = s.wallet.ApplyDeltaTx(tx, wallet.Delta{
			UserID:        userID,
			Amount:        -item.PriceCoins,
			EntryType:     entryType,
			ReferenceType: &refType,
			ReferenceID:   &refID,
			ActorID:       userID,
		})
		if err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}

		return nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("purchase: %w", err)
	}

	return Receipt{
		OrderID:       orderID,
		CoinsPaid:     item.PriceCoins,
		BalanceBefore: applied.BalanceBefore,
		BalanceAfter:  applied.BalanceAfter,
	}, nil
}
