// Package topup executes administrative coin credits against an
// account resolved by its public lookup code. The admin role gate runs
// in the API middleware before this service is reached.
package topup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/repos/ledger"
	"github.com/mightybites/coins-engine/internal/repos/profiles"
	pgprofiles "github.com/mightybites/coins-engine/internal/repos/profiles/postgres"
	"github.com/mightybites/coins-engine/internal/services/wallet"
)

var (
	ErrInvalidCode   = errors.New("invalid lookup code")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid top-up type")
	ErrUserNotFound  = errors.New("user not found")
)

type Credited struct {
	TargetUserID  uuid.UUID `json:"target_user_id"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
}

type Service struct {
	profiles profiles.Profiles
	wallet   *wallet.Service
}

func New(db *sql.DB) *Service {
	return &Service{
		profiles: pgprofiles.New(db),
		wallet:   wallet.New(db),
	}
}

// Topup credits amount to the account behind lookupCode. The ledger
// entry records callerID as the actor, distinct from the credited user.
func (s *Service) Topup(ctx context.Context, callerID uuid.UUID, lookupCode string, amount int64, kind string) (Credited, error) {
	code := strings.TrimSpace(lookupCode)
	if !strings.HasPrefix(code, "#") || len(code) < 2 {
		return Credited{}, ErrInvalidCode
	}

	if amount <= 0 {
		return Credited{}, ErrInvalidAmount
	}

	if kind != ledger.TypeTopup && kind != ledger.TypeAdminMint {
		return Credited{}, ErrInvalidType
	}

	target, err := s.profiles.GetByUniqueCode(ctx, code)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			return Credited{}, ErrUserNotFound
		}

		return Credited{}, fmt.Errorf("resolve lookup code: %w", err)
	}
	if target.IsDeleted {
		return Credited{}, ErrUserNotFound
	}

	applied, err := s.wallet.ApplyDelta(ctx, wallet.Delta{
		UserID:    target.UserID,
		Amount:    amount,
		EntryType: kind,
		ActorID:   callerID,
	})
	if err != nil {
		return Credited{}, fmt.Errorf("credit wallet: %w", err)
	}

	slog.Info("admin top-up applied",
		"actor_id", callerID,
		"target_user_id", target.UserID,
		"amount", amount,
		"entry_type", kind,
	)

	return Credited{
		TargetUserID:  target.UserID,
		BalanceBefore: applied.BalanceBefore,
		BalanceAfter:  applied.BalanceAfter,
	}, nil
}
