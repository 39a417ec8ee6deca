// Package draw runs timed promotional draws: registration of free and
// paid entries while the window is open, and the one-shot winner
// selection that publishes the draw.
package draw

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/infra/pgutils"
	"github.com/mightybites/coins-engine/internal/repos/devices"
	pgdevices "github.com/mightybites/coins-engine/internal/repos/devices/postgres"
	"github.com/mightybites/coins-engine/internal/repos/draws"
	pgdraws "github.com/mightybites/coins-engine/internal/repos/draws/postgres"
	"github.com/mightybites/coins-engine/internal/repos/ledger"
	"github.com/mightybites/coins-engine/internal/repos/profiles"
	pgprofiles "github.com/mightybites/coins-engine/internal/repos/profiles/postgres"
	"github.com/mightybites/coins-engine/internal/services/wallet"
)

var (
	ErrRegNotStarted            = errors.New("registration not started")
	ErrRegClosed                = errors.New("registration closed")
	ErrFreeNotAvailable         = errors.New("free entry not available")
	ErrFreeSlotsFull            = errors.New("free slots full")
	ErrPaidNotAvailable         = errors.New("paid entry not available")
	ErrNoParticipants           = errors.New("no participants")
	ErrForcedUserNotFound       = errors.New("forced user not found")
	ErrForcedUserNotParticipant = errors.New("forced user not a participant")
)

// Notifier is the push gateway collaborator. Dispatch is post-commit
// and fire-and-forget; its result never affects the draw outcome.
type Notifier interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (sent, failed int, err error)
}

type FreeEntry struct {
	EntryID uuid.UUID `json:"entry_id"`
}

type PaidEntry struct {
	EntryID       uuid.UUID `json:"entry_id"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
}

type Winner struct {
	UserID uuid.UUID `json:"winner_user_id"`
	Code   string    `json:"winner_code"`
}

type Service struct {
	db       *sql.DB
	draws    draws.Draws
	profiles profiles.Profiles
	devices  devices.Devices
	wallet   *wallet.Service
	notifier Notifier
}

// New builds the draw service. notifier may be nil, which disables
// winner push fan-out.
func New(db *sql.DB, notifier Notifier) *Service {
	return &Service{
		db:       db,
		draws:    pgdraws.New(db),
		profiles: pgprofiles.New(db),
		devices:  pgdevices.New(db),
		wallet:   wallet.New(db),
		notifier: notifier,
	}
}

// registrationOpen validates the draw state and window for a new entry.
func registrationOpen(d draws.Draw, now time.Time) error {
	if d.Status != draws.StatusOpen {
		return draws.ErrDrawNotOpen
	}
	if now.Before(d.RegStartsAt) {
		return ErrRegNotStarted
	}
	if now.After(d.RegEndsAt) {
		return ErrRegClosed
	}

	return nil
}

// RegisterFree adds a free entry. At most one free entry per user per
// draw; the partial unique index backs the check even under concurrent
// registration.
func (s *Service) RegisterFree(ctx context.Context, userID, drawID uuid.UUID) (FreeEntry, error) {
	entryID := uuid.New()

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		d, err := s.draws.LockAndGet(tx, drawID)
		if err != nil {
			return fmt.Errorf("lock draw: %w", err)
		}

		err = registrationOpen(d, time.Now())
		if err != nil {
			return err
		}

		if !d.FreeEnabled {
			return ErrFreeNotAvailable
		}

		n, err := s.draws.CountFreeEntries(tx, drawID)
		if err != nil {
			return fmt.Errorf("count free entries: %w", err)
		}
		if n >= d.FreeSlots {
			return ErrFreeSlotsFull
		}

		err = s.draws.InsertEntry(tx, draws.Entry{
			ID:        entryID,
			DrawID:    drawID,
			UserID:    userID,
			EntryType: draws.EntryFree,
		})
		if err != nil {
			return fmt.Errorf("insert free entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return FreeEntry{}, fmt.Errorf("register free: %w", err)
	}

	return FreeEntry{EntryID: entryID}, nil
}

// RegisterPaid buys a draw slot: the entry row and the fee debit commit
// as one unit with the same no-partial-effect guarantee as a purchase.
func (s *Service) RegisterPaid(ctx context.Context, userID, drawID uuid.UUID) (PaidEntry, error) {
	entryID := uuid.New()

	var applied wallet.Applied

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		d, err := s.draws.LockAndGet(tx, drawID)
		if err != nil {
			return fmt.Errorf("lock draw: %w", err)
		}

		err = registrationOpen(d, time.Now())
		if err != nil {
			return err
		}

		if d.EntryFee <= 0 {
			return ErrPaidNotAvailable
		}

		err = s.draws.InsertEntry(tx, draws.Entry{
			ID:        entryID,
			DrawID:    drawID,
			UserID:    userID,
			EntryType: draws.EntryPaid,
		})
		if err != nil {
			return fmt.Errorf("insert paid entry: %w", err)
		}

		refType := ledger.RefDrawEntry
		refID := entryID

		applied, err = s.wallet.ApplyDeltaTx(tx, wallet.Delta{
			UserID:        userID,
			Amount:        -d.EntryFee,
			EntryType:     ledger.TypeDrawEntryPaid,
			ReferenceType: &refType,
			ReferenceID:   &refID,
			ActorID:       userID,
		})
		if err != nil {
			return fmt.Errorf("debit entry fee: %w", err)
		}

		return nil
	})
	if err != nil {
		return PaidEntry{}, fmt.Errorf("register paid: %w", err)
	}

	return PaidEntry{
		EntryID:       entryID,
		BalanceBefore: applied.BalanceBefore,
		BalanceAfter:  applied.BalanceAfter,
	}, nil
}

// PickWinner selects and persists the winner exactly once, publishing
// the draw in the same transaction. Selection is uniform over the entry
// rows (a user with several paid entries is weighted accordingly);
// forcedCode bypasses randomness for audited manual overrides.
func (s *Service) PickWinner(ctx context.Context, actorID, drawID uuid.UUID, forcedCode *string) (Winner, error) {
	var (
		winner Winner
		city   string
	)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		d, err := s.draws.LockAndGet(tx, drawID)
		if err != nil {
			return fmt.Errorf("lock draw: %w", err)
		}

		if d.Status != draws.StatusOpen {
			return draws.ErrDrawNotOpen
		}

		city = d.City

		entries, err := s.draws.ListEntries(tx, drawID)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		if len(entries) == 0 {
			return ErrNoParticipants
		}

		if forcedCode != nil && strings.TrimSpace(*forcedCode) != "" {
			winner, err = s.resolveForced(ctx, strings.TrimSpace(*forcedCode), entries)
			if err != nil {
				return err
			}

			slog.Warn("draw winner forced by operator",
				"actor_id", actorID,
				"draw_id", drawID,
				"winner_user_id", winner.UserID,
			)
		} else {
			winner, err = s.drawRandom(ctx, entries)
			if err != nil {
				return err
			}
		}

		err = s.draws.SetWinner(tx, drawID, winner.UserID, winner.Code)
		if err != nil {
			return fmt.Errorf("set winner: %w", err)
		}

		return nil
	})
	if err != nil {
		return Winner{}, fmt.Errorf("pick winner: %w", err)
	}

	slog.Info("draw winner published",
		"actor_id", actorID,
		"draw_id", drawID,
		"winner_user_id", winner.UserID,
	)

	s.notifyWinner(drawID, city, winner)

	return winner, nil
}

func (s *Service) resolveForced(ctx context.Context, code string, entries []draws.Entry) (Winner, error) {
	prof, err := s.profiles.GetByUniqueCode(ctx, code)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			return Winner{}, ErrForcedUserNotFound
		}

		return Winner{}, fmt.Errorf("resolve forced code: %w", err)
	}

	for _, e := range entries {
		if e.UserID == prof.UserID {
			return Winner{UserID: prof.UserID, Code: prof.UniqueCode}, nil
		}
	}

	return Winner{}, ErrForcedUserNotParticipant
}

// drawRandom picks a uniform index over the ordered entry rows using
// crypto/rand.
func (s *Service) drawRandom(ctx context.Context, entries []draws.Entry) (Winner, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(entries))))
	if err != nil {
		return Winner{}, fmt.Errorf("random index: %w", err)
	}

	winnerID := entries[idx.Int64()].UserID

	prof, err := s.profiles.Get(ctx, winnerID)
	if err != nil {
		return Winner{}, fmt.Errorf("fetch winner profile: %w", err)
	}

	return Winner{UserID: winnerID, Code: prof.UniqueCode}, nil
}

// notifyWinner fans the announcement out to the draw's city in the
// background. Failures are logged and dropped; the winner is already
// committed.
func (s *Service) notifyWinner(drawID uuid.UUID, city string, w Winner) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tokens, err := s.devices.TokensForCity(ctx, city)
		if err != nil {
			slog.Error("winner notification: fetch tokens", "draw_id", drawID, "error", err)
			return
		}

		sent, failed, err := s.notifier.SendToTokens(ctx, tokens,
			"We have a winner!",
			fmt.Sprintf("The draw winner is %s. Check the app for details.", w.Code),
			map[string]string{"draw_id": drawID.String(), "winner_code": w.Code},
		)
		if err != nil {
			slog.Error("winner notification: dispatch", "draw_id", drawID, "error", err)
			return
		}

		slog.Info("winner notification dispatched", "draw_id", drawID, "sent", sent, "failed", failed)
	}()
}
