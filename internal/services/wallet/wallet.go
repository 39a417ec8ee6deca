// Package wallet is the economic core's ledger engine. Every balance
// change goes through ApplyDelta: one ledger append plus one projection
// update, committed together or not at all. The wallet row lock plus
// the conditional debit serialize concurrent deltas per account without
// blocking unrelated accounts.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/infra/pgutils"
	"github.com/mightybites/coins-engine/internal/repos/ledger"
	pgledger "github.com/mightybites/coins-engine/internal/repos/ledger/postgres"
	"github.com/mightybites/coins-engine/internal/repos/wallets"
	pgwallets "github.com/mightybites/coins-engine/internal/repos/wallets/postgres"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Delta is one balance-affecting event. Positive Amount credits,
// negative debits. ActorID is who initiated it and may differ from
// UserID for administrative credits.
type Delta struct {
	UserID        uuid.UUID
	Amount        int64
	EntryType     string
	ReferenceType *string
	ReferenceID   *uuid.UUID
	ActorID       uuid.UUID
}

type Applied struct {
	EntryID       uuid.UUID
	BalanceBefore int64
	BalanceAfter  int64
}

type Service struct {
	db      *sql.DB
	wallets wallets.Wallets
	ledger  ledger.Ledger
}

func New(db *sql.DB) *Service {
	return &Service{
		db:      db,
		wallets: pgwallets.New(db),
		ledger:  pgledger.New(db),
	}
}

// ApplyDelta runs the full unit in its own transaction.
func (s *Service) ApplyDelta(ctx context.Context, d Delta) (Applied, error) {
	var applied Applied

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		applied, err = s.ApplyDeltaTx(tx, d)
		return err
	})
	if err != nil {
		return Applied{}, fmt.Errorf("apply delta: %w", err)
	}

	return applied, nil
}

// ApplyDeltaTx applies the delta inside a caller-owned transaction, so
// purchases and paid draw entries can commit their artifact and the
// debit as one unit.
//
// 1) Ensure the wallet row exists (lazy creation).
// 2) Lock the wallet row (FOR UPDATE).
// 3) Credit, or debit conditionally (balance >= amount).
// 4) Append exactly one ledger entry referencing the cause.
func (s *Service) ApplyDeltaTx(tx *sql.Tx, d Delta) (Applied, error) {
	if d.Amount == 0 {
		return Applied{}, ErrInvalidAmount
	}

	err := s.wallets.Ensure(tx, d.UserID)
	if err != nil {
		return Applied{}, fmt.Errorf("ensure wallet: %w", err)
	}

	before, err := s.wallets.LockAndGetBalance(tx, d.UserID)
	if err != nil {
		return Applied{}, fmt.Errorf("lock and get balance: %w", err)
	}

	if d.Amount > 0 {
		err = s.wallets.Credit(tx, d.UserID, d.Amount)
		if err != nil {
			return Applied{}, fmt.Errorf("credit: %w", err)
		}
	} else {
		debit := -d.Amount

		// pre-check against the locked balance
		if before < debit {
			return Applied{}, fmt.Errorf("pre-check debit: %w", wallets.ErrInsufficientBalance)
		}

		err = s.wallets.Debit(tx, d.UserID, debit)
		if err != nil {
			return Applied{}, fmt.Errorf("debit: %w", err)
		}
	}

	entryID := uuid.New()

	err = s.ledger.Append(tx, ledger.Entry{
		ID:            entryID,
		UserID:        d.UserID,
		EntryType:     d.EntryType,
		Amount:        d.Amount,
		ReferenceType: d.ReferenceType,
		ReferenceID:   d.ReferenceID,
		CreatedBy:     d.ActorID,
	})
	if err != nil {
		return Applied{}, fmt.Errorf("append ledger: %w", err)
	}

	return Applied{
		EntryID:       entryID,
		BalanceBefore: before,
		BalanceAfter:  before + d.Amount,
	}, nil
}

// GetBalance returns the current balance. Accounts that never had a
// mutation read as zero.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, err := s.wallets.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, wallets.ErrWalletNotFound) {
			return 0, nil
		}

		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// ListLedger returns one page of the user's ledger history, newest
// first, plus the total entry count.
func (s *Service) ListLedger(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]ledger.Entry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	entries, total, err := s.ledger.ListForUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger: %w", err)
	}

	return entries, total, nil
}

// SumLedger recomputes the balance from the ledger. The projection must
// always equal this sum.
func (s *Service) SumLedger(ctx context.Context, userID uuid.UUID) (int64, error) {
	sum, err := s.ledger.SumForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}

	return sum, nil
}
