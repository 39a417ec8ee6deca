package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/repos/ledger"
)

var _ ledger.Ledger = (*ledgerRepo)(nil)

type ledgerRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Append(tx *sql.Tx, e ledger.Entry) error {
	_, err := tx.Exec(`
		INSERT INTO wallet_ledger (id, user_id, entry_type, amount, reference_type, reference_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.UserID, e.EntryType, e.Amount, e.ReferenceType, e.ReferenceID, e.CreatedBy)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	return nil
}

func (r *ledgerRepo) SumForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_ledger
		WHERE user_id = $1
	`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}

	return sum, nil
}

func (r *ledgerRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]ledger.Entry, int64, error) {
	var total int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM wallet_ledger
		WHERE user_id = $1
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ledger: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, entry_type, amount, reference_type, reference_id, created_by, created_at
		FROM wallet_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry

		err := rows.Scan(&e.ID, &e.UserID, &e.EntryType, &e.Amount, &e.ReferenceType, &e.ReferenceID, &e.CreatedBy, &e.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger: %w", err)
	}

	return entries, total, nil
}
