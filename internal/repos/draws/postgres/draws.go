package draws

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mightybites/coins-engine/internal/repos/draws"
)

var _ draws.Draws = (*drawsRepo)(nil)

type drawsRepo struct{ db *sql.DB }

func New(db *sql.DB) *drawsRepo {
	return &drawsRepo{db: db}
}

const drawColumns = `id, city, status, entry_fee, free_enabled, free_slots, reg_starts_at, reg_ends_at, winner_user_id, winner_code`

func (r *drawsRepo) Get(ctx context.Context, id uuid.UUID) (draws.Draw, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+drawColumns+`
		FROM draws
		WHERE id = $1
	`, id)

	return scanDraw(row.Scan)
}

func (r *drawsRepo) LockAndGet(tx *sql.Tx, id uuid.UUID) (draws.Draw, error) {
	row := tx.QueryRow(`
		SELECT `+drawColumns+`
		FROM draws
		WHERE id = $1
		FOR UPDATE
	`, id)

	return scanDraw(row.Scan)
}

func scanDraw(scan func(dest ...any) error) (draws.Draw, error) {
	var d draws.Draw

	err := scan(&d.ID, &d.City, &d.Status, &d.EntryFee, &d.FreeEnabled, &d.FreeSlots,
		&d.RegStartsAt, &d.RegEndsAt, &d.WinnerUserID, &d.WinnerCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return draws.Draw{}, draws.ErrDrawNotFound
		}

		return draws.Draw{}, fmt.Errorf("scan draw: %w", err)
	}

	return d, nil
}

func (r *drawsRepo) CountFreeEntries(tx *sql.Tx, drawID uuid.UUID) (int, error) {
	var n int

	err := tx.QueryRow(`
		SELECT COUNT(*)
		FROM draw_entries
		WHERE draw_id = $1
		  AND entry_type = 'free'
	`, drawID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count free entries: %w", err)
	}

	return n, nil
}

func (r *drawsRepo) InsertEntry(tx *sql.Tx, e draws.Entry) error {
	_, err := tx.Exec(`
		INSERT INTO draw_entries (id, draw_id, user_id, entry_type)
		VALUES ($1, $2, $3, $4)
	`, e.ID, e.DrawID, e.UserID, e.EntryType)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation: one free entry per user per draw
				return draws.ErrAlreadyJoinedFree
			}
		}

		return fmt.Errorf("insert draw entry: %w", err)
	}

	return nil
}

func (r *drawsRepo) ListEntries(tx *sql.Tx, drawID uuid.UUID) ([]draws.Entry, error) {
	rows, err := tx.Query(`
		SELECT id, draw_id, user_id, entry_type, created_at
		FROM draw_entries
		WHERE draw_id = $1
		ORDER BY created_at, id
	`, drawID)
	if err != nil {
		return nil, fmt.Errorf("list draw entries: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var entries []draws.Entry
	for rows.Next() {
		var e draws.Entry

		err := rows.Scan(&e.ID, &e.DrawID, &e.UserID, &e.EntryType, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan draw entry: %w", err)
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draw entries: %w", err)
	}

	return entries, nil
}

func (r *drawsRepo) SetWinner(tx *sql.Tx, drawID, winnerUserID uuid.UUID, winnerCode string) error {
	res, err := tx.Exec(`
		UPDATE draws
		SET winner_user_id = $2, winner_code = $3, status = $4
		WHERE id = $1
		  AND status = $5
	`, drawID, winnerUserID, winnerCode, draws.StatusPublished, draws.StatusOpen)
	if err != nil {
		return fmt.Errorf("set winner: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return draws.ErrDrawNotOpen
	}

	return nil
}
