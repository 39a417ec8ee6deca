package devices

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mightybites/coins-engine/internal/repos/devices"
)

var _ devices.Devices = (*devicesRepo)(nil)

type devicesRepo struct{ db *sql.DB }

func New(db *sql.DB) *devicesRepo {
	return &devicesRepo{db: db}
}

func (r *devicesRepo) TokensForCity(ctx context.Context, city string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dt.token
		FROM device_tokens dt
		JOIN profiles p ON p.id = dt.user_id
		WHERE p.city = $1
		  AND NOT p.is_deleted
	`, city)
	if err != nil {
		return nil, fmt.Errorf("tokens for city: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string

		err := rows.Scan(&t)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}

		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return tokens, nil
}
