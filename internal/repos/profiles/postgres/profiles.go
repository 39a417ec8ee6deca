package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/repos/profiles"
)

var _ profiles.Profiles = (*profilesRepo)(nil)

type profilesRepo struct{ db *sql.DB }

func New(db *sql.DB) *profilesRepo {
	return &profilesRepo{db: db}
}

const profileColumns = `id, unique_code, role, phone, whatsapp, address, city, is_profile_complete, is_deleted`

func (r *profilesRepo) Get(ctx context.Context, userID uuid.UUID) (profiles.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id = $1
	`, userID)

	return scanProfile(row)
}

func (r *profilesRepo) GetByUniqueCode(ctx context.Context, code string) (profiles.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE unique_code = $1
	`, code)

	return scanProfile(row)
}

func scanProfile(row *sql.Row) (profiles.Profile, error) {
	var p profiles.Profile

	err := row.Scan(&p.UserID, &p.UniqueCode, &p.Role, &p.Phone, &p.Whatsapp,
		&p.Address, &p.City, &p.IsProfileComplete, &p.IsDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profiles.Profile{}, profiles.ErrProfileNotFound
		}

		return profiles.Profile{}, fmt.Errorf("scan profile: %w", err)
	}

	return p, nil
}
