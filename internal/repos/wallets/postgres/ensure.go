package wallets

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Ensure lazily creates the wallet row on first mutation for a user.
func (r *walletsRepo) Ensure(tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(`
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}

	return nil
}
