package wallets

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

func (r *walletsRepo) Credit(tx *sql.Tx, userID uuid.UUID, amount int64) error {
	_, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance + $2, updated_at = now()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	return nil
}
