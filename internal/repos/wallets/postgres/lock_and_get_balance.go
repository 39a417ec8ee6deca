package wallets

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

func (r *walletsRepo) LockAndGetBalance(tx *sql.Tx, userID uuid.UUID) (int64, error) {
	var balance int64

	err := tx.QueryRow(`
		SELECT balance
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("lock/get balance: %w", err)
	}

	return balance, nil
}
