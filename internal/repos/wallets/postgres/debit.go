package wallets

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/repos/wallets"
)

// Debit decrements the balance only when enough coins remain. The
// conditional update is what keeps concurrent debits from driving the
// balance negative, on top of the row lock taken by the caller.
func (r *walletsRepo) Debit(tx *sql.Tx, userID uuid.UUID, amount int64) error {
	res, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1
		  AND balance >= $2
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return wallets.ErrInsufficientBalance
	}

	return nil
}
