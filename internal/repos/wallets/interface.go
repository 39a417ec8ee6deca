package wallets

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var ErrInsufficientBalance = errors.New("insufficient balance")
var ErrWalletNotFound = errors.New("wallet not found")

// Wallets maintains the per-user balance projection. All mutating
// methods operate inside a caller-owned transaction; the projection is
// only ever changed together with a ledger append.
type Wallets interface {
	Ensure(tx *sql.Tx, userID uuid.UUID) error
	LockAndGetBalance(tx *sql.Tx, userID uuid.UUID) (int64, error)
	Credit(tx *sql.Tx, userID uuid.UUID, amount int64) error
	Debit(tx *sql.Tx, userID uuid.UUID, amount int64) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
}
