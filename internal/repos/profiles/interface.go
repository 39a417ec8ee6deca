package profiles

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrProfileNotFound = errors.New("profile not found")

const RoleAdmin = "admin"

// Profile is the identity-owned account record, read-only to this core.
// UniqueCode is the public lookup handle ("#1022" style) used by admin
// top-ups and forced winner overrides.
type Profile struct {
	UserID            uuid.UUID
	UniqueCode        string
	Role              string
	Phone             *string
	Whatsapp          *string
	Address           *string
	City              *string
	IsProfileComplete bool
	IsDeleted         bool
}

type Profiles interface {
	Get(ctx context.Context, userID uuid.UUID) (Profile, error)
	GetByUniqueCode(ctx context.Context, code string) (Profile, error)
}
