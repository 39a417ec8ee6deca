package devices

import "context"

// Devices resolves push targets. Tokens are registered by the mobile
// shell; this core only fans out to them.
type Devices interface {
	TokensForCity(ctx context.Context, city string) ([]string, error)
}
