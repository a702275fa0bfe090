package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency removes a claim so the work can be attempted again
	ReleaseIdempotency(ctx context.Context, key string) error

	// GetBanks returns the cached bank list, false on a cache miss
	GetBanks(ctx context.Context) ([]domain.Bank, bool, error)

	SetBanks(ctx context.Context, banks []domain.Bank) error
}
