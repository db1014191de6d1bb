package cache

import (
	"context"
	"time"

	"hulugan/backend/internal/domain"
)

// DuesCache holds the per-branch dues board snapshot. The board is
// recomputed from every installment in a branch, so a short cache keeps the
// morning rush of collectors from hammering the store.
type DuesCache interface {
	Get(ctx context.Context, key string) (*domain.DuesResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.DuesResponse, ttl time.Duration) error
}

type NoopDuesCache struct{}

func (NoopDuesCache) Get(_ context.Context, _ string) (*domain.DuesResponse, bool, error) {
	return nil, false, nil
}

func (NoopDuesCache) Set(_ context.Context, _ string, _ *domain.DuesResponse, _ time.Duration) error {
	return nil
}
