package ports

import (
	"context"

	"pipkit/internal/types"
)

// DistributionSourcePort lists installed distributions.
type DistributionSourcePort interface {
	Distributions(ctx context.Context, opts types.ListOptions) ([]types.Distribution, error)
}
