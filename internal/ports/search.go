package ports

import (
	"context"

	"pipkit/internal/types"
)

// SearchIndexPort queries a package index for projects matching terms.
type SearchIndexPort interface {
	Search(ctx context.Context, indexURL string, terms []string) ([]types.SearchHit, error)
}
