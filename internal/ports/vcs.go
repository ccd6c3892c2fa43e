package ports

import (
	"context"

	"pipkit/internal/types"
)

// GitRepositoryPort reads refs and revisions from git repositories.
type GitRepositoryPort interface {
	// LocalRefs lists the refs of the checkout at dir, like show-ref.
	LocalRefs(ctx context.Context, dir string) ([]types.GitRef, error)
	// RemoteRefs lists the refs advertised by the repository at url.
	RemoteRefs(ctx context.Context, url string) ([]types.GitRef, error)
	Revision(ctx context.Context, dir string, rev string) (string, error)
	OriginURL(ctx context.Context, dir string) (string, error)
	RootDir(ctx context.Context, dir string) (string, error)
	// FetchRef fetches ref from url into dir and returns the commit it
	// points to.
	FetchRef(ctx context.Context, dir string, url string, ref string) (string, error)
}

type CommandExecutorPort interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}
