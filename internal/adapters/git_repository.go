package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/rs/zerolog/log"

	"pipkit/internal/ports"
	"pipkit/internal/types"
)

// GitRepositoryAdapter reads git checkouts and remotes with go-git, so no
// git binary is needed for revision lookups.
type GitRepositoryAdapter struct{}

func NewGitRepositoryAdapter() GitRepositoryAdapter {
	return GitRepositoryAdapter{}
}

func (a GitRepositoryAdapter) LocalRefs(ctx context.Context, dir string) ([]types.GitRef, error) {
	repo, err := openRepository(dir)
	if err != nil {
		return nil, err
	}
	iter, err := repo.References()
	if err != nil {
		return nil, gitError("failed to list references", err)
	}
	var refs []types.GitRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ref.Type() != plumbing.HashReference || ref.Name() == plumbing.HEAD {
			return nil
		}
		refs = append(refs, types.GitRef{Name: ref.Name().String(), SHA: ref.Hash().String()})
		return nil
	})
	if err != nil {
		return nil, gitError("failed to list references", err)
	}
	return refs, nil
}

func (a GitRepositoryAdapter) RemoteRefs(ctx context.Context, url string) ([]types.GitRef, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})
	listed, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return nil, gitError(fmt.Sprintf("failed to list refs of %s", url), err)
	}
	refs := make([]types.GitRef, 0, len(listed))
	for _, ref := range listed {
		if ref.Type() != plumbing.HashReference || ref.Name() == plumbing.HEAD {
			continue
		}
		refs = append(refs, types.GitRef{Name: ref.Name().String(), SHA: ref.Hash().String()})
	}
	log.Ctx(ctx).Debug().Str("url", url).Int("refs", len(refs)).Msg("listed remote refs")
	return refs, nil
}

func (a GitRepositoryAdapter) Revision(_ context.Context, dir string, rev string) (string, error) {
	repo, err := openRepository(dir)
	if err != nil {
		return "", err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown revision %s", rev)).
			WithCause(err)
	}
	return hash.String(), nil
}

// OriginURL prefers the origin remote and falls back to the first
// configured remote.
func (a GitRepositoryAdapter) OriginURL(_ context.Context, dir string) (string, error) {
	repo, err := openRepository(dir)
	if err != nil {
		return "", err
	}
	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil && len(remote.Config().URLs) > 0 {
		return remote.Config().URLs[0], nil
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return "", gitError("failed to list remotes", err)
	}
	for _, remote := range remotes {
		if urls := remote.Config().URLs; len(urls) > 0 {
			return urls[0], nil
		}
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("remote url not found for %s", dir))
}

func (a GitRepositoryAdapter) RootDir(_ context.Context, dir string) (string, error) {
	repo, err := openRepository(dir)
	if err != nil {
		return "", err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", gitError("repository has no worktree", err)
	}
	return worktree.Filesystem.Root(), nil
}

// FetchRef fetches ref into the checkout at dir. Without a checkout the
// ref is looked up on the remote instead.
func (a GitRepositoryAdapter) FetchRef(ctx context.Context, dir string, url string, ref string) (string, error) {
	if dir == "" {
		refs, err := a.RemoteRefs(ctx, url)
		if err != nil {
			return "", err
		}
		for _, candidate := range refs {
			if candidate.Name == ref {
				return candidate.SHA, nil
			}
		}
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("ref %s not found at %s", ref, url))
	}
	repo, err := openRepository(dir)
	if err != nil {
		return "", err
	}
	remote := git.NewRemote(repo.Storer, &config.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})
	err = remote.FetchContext(ctx, &git.FetchOptions{
		RefSpecs: []config.RefSpec{config.RefSpec(fmt.Sprintf("+%s:%s", ref, ref))},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", gitError(fmt.Sprintf("failed to fetch %s from %s", ref, url), err)
	}
	fetched, err := repo.Reference(plumbing.ReferenceName(ref), true)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("ref %s not found after fetch", ref)).
			WithCause(err)
	}
	return fetched.Hash().String(), nil
}

func openRepository(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("not a git repository: %s", dir)).
			WithCause(err)
	}
	return repo, nil
}

func gitError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.GitRepositoryPort = GitRepositoryAdapter{}
