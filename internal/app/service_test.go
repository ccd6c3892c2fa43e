package app

import (
	"context"
	"errors"
	"sync"

	"pipkit/internal/types"
)

type fakeDistributions struct {
	dists []types.Distribution
	err   error
}

func (f fakeDistributions) Distributions(context.Context, types.ListOptions) ([]types.Distribution, error) {
	return f.dists, f.err
}

type fakeSearchIndex struct {
	mu      sync.Mutex
	hits    map[string][]types.SearchHit
	queries map[string][]string
}

func (f *fakeSearchIndex) Search(_ context.Context, indexURL string, terms []string) ([]types.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queries == nil {
		f.queries = map[string][]string{}
	}
	f.queries[indexURL] = terms
	hits, ok := f.hits[indexURL]
	if !ok {
		return nil, errors.New("index unavailable: " + indexURL)
	}
	return hits, nil
}

type fakeGitRepository struct {
	localRefs  []types.GitRef
	remoteRefs []types.GitRef
	head       string
	origin     string
	root       string
}

func (f fakeGitRepository) LocalRefs(context.Context, string) ([]types.GitRef, error) {
	return f.localRefs, nil
}

func (f fakeGitRepository) RemoteRefs(context.Context, string) ([]types.GitRef, error) {
	return f.remoteRefs, nil
}

func (f fakeGitRepository) Revision(context.Context, string, string) (string, error) {
	return f.head, nil
}

func (f fakeGitRepository) OriginURL(context.Context, string) (string, error) {
	return f.origin, nil
}

func (f fakeGitRepository) RootDir(context.Context, string) (string, error) {
	return f.root, nil
}

func (f fakeGitRepository) FetchRef(context.Context, string, string, string) (string, error) {
	return f.head, nil
}
