package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pipkit/internal/core"
	"pipkit/internal/shared"
	"pipkit/internal/types"
)

// Search queries every index concurrently and merges the hits, keeping
// the order of the index list.
func (s Service) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if len(req.Query) == 0 {
		return SearchResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("Missing required argument (search query).")
	}
	indexURLs := shared.UniqueStrings(req.IndexURLs)
	if len(indexURLs) == 0 {
		indexURLs = []string{core.PyPI.PyPIURL}
	}

	hitsByIndex := make([][]types.SearchHit, len(indexURLs))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, indexURL := range indexURLs {
		group.Go(func() error {
			hits, err := s.SearchIndex.Search(groupCtx, strings.TrimSpace(indexURL), req.Query)
			if err != nil {
				return err
			}
			hitsByIndex[i] = hits
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return SearchResult{}, err
	}

	var hits []types.SearchHit
	for _, indexHits := range hitsByIndex {
		hits = append(hits, indexHits...)
	}
	result := SearchResult{Results: core.TransformHits(hits)}
	if req.Installed {
		result.Installed = s.installedVersions(ctx)
	}
	log.Ctx(ctx).Debug().Int("indexes", len(indexURLs)).Int("results", len(result.Results)).Msg("search finished")
	return result, nil
}

// installedVersions maps canonical names to installed versions. Lookup
// failures only lose the annotation.
func (s Service) installedVersions(ctx context.Context) map[string]string {
	if s.Distributions == nil {
		return nil
	}
	dists, err := s.Distributions.Distributions(ctx, types.ListOptions{})
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("could not list installed distributions")
		return nil
	}
	installed := make(map[string]string, len(dists))
	for _, dist := range dists {
		installed[shared.NormalizePipName(dist.Name)] = dist.Version
	}
	return installed
}
