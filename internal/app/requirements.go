package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/core"
	"pipkit/internal/types"
)

// ParseRequirements reads requirements and constraints files. Index
// settings start from pip configuration and are then overridden by the
// request and by option lines inside the files.
func (s Service) ParseRequirements(ctx context.Context, req RequirementsRequest) (RequirementsResult, error) {
	if len(req.Files) == 0 && len(req.Constraints) == 0 {
		return RequirementsResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one requirements or constraints file is required")
	}
	items, err := s.loadConfigItems(ctx, req.Isolated)
	if err != nil {
		return RequirementsResult{}, err
	}
	emitHints(checkRequirementsConfigHints(req, items))

	indexURL := req.IndexURL
	if indexURL == "" {
		indexURL, _ = configValue(items, "index-url")
	}
	if indexURL == "" {
		indexURL = core.PyPI.SimpleURL
	}
	finder := core.NewFinder(indexURL)
	if extra, ok := configValue(items, "extra-index-url"); ok {
		finder.IndexURLs = append(finder.IndexURLs, strings.Fields(extra)...)
	}
	finder.IndexURLs = append(finder.IndexURLs, req.ExtraIndexURLs...)
	if links, ok := configValue(items, "find-links"); ok {
		finder.FindLinks = append(finder.FindLinks, strings.Fields(links)...)
	}

	opts := &core.ParseOptions{
		SkipRequirementsRegex: req.SkipRegex,
		IsolatedMode:          req.Isolated,
		RequireHashes:         req.RequireHashes,
		FormatControl:         finder.FormatControl,
		Getenv:                s.Getenv,
	}
	parser := &core.RequirementsParser{
		Source:       s.Requirements,
		Options:      opts,
		Finder:       finder,
		Deprecations: s.Deprecations,
	}

	var reqs []types.InstallRequirement
	for _, file := range req.Constraints {
		parsed, err := parser.ParseRequirements(ctx, file, true)
		if err != nil {
			return RequirementsResult{}, err
		}
		reqs = append(reqs, parsed...)
	}
	for _, file := range req.Files {
		parsed, err := parser.ParseRequirements(ctx, file, false)
		if err != nil {
			return RequirementsResult{}, err
		}
		reqs = append(reqs, parsed...)
	}
	log.Ctx(ctx).Debug().Int("requirements", len(reqs)).Strs("indexes", finder.IndexURLs).Msg("parsed requirements")
	return RequirementsResult{
		Requirements:  reqs,
		Finder:        *finder,
		RequireHashes: opts.RequireHashes,
	}, nil
}
