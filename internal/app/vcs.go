package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/types"
	"pipkit/internal/vcs"
)

// VCSInspect splits a VCS requirement URL into its repository URL,
// revision, credentials and fragment values.
func (s Service) VCSInspect(ctx context.Context, req VCSInspectRequest) (VCSResult, error) {
	backend, info, opts, err := s.inspectURL(ctx, req.URL)
	if err != nil {
		return VCSResult{}, err
	}
	info.RevArgs = opts.ToArgs()
	log.Ctx(ctx).Debug().Str("backend", backend.Name()).Str("url", info.URL).Msg("inspected vcs url")
	return VCSResult{Info: info}, nil
}

// VCSResolve maps the URL's revision to a commit id using the checkout
// at req.Dest, or the remote when no checkout is given.
func (s Service) VCSResolve(ctx context.Context, req VCSResolveRequest) (VCSResult, error) {
	backend, info, opts, err := s.inspectURL(ctx, req.URL)
	if err != nil {
		return VCSResult{}, err
	}
	resolved, err := backend.ResolveRevision(ctx, req.Dest, info.URL, opts)
	if err != nil {
		return VCSResult{}, err
	}
	info.Resolved = resolved.Rev
	info.RevArgs = resolved.ToArgs()
	return VCSResult{Info: info, Branch: resolved.BranchName}, nil
}

// VCSFreeze describes the checkout containing req.Location as a pinned
// requirement URL.
func (s Service) VCSFreeze(ctx context.Context, req VCSFreezeRequest) (VCSFreezeResult, error) {
	location, err := filepath.Abs(req.Location)
	if err != nil {
		return VCSFreezeResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid location").
			WithCause(err)
	}
	backend, ok := backendForDir(s.vcsRegistry(), location)
	if !ok {
		return VCSFreezeResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s is not inside a version controlled checkout", location))
	}
	freezer, ok := backend.(vcs.Freezer)
	if !ok {
		return VCSFreezeResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("freezing %s checkouts is not supported", backend.Name()))
	}
	project := req.Project
	if project == "" {
		project = filepath.Base(location)
	}
	requirement, err := freezer.SrcRequirement(ctx, location, project)
	if err != nil {
		return VCSFreezeResult{}, err
	}
	return VCSFreezeResult{Backend: backend.Name(), Requirement: requirement}, nil
}

func (s Service) inspectURL(ctx context.Context, rawURL string) (vcs.Backend, types.VCSInfo, vcs.RevOptions, error) {
	registry := s.vcsRegistry()
	backend, ok := registry.BackendForURL(rawURL)
	if !ok {
		if name, _, found := strings.Cut(rawURL, "+"); found {
			backend, ok = registry.Backend(name)
		}
	}
	if !ok {
		return nil, types.VCSInfo{}, vcs.RevOptions{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s is not a supported VCS url; use one of git+, hg+, bzr+ or svn+", rawURL))
	}
	assert.NotEmpty(ctx, backend.Name(), "vcs backend must have a name")
	repoURL, rev, auth, err := backend.URLRevAndAuth(rawURL)
	if err != nil {
		return nil, types.VCSInfo{}, vcs.RevOptions{}, err
	}
	opts := vcs.NewRevOptions(backend, rev, backend.MakeRevArgs(auth))
	link := types.Link{URL: rawURL}
	info := types.VCSInfo{
		Backend: backend.Name(),
		URL:     repoURL,
		Rev:     rev,
		Auth:    auth,
		Display: opts.ToDisplay(),
		EggName: link.EggFragment(),
		Subdir:  link.SubdirectoryFragment(),
	}
	return backend, info, opts, nil
}

// backendForDir walks up from dir to the first directory holding VCS
// metadata.
func backendForDir(registry *vcs.Registry, dir string) (vcs.Backend, bool) {
	for {
		if backend, ok := registry.BackendForLocation(dir); ok {
			return backend, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, false
		}
		dir = parent
	}
}
