package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/adapters"
	"pipkit/internal/core"
	"pipkit/internal/ports"
	"pipkit/internal/types"
)

// Check verifies that installed distributions have compatible
// dependencies.
func (s Service) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	dists, err := s.distributionSource(req).Distributions(ctx, types.ListOptions{
		LocalOnly: req.LocalOnly,
		Skip:      req.Skip,
	})
	if err != nil {
		return CheckResult{}, err
	}
	env := core.DefaultMarkerEnvironment().With(req.Markers)
	set, problems := core.CreatePackageSet(ctx, dists)
	result := core.CheckPackageSet(ctx, set, nil, env)
	if len(req.Install) > 0 {
		toInstall, err := pinnedDistributions(req.Install)
		if err != nil {
			return CheckResult{}, err
		}
		set, result = core.CheckInstallConflicts(ctx, dists, toInstall, env)
	}
	result.ParsingProblems = result.ParsingProblems || problems
	log.Ctx(ctx).Debug().
		Int("distributions", len(dists)).
		Int("missing", len(result.Missing)).
		Int("conflicting", len(result.Conflicting)).
		Msg("checked installed distributions")
	return CheckResult{
		Lines:           core.FormatCheckResult(set, result),
		Broken:          result.Broken() || result.ParsingProblems,
		ParsingProblems: result.ParsingProblems,
	}, nil
}

// pinnedDistributions turns "name==version" pins into the distributions
// an install would add.
func pinnedDistributions(pins []string) ([]types.Distribution, error) {
	dists := make([]types.Distribution, 0, len(pins))
	for _, pin := range pins {
		req, err := core.ParseRequirement(pin)
		if err != nil {
			return nil, err
		}
		version, ok := strings.CutPrefix(req.Specifier, "==")
		if !ok || version == "" || strings.ContainsAny(version, ",*=") {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("install pins must name an exact version: %s", pin))
		}
		dists = append(dists, types.Distribution{Name: req.Name, Version: version})
	}
	return dists, nil
}

func (s Service) distributionSource(req CheckRequest) ports.DistributionSourcePort {
	switch {
	case req.Snapshot != "":
		return adapters.NewDistributionSnapshotAdapter(req.Snapshot)
	case len(req.SitePaths) > 0:
		return adapters.NewSitePackagesAdapter(req.SitePaths, req.Prefix, s.Exec)
	}
	return s.Distributions
}
