package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"pipkit/internal/shared"
	"pipkit/internal/types"
)

// CreatePackageSet indexes distributions by canonical name. Distributions
// whose requirements cannot be parsed are left out and reported through
// the returned flag.
func CreatePackageSet(ctx context.Context, dists []types.Distribution) (types.PackageSet, bool) {
	set := types.PackageSet{}
	problems := false
	for _, dist := range dists {
		name := shared.NormalizePipName(dist.Name)
		requires := make([]types.Requirement, 0, len(dist.Requires))
		var parseErr error
		for _, raw := range dist.Requires {
			req, err := ParseRequirement(raw)
			if err != nil {
				parseErr = err
				break
			}
			requires = append(requires, req)
		}
		if parseErr != nil {
			log.Ctx(ctx).Warn().Err(parseErr).Msgf("Error parsing requirements for %s", name)
			problems = true
			continue
		}
		set[name] = types.PackageDetails{Version: dist.Version, Requires: requires}
	}
	return set, problems
}

// CheckPackageSet reports requirements that are not installed or whose
// installed version does not satisfy the specifier. Requirements whose
// marker is false for env are ignored.
func CheckPackageSet(ctx context.Context, set types.PackageSet, shouldIgnore func(string) bool, env MarkerEnvironment) types.CheckResult {
	result := types.CheckResult{
		Missing:     map[string][]types.MissingRequirement{},
		Conflicting: map[string][]types.ConflictingRequirement{},
	}
	for _, pkg := range sortedPackageNames(set) {
		if shouldIgnore != nil && shouldIgnore(pkg) {
			continue
		}
		var (
			missing     []types.MissingRequirement
			conflicting []types.ConflictingRequirement
		)
		for _, req := range set[pkg].Requires {
			if !requirementApplies(ctx, req, env) {
				continue
			}
			name := shared.NormalizePipName(req.Name)
			installed, ok := set[name]
			if !ok {
				missing = append(missing, types.MissingRequirement{Name: name, Requirement: req})
				continue
			}
			contains, err := SpecifierContains(req.Specifier, installed.Version)
			if err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("package", pkg).Msg("treating unparseable version as conflicting")
			}
			if !contains {
				conflicting = append(conflicting, types.ConflictingRequirement{
					Name:        name,
					Version:     installed.Version,
					Requirement: req,
				})
			}
		}
		if len(missing) > 0 {
			sort.SliceStable(missing, func(i, j int) bool {
				if missing[i].Name != missing[j].Name {
					return missing[i].Name < missing[j].Name
				}
				return missing[i].Requirement.String() < missing[j].Requirement.String()
			})
			result.Missing[pkg] = missing
		}
		if len(conflicting) > 0 {
			sort.SliceStable(conflicting, func(i, j int) bool {
				if conflicting[i].Name != conflicting[j].Name {
					return conflicting[i].Name < conflicting[j].Name
				}
				return conflicting[i].Requirement.String() < conflicting[j].Requirement.String()
			})
			result.Conflicting[pkg] = conflicting
		}
	}
	return result
}

func requirementApplies(ctx context.Context, req types.Requirement, env MarkerEnvironment) bool {
	if req.Marker == "" {
		return true
	}
	ok, err := EvaluateMarker(req.Marker, env)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("marker", req.Marker).Msg("marker evaluation failed")
		return true
	}
	return ok
}

// CheckInstallConflicts checks the installed set as if toInstall had been
// installed on top of it. Only packages being installed and packages that
// depend on them are checked.
func CheckInstallConflicts(ctx context.Context, installed []types.Distribution, toInstall []types.Distribution, env MarkerEnvironment) (types.PackageSet, types.CheckResult) {
	set, _ := CreatePackageSet(ctx, installed)
	simulated, _ := CreatePackageSet(ctx, toInstall)
	wouldBeInstalled := map[string]struct{}{}
	for name, details := range simulated {
		set[name] = details
		wouldBeInstalled[name] = struct{}{}
	}
	whitelist := createWhitelist(wouldBeInstalled, set)
	result := CheckPackageSet(ctx, set, func(name string) bool {
		_, ok := whitelist[name]
		return !ok
	}, env)
	return set, result
}

func createWhitelist(wouldBeInstalled map[string]struct{}, set types.PackageSet) map[string]struct{} {
	affected := make(map[string]struct{}, len(wouldBeInstalled))
	for name := range wouldBeInstalled {
		affected[name] = struct{}{}
	}
	for _, pkg := range sortedPackageNames(set) {
		if _, ok := affected[pkg]; ok {
			continue
		}
		for _, req := range set[pkg].Requires {
			if _, ok := wouldBeInstalled[shared.NormalizePipName(req.Name)]; ok {
				affected[pkg] = struct{}{}
				break
			}
		}
	}
	return affected
}

// FormatCheckResult renders one line per broken requirement, or the
// all-clear message when nothing is broken.
func FormatCheckResult(set types.PackageSet, result types.CheckResult) []string {
	var lines []string
	for _, pkg := range sortedKeys(result.Missing) {
		version := set[pkg].Version
		for _, dep := range result.Missing[pkg] {
			lines = append(lines, fmt.Sprintf("%s %s requires %s, which is not installed.", pkg, version, dep.Name))
		}
	}
	for _, pkg := range sortedKeys(result.Conflicting) {
		version := set[pkg].Version
		for _, dep := range result.Conflicting[pkg] {
			lines = append(lines, fmt.Sprintf("%s %s has requirement %s, but you have %s %s.",
				pkg, version, dep.Requirement.String(), dep.Name, dep.Version))
		}
	}
	if len(lines) == 0 && !result.ParsingProblems {
		lines = append(lines, "No broken requirements found.")
	}
	return lines
}

func sortedPackageNames(set types.PackageSet) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
