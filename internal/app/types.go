package app

import (
	"pipkit/internal/core"
	"pipkit/internal/types"
)

type CheckRequest struct {
	// SitePaths overrides site-packages discovery through the interpreter.
	SitePaths []string
	Prefix    string
	// Snapshot reads distributions from a YAML snapshot instead.
	Snapshot  string
	LocalOnly bool
	Skip      []string
	Markers   map[string]string
	// Install simulates installing these "name==version" pins and only
	// reports conflicts they would cause.
	Install []string
}

type CheckResult struct {
	Lines           []string
	Broken          bool
	ParsingProblems bool
}

type SearchRequest struct {
	Query     []string
	IndexURLs []string
	// Installed annotates hits with locally installed versions.
	Installed bool
}

type SearchResult struct {
	Results   []types.SearchResult
	Installed map[string]string
}

type RequirementsRequest struct {
	Files          []string
	Constraints    []string
	IndexURL       string
	ExtraIndexURLs []string
	SkipRegex      string
	Isolated       bool
	RequireHashes  bool
}

type RequirementsResult struct {
	Requirements  []types.InstallRequirement
	Finder        core.Finder
	RequireHashes bool
}

type ConfigRequest struct {
	Isolated bool
	LoadOnly types.ConfigKind
	Key      string
	Value    string
}

type ConfigItem struct {
	Key   string
	Value string
}

type ConfigListResult struct {
	Items []ConfigItem
}

type ConfigGetResult struct {
	Value string
}

type ConfigEditResult struct {
	File string
}

type VCSInspectRequest struct {
	URL string
}

type VCSResolveRequest struct {
	URL string
	// Dest is an existing checkout; empty queries the remote.
	Dest string
}

type VCSResult struct {
	Info   types.VCSInfo
	Branch string
}

type VCSFreezeRequest struct {
	Location string
	Project  string
}

type VCSFreezeResult struct {
	Backend     string
	Requirement string
}
