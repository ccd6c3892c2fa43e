package types

// Distribution is an installed package as reported by a distribution
// source. Requires holds raw Requires-Dist strings.
type Distribution struct {
	Name     string   `yaml:"name" json:"name"`
	Version  string   `yaml:"version" json:"version"`
	Requires []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	Location string   `yaml:"location,omitempty" json:"location,omitempty"`
	Editable bool     `yaml:"editable,omitempty" json:"editable,omitempty"`
	Local    bool     `yaml:"local,omitempty" json:"local,omitempty"`
}

type DistributionSnapshot struct {
	Distributions []Distribution `yaml:"distributions" json:"distributions"`
}

// ListOptions filters installed distributions.
type ListOptions struct {
	LocalOnly bool
	Skip      []string
}

type PackageDetails struct {
	Version  string
	Requires []Requirement
}

// PackageSet maps canonical project names to their installed details.
type PackageSet map[string]PackageDetails

type MissingRequirement struct {
	Name        string
	Requirement Requirement
}

type ConflictingRequirement struct {
	Name        string
	Version     string
	Requirement Requirement
}

type CheckResult struct {
	Missing         map[string][]MissingRequirement
	Conflicting     map[string][]ConflictingRequirement
	ParsingProblems bool
}

// Broken reports whether any requirement is missing or conflicting.
func (r CheckResult) Broken() bool {
	return len(r.Missing) > 0 || len(r.Conflicting) > 0
}
