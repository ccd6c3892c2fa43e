package types

import (
	"sort"
	"strings"
)

// Requirement is a parsed PEP 508 requirement. Specifier and Marker hold
// normalized renderings so two equivalent requirements compare equal.
type Requirement struct {
	Name      string   `yaml:"name" json:"name"`
	Extras    []string `yaml:"extras,omitempty" json:"extras,omitempty"`
	Specifier string   `yaml:"specifier,omitempty" json:"specifier,omitempty"`
	URL       string   `yaml:"url,omitempty" json:"url,omitempty"`
	Marker    string   `yaml:"marker,omitempty" json:"marker,omitempty"`
}

func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		extras := append([]string(nil), r.Extras...)
		sort.Strings(extras)
		b.WriteString("[" + strings.Join(extras, ",") + "]")
	}
	if r.URL != "" {
		b.WriteString(" @ " + r.URL)
		if r.Marker != "" {
			b.WriteString(" ")
		}
	} else {
		b.WriteString(r.Specifier)
	}
	if r.Marker != "" {
		b.WriteString("; " + r.Marker)
	}
	return b.String()
}

// RequirementOptions are the per-requirement flags accepted on a
// requirements file line.
type RequirementOptions struct {
	InstallOptions []string            `yaml:"install_options,omitempty" json:"install_options,omitempty"`
	GlobalOptions  []string            `yaml:"global_options,omitempty" json:"global_options,omitempty"`
	Hashes         map[string][]string `yaml:"hashes,omitempty" json:"hashes,omitempty"`
}

func (o RequirementOptions) Empty() bool {
	return len(o.InstallOptions) == 0 && len(o.GlobalOptions) == 0 && len(o.Hashes) == 0
}

// InstallRequirement is a requirement together with where it came from
// and how it should be installed.
type InstallRequirement struct {
	Req        *Requirement       `yaml:"req,omitempty" json:"req,omitempty"`
	Link       *Link              `yaml:"link,omitempty" json:"link,omitempty"`
	Markers    string             `yaml:"markers,omitempty" json:"markers,omitempty"`
	Extras     []string           `yaml:"extras,omitempty" json:"extras,omitempty"`
	Editable   bool               `yaml:"editable,omitempty" json:"editable,omitempty"`
	Constraint bool               `yaml:"constraint,omitempty" json:"constraint,omitempty"`
	Isolated   bool               `yaml:"isolated,omitempty" json:"isolated,omitempty"`
	Options    RequirementOptions `yaml:"options,omitempty" json:"options,omitempty"`
	ComesFrom  string             `yaml:"comes_from,omitempty" json:"comes_from,omitempty"`
}

// Name returns the requirement's project name, or "" for unnamed links.
func (r InstallRequirement) Name() string {
	if r.Req == nil {
		return ""
	}
	return r.Req.Name
}

func (r InstallRequirement) String() string {
	var s string
	switch {
	case r.Req != nil:
		s = r.Req.String()
		if r.Link != nil {
			s += " from " + r.Link.URL
		}
	case r.Link != nil:
		s = r.Link.URL
	default:
		s = "<InstallRequirement>"
	}
	if r.ComesFrom != "" {
		s += " (from " + r.ComesFrom + ")"
	}
	return s
}
