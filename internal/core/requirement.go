package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"

	"pipkit/internal/types"
)

var (
	requirementNameRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	specifierClauseRe = regexp.MustCompile(`^\s*(===|~=|==|!=|<=|>=|<|>)\s*([^\s,;()]+)\s*$`)
	extraNameRe       = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
)

// ParseRequirement parses a PEP 508 dependency specification such as
// `name[extra]>=1.0,<2; python_version >= "3.8"` or `name @ url`.
func ParseRequirement(input string) (types.Requirement, error) {
	text := strings.TrimSpace(input)
	invalid := func(reason string) (types.Requirement, error) {
		return types.Requirement{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("Invalid requirement, %s: %q", reason, input))
	}

	name := requirementNameRe.FindString(text)
	if name == "" {
		return invalid("expected package name at the start of dependency specifier")
	}
	req := types.Requirement{Name: name}
	rest := strings.TrimLeft(text[len(name):], " \t")

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return invalid("expected closing right bracket")
		}
		extras, err := parseExtras(rest[1:end])
		if err != nil {
			return invalid(err.Error())
		}
		req.Extras = extras
		rest = strings.TrimLeft(rest[end+1:], " \t")
	}

	markerText := ""
	switch {
	case strings.HasPrefix(rest, "@"):
		rest = strings.TrimLeft(rest[1:], " \t")
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		req.URL = rest[:end]
		if req.URL == "" || !strings.Contains(req.URL, ":") {
			return invalid("expected URL after @")
		}
		rest = strings.TrimLeft(rest[end:], " \t")
		if rest != "" {
			if !strings.HasPrefix(rest, ";") {
				return invalid("expected end or semicolon after URL")
			}
			markerText = rest[1:]
		}
	default:
		specText := rest
		if idx := strings.Index(rest, ";"); idx >= 0 {
			specText, markerText = rest[:idx], rest[idx+1:]
			if strings.TrimSpace(markerText) == "" {
				return invalid("expected marker after semicolon")
			}
		}
		specText = strings.TrimSpace(specText)
		if strings.HasPrefix(specText, "(") {
			if !strings.HasSuffix(specText, ")") {
				return invalid("expected closing right parenthesis")
			}
			specText = strings.TrimSpace(specText[1 : len(specText)-1])
		}
		specifier, err := NormalizeSpecifier(specText)
		if err != nil {
			return invalid(err.Error())
		}
		req.Specifier = specifier
	}

	if strings.TrimSpace(markerText) != "" {
		marker, err := ParseMarker(strings.TrimSpace(markerText))
		if err != nil {
			return types.Requirement{}, err
		}
		req.Marker = marker.String()
	}
	return req, nil
}

func parseExtras(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var extras []string
	for _, part := range strings.Split(text, ",") {
		extra := strings.TrimSpace(part)
		if !extraNameRe.MatchString(extra) {
			return nil, fmt.Errorf("invalid extra %q", extra)
		}
		extras = append(extras, extra)
	}
	sort.Strings(extras)
	return extras, nil
}

// NormalizeSpecifier validates a comma separated specifier set and renders
// it in canonical form: whitespace removed and clauses sorted.
func NormalizeSpecifier(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	clauses := strings.Split(text, ",")
	out := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		match := specifierClauseRe.FindStringSubmatch(clause)
		if match == nil {
			return "", fmt.Errorf("invalid specifier %q", strings.TrimSpace(clause))
		}
		out = append(out, match[1]+match[2])
	}
	sort.Strings(out)
	joined := strings.Join(out, ",")
	if _, err := pep440.NewSpecifiers(joined); err != nil {
		return "", fmt.Errorf("invalid specifier %q", joined)
	}
	return joined, nil
}

// SpecifierContains reports whether version satisfies specifier.
// Pre-releases are accepted, so 1.1.0.dev0 satisfies >=1.0.
func SpecifierContains(specifier string, version string) (bool, error) {
	if strings.TrimSpace(specifier) == "" {
		return true, nil
	}
	specs, err := pep440.NewSpecifiers(specifier, pep440.WithPreRelease(true))
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid specifier %q", specifier)).
			WithCause(err)
	}
	parsed, err := pep440.Parse(version)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version %q", version)).
			WithCause(err)
	}
	return specs.Check(parsed), nil
}
