package core

import (
	"fmt"
	"io"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/jedib0t/go-pretty/v6/text"

	"pipkit/internal/shared"
	"pipkit/internal/types"
)

// PyPI and TestPyPI are the well-known public indexes.
var (
	PyPI     = NewPackageIndex("https://pypi.org/", "files.pythonhosted.org")
	TestPyPI = NewPackageIndex("https://test.pypi.org/", "test-files.pythonhosted.org")
)

// NewPackageIndex derives the simple and legacy API endpoints of an index.
func NewPackageIndex(url string, fileStorageDomain string) types.PackageIndex {
	netloc := url
	if _, rest, ok := strings.Cut(url, "://"); ok {
		netloc = rest
	}
	netloc, _, _ = strings.Cut(netloc, "/")
	return types.PackageIndex{
		URL:               url,
		Netloc:            netloc,
		SimpleURL:         url + "simple",
		PyPIURL:           url + "pypi",
		FileStorageDomain: fileStorageDomain,
	}
}

// HighestVersion returns the greatest version by PEP 440 ordering.
// Versions that do not parse rank below every valid one; among equals the
// first wins.
func HighestVersion(versions []string) string {
	best := ""
	var bestParsed *pep440.Version
	for i, raw := range versions {
		parsed, err := pep440.Parse(raw)
		if i == 0 {
			best = raw
			if err == nil {
				bestParsed = &parsed
			}
			continue
		}
		if err != nil {
			continue
		}
		if bestParsed == nil || parsed.GreaterThan(*bestParsed) {
			best, bestParsed = raw, &parsed
		}
	}
	return best
}

// TransformHits groups raw hits by project, keeping the order in which
// projects first appear. The summary of the highest version wins.
func TransformHits(hits []types.SearchHit) []types.SearchResult {
	var out []types.SearchResult
	index := map[string]int{}
	for _, hit := range hits {
		pos, ok := index[hit.Name]
		if !ok {
			index[hit.Name] = len(out)
			out = append(out, types.SearchResult{Name: hit.Name, Summary: hit.Summary, Versions: []string{hit.Version}})
			continue
		}
		result := &out[pos]
		result.Versions = append(result.Versions, hit.Version)
		if hit.Version == HighestVersion(result.Versions) {
			result.Summary = hit.Summary
		}
	}
	return out
}

// PrintOptions controls search result layout.
type PrintOptions struct {
	// NameColumnWidth is computed from the hits when zero.
	NameColumnWidth int
	// TerminalWidth enables summary wrapping when non-zero.
	TerminalWidth int
	// Installed maps canonical project names to installed versions.
	Installed map[string]string
}

// PrintResults writes one line per project, followed by installed and
// latest version details for projects that are installed.
func PrintResults(w io.Writer, results []types.SearchResult, opts PrintOptions) error {
	if len(results) == 0 {
		return nil
	}
	nameWidth := opts.NameColumnWidth
	if nameWidth == 0 {
		for _, result := range results {
			if width := len(result.Name) + len(latestVersion(result)); width > nameWidth {
				nameWidth = width
			}
		}
		nameWidth += 4
	}
	for _, result := range results {
		latest := latestVersion(result)
		summary := result.Summary
		if opts.TerminalWidth > 0 {
			if target := opts.TerminalWidth - nameWidth - 5; target > 10 {
				summary = wrapSummary(summary, target, nameWidth+3)
			}
		}
		label := fmt.Sprintf("%s (%s)", result.Name, latest)
		if _, err := fmt.Fprintf(w, "%-*s - %s\n", nameWidth, label, summary); err != nil {
			return err
		}
		installed, ok := opts.Installed[shared.NormalizePipName(result.Name)]
		if !ok {
			continue
		}
		var err error
		if installed == latest {
			_, err = fmt.Fprintf(w, "  INSTALLED: %s (latest)\n", installed)
		} else {
			_, err = fmt.Fprintf(w, "  INSTALLED: %s\n  LATEST:    %s\n", installed, latest)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func latestVersion(result types.SearchResult) string {
	if len(result.Versions) == 0 {
		return "-"
	}
	return HighestVersion(result.Versions)
}

func wrapSummary(summary string, width int, indent int) string {
	wrapped := text.WrapSoft(strings.Join(strings.Fields(summary), " "), width)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n"+strings.Repeat(" ", indent))
}
