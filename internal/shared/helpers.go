// Package shared provides small helpers used by several pipkit packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

var nameSeparatorRe = regexp.MustCompile(`[-_.]+`)

// NormalizePipName lowercases a Python project name and collapses runs of
// "-", "_" and "." into a single hyphen, following PEP 503.
func NormalizePipName(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	return nameSeparatorRe.ReplaceAllString(lower, "-")
}

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// CommandError wraps a command execution error with its trimmed output.
func CommandError(output []byte, err error) error {
	return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
}

// UniqueStrings returns values without duplicates, keeping first occurrence.
func UniqueStrings(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
