package app

import (
	"fmt"
	"os"
	"strings"
)

// configHint pairs a flag name with the pip configuration key it mirrors.
type configHint struct {
	FlagName  string
	ConfigKey string
}

// checkRequirementsConfigHints returns hints for flags whose value repeats
// what pip configuration already provides.
func checkRequirementsConfigHints(req RequirementsRequest, items map[string]string) []string {
	extra, _ := configValue(items, "extra-index-url")
	configured, _ := configValue(items, "index-url")
	checks := []struct {
		hint     configHint
		provided string
		value    string
	}{
		{
			hint:     configHint{"--index-url", "index-url"},
			provided: strings.TrimSpace(req.IndexURL),
			value:    configured,
		},
		{
			hint:     configHint{"--extra-index-url", "extra-index-url"},
			provided: strings.Join(req.ExtraIndexURLs, " "),
			value:    strings.Join(strings.Fields(extra), " "),
		},
	}

	var hints []string
	for _, c := range checks {
		if c.provided != "" && c.provided == c.value {
			hints = append(hints, fmt.Sprintf(
				"hint: %s is also set in pip configuration (%s); you can omit the flag",
				c.hint.FlagName, c.hint.ConfigKey,
			))
		}
	}
	return hints
}

// emitHints writes hint messages to stderr.
func emitHints(hints []string) {
	for _, h := range hints {
		fmt.Fprintln(os.Stderr, h)
	}
}
