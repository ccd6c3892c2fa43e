package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pipkit/internal/app"
)

type requirementsOptions struct {
	Files          []string
	Constraints    []string
	IndexURL       string
	ExtraIndexURLs []string
	SkipRegex      string
	RequireHashes  bool
	Format         string
}

// requirementsDocument is the YAML form of a parsed requirements set.
type requirementsDocument struct {
	IndexURLs     []string               `yaml:"index_urls"`
	FindLinks     []string               `yaml:"find_links,omitempty"`
	FormatControl string                 `yaml:"format_control,omitempty"`
	Pre           bool                   `yaml:"pre,omitempty"`
	RequireHashes bool                   `yaml:"require_hashes,omitempty"`
	Requirements  []requirementsDocEntry `yaml:"requirements"`
}

type requirementsDocEntry struct {
	Requirement string              `yaml:"requirement"`
	Editable    bool                `yaml:"editable,omitempty"`
	Constraint  bool                `yaml:"constraint,omitempty"`
	Markers     string              `yaml:"markers,omitempty"`
	Hashes      map[string][]string `yaml:"hashes,omitempty"`
	ComesFrom   string              `yaml:"comes_from,omitempty"`
}

func newRequirementsCommand() *cobra.Command {
	opts := requirementsOptions{}
	cmd := &cobra.Command{
		Use:   "requirements",
		Short: "Parse requirements and constraints files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRequirements(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.Files, "requirement", "r", nil, "Requirements file or URL (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.Constraints, "constraint", "c", nil, "Constraints file or URL (repeatable)")
	cmd.Flags().StringVarP(&opts.IndexURL, "index-url", "i", "", "Base URL of the Python package index")
	cmd.Flags().StringSliceVar(&opts.ExtraIndexURLs, "extra-index-url", nil, "Extra index URLs (repeatable)")
	cmd.Flags().StringVar(&opts.SkipRegex, "skip-regex", "", "Drop requirement lines matching this regular expression")
	cmd.Flags().BoolVar(&opts.RequireHashes, "require-hashes", false, "Require a hash for every requirement")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "Output format (text or yaml)")

	_ = viper.BindPFlag("requirements_index_url", cmd.Flags().Lookup("index-url"))
	_ = viper.BindPFlag("requirements_extra_index_urls", cmd.Flags().Lookup("extra-index-url"))
	_ = viper.BindPFlag("requirements_skip_regex", cmd.Flags().Lookup("skip-regex"))
	_ = viper.BindPFlag("requirements_format", cmd.Flags().Lookup("format"))

	return cmd
}

func runRequirements(ctx context.Context, cmd *cobra.Command, opts requirementsOptions) error {
	service := newAppService()
	result, err := service.ParseRequirements(ctx, app.RequirementsRequest{
		Files:          opts.Files,
		Constraints:    opts.Constraints,
		IndexURL:       resolveString(cmd, opts.IndexURL, "requirements_index_url", "index-url"),
		ExtraIndexURLs: resolveStrings(cmd, opts.ExtraIndexURLs, "requirements_extra_index_urls", "extra-index-url"),
		SkipRegex:      resolveString(cmd, opts.SkipRegex, "requirements_skip_regex", "skip-regex"),
		Isolated:       viper.GetBool("isolated"),
		RequireHashes:  opts.RequireHashes,
	})
	if err != nil {
		return err
	}
	switch format := resolveString(cmd, opts.Format, "requirements_format", "format"); format {
	case "", "text":
		return writeRequirementsText(cmd.OutOrStdout(), result)
	case "yaml":
		return writeRequirementsYAML(cmd.OutOrStdout(), result)
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported output format: %s", format))
	}
}

func writeRequirementsText(w io.Writer, result app.RequirementsResult) error {
	for _, indexURL := range result.Finder.IndexURLs {
		fmt.Fprintf(w, "# index: %s\n", indexURL)
	}
	for _, link := range result.Finder.FindLinks {
		fmt.Fprintf(w, "# find-links: %s\n", link)
	}
	for _, ireq := range result.Requirements {
		var prefix []string
		if ireq.Constraint {
			prefix = append(prefix, "-c")
		}
		if ireq.Editable {
			prefix = append(prefix, "-e")
		}
		line := ireq.String()
		if len(prefix) > 0 {
			line = strings.Join(prefix, " ") + " " + line
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeRequirementsYAML(w io.Writer, result app.RequirementsResult) error {
	doc := requirementsDocument{
		IndexURLs:     result.Finder.IndexURLs,
		FindLinks:     result.Finder.FindLinks,
		Pre:           result.Finder.AllowAllPrereleases,
		RequireHashes: result.RequireHashes,
		Requirements:  make([]requirementsDocEntry, 0, len(result.Requirements)),
	}
	if result.Finder.FormatControl != nil {
		doc.FormatControl = result.Finder.FormatControl.String()
	}
	for _, ireq := range result.Requirements {
		requirement := ireq.String()
		if ireq.Req != nil {
			requirement = ireq.Req.String()
		} else if ireq.Link != nil {
			requirement = ireq.Link.URL
		}
		doc.Requirements = append(doc.Requirements, requirementsDocEntry{
			Requirement: requirement,
			Editable:    ireq.Editable,
			Constraint:  ireq.Constraint,
			Markers:     ireq.Markers,
			Hashes:      ireq.Options.Hashes,
			ComesFrom:   ireq.ComesFrom,
		})
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode requirements").
			WithCause(err)
	}
	return encoder.Close()
}
