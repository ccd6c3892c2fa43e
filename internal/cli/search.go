package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"pipkit/internal/app"
	"pipkit/internal/core"
)

type searchOptions struct {
	Indexes   []string
	Installed bool
}

func newSearchCommand() *cobra.Command {
	opts := searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search package indexes for projects whose name or summary match",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, opts, args)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.Indexes, "index", "i", nil, "Base URL of a Python package index (repeatable)")
	cmd.Flags().BoolVar(&opts.Installed, "installed", true, "Show installed versions next to matching projects")

	_ = viper.BindPFlag("search_index", cmd.Flags().Lookup("index"))

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, opts searchOptions, query []string) error {
	service := newAppService()
	result, err := service.Search(ctx, app.SearchRequest{
		Query:     query,
		IndexURLs: resolveStrings(cmd, opts.Indexes, "search_index", "index"),
		Installed: opts.Installed,
	})
	if err != nil {
		return err
	}
	if len(result.Results) == 0 {
		return exitStatus{code: exitNoMatches}
	}
	return core.PrintResults(cmd.OutOrStdout(), result.Results, core.PrintOptions{
		TerminalWidth: terminalWidth(),
		Installed:     result.Installed,
	})
}

// terminalWidth returns 0 when stdout is not a terminal, which disables
// summary wrapping.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
