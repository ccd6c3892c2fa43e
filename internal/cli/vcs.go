package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pipkit/internal/app"
)

type vcsResolveOptions struct {
	Dest string
}

type vcsFreezeOptions struct {
	Project string
}

func newVCSCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vcs",
		Short: "Inspect version control requirement URLs and checkouts",
	}
	cmd.AddCommand(newVCSInspectCommand())
	cmd.AddCommand(newVCSResolveCommand())
	cmd.AddCommand(newVCSFreezeCommand())
	return cmd
}

func newVCSInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <url>",
		Short: "Split a VCS URL into backend, repository, revision and credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVCSInspect(cmd.Context(), cmd, args[0])
		},
	}
}

func newVCSResolveCommand() *cobra.Command {
	opts := vcsResolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve the revision of a VCS URL to a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVCSResolve(cmd.Context(), cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Dest, "dest", "", "Existing checkout to resolve against instead of the remote")
	return cmd
}

func newVCSFreezeCommand() *cobra.Command {
	opts := vcsFreezeOptions{}
	cmd := &cobra.Command{
		Use:   "freeze [dir]",
		Short: "Print the requirement that pins a checkout to its current commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := "."
			if len(args) == 1 {
				location = args[0]
			}
			return runVCSFreeze(cmd.Context(), cmd, opts, location)
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", "", "Project name for the #egg fragment (defaults to the directory name)")
	return cmd
}

func runVCSInspect(ctx context.Context, cmd *cobra.Command, rawURL string) error {
	service := newAppService()
	result, err := service.VCSInspect(ctx, app.VCSInspectRequest{URL: rawURL})
	if err != nil {
		return err
	}
	writeVCSInfo(cmd.OutOrStdout(), result)
	return nil
}

func runVCSResolve(ctx context.Context, cmd *cobra.Command, opts vcsResolveOptions, rawURL string) error {
	service := newAppService()
	result, err := service.VCSResolve(ctx, app.VCSResolveRequest{
		URL:  rawURL,
		Dest: opts.Dest,
	})
	if err != nil {
		return err
	}
	writeVCSInfo(cmd.OutOrStdout(), result)
	return nil
}

func runVCSFreeze(ctx context.Context, cmd *cobra.Command, opts vcsFreezeOptions, location string) error {
	service := newAppService()
	result, err := service.VCSFreeze(ctx, app.VCSFreezeRequest{
		Location: location,
		Project:  opts.Project,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Requirement)
	return nil
}

func writeVCSInfo(w io.Writer, result app.VCSResult) {
	info := result.Info
	fields := [][2]string{
		{"backend", info.Backend},
		{"url", info.URL},
		{"revision", info.Rev},
		{"rev-args", strings.Join(info.RevArgs, " ")},
		{"username", info.Auth.Username},
		{"egg", info.EggName},
		{"subdirectory", info.Subdir},
		{"commit", info.Resolved},
		{"branch", result.Branch},
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%-13s %s\n", field[0]+":", field[1])
	}
}
