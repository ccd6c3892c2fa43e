package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipkit/internal/app"
)

type checkOptions struct {
	Paths     []string
	Prefix    string
	Snapshot  string
	LocalOnly bool
	Skip      []string
	Install   []string
	Markers   map[string]string
}

func newCheckCommand() *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify installed packages have compatible dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Paths, "path", nil, "Site-packages directories to scan (defaults to the interpreter's sys.path)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "Environment prefix used to decide which distributions are local")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "Read installed distributions from a YAML snapshot")
	cmd.Flags().BoolVar(&opts.LocalOnly, "local", false, "Only check distributions installed inside the prefix")
	cmd.Flags().StringSliceVar(&opts.Skip, "skip", nil, "Distributions to leave out of the check")
	cmd.Flags().StringSliceVar(&opts.Install, "install", nil, "Report conflicts that installing these name==version pins would cause")
	cmd.Flags().StringToStringVar(&opts.Markers, "marker", nil, "Override a marker variable (e.g. python_version=3.8)")

	_ = viper.BindPFlag("check_paths", cmd.Flags().Lookup("path"))
	_ = viper.BindPFlag("check_prefix", cmd.Flags().Lookup("prefix"))
	_ = viper.BindPFlag("check_snapshot", cmd.Flags().Lookup("snapshot"))
	_ = viper.BindPFlag("check_local", cmd.Flags().Lookup("local"))
	_ = viper.BindPFlag("check_skip", cmd.Flags().Lookup("skip"))

	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command, opts checkOptions) error {
	service := newAppService()
	result, err := service.Check(ctx, app.CheckRequest{
		SitePaths: resolveStrings(cmd, opts.Paths, "check_paths", "path"),
		Prefix:    resolveString(cmd, opts.Prefix, "check_prefix", "prefix"),
		Snapshot:  resolveString(cmd, opts.Snapshot, "check_snapshot", "snapshot"),
		LocalOnly: resolveBool(cmd, opts.LocalOnly, "check_local", "local"),
		Skip:      resolveStrings(cmd, opts.Skip, "check_skip", "skip"),
		Install:   opts.Install,
		Markers:   resolveStringMap(cmd, opts.Markers, "markers", "marker"),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	lineColor := color.New(color.FgGreen)
	if result.Broken {
		lineColor = color.New(color.FgRed)
	}
	for _, line := range result.Lines {
		_, _ = lineColor.Fprintln(out, line)
	}
	if result.Broken {
		return exitStatus{code: exitError}
	}
	return nil
}
