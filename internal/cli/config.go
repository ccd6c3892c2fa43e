package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipkit/internal/app"
	"pipkit/internal/types"
)

type configOptions struct {
	User   bool
	Global bool
	Venv   bool
}

func newConfigCommand() *cobra.Command {
	opts := &configOptions{}
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pip configuration files",
		RunE: func(_ *cobra.Command, _ []string) error {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("Need an action (list, get, set, unset) to perform.")
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.User, "user", false, "Use the user configuration file only")
	cmd.PersistentFlags().BoolVar(&opts.Global, "global", false, "Use the system-wide configuration file only")
	cmd.PersistentFlags().BoolVar(&opts.Venv, "venv", false, "Use the virtualenv configuration file only")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the active configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigList(cmd.Context(), cmd, opts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Get the value associated with name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.Context(), cmd, opts, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <name> <value>",
		Short: "Set name=value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigEdit(cmd.Context(), cmd, opts, args[0], args[1], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unset <name>",
		Short: "Unset the value associated with name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigEdit(cmd.Context(), cmd, opts, args[0], "", false)
		},
	})
	return cmd
}

func runConfigList(ctx context.Context, cmd *cobra.Command, opts *configOptions) error {
	loadOnly, err := opts.loadOnly(false)
	if err != nil {
		return err
	}
	service := newAppService()
	result, err := service.ConfigList(ctx, app.ConfigRequest{
		Isolated: viper.GetBool("isolated"),
		LoadOnly: loadOnly,
	})
	if err != nil {
		return err
	}
	for _, item := range result.Items {
		fmt.Fprintf(cmd.OutOrStdout(), "%s='%s'\n", item.Key, item.Value)
	}
	return nil
}

func runConfigGet(ctx context.Context, cmd *cobra.Command, opts *configOptions, key string) error {
	loadOnly, err := opts.loadOnly(false)
	if err != nil {
		return err
	}
	service := newAppService()
	result, err := service.ConfigGet(ctx, app.ConfigRequest{
		Isolated: viper.GetBool("isolated"),
		LoadOnly: loadOnly,
		Key:      key,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Value)
	return nil
}

func runConfigEdit(ctx context.Context, cmd *cobra.Command, opts *configOptions, key string, value string, set bool) error {
	loadOnly, err := opts.loadOnly(true)
	if err != nil {
		return err
	}
	service := newAppService()
	req := app.ConfigRequest{
		Isolated: viper.GetBool("isolated"),
		LoadOnly: loadOnly,
		Key:      key,
		Value:    value,
	}
	var result app.ConfigEditResult
	if set {
		result, err = service.ConfigSet(ctx, req)
	} else {
		result, err = service.ConfigUnset(ctx, req)
	}
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("file", result.File).Str("key", key).Msg("updated configuration")
	return nil
}

// loadOnly picks the single file a command operates on. Editing without
// a file option targets the user file.
func (o *configOptions) loadOnly(needFile bool) (types.ConfigKind, error) {
	var kinds []types.ConfigKind
	if o.User {
		kinds = append(kinds, types.ConfigKindUser)
	}
	if o.Global {
		kinds = append(kinds, types.ConfigKindGlobal)
	}
	if o.Venv {
		kinds = append(kinds, types.ConfigKindVenv)
	}
	switch {
	case len(kinds) > 1:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("Need exactly one file to operate upon (--user, --venv, --global) to perform.")
	case len(kinds) == 1:
		return kinds[0], nil
	case needFile:
		return types.ConfigKindUser, nil
	}
	return "", nil
}
