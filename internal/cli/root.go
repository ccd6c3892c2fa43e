package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipkit/internal/adapters"
	"pipkit/internal/app"
	"pipkit/internal/deprecation"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "PIPKIT"

// Exit statuses shared with pip.
const (
	exitSuccess      = 0
	exitError        = 1
	exitUnknownError = 2
	exitNoMatches    = 23
)

type RootConfig struct {
	ConfigFile string
	LogLevel   string
	NoColor    bool
	Isolated   bool
	TimeoutSec int
	Retries    int
}

// exitStatus ends a command with a specific status after its output has
// already been written.
type exitStatus struct {
	code int
}

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var newAppService = func() app.Service {
	return app.NewServiceWithHTTP(adapters.HTTPOptions{
		TimeoutSec: viper.GetInt("timeout"),
		Retries:    viper.GetInt("retries"),
		UserAgent:  "pipkit/" + version,
	})
}

func Execute() {
	root := newRootCommand()
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	code := exitCodeForError(err)
	var status exitStatus
	if !errors.As(err, &status) {
		printError(os.Stderr, err)
	}
	os.Exit(code)
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "pipkit",
		Short:         "Requirements, configuration and VCS tooling for Python packages",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			if resolveBool(cmd, cfg.NoColor, "no_color", "no-color") {
				color.NoColor = true
			}
			logger := setupLogging(viper.GetString("log_level"))
			deprecation.InstallWarningLogger(logger)
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "warn", "Log level")
	cmd.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", false, "Suppress colored output")
	cmd.PersistentFlags().BoolVar(&cfg.Isolated, "isolated", false, "Ignore environment variables and user configuration")
	cmd.PersistentFlags().IntVar(&cfg.TimeoutSec, "timeout", 15, "Socket timeout in seconds")
	cmd.PersistentFlags().IntVar(&cfg.Retries, "retries", 5, "Maximum number of retries for each HTTP request")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("isolated", cmd.PersistentFlags().Lookup("isolated"))
	_ = viper.BindPFlag("timeout", cmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("retries", cmd.PersistentFlags().Lookup("retries"))

	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newSearchCommand())
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newRequirementsCommand())
	cmd.AddCommand(newVCSCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("pipkit")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/pipkit")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) zerolog.Logger {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	return log.Logger
}

// exitCodeForError maps coded errors to ERROR and anything else to
// UNKNOWN_ERROR.
func exitCodeForError(err error) int {
	if err == nil {
		return exitSuccess
	}
	var status exitStatus
	if errors.As(err, &status) {
		return status.code
	}
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) {
		return exitError
	}
	return exitUnknownError
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}

func printError(w io.Writer, err error) {
	_, _ = color.New(color.FgRed).Fprintf(w, "ERROR: %s\n", errorMessage(err))
}
