package cli

import (
	"errors"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stackforge/internal/app"
	"stackforge/internal/core"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "STACKFORGE"

var newAppService = app.NewService

type RootConfig struct {
	ConfigFile string
	LogLevel   string
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:          "stackforge",
		Short:        "Resolve, order and build software stacks from package descriptions",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			cmd.SetContext(log.Logger.WithContext(cmd.Context()))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newResolveCommand())
	cmd.AddCommand(newDryRunCommand())
	cmd.AddCommand(newGraphCommand())
	cmd.AddCommand(newBuildCommand())
	cmd.AddCommand(newSearchCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newHistoryCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
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

	viper.SetConfigName("stackforge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/stackforge")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read stackforge.yaml").
			WithCause(err)
	}
	return nil
}

// setupLogging logs to stderr so that stdout only carries command output.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// exitCodeForError maps errors to process exit codes:
//
//	2 invalid input, 3 ambiguous spec or blocked dependency,
//	4 unresolvable dependency or cycle, 5 build failure or internal error,
//	1 anything else.
func exitCodeForError(err error) int {
	var (
		ambiguous    *core.AmbiguousSpecError
		notFound     *core.NotFoundError
		unresolvable *core.UnresolvableDependencyError
		cyclic       *core.CyclicDependencyError
		failure      *core.BuildFailure
	)
	switch {
	case errors.As(err, &ambiguous):
		return 3
	case errors.As(err, &cyclic) && cyclic.Internal:
		return 5
	case errors.As(err, &notFound), errors.As(err, &unresolvable), errors.As(err, &cyclic):
		return 4
	case errors.As(err, &failure):
		return 5
	}

	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeNotFound, errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}
