// Command shrinkage runs shrinkage regression experiment suites and generates synthetic
// datasets to run them on.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrUnknownLogFormat = errors.New("unknown log format")
	ErrUnknownLogLevel  = errors.New("unknown log level")
)

const envPrefix = "SHRINKAGE"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shrinkage",
		Short:         "Compare Horseshoe, Horseshoe+, Ridge and LASSO priors on tabular outcomes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("log-format", "text", "log handler format (text, json)")
	rootCmd.PersistentFlags().String("log-level", "info", "minimum log level (debug, info, warn, error)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		v, err := bindFlags(cmd.Flags())
		if err != nil {
			return err
		}
		return setupLogging(cmd, v.GetString("log-format"), v.GetString("log-level"))
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSimulateCmd())
	return rootCmd
}

// bindFlags layers SHRINKAGE_* environment variables under the command flags. Dashes in
// flag names map to underscores.
func bindFlags(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("unable to bind flags, %w", err)
	}
	return v, nil
}

func setupLogging(cmd *cobra.Command, format, level string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("%q, %w", level, ErrUnknownLogLevel)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		return fmt.Errorf("%q, %w", format, ErrUnknownLogFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
