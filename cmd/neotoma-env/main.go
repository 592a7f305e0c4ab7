// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the neotoma-env CLI, which builds and
// maintains an index from depositional environment to Neotoma dataset ids.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/neotoma-env/internal/secrets"
	"github.com/pdiddy/neotoma-env/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// logger carries diagnostics to stderr; set up before any subcommand runs.
	logger = zerolog.Nop()

	// loadedSecrets holds values loaded from .secrets/ at startup.
	loadedSecrets = secrets.Secrets{}
)

// rootCmd is the base command for the neotoma-env CLI.
var rootCmd = &cobra.Command{
	Use:   "neotoma-env",
	Short: "Index Neotoma datasets by depositional environment",
	Long: `neotoma-env pages through the Neotoma paleoecology API, looks up the
depositional environment of each dataset, and keeps a JSON index from
environment to dataset ids. Each run only fetches datasets the index does not
already hold and merges the new entries into the saved file.

Settings come from neotoma-env.yaml, NEOTOMA_ENV_* environment variables,
and flags, in increasing order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(viper.GetString("log_level"), os.Stderr)

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper(), types.Defaults())

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./neotoma-env.yaml or ~/.config/neotoma-env/neotoma-env.yaml)")
	flags.String("index", types.DefaultIndexPath, "environment index JSON file")
	flags.String("base-url", types.DefaultBaseURL, "Neotoma API base URL")
	flags.Duration("timeout", types.DefaultTimeout, "HTTP request timeout")
	flags.String("history-db", types.DefaultHistoryPath, "run history database (empty disables history)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	bindFlags(flags, map[string]string{
		"index.path":   "index",
		"http.base_url": "base-url",
		"http.timeout": "timeout",
		"history.path": "history-db",
		"log_level":    "log-level",
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("neotoma-env")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "neotoma-env"))
		}
	}

	viper.SetEnvPrefix("NEOTOMA_ENV")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns a console logger at the named level. Unknown levels
// fall back to info.
func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
