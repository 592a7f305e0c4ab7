// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/neotoma-env/internal/envindex"
	"github.com/pdiddy/neotoma-env/internal/neotoma"
	"github.com/pdiddy/neotoma-env/pkg/types"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "List dataset ids without fetching detail",
	Long: `Collect pages through the dataset listing exactly as run does and prints
the ids it gathered, one per line. Progress goes to stderr so the id list can
be piped. The index is read (for --skip-indexed) but never written.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd.Flags(), collectFlagKeys)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg.HTTP.UserAgent = loadedSecrets.UserAgent(cfg.HTTP.UserAgent)
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return collectIDs(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), asJSON, logger)
	},
}

func init() {
	addCollectFlags(collectCmd)
	collectCmd.Flags().Bool("json", false, "print the ids as a JSON array")
	rootCmd.AddCommand(collectCmd)
}

// collectIDs runs the collector and prints the ids to out, progress to
// progress. Ids gathered before a transport error are still printed.
func collectIDs(ctx context.Context, cfg types.Config, out, progress io.Writer, asJSON bool, log zerolog.Logger) error {
	existing, err := envindex.Load(cfg.Index.Path, log)
	if err != nil {
		return err
	}
	collector := &neotoma.Collector{
		Lister: neotoma.NewClient(cfg.HTTP),
		Config: cfg.Collect,
		Known:  existing.Seen(),
		Log:    log,
		Out:    progress,
	}
	ids, collectErr := collector.Collect(ctx)
	if err := printIDs(out, ids, asJSON); err != nil {
		return fmt.Errorf("printing dataset ids: %w", err)
	}
	if collectErr != nil {
		return fmt.Errorf("collecting dataset ids: %w", collectErr)
	}
	return nil
}

func printIDs(w io.Writer, ids []types.DatasetID, asJSON bool) error {
	if asJSON {
		if ids == nil {
			ids = []types.DatasetID{}
		}
		return jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(ids)
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}
