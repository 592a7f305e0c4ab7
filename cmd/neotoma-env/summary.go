// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/neotoma-env/internal/envindex"
	"github.com/pdiddy/neotoma-env/internal/neotoma"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print per-environment counts for the saved index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		idx, err := envindex.Load(cfg.Index.Path, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		envindex.PrintSummary(out, idx)

		if progress, _ := cmd.Flags().GetBool("progress"); progress {
			cfg.HTTP.UserAgent = loadedSecrets.UserAgent(cfg.HTTP.UserAgent)
			client := neotoma.NewClient(cfg.HTTP)
			envindex.PrintProgress(out, fetchProgress(cmd.Context(), client, idx.CountDistinct(), logger))
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().Bool("progress", false, "also fetch the remote dataset total and print progress")
	rootCmd.AddCommand(summaryCmd)
}
