// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/neotoma-env/internal/envindex"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved index in another format",
	Long: `Export converts the saved index to YAML, JSON, or Parquet. YAML and JSON
keep the environment-to-ids shape; Parquet writes one row per
(environment, dataset id) pair.

With --output "-" the export goes to stdout. --zstd compresses file output
and appends .zst to the name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		formatName, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		compress, _ := cmd.Flags().GetBool("zstd")

		format, err := envindex.ParseFormat(formatName)
		if err != nil {
			return err
		}
		idx, err := envindex.Load(cfg.Index.Path, logger)
		if err != nil {
			return err
		}

		if output == "-" {
			if compress {
				return fmt.Errorf("--zstd needs a file output")
			}
			return envindex.Export(cmd.OutOrStdout(), idx, format)
		}
		if output == "" {
			output = strings.TrimSuffix(cfg.Index.Path, ".json") + format.Extension()
		}
		written, err := envindex.ExportFile(output, idx, format, compress)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d environments to %s\n", len(idx), written)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "yaml", "output format: yaml, json, or parquet")
	exportCmd.Flags().StringP("output", "o", "", "output file, or - for stdout (default: index path with the format's extension)")
	exportCmd.Flags().Bool("zstd", false, "compress the output file with zstd")
	rootCmd.AddCommand(exportCmd)
}
