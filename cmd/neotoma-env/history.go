// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/neotoma-env/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("last")
		runs, err := store.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "List the per-dataset outcomes of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		outcome, _ := cmd.Flags().GetString("outcome")
		asJSON, _ := cmd.Flags().GetBool("json")

		fetches, err := store.Fetches(cmd.Context(), args[0], outcome)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			if fetches == nil {
				fetches = []history.Fetch{}
			}
			enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(fetches)
		}
		if len(fetches) == 0 {
			fmt.Fprintln(out, "No outcomes recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "POS\tDATASET\tOUTCOME\tENVIRONMENT\tDETAIL")
		for _, f := range fetches {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", f.Position, f.DatasetID, f.Outcome, f.Environment, f.Detail)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("last", 20, "number of runs to list (0 for all)")
	historyShowCmd.Flags().String("outcome", "", "only show this outcome (e.g. added, failed, no-data)")
	historyShowCmd.Flags().Bool("json", false, "print outcomes as JSON")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	path := viper.GetString("history.path")
	if path == "" {
		return nil, fmt.Errorf("run history is disabled (history.path is empty)")
	}
	return history.Open(path)
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tCOLLECTED\tADDED\tSKIPPED\tFAILED\tDATASETS")
	for _, r := range runs {
		s := r.Summary
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Collected,
			s.Added, s.Skipped(), s.Failed+s.Errors, r.DistinctIDs)
	}
	tw.Flush()
}
