// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run the pipeline over each of the previous N days",
	Long: `Backfill queries arXiv once per calendar day for the trailing window
ending yesterday, oldest day first, and writes each day's new papers into
that day's file. Papers already in the history are skipped, so backfill
can be rerun safely. Indices are flushed once after the last day.`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().Int("days", 0, "number of past days to process (default 30)")
	backfillCmd.Flags().Int("max-results", 0, "papers to request per day (default 200)")
	viper.BindPFlag("backfill.days", backfillCmd.Flags().Lookup("days"))
	viper.BindPFlag("fetch.backfill_max_results", backfillCmd.Flags().Lookup("max-results"))

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, os.Stdout)
	if err != nil {
		return err
	}

	report, err := p.Backfill(cmd.Context(), cfg.Backfill.Days)
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	return nil
}
