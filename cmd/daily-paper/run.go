// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/daily-paper/internal/classify"
	"github.com/pdiddy/daily-paper/internal/fetch"
	"github.com/pdiddy/daily-paper/internal/pipeline"
	"github.com/pdiddy/daily-paper/internal/secrets"
	"github.com/pdiddy/daily-paper/internal/store"
	"github.com/pdiddy/daily-paper/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, classify, and store today's newest papers",
	Long: `Run queries arXiv for the most recent submissions in the configured
categories, classifies every paper not already in the history, and merges
the results into today's daily file. The available-dates index and the
history are updated once at the end.

A run with nothing new writes nothing.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int("max-results", 0, "papers to request from arXiv (default 100)")
	runCmd.Flags().String("log-file", "", "append a Markdown summary of the run to this file")
	viper.BindPFlag("fetch.max_results", runCmd.Flags().Lookup("max-results"))
	viper.BindPFlag("store.log_file", runCmd.Flags().Lookup("log-file"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, os.Stdout)
	if err != nil {
		return err
	}

	report, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	return nil
}

// newPipeline wires the arXiv source, the chat classifier, and the store.
func newPipeline(cfg types.PipelineConfig, w io.Writer) (*pipeline.Pipeline, error) {
	key, src := secrets.Resolve(secrets.DeepSeekAPIKeyEnv, cfg.Classify.APIKey, secrets.DeepSeekAPIKey, loadedSecrets)
	if key == "" {
		return nil, fmt.Errorf("no classifier API key: set %s, classify.api_key, or %s%s",
			secrets.DeepSeekAPIKeyEnv, secretsDir, secrets.DeepSeekAPIKey)
	}
	fmt.Fprintf(os.Stderr, "Using API key from %s\n", src)
	cfg.Classify.APIKey = key

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	source := fetch.NewArxivSource(client, cfg.HTTP, cfg.Fetch, w)
	backend := classify.NewChatBackend(client, cfg.Classify)
	classifier := classify.New(backend, cfg.Classify.CallDelay, w)

	return pipeline.New(source, classifier, st, cfg, w), nil
}

func printReport(w io.Writer, r pipeline.Report) {
	fmt.Fprintf(w, "run %s finished\n", r.RunID)
	for _, j := range r.Jobs {
		line := fmt.Sprintf("  %s  %-15s fetched %d, new %d", j.Date, j.Status, j.Fetched, j.New)
		if j.Status == pipeline.StatusWritten {
			line += fmt.Sprintf(", relevant %d, failed %d", j.Relevant, j.Failed)
		}
		if j.FetchErr != nil {
			line += fmt.Sprintf(" (fetch: %v)", j.FetchErr)
		}
		fmt.Fprintln(w, line)
	}
	if r.Evicted > 0 {
		fmt.Fprintf(w, "history: evicted %d oldest id(s)\n", r.Evicted)
	}
	if r.HasFailures() {
		fmt.Fprintln(w, "warning: some papers or days could not be processed; see above")
	}
}
