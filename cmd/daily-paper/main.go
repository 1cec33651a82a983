// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the daily-paper CLI: the daily run,
// the historical backfill, the derived search index, and the local viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/daily-paper/internal/secrets"
	"github.com/pdiddy/daily-paper/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	configName = "daily-paper"
	envPrefix  = "DAILY_PAPER"
	secretsDir = ".secrets/"
)

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

var rootCmd = &cobra.Command{
	Use:   "daily-paper",
	Short: "Daily arXiv triage for AI4Science and perturbation prediction",
	Long: `daily-paper polls arXiv for new submissions in a set of categories, asks
a chat-completion model whether each paper is AI4Science and whether it is
about perturbation prediction, and keeps the results as one JSON file per
day under the data directory.

A rolling history of processed ids keeps papers from being classified
twice. Use backfill to fill in past days, index to search the collected
papers, and serve to browse them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secretsDir, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Names())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./daily-paper.yaml or ~/.config/daily-paper/daily-paper.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding daily files and indices (default \"data\")")
	viper.BindPFlag("store.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	setDefaults(types.DefaultPipelineConfig())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
	}
}

// setDefaults registers every configuration key so file values, env
// overrides, and flags all unmarshal into types.PipelineConfig.
func setDefaults(d types.PipelineConfig) {
	viper.SetDefault("http.timeout", d.HTTP.Timeout)
	viper.SetDefault("http.user_agent", d.HTTP.UserAgent)

	viper.SetDefault("fetch.categories", d.Fetch.Categories)
	viper.SetDefault("fetch.max_results", d.Fetch.MaxResults)
	viper.SetDefault("fetch.backfill_max_results", d.Fetch.BackfillMaxResults)
	viper.SetDefault("fetch.page_size", d.Fetch.PageSize)
	viper.SetDefault("fetch.max_attempts", d.Fetch.MaxAttempts)
	viper.SetDefault("fetch.retry_base_delay", d.Fetch.RetryBaseDelay)
	viper.SetDefault("fetch.day_delay", d.Fetch.DayDelay)

	viper.SetDefault("classify.base_url", d.Classify.BaseURL)
	viper.SetDefault("classify.model", d.Classify.Model)
	viper.SetDefault("classify.api_key", d.Classify.APIKey)
	viper.SetDefault("classify.max_tokens", d.Classify.MaxTokens)
	viper.SetDefault("classify.call_delay", d.Classify.CallDelay)

	viper.SetDefault("store.data_dir", d.Store.DataDir)
	viper.SetDefault("store.history_file", d.Store.HistoryFile)
	viper.SetDefault("store.history_limit", d.Store.HistoryLimit)
	viper.SetDefault("store.log_file", d.Store.LogFile)

	viper.SetDefault("backfill.days", d.Backfill.Days)
	viper.SetDefault("serve.addr", d.Serve.Addr)
}

// loadConfig returns the effective configuration: defaults, then the
// config file, then DAILY_PAPER_* variables, then flags.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
