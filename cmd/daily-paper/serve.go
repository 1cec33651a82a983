// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/daily-paper/internal/server"
	"github.com/pdiddy/daily-paper/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Browse the collected papers in a local web viewer",
	Long: `Serve starts a read-only web viewer over the data directory. Each day
page can be filtered to AI4Science or perturbation papers, narrowed to one
primary category, and searched by title and abstract. The raw JSON files are
served under /api/ and the Markdown run log, when configured, under /log.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	return server.Serve(cmd.Context(), st, cfg.Store.LogFile, cfg.Serve.Addr, os.Stderr)
}
