// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-paper/internal/index"
	"github.com/pdiddy/daily-paper/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and search a SQLite index of the collected papers",
	Long: `Index maintains a full-text SQLite database at <data_dir>/index/papers.db
built from the daily files. The daily files remain the source of truth; the
index can be deleted and rebuilt at any time.`,
}

// --- build subcommand ---

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index new and changed daily files",
	Long: `Build reads every daily file in the data directory. Files unchanged
since the previous build are skipped, changed files are re-indexed, and
dates whose file is gone are dropped.`,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	st, idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	summary, err := idx.Build(cmd.Context(), st, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d daily file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- query subcommand ---

var indexQueryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search indexed papers by text and filters",
	Long: `Query searches titles and abstracts. Every word must appear. Combine
with --ai4science, --perturbation, --category, and --date, or use the
filters alone.`,
	RunE: runIndexQuery,
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide search text, --ai4science, --perturbation, --category, or --date")
	}

	_, idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	hits, err := idx.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(hits, jsonOutput)
}

func formatQueryOutput(hits []index.Hit, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-12s  %-4s  %-60s  %s\n",
		"#", "Date", "ID", "Tags", "Title", "Category")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, h := range hits {
		title := []rune(h.Title)
		if len(title) > 60 {
			title = append(title[:57], []rune("...")...)
		}
		tags := ""
		if h.Classified() {
			if h.IsAI4Science {
				tags += "A"
			}
			if h.IsPerturbation {
				tags += "P"
			}
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-12s  %-4s  %-60s  %s\n",
			i+1, h.Date, h.ID, tags, string(title), h.PrimaryCategory)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
	return nil
}

// --- export subcommand ---

var indexExportCmd = &cobra.Command{
	Use:   "export [text]",
	Short: "Export indexed papers to YAML or JSON on stdout",
	Long: `Export writes every indexed paper, or the subset matching the same
filters as query, to standard output.`,
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	_, idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	return idx.Export(cmd.Context(), queryOptsFromFlags(cmd, args), format, os.Stdout)
}

// --- helpers ---

func openIndex() (*store.Store, *index.Index, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	idx, err := index.Open(st.DataDir())
	if err != nil {
		return nil, nil, err
	}
	return st, idx, nil
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) index.QueryOptions {
	ai, _ := cmd.Flags().GetBool("ai4science")
	pert, _ := cmd.Flags().GetBool("perturbation")
	category, _ := cmd.Flags().GetString("category")
	date, _ := cmd.Flags().GetString("date")
	limit, _ := cmd.Flags().GetInt("limit")

	return index.QueryOptions{
		Text:         strings.Join(args, " "),
		AI4Science:   ai,
		Perturbation: pert,
		Category:     category,
		Date:         date,
		Limit:        limit,
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("ai4science", false, "only papers flagged AI4Science")
	cmd.Flags().Bool("perturbation", false, "only papers flagged perturbation prediction")
	cmd.Flags().String("category", "", "primary category (e.g. q-bio.QM)")
	cmd.Flags().String("date", "", "daily file date (YYYY-MM-DD)")
}

func init() {
	addFilterFlags(indexQueryCmd)
	indexQueryCmd.Flags().Int("limit", 0, "maximum number of results (default 20)")
	indexQueryCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(indexExportCmd)
	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexExportCmd)
	rootCmd.AddCommand(indexCmd)
}
