// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index maintains a derived SQLite full-text index over the daily
// files. The JSON files stay the source of truth; the database can be
// deleted and rebuilt at any time.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/daily-paper/internal/store"
	"github.com/pdiddy/daily-paper/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "papers.db"

	defaultLimit = 20
)

// Index wraps the SQLite database.
type Index struct {
	db   *sql.DB
	path string
}

// Path returns the database location for a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, indexDir, dbFile)
}

// Open opens or creates the index at dataDir/index/papers.db and ensures
// the schema exists.
func Open(dataDir string) (*Index, error) {
	path := Path(dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &Index{db: db, path: path}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return idx, nil
}

// Close releases the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT,
			summary TEXT,
			authors TEXT,
			url TEXT,
			published TEXT,
			primary_category TEXT,
			classified INTEGER NOT NULL DEFAULT 0,
			is_ai4science INTEGER NOT NULL DEFAULT 0,
			is_perturbation INTEGER NOT NULL DEFAULT 0,
			reasoning TEXT,
			UNIQUE(date, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_date ON papers(date)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_category ON papers(primary_category)`,
		// Full-text rows share their docid with papers.rowid.
		`CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts4(title, summary)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			date TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := x.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BuildSummary holds counts from one Build.
type BuildSummary struct {
	Indexed int
	Updated int
	Skipped int
	Removed int
	Failed  int
}

// Total returns the number of dates processed.
func (s BuildSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Removed + s.Failed
}

// Build brings the index up to date with the daily files in st. A date
// whose file modification time matches the last build is skipped; a
// changed date is replaced wholesale; a date whose file is gone is
// dropped. Unreadable files are counted as failures and do not stop the
// build.
func (x *Index) Build(ctx context.Context, st *store.Store, w io.Writer) (BuildSummary, error) {
	days, err := st.Days()
	if err != nil {
		return BuildSummary{}, err
	}

	var summary BuildSummary
	onDisk := make(map[string]bool, len(days))

	for _, day := range days {
		onDisk[day] = true

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		mt, err := st.DayModTime(day)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", day, err)
			summary.Failed++
			continue
		}
		modTime := mt.UTC().Format(time.RFC3339Nano)

		var stored string
		err = x.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE date = ?`, day,
		).Scan(&stored)
		if err == nil && stored == modTime {
			fmt.Fprintf(w, "skipped %s\n", day)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		papers, err := st.LoadDay(day)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", day, err)
			summary.Failed++
			continue
		}

		if err := x.ingestDay(ctx, day, papers, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", day, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d papers)\n", day, len(papers))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d papers)\n", day, len(papers))
			summary.Indexed++
		}
	}

	removed, err := x.removeMissing(ctx, onDisk, w)
	if err != nil {
		return summary, err
	}
	summary.Removed = removed

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, removed: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Removed, summary.Failed)

	return summary, nil
}

func (x *Index) ingestDay(ctx context.Context, day string, papers []types.Paper, modTime string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDay(ctx, tx, day); err != nil {
		return err
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO papers (date, id, position, title, summary, authors, url, published,
			primary_category, classified, is_ai4science, is_perturbation, reasoning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer insert.Close()

	insertFTS, err := tx.PrepareContext(ctx,
		`INSERT INTO papers_fts (docid, title, summary) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing full-text insert: %w", err)
	}
	defer insertFTS.Close()

	for i, p := range papers {
		authorsJSON, _ := json.Marshal(p.Authors)
		var cl types.Classification
		if p.Classification != nil {
			cl = *p.Classification
		}

		res, err := insert.ExecContext(ctx,
			day, p.ID, i, p.Title, p.Abstract, string(authorsJSON), p.URL, p.Published,
			p.PrimaryCategory, p.Classified(), cl.IsAI4Science, cl.IsPerturbation, cl.Reasoning,
		)
		if err != nil {
			return fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
		if n == 0 {
			// Duplicate id within the file; the first occurrence wins.
			continue
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading rowid for %s: %w", p.ID, err)
		}
		if _, err := insertFTS.ExecContext(ctx, rowid, p.Title, p.Abstract); err != nil {
			return fmt.Errorf("indexing text of %s: %w", p.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (date, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		day, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

func deleteDay(ctx context.Context, tx *sql.Tx, day string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM papers_fts WHERE docid IN (SELECT rowid FROM papers WHERE date = ?)`, day,
	); err != nil {
		return fmt.Errorf("deleting old full-text rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE date = ?`, day); err != nil {
		return fmt.Errorf("deleting old papers: %w", err)
	}
	return nil
}

// removeMissing drops dates that were indexed but no longer have a file.
func (x *Index) removeMissing(ctx context.Context, onDisk map[string]bool, w io.Writer) (int, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT date FROM indexing_status`)
	if err != nil {
		return 0, fmt.Errorf("listing indexed dates: %w", err)
	}
	var stale []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning row: %w", err)
		}
		if !onDisk[day] {
			stale = append(stale, day)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}

	for _, day := range stale {
		tx, err := x.db.BeginTx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("beginning transaction: %w", err)
		}
		if err := deleteDay(ctx, tx, day); err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM indexing_status WHERE date = ?`, day); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("deleting indexing status: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, err
		}
		fmt.Fprintf(w, "removed %s\n", day)
	}
	return len(stale), nil
}
