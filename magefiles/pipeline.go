//go:build mage

package main

import (
	"os"
	"strconv"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Run fetches, classifies, and stores today's papers, then refreshes the index.
func Run() error {
	mg.Deps(Build, Init)
	if err := sh.RunV(binPath(), "run", "--log-file", "README.md"); err != nil {
		return err
	}
	return Index()
}

// Backfill processes the trailing window of days. BACKFILL_DAYS overrides
// the configured window.
func Backfill() error {
	mg.Deps(Build, Init)
	args := []string{"backfill"}
	if days := os.Getenv("BACKFILL_DAYS"); days != "" {
		if _, err := strconv.Atoi(days); err != nil {
			return err
		}
		args = append(args, "--days", days)
	}
	return sh.RunV(binPath(), args...)
}

// Index rebuilds the SQLite search index from the daily files.
func Index() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "index", "build")
}

// Serve starts the local viewer on the configured address.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "serve")
}
