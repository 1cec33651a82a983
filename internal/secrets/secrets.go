// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files
// and resolves them against the environment and configuration. Each file
// holds one secret: the filename is the key name and the trimmed contents
// are the value.
//
// Supported key files: deepseek-api-key.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DeepSeekAPIKey is the key file and the DEEPSEEK_API_KEY variable for the
// classifier credential.
const (
	DeepSeekAPIKey    = "deepseek-api-key"
	DeepSeekAPIKeyEnv = "DEEPSEEK_API_KEY"
)

// Set maps key names to values.
type Set map[string]string

// Names returns the loaded key names, sorted. Values are never listed.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty Set. Unreadable files are reported to
// warn and skipped.
func Load(dir string, warn io.Writer) (Set, error) {
	if warn == nil {
		warn = io.Discard
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			set[name] = value
		}
	}
	return set, nil
}

// Source names where a resolved credential came from.
type Source string

const (
	SourceNone   Source = ""
	SourceEnv    Source = "environment"
	SourceConfig Source = "config"
	SourceFile   Source = "secrets file"
)

// Resolve picks a credential by precedence: the environment variable env,
// then the configured value, then the key file name in set.
func Resolve(env, configured, name string, set Set) (string, Source) {
	if v := strings.TrimSpace(os.Getenv(env)); env != "" && v != "" {
		return v, SourceEnv
	}
	if v := strings.TrimSpace(configured); v != "" {
		return v, SourceConfig
	}
	if v := set[name]; v != "" {
		return v, SourceFile
	}
	return "", SourceNone
}
