// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mdlog appends a human-readable Markdown section per pipeline run
// to a running log document.
package mdlog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pdiddy/daily-paper/pkg/types"
)

// Section is one run's entry in the log.
type Section struct {
	// Date heads the section (YYYY-MM-DD).
	Date string

	RunID string

	// Papers are every paper classified during the run. Only those flagged
	// by either filter are listed.
	Papers []types.Paper
}

type paperView struct {
	Title     string
	URL       string
	Authors   string
	Published string
	Tags      string
	Reasoning string
}

var sectionTmpl = template.Must(template.New("section").Parse(`
## {{.Date}}

Run ` + "`{{.RunID}}`" + `: {{len .Flagged}} of {{.Total}} new papers flagged.
{{range .Flagged}}
### [{{.Title}}]({{.URL}})

- **Authors:** {{.Authors}}
- **Date:** {{.Published}}
- **Tags:** {{.Tags}}
- **Reasoning:** {{.Reasoning}}
{{end}}`))

// Render returns the Markdown for s.
func Render(s Section) (string, error) {
	data := struct {
		Date    string
		RunID   string
		Total   int
		Flagged []paperView
	}{Date: s.Date, RunID: s.RunID, Total: len(s.Papers)}

	for _, p := range s.Papers {
		if !p.Classification.Relevant() {
			continue
		}
		data.Flagged = append(data.Flagged, paperView{
			Title:     escapeLinkText(p.Title),
			URL:       p.URL,
			Authors:   strings.Join(p.Authors, ", "),
			Published: p.Published,
			Tags:      tags(p.Classification),
			Reasoning: p.Reasoning,
		})
	}

	var buf bytes.Buffer
	if err := sectionTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering log section: %w", err)
	}
	return buf.String(), nil
}

// Append renders s and appends it to the log at path, creating the file
// and its directory if needed.
func Append(path string, s Section) error {
	text, err := Render(s)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log %s: %w", path, err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("appending to log %s: %w", path, err)
	}
	return f.Close()
}

func tags(c *types.Classification) string {
	var out []string
	if c.IsAI4Science {
		out = append(out, "`AI4Science`")
	}
	if c.IsPerturbation {
		out = append(out, "`Perturbation`")
	}
	return strings.Join(out, " ")
}

// escapeLinkText keeps square brackets in a title from closing the link.
func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
