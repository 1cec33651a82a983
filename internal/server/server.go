// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the read-only local viewer over the data directory:
// daily paper lists with filters, the raw JSON files, and the Markdown run
// log rendered to HTML.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/pdiddy/daily-paper/internal/store"
	"github.com/pdiddy/daily-paper/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Server serves the viewer.
type Server struct {
	store   *store.Store
	logFile string
	pages   map[string]*template.Template
	mux     *http.ServeMux
	errLog  io.Writer
}

// New creates a Server over st. logFile is the Markdown run log; empty
// disables /log.
func New(st *store.Store, logFile string, errLog io.Writer) (*Server, error) {
	if errLog == nil {
		errLog = io.Discard
	}
	funcMap := template.FuncMap{
		"join": strings.Join,
		"inc":  func(i int) int { return i + 1 },
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pageNames := []string{"empty.html", "day.html", "log.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{store: st, logFile: logFile, pages: pages, mux: http.NewServeMux(), errLog: errLog}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /day/{date}", s.handleDay)
	s.mux.HandleFunc("GET /api/dates", s.handleAPIDates)
	s.mux.HandleFunc("GET /api/day/{date}", s.handleAPIDay)
	s.mux.HandleFunc("GET /log", s.handleLog)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.LoadDates()
	if err != nil {
		s.serverError(w, err)
		return
	}
	if latest := dates.Latest(); latest != "" {
		http.Redirect(w, r, "/day/"+latest, http.StatusFound)
		return
	}
	s.render(w, "empty.html", map[string]any{"HasLog": s.logFile != ""})
}

type categoryLink struct {
	Name   string
	Href   string
	Active bool
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	papers, err := s.store.LoadDay(date)
	if err != nil {
		if errors.Is(err, store.ErrNoDay) || !validDate(date) {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, err)
		return
	}

	dates, err := s.store.LoadDates()
	if err != nil {
		s.serverError(w, err)
		return
	}

	f := filterFromQuery(r.URL.Query())
	active := f.Category
	if active == "" {
		active = allCategories
	}
	var cats []categoryLink
	for _, c := range categories(papers) {
		cats = append(cats, categoryLink{
			Name:   c,
			Href:   "/day/" + date + f.withCategory(c),
			Active: c == active,
		})
	}

	s.render(w, "day.html", map[string]any{
		"Date":       date,
		"Dates":      dates.List(),
		"Filter":     f,
		"Categories": cats,
		"Papers":     f.Apply(papers),
		"Total":      len(papers),
		"HasLog":     s.logFile != "",
	})
}

func (s *Server) handleAPIDates(w http.ResponseWriter, r *http.Request) {
	s.serveJSONFile(w, r, s.store.DatesPath(), []byte("[]\n"))
}

func (s *Server) handleAPIDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validDate(date) {
		http.NotFound(w, r)
		return
	}
	s.serveJSONFile(w, r, s.store.DayPath(date), nil)
}

// serveJSONFile writes path verbatim. A missing file yields fallback, or
// 404 when fallback is nil.
func (s *Server) serveJSONFile(w http.ResponseWriter, r *http.Request, path string, fallback []byte) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if fallback == nil {
			http.NotFound(w, r)
			return
		}
		data = fallback
	} else if err != nil {
		s.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if s.logFile == "" {
		http.NotFound(w, r)
		return
	}
	data, err := os.ReadFile(s.logFile)
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, "log.html", map[string]any{
		"Body":   renderMarkdown(data),
		"HasLog": true,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.serverError(w, fmt.Errorf("template %s not found", name))
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.serverError(w, fmt.Errorf("rendering template %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	fmt.Fprintf(s.errLog, "error: %v\n", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func renderMarkdown(text []byte) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert(text, &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(string(text)))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func validDate(s string) bool {
	_, err := types.ParseDay(s)
	return err == nil
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, st *store.Store, logFile, addr string, w io.Writer) error {
	srv, err := New(st, logFile, w)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(w, "serving %s on http://%s\n", st.DataDir(), displayAddr(addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
