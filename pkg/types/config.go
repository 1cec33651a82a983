package types

import (
	"path/filepath"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "daily-paper/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig holds settings for the arXiv fetch stage.
type FetchConfig struct {
	// Categories are OR-ed into the arXiv search query (e.g. "cs.AI").
	Categories []string `json:"categories" yaml:"categories" mapstructure:"categories"`

	// MaxResults caps the papers requested by a daily run (default 100).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// BackfillMaxResults caps the papers requested per backfilled day (default 200).
	BackfillMaxResults int `json:"backfill_max_results" yaml:"backfill_max_results" mapstructure:"backfill_max_results"`

	// PageSize is the number of entries requested per arXiv API call (default 100).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// MaxAttempts bounds the tries per page when arXiv answers HTTP 429 (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryBaseDelay is the linear backoff step after a 429 (default 30s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`

	// DayDelay paces consecutive per-day queries during a backfill (default 2s).
	DayDelay time.Duration `json:"day_delay" yaml:"day_delay" mapstructure:"day_delay"`
}

// ClassifyConfig holds settings for the chat-completion classifier.
type ClassifyConfig struct {
	// BaseURL is the OpenAI-compatible API root (e.g. "https://api.deepseek.com").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the chat model identifier (e.g. "deepseek-chat").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the bearer credential for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens bounds the reply length (default 200).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// CallDelay is the minimum spacing between consecutive calls (default 100ms).
	CallDelay time.Duration `json:"call_delay" yaml:"call_delay" mapstructure:"call_delay"`
}

// StoreConfig holds settings for the flat-file persister.
type StoreConfig struct {
	// DataDir holds daily files, available_dates.json, and by default history.json.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// HistoryFile is the seen-id history; relative paths resolve inside DataDir.
	HistoryFile string `json:"history_file" yaml:"history_file" mapstructure:"history_file"`

	// HistoryLimit bounds the history to the most recently added ids (default 2000).
	HistoryLimit int `json:"history_limit" yaml:"history_limit" mapstructure:"history_limit"`

	// LogFile is the Markdown run log (e.g. "README.md"). Empty disables it.
	LogFile string `json:"log_file,omitempty" yaml:"log_file,omitempty" mapstructure:"log_file"`
}

// HistoryPath returns the resolved history file path.
func (c StoreConfig) HistoryPath() string {
	name := c.HistoryFile
	if name == "" {
		name = "history.json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// BackfillConfig holds settings for the backfill driver.
type BackfillConfig struct {
	// Days is the trailing window, ending yesterday (default 30).
	Days int `json:"days" yaml:"days" mapstructure:"days"`
}

// ServeConfig holds settings for the local viewer.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	HTTP     HTTPConfig     `json:"http" yaml:"http" mapstructure:"http"`
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Classify ClassifyConfig `json:"classify" yaml:"classify" mapstructure:"classify"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Backfill BackfillConfig `json:"backfill" yaml:"backfill" mapstructure:"backfill"`
	Serve    ServeConfig    `json:"serve" yaml:"serve" mapstructure:"serve"`
}

// DefaultCategories are the arXiv categories polled when none are configured.
var DefaultCategories = []string{
	"cs.AI", "cs.LG", "stat.ML", "q-bio.QM", "physics.comp-ph",
	"math.OC", "cs.CE", "cs.MS", "cs.NE",
}

// DefaultPipelineConfig returns the configuration used when no file or
// environment override is present.
func DefaultPipelineConfig() PipelineConfig {
	categories := make([]string, len(DefaultCategories))
	copy(categories, DefaultCategories)

	return PipelineConfig{
		HTTP: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "daily-paper/0.1",
		},
		Fetch: FetchConfig{
			Categories:         categories,
			MaxResults:         100,
			BackfillMaxResults: 200,
			PageSize:           100,
			MaxAttempts:        3,
			RetryBaseDelay:     30 * time.Second,
			DayDelay:           2 * time.Second,
		},
		Classify: ClassifyConfig{
			BaseURL:   "https://api.deepseek.com",
			Model:     "deepseek-chat",
			MaxTokens: 200,
			CallDelay: 100 * time.Millisecond,
		},
		Store: StoreConfig{
			DataDir:      "data",
			HistoryFile:  "history.json",
			HistoryLimit: 2000,
		},
		Backfill: BackfillConfig{Days: 30},
		Serve:    ServeConfig{Addr: ":8080"},
	}
}
