package config

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Environment variables holding secrets. They are never read from the config file.
const (
	EnvModelsToken   = "MODELS_TOKEN"
	EnvResendAPIKey  = "RESEND_API_KEY"
	EnvResendSegment = "RESEND_SEGMENT_ID"
)

// DefaultConfigFile is looked up in the working directory when --config is not given.
const DefaultConfigFile = "npmx-weekly.yaml"

// ErrMissingEnv is returned when a required environment variable is unset or empty.
var ErrMissingEnv = errors.New("environment variable is missing or empty")

type SignalsConfig struct {
	BaseURL      string   `yaml:"base_url"`
	Kinds        []string `yaml:"kinds"`
	MinRelevance float64  `yaml:"min_relevance"`
	MaxSources   int      `yaml:"max_sources"`
	Timeout      string   `yaml:"timeout"`
}

type InferenceConfig struct {
	URL         string  `yaml:"url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
	UserAgent   string  `yaml:"user_agent"`
}

type ContentConfig struct {
	PostsDir  string   `yaml:"posts_dir"`
	EmailsDir string   `yaml:"emails_dir"`
	Authors   []string `yaml:"authors"`
}

type EmailConfig struct {
	APIURL  string `yaml:"api_url"`
	From    string `yaml:"from"`
	Timeout string `yaml:"timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	SiteURL     string          `yaml:"site_url"`
	BannerURL   string          `yaml:"banner_url"`
	HistoryPath string          `yaml:"history_path,omitempty"`
	Signals     SignalsConfig   `yaml:"signals"`
	Inference   InferenceConfig `yaml:"inference"`
	Content     ContentConfig   `yaml:"content"`
	Email       EmailConfig     `yaml:"email"`
	Log         LogConfig       `yaml:"log"`
}

// SignalTimeout returns the per-request timeout for report fetches.
func (c *Config) SignalTimeout() time.Duration {
	return parseDuration(c.Signals.Timeout, 30*time.Second)
}

// InferenceTimeout returns the deadline for a single model call.
func (c *Config) InferenceTimeout() time.Duration {
	return parseDuration(c.Inference.Timeout, 90*time.Second)
}

func (c *Config) EmailTimeout() time.Duration {
	return parseDuration(c.Email.Timeout, 30*time.Second)
}

// PostsDir resolves the posts directory against the content root.
func (c *Config) PostsDir(root string) string {
	return resolve(root, c.Content.PostsDir)
}

// EmailsDir resolves the email drafts directory against the content root.
func (c *Config) EmailsDir(root string) string {
	return resolve(root, c.Content.EmailsDir)
}

// HistoryDBPath returns the run history database location.
func (c *Config) HistoryDBPath() string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	return filepath.Join(xdg.DataHome, "npmx-weekly", "history.db")
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// RequireEnv returns the value of key or ErrMissingEnv.
func RequireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrMissingEnv)
	}
	return v, nil
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load returns the embedded defaults overlaid with the file at path.
// An empty path falls back to DefaultConfigFile, which may be absent.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	urls := map[string]string{
		"site_url":         cfg.SiteURL,
		"signals.base_url": cfg.Signals.BaseURL,
		"inference.url":    cfg.Inference.URL,
		"email.api_url":    cfg.Email.APIURL,
	}
	for name, raw := range urls {
		if err := checkURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if len(cfg.Signals.Kinds) == 0 {
		return fmt.Errorf("signals.kinds: at least one report kind is required")
	}
	for i, k := range cfg.Signals.Kinds {
		if k == "" {
			return fmt.Errorf("signals.kinds[%d]: empty kind", i)
		}
	}
	if cfg.Signals.MinRelevance <= 0 || cfg.Signals.MinRelevance > 10 {
		return fmt.Errorf("signals.min_relevance: %v out of range (0, 10]", cfg.Signals.MinRelevance)
	}
	if cfg.Signals.MaxSources < 0 {
		return fmt.Errorf("signals.max_sources: must not be negative")
	}
	if cfg.Inference.Model == "" {
		return fmt.Errorf("inference.model is required")
	}
	if cfg.Content.PostsDir == "" || cfg.Content.EmailsDir == "" {
		return fmt.Errorf("content.posts_dir and content.emails_dir are required")
	}
	if cfg.Email.From == "" {
		return fmt.Errorf("email.from is required")
	}
	durations := map[string]string{
		"signals.timeout":   cfg.Signals.Timeout,
		"inference.timeout": cfg.Inference.Timeout,
		"email.timeout":     cfg.Email.Timeout,
	}
	for name, s := range durations {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func checkURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}
