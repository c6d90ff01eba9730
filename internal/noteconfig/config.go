// Package noteconfig loads, validates, and persists the client's
// on-disk configuration.
package noteconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmined/notesync/internal/notecore"
	"github.com/openmined/notesync/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigPath  = filepath.Join(home, ".notesync", "config.json")
	DefaultDataDir     = filepath.Join(home, "Notes")
	DefaultServerURL   = "https://api.notesync.example"
	DefaultLogFilePath = filepath.Join(home, ".notesync", "logs", "notesync.log")
)

var ErrInvalidURL = errors.New("invalid url")

// Config is the on-disk client configuration plus the queue tuning
// parameters recognized per §6.
type Config struct {
	DataDir      string `json:"data_dir"`
	Email        string `json:"email"`
	ServerURL    string `json:"server_url"`
	RefreshToken string `json:"refresh_token,omitempty"`
	AccessToken  string `json:"-"` // never persisted, in-memory only

	MaxRetry           int   `json:"max_retry,omitempty"`
	BaseRetryDelayMS   int64 `json:"base_retry_delay_ms,omitempty"`
	MaxRetryDelayMS    int64 `json:"max_retry_delay_ms,omitempty"`
	RetryCheckMS       int64 `json:"retry_check_interval_ms,omitempty"`
	TemporaryIDPrefix  string `json:"temporary_id_prefix,omitempty"`

	Path string `json:"-"`
}

// Save writes the config to c.Path as JSON.
func (c *Config) Save() error {
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path, data, 0o600)
}

// Validate resolves paths, fills defaults, and checks required fields.
func (c *Config) Validate() error {
	if c.Path == "" {
		c.Path = DefaultConfigPath
	}

	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = dataDir

	c.Email = strings.ToLower(c.Email)
	if err := utils.ValidateEmail(c.Email); err != nil {
		return err
	}

	if err := validateURL(c.ServerURL); err != nil {
		return fmt.Errorf("server url: %w", err)
	}

	applyDefault(&c.MaxRetry, 5)
	applyDefaultI64(&c.BaseRetryDelayMS, 1000)
	applyDefaultI64(&c.MaxRetryDelayMS, 60000)
	applyDefaultI64(&c.RetryCheckMS, 30000)
	if c.TemporaryIDPrefix == "" {
		c.TemporaryIDPrefix = notecore.TemporaryIDPrefix
	}

	return nil
}

// QueueConfig derives a notecore.QueueConfig from the recognized keys.
func (c *Config) QueueConfig() notecore.QueueConfig {
	return notecore.QueueConfig{
		MaxRetry:           c.MaxRetry,
		BaseRetryDelay:     time.Duration(c.BaseRetryDelayMS) * time.Millisecond,
		MaxRetryDelay:      time.Duration(c.MaxRetryDelayMS) * time.Millisecond,
		RetryCheckInterval: time.Duration(c.RetryCheckMS) * time.Millisecond,
		TemporaryIDPrefix:  c.TemporaryIDPrefix,
	}
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("data_dir", c.DataDir),
		slog.String("email", c.Email),
		slog.String("server_url", c.ServerURL),
		slog.Bool("refresh_token", c.RefreshToken != ""),
		slog.String("path", c.Path),
	)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

func applyDefault(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

func applyDefaultI64(field *int64, def int64) {
	if *field == 0 {
		*field = def
	}
}

// LoadFromFile reads and parses the config at path.
func LoadFromFile(path string) (*Config, error) {
	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadFromReader(resolved, f)
}

// LoadFromReader parses config JSON from reader, tagging the result with
// path so Save knows where to write it back.
func LoadFromReader(path string, reader io.ReadCloser) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Path = path
	return &cfg, nil
}
