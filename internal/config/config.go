package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/address"
	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/session"
	"github.com/Veraticus/the-spice-must-chat/internal/sheets"
	"github.com/spf13/viper"
)

// Credential store backends.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// Config is the complete service configuration.
type Config struct {
	Sheets        *sheets.Config // nil when the mirror is disabled
	Database      DatabaseConfig
	Session       SessionConfig
	Transport     TransportConfig
	Transcription TranscriptionConfig
	Router        RouterConfig
	Server        ServerConfig
	Documents     DocumentsConfig
	Logging       LoggingConfig
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// SessionConfig selects the credential store and the reconnect policy.
type SessionConfig struct {
	Store           string
	CredentialsPath string
	Policy          session.Policy
}

// TransportConfig points at the protocol gateway.
type TransportConfig struct {
	URL            string
	Token          string
	Domain         string
	RequestTimeout time.Duration
}

// TranscriptionConfig configures the speech-to-text client. An empty APIKey
// disables audio handling.
type TranscriptionConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
}

// RouterConfig configures the inbound pipeline.
type RouterConfig struct {
	WebhookURL  string
	Concurrency int
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string
}

// DocumentsConfig configures document resolution. An empty URLTemplate
// disables document delivery.
type DocumentsConfig struct {
	URLTemplate string
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	policy := session.DefaultPolicy()

	v.SetDefault("database.path", filepath.Join(DefaultDataDir(), "spicechat.db"))
	v.SetDefault("session.store", StoreSQLite)
	v.SetDefault("session.credentials_path", filepath.Join(DefaultDataDir(), "credentials.json"))
	v.SetDefault("session.max_reconnect_attempts", policy.MaxAttempts)
	v.SetDefault("session.backoff_step", policy.Step)
	v.SetDefault("session.backoff_max", policy.Max)
	v.SetDefault("session.start_retry_delay", policy.StartRetryDelay)
	v.SetDefault("transport.url", "ws://127.0.0.1:3002/session")
	v.SetDefault("transport.domain", address.DefaultDomain)
	v.SetDefault("transport.request_timeout", 30*time.Second)
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("transcription.language", "pt")
	v.SetDefault("router.concurrency", 8)
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the typed configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Session: SessionConfig{
			Store:           strings.ToLower(strings.TrimSpace(v.GetString("session.store"))),
			CredentialsPath: ExpandPath(v.GetString("session.credentials_path")),
			Policy: session.Policy{
				MaxAttempts:     v.GetInt("session.max_reconnect_attempts"),
				Step:            v.GetDuration("session.backoff_step"),
				Max:             v.GetDuration("session.backoff_max"),
				StartRetryDelay: v.GetDuration("session.start_retry_delay"),
			},
		},
		Transport: TransportConfig{
			URL:            strings.TrimSpace(v.GetString("transport.url")),
			Token:          v.GetString("transport.token"),
			Domain:         v.GetString("transport.domain"),
			RequestTimeout: v.GetDuration("transport.request_timeout"),
		},
		Transcription: TranscriptionConfig{
			BaseURL:  v.GetString("transcription.base_url"),
			APIKey:   v.GetString("transcription.api_key"),
			Model:    v.GetString("transcription.model"),
			Language: v.GetString("transcription.language"),
		},
		Router: RouterConfig{
			WebhookURL:  strings.TrimSpace(v.GetString("router.webhook_url")),
			Concurrency: v.GetInt("router.concurrency"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
		Documents: DocumentsConfig{
			URLTemplate: strings.TrimSpace(v.GetString("documents.url_template")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	sheetsConfig, err := LoadSheetsConfig(v)
	if err != nil {
		return nil, fmt.Errorf("sheets: %w", err)
	}
	cfg.Sheets = sheetsConfig

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}

	switch c.Session.Store {
	case StoreSQLite:
	case StoreFile:
		if c.Session.CredentialsPath == "" {
			return fmt.Errorf("%w: session.credentials_path", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: session.store must be %q or %q, got %q",
			common.ErrInvalidConfig, StoreSQLite, StoreFile, c.Session.Store)
	}

	p := c.Session.Policy
	if p.MaxAttempts < 0 || p.Step < 0 || p.Max < 0 || p.StartRetryDelay < 0 {
		return fmt.Errorf("%w: session reconnect settings cannot be negative", common.ErrInvalidConfig)
	}
	if p.Step > 0 && p.Max > 0 && p.Step > p.Max {
		return fmt.Errorf("%w: session.backoff_step exceeds session.backoff_max", common.ErrInvalidConfig)
	}

	if c.Router.WebhookURL != "" {
		u, err := url.Parse(c.Router.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: router.webhook_url must be an http(s) URL", common.ErrInvalidConfig)
		}
	}
	if c.Router.Concurrency < 0 {
		return fmt.Errorf("%w: router.concurrency cannot be negative", common.ErrInvalidConfig)
	}

	if c.Documents.URLTemplate != "" && !strings.Contains(c.Documents.URLTemplate, "{id}") {
		return fmt.Errorf("%w: documents.url_template must contain {id}", common.ErrInvalidConfig)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr", common.ErrMissingConfig)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}
