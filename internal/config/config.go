// Package config handles TOML configuration loading with environment
// variable substitution and change watching.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Database      DatabaseConfig      `toml:"database"`
	Catalog       CatalogConfig       `toml:"catalog"`
	Notifications NotificationsConfig `toml:"notifications"`
	ImageRelay    ImageRelayConfig    `toml:"imagerelay"`
	Subscribers   []SubscriberConfig  `toml:"subscriber"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// CatalogConfig points at the media server whose library is announced.
type CatalogConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`

	// ServerName is shown in message titles and footers when a subscriber
	// sets server_name_override.
	ServerName string `toml:"server_name"`

	// RemoteAccess means the server URL is reachable by message readers,
	// so deep links and server-hosted images may be embedded.
	RemoteAccess bool `toml:"remote_access"`

	// InstanceID is the server id used in deep links.
	InstanceID string `toml:"instance_id"`
}

// NotificationsConfig tunes the readiness poller and the send queue.
type NotificationsConfig struct {
	RecheckInterval Duration `toml:"recheck_interval"`
	SendInterval    Duration `toml:"send_interval"`
	MaxRetries      int      `toml:"max_retries"`
	FallbackFactor  float64  `toml:"fallback_factor"`
}

type ImageRelayConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

// SubscriberConfig is one webhook destination.
type SubscriberConfig struct {
	Name          string `toml:"name"`
	UserID        string `toml:"user_id"`
	Enabled       bool   `toml:"enabled"`
	AnnounceOnAdd bool   `toml:"announce_on_add"`
	WebhookURL    string `toml:"webhook_url"`

	AvatarURL            string   `toml:"avatar_url"`
	Username             string   `toml:"username"`
	EmbedColor           string   `toml:"embed_color"`
	Mention              string   `toml:"mention"`
	ServerNameOverride   bool     `toml:"server_name_override"`
	ServerURL            string   `toml:"server_url"`
	ExcludeExternalLinks bool     `toml:"exclude_external_links"`
	Categories           []string `toml:"categories"`
}

// Duration decodes TOML strings like "10s" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load reads and parses the configuration file. Missing environment
// variables and validation failures are aggregated into a ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}

	return &cfg, nil
}

//go:embed default_config.toml
var defaultConfig string

// WriteDefault scaffolds the commented example config at path, creating
// parent directories as needed. The file references ${JELLYFIN_API_KEY} and
// ${DISCORD_WEBHOOK_URL}, resolved from the environment by Load.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0644)
}

// Write encodes the config as TOML at path. Unlike WriteDefault the output
// carries no comments or env placeholders, only the current values.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8686
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/notifyrr.db"
	}
	if c.Catalog.ServerName == "" {
		c.Catalog.ServerName = "Jellyfin"
	}
	for i := range c.Subscribers {
		sub := &c.Subscribers[i]
		if sub.Username == "" {
			sub.Username = "Jellyfin"
		}
		if sub.EmbedColor == "" {
			sub.EmbedColor = "#7289DA"
		}
		if sub.Mention == "" {
			sub.Mention = "none"
		}
		if len(sub.Categories) == 0 {
			sub.Categories = []string{"movie", "episode", "series", "season"}
		}
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
// and collects the names it could not resolve.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		missing = append(missing, varName)
		return match
	})
	return out, missing
}
