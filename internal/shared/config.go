package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// MinWriteDelay is the shortest spacing allowed between playlist write calls.
const MinWriteDelay = 200 * time.Millisecond

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify PlatformConfig `toml:"spotify"`
	YouTube PlatformConfig `toml:"youtube"`
}

// PlatformConfig holds an OAuth2 client registration and the most recent token issued to it.
type PlatformConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	Scopes       []string  `toml:"scopes"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenType    string    `toml:"token_type,omitempty"`
	Expiry       time.Time `toml:"expiry"`
}

// ServerConfig contains the local OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig tunes the reconciliation engine.
type SyncConfig struct {
	PageSize       int           `toml:"page_size"`       // items requested per playlist page
	SearchLimit    int           `toml:"search_limit"`    // candidates requested per target search
	MatchThreshold float64       `toml:"match_threshold"` // combined score a candidate must exceed
	BatchSize      int           `toml:"batch_size"`      // ids per write call, capped by the platform
	WriteDelay     time.Duration `toml:"write_delay"`     // minimum delay between write calls
	MaxTracks      int           `toml:"max_tracks"`      // 0 reads the whole playlist
}

// Addr returns the host:port the callback server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Configured reports whether a client registration is present. The placeholders of the example config do not count.
func (p PlatformConfig) Configured() bool {
	if p.ClientID == "" || p.ClientSecret == "" {
		return false
	}
	return !strings.HasPrefix(p.ClientID, "your_") && !strings.HasPrefix(p.ClientSecret, "your_")
}

// HasToken reports whether a token has been saved by a previous authorization.
func (p PlatformConfig) HasToken() bool {
	return p.AccessToken != "" || p.RefreshToken != ""
}

// Token converts the saved fields into an [oauth2.Token], or nil when none is stored.
func (p PlatformConfig) Token() *oauth2.Token {
	if !p.HasToken() {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		Expiry:       p.Expiry,
	}
}

// Update stores the fields of token. A refresh token is kept when the new token omits one.
func (p *PlatformConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrInvalidArgument)
	}
	p.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		p.RefreshToken = token.RefreshToken
	}
	p.TokenType = token.TokenType
	p.Expiry = token.Expiry
	return nil
}

// Validate checks the values the sync engine depends on.
func (c *Config) Validate() error {
	if c.Sync.MatchThreshold < 0 || c.Sync.MatchThreshold >= 1 {
		return fmt.Errorf("%w: sync.match_threshold must be in [0, 1), got %v", ErrInvalidConfig, c.Sync.MatchThreshold)
	}
	if c.Sync.PageSize < 0 || c.Sync.SearchLimit < 0 || c.Sync.BatchSize < 0 || c.Sync.MaxTracks < 0 {
		return fmt.Errorf("%w: sync sizes must not be negative", ErrInvalidConfig)
	}
	if c.Sync.WriteDelay < MinWriteDelay {
		return fmt.Errorf("%w: sync.write_delay must be at least %v, got %v", ErrInvalidConfig, MinWriteDelay, c.Sync.WriteDelay)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes config to path. The file holds tokens, so it is created owner-readable only.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
