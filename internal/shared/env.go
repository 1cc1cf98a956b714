package shared

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvOverrides are credential settings read from the process environment.
//
// Scopes are space or comma separated, matching what OAuth consoles hand out.
type EnvOverrides struct {
	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string `envconfig:"SPOTIFY_REDIRECT_URI"`
	SpotifyScope        string `envconfig:"SPOTIFY_SCOPE"`
	GoogleClientID      string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI   string `envconfig:"GOOGLE_REDIRECT_URI"`
	GoogleScope         string `envconfig:"GOOGLE_SCOPE"`
}

// LoadEnv loads each dotenv file that exists (without overwriting variables already set) and then reads [EnvOverrides].
func LoadEnv(files ...string) (*EnvOverrides, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var env EnvOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &env, nil
}

// ApplyEnv copies every non-empty override onto the config.
func (c *Config) ApplyEnv(env *EnvOverrides) {
	if env == nil {
		return
	}
	applyPlatform(&c.Credentials.Spotify, env.SpotifyClientID, env.SpotifyClientSecret, env.SpotifyRedirectURI, env.SpotifyScope)
	applyPlatform(&c.Credentials.YouTube, env.GoogleClientID, env.GoogleClientSecret, env.GoogleRedirectURI, env.GoogleScope)
}

func applyPlatform(p *PlatformConfig, id, secret, redirect, scope string) {
	if id != "" {
		p.ClientID = id
	}
	if secret != "" {
		p.ClientSecret = secret
	}
	if redirect != "" {
		p.RedirectURI = redirect
	}
	if scopes := splitScopes(scope); len(scopes) > 0 {
		p.Scopes = scopes
	}
}

func splitScopes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
}
