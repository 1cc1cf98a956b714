// Package auth obtains OAuth2 tokens for the supported platforms.
//
// [Authenticator] has one capability method per platform. Both run the same local-callback flow
// from the server package; they differ only in the client registration and consent parameters.
package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/server"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/oauth2"
)

// Flow runs an authorization-code flow. [server.Authorize] is the production implementation.
type Flow func(ctx context.Context, config *oauth2.Config, opts server.AuthorizeOptions) (*oauth2.Token, error)

// Authenticator obtains tokens for Spotify and YouTube.
type Authenticator struct {
	config  *shared.Config
	flow    Flow
	open    func(string) error
	out     io.Writer
	timeout time.Duration
	logger  *log.Logger
}

// Option configures an [Authenticator].
type Option func(*Authenticator)

// WithFlow replaces the authorization flow. Used by tests.
func WithFlow(f Flow) Option { return func(a *Authenticator) { a.flow = f } }

// WithBrowser replaces the function that opens the consent page.
func WithBrowser(open func(string) error) Option { return func(a *Authenticator) { a.open = open } }

// WithOutput sets where user-facing instructions are printed.
func WithOutput(w io.Writer) Option { return func(a *Authenticator) { a.out = w } }

// WithTimeout bounds how long to wait for the callback.
func WithTimeout(d time.Duration) Option { return func(a *Authenticator) { a.timeout = d } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(a *Authenticator) { a.logger = l } }

// New returns an Authenticator reading client registrations and the callback address from config.
func New(config *shared.Config, opts ...Option) *Authenticator {
	a := &Authenticator{
		config:  config,
		flow:    server.Authorize,
		open:    shared.OpenBrowser,
		out:     io.Discard,
		timeout: server.DefaultAuthTimeout,
		logger:  shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Spotify runs the consent flow for Spotify and returns the token.
func (a *Authenticator) Spotify(ctx context.Context) (*oauth2.Token, error) {
	creds := a.config.Credentials.Spotify
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: set credentials.spotify client_id and client_secret (or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)", shared.ErrMissingCredentials)
	}
	return a.run(ctx, "Spotify", services.SpotifyOAuthConfig(creds))
}

// YouTube runs the consent flow for Google and returns the token. Offline access and forced
// consent are requested so Google issues a refresh token every time.
func (a *Authenticator) YouTube(ctx context.Context) (*oauth2.Token, error) {
	creds := a.config.Credentials.YouTube
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: set credentials.youtube client_id and client_secret (or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET)", shared.ErrMissingCredentials)
	}
	return a.run(ctx, "YouTube", services.YouTubeOAuthConfig(creds),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (a *Authenticator) run(ctx context.Context, platform string, cfg *oauth2.Config, params ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	addr := a.listenAddr(cfg.RedirectURL)
	a.logger.Info("authorizing", "platform", platform, "redirect", cfg.RedirectURL, "addr", addr)

	token, err := a.flow(ctx, cfg, server.AuthorizeOptions{
		Platform:        platform,
		Addr:            addr,
		Timeout:         a.timeout,
		AuthCodeOptions: params,
		OpenBrowser:     a.open,
		Out:             a.out,
		Logger:          a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%s authorization: %w", platform, err)
	}
	return token, nil
}

// listenAddr is the host:port of the redirect URL, so the callback lands where the provider
// sends it. The server section of the config is used when the redirect has no explicit port.
func (a *Authenticator) listenAddr(redirect string) string {
	if u, err := url.Parse(redirect); err == nil && u.Port() != "" {
		return net.JoinHostPort(u.Hostname(), u.Port())
	}
	return a.config.Server.Addr()
}
