package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthTimeout = 2 * time.Minute
	shutdownTimeout    = 5 * time.Second
)

// AuthorizeOptions configures one run of the authorization-code flow.
type AuthorizeOptions struct {
	// Platform names the service in messages, e.g. "Spotify".
	Platform string
	// Addr is where the callback server listens. Ignored when Listener is set.
	Addr     string
	Listener net.Listener
	Timeout  time.Duration
	// AuthCodeOptions are added to the consent URL (offline access, forced consent).
	AuthCodeOptions []oauth2.AuthCodeOption
	// OpenBrowser opens the consent URL. When it fails the URL is printed instead.
	OpenBrowser func(url string) error
	Out         io.Writer
	Logger      *log.Logger
}

// Authorize runs the OAuth2 authorization-code flow against a local, single-use callback server
// and returns the issued token.
//
// The server accepts exactly one callback and is shut down before Authorize returns. Nothing
// outside this call observes the token until it is returned.
func Authorize(ctx context.Context, config *oauth2.Config, opts AuthorizeOptions) (*oauth2.Token, error) {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	open := opts.OpenBrowser
	if open == nil {
		open = shared.OpenBrowser
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := NewOAuthHandler(config, state)
	handler.ctx = ctx
	if opts.Platform != "" {
		handler.platform = opts.Platform
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	listener := opts.Listener
	if listener == nil {
		if listener, err = net.Listen("tcp", opts.Addr); err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", opts.Addr, err)
		}
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting OAuth callback server", "addr", listener.Addr().String(), "platform", opts.Platform)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := config.AuthCodeURL(state, opts.AuthCodeOptions...)

	fmt.Fprintf(out, "→ Opening browser for %s authorization...\n", opts.Platform)
	if err := open(authURL); err != nil {
		logger.Warn("failed to open browser automatically", "error", err)
		fmt.Fprintln(out, "⚠ Could not open browser automatically.")
		fmt.Fprintf(out, "Please open this URL in your browser:\n%s\n\n", authURL)
	}
	fmt.Fprintf(out, "→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, result.Error()
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// RequestLogger logs each request at debug level.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
		})
	}
}
