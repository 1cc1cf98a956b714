// package services defines the catalog contracts the sync engine works against
//
// Spotify (Web API over resty), YouTube (Data API v3)
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/oauth2"
)

// Catalog is a music platform that playlists can be read from.
type Catalog interface {
	// Name returns the display name of the platform (e.g., "Spotify", "YouTube")
	Name() string

	// GetPlaylists lists every playlist owned or followed by the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks reads the full ordered track list of a playlist, pageSize items per request.
	PlaylistTracks(ctx context.Context, playlistID string, pageSize int) ([]models.TrackRef, error)
}

// Target is a catalog that can also be searched and written to.
type Target interface {
	Catalog

	// SearchTracks returns up to limit candidates for the query, in the platform's relevance order.
	SearchTracks(ctx context.Context, query models.NormalizedTitle, limit int) ([]models.Candidate, error)

	// AppendToPlaylist adds ids to the end of a playlist in one call. len(ids) must not exceed [Target.MaxBatchSize].
	AppendToPlaylist(ctx context.Context, playlistID string, ids []string) error

	// MaxBatchSize is the most ids a single AppendToPlaylist call accepts.
	MaxBatchSize() int
}

// Authorizer is implemented by catalogs that authenticate with the OAuth2 authorization-code flow.
type Authorizer interface {
	// OAuthConfig returns the client registration used to build consent URLs and exchange codes.
	OAuthConfig() *oauth2.Config

	// Authenticate installs token; refreshes happen transparently afterwards.
	Authenticate(ctx context.Context, token *oauth2.Token) error

	// Token returns the current, possibly refreshed, token so it can be persisted.
	Token() (*oauth2.Token, error)
}

const (
	defaultTimeout     = 30 * time.Second
	defaultSearchLimit = 5
)

// Option configures a platform client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// WithBaseURL points the client at a different API root. Used by tests.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient sets the client used for token requests and as the transport under the OAuth2 client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger. Clients log nothing by default.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) *options {
	o := &options{logger: shared.DiscardLogger()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = shared.DiscardLogger()
	}
	return o
}

// oauthContext carries the configured base client to the oauth2 package.
func (o *options) oauthContext(ctx context.Context) context.Context {
	if o.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
}

// statusError classifies a non-2xx response. kind is the operation's sentinel
// ([shared.ErrFetchFailed], [shared.ErrSearchFailed] or [shared.ErrWriteFailed]).
func statusError(kind error, service string, status int, message string) error {
	var cause error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		cause = shared.ErrAuthFailed
	case status == http.StatusNotFound:
		cause = shared.ErrPlaylistNotFound
	case status == http.StatusTooManyRequests:
		cause = shared.ErrRateLimited
	case status >= 500:
		cause = shared.ErrServiceUnavailable
	}

	if message == "" {
		message = http.StatusText(status)
	}

	if cause == nil {
		return fmt.Errorf("%w: %s: status %d: %s", kind, service, status, message)
	}
	return fmt.Errorf("%w: %w: %s: status %d: %s", kind, cause, service, status, message)
}

// transportError classifies a request that never produced a response. Token
// refresh failures surface here and are reported as authentication failures.
func transportError(kind error, service string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %w: %s: %w", kind, shared.ErrAuthFailed, service, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, service, err)
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
