// Spotify Web API implementation of [Target]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// SpotifyMaxBatch is the most URIs the add-items endpoint accepts per call.
	SpotifyMaxBatch       = 100
	spotifyMaxTracksPage  = 100
	spotifyPlaylistsPage  = 50
	spotifyMaxSearchLimit = 50
	spotifyTrackURIPrefix = "spotify:track:"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"` // track or episode
	IsLocal bool            `json:"is_local"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// PrimaryArtist returns the first credited artist, or an empty string.
func (t SpotifyTrack) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items []SpotifySimplePlaylist `json:"items"`
	Total int                     `json:"total"`
	Next  *string                 `json:"next"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks represents one page of a playlist's items.
type SpotifyPaginatedPlaylistTracks struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Total int                    `json:"total"`
	Next  *string                `json:"next"`
}

// SpotifySearchResult is the track section of a search response.
type SpotifySearchResult struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b *spotifyErrorBody) message() string {
	if b == nil {
		return ""
	}
	return b.Error.Message
}

// SpotifyService implements [Target] and [Authorizer] for the Spotify Web API.
// Requests go through resty on top of an [oauth2] client, which refreshes expired tokens.
type SpotifyService struct {
	config *oauth2.Config
	opts   *options
	source oauth2.TokenSource
	client *resty.Client
	logger *log.Logger
}

// NewSpotifyService creates a new Spotify service for the given client registration.
func NewSpotifyService(creds shared.PlatformConfig, opts ...Option) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingCredentials)
	}

	o := newOptions(opts)
	if o.baseURL == "" {
		o.baseURL = spotifyBaseURL
	}

	return &SpotifyService{
		config: SpotifyOAuthConfig(creds),
		opts:   o,
		logger: shared.WithLogger(o.logger, "service", "spotify"),
	}, nil
}

// SpotifyOAuthConfig builds the OAuth2 configuration for Spotify's accounts service.
func SpotifyOAuthConfig(creds shared.PlatformConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       creds.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig implements [Authorizer].
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate installs token and builds the API client on top of it.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: spotify: no token", shared.ErrNotAuthenticated)
	}

	ctx = s.opts.oauthContext(ctx)
	s.source = s.config.TokenSource(ctx, token)
	s.client = resty.NewWithClient(oauth2.NewClient(ctx, s.source)).
		SetBaseURL(s.opts.baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return nil
}

// Token implements [Authorizer].
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.source.Token()
}

// request starts an authenticated request, or fails when Authenticate has not been called.
func (s *SpotifyService) request(ctx context.Context) (*resty.Request, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: spotify: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.client.R().SetContext(ctx).SetError(&spotifyErrorBody{}), nil
}

// get fetches endpoint (relative to the API root, or an absolute next URL) into result.
func (s *SpotifyService) get(ctx context.Context, kind error, endpoint string, params url.Values, result any) error {
	req, err := s.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetQueryParamsFromValues(params).SetResult(result).Get(endpoint)
	if err != nil {
		return transportError(kind, s.Name(), err)
	}
	if resp.IsError() {
		body, _ := resp.Error().(*spotifyErrorBody)
		return statusError(kind, s.Name(), resp.StatusCode(), body.message())
	}
	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.get(ctx, shared.ErrFetchFailed, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return Drain(ctx, func(ctx context.Context, cursor string) (*Page[models.Playlist], error) {
		endpoint, params := cursor, url.Values(nil)
		if cursor == "" {
			endpoint = "/me/playlists"
			params = url.Values{"limit": {strconv.Itoa(spotifyPlaylistsPage)}}
		}

		var resp SpotifyPaginatedPlaylists
		if err := s.get(ctx, shared.ErrFetchFailed, endpoint, params, &resp); err != nil {
			return nil, err
		}

		page := &Page[models.Playlist]{Next: deref(resp.Next)}
		for _, p := range resp.Items {
			page.Items = append(page.Items, models.Playlist{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				TrackCount:  p.Tracks.Total,
				Public:      p.Public,
			})
		}
		return page, nil
	})
}

// PlaylistTracks reads every item of a playlist, following the absolute next URLs Spotify returns.
// Removed items (null track) are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, pageSize int) ([]models.TrackRef, error) {
	limit := clamp(pageSize, 1, spotifyMaxTracksPage)
	if pageSize <= 0 {
		limit = spotifyMaxTracksPage
	}

	return Drain(ctx, func(ctx context.Context, cursor string) (*Page[models.TrackRef], error) {
		endpoint, params := cursor, url.Values(nil)
		if cursor == "" {
			endpoint = "/playlists/" + url.PathEscape(playlistID) + "/tracks"
			params = url.Values{"limit": {strconv.Itoa(limit)}, "offset": {"0"}}
		}

		var resp SpotifyPaginatedPlaylistTracks
		if err := s.get(ctx, shared.ErrFetchFailed, endpoint, params, &resp); err != nil {
			return nil, err
		}

		page := &Page[models.TrackRef]{Next: deref(resp.Next)}
		for _, item := range resp.Items {
			if item.Track == nil {
				continue
			}
			page.Items = append(page.Items, models.TrackRef{
				ID:     item.Track.ID,
				Title:  item.Track.Name,
				Artist: item.Track.PrimaryArtist(),
			})
		}
		s.logger.Debug("read page", "playlist", playlistID, "items", len(page.Items), "more", page.Next != "")
		return page, nil
	})
}

// SpotifySearchQuery builds the search string: "<track> artist:<artist>", or the bare track.
func SpotifySearchQuery(q models.NormalizedTitle) string {
	if q.Artist == "" {
		return q.Track
	}
	return fmt.Sprintf("%s artist:%s", q.Track, q.Artist)
}

// SearchTracks searches the track catalog.
func (s *SpotifyService) SearchTracks(ctx context.Context, q models.NormalizedTitle, limit int) ([]models.Candidate, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, spotifyMaxSearchLimit)

	params := url.Values{
		"q":     {SpotifySearchQuery(q)},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}

	var resp SpotifySearchResult
	if err := s.get(ctx, shared.ErrSearchFailed, "/search", params, &resp); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		candidates = append(candidates, models.Candidate{ID: t.ID, Title: t.Name, Artist: t.PrimaryArtist()})
	}
	return candidates, nil
}

// AppendToPlaylist adds tracks by id, sending spotify:track URIs.
func (s *SpotifyService) AppendToPlaylist(ctx context.Context, playlistID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > SpotifyMaxBatch {
		return fmt.Errorf("%w: %d ids exceeds the spotify batch limit of %d", shared.ErrInvalidArgument, len(ids), SpotifyMaxBatch)
	}

	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = spotifyTrackURIPrefix + id
	}

	req, err := s.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(map[string][]string{"uris": uris}).
		Post("/playlists/" + url.PathEscape(playlistID) + "/tracks")
	if err != nil {
		return transportError(shared.ErrWriteFailed, s.Name(), err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		body, _ := resp.Error().(*spotifyErrorBody)
		return statusError(shared.ErrWriteFailed, s.Name(), resp.StatusCode(), body.message())
	}
	return nil
}

// MaxBatchSize implements [Target].
func (s *SpotifyService) MaxBatchSize() int {
	return SpotifyMaxBatch
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
