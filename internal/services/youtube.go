// YouTube Data API v3 implementation of [Target]
package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/matching"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	// YouTubeMaxBatch is one video per playlistItems.insert call.
	YouTubeMaxBatch = 1
	youtubeMaxPage  = 50

	youtubeVideoKind = "youtube#video"
)

// Placeholder titles the API returns for entries whose video is gone.
var youtubeUnavailable = map[string]bool{
	"Deleted video": true,
	"Private video": true,
}

// YouTubeService implements [Target] and [Authorizer] for the YouTube Data API v3.
type YouTubeService struct {
	config *oauth2.Config
	opts   *options
	source oauth2.TokenSource
	api    *youtube.Service
	logger *log.Logger
}

// NewYouTubeService creates a new YouTube service for the given Google client registration.
func NewYouTubeService(creds shared.PlatformConfig, opts ...Option) (*YouTubeService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: google client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client_secret", shared.ErrMissingCredentials)
	}

	o := newOptions(opts)
	return &YouTubeService{
		config: YouTubeOAuthConfig(creds),
		opts:   o,
		logger: shared.WithLogger(o.logger, "service", "youtube"),
	}, nil
}

// YouTubeOAuthConfig builds the OAuth2 configuration for Google. The youtube scope is used when none is configured.
func YouTubeOAuthConfig(creds shared.PlatformConfig) *oauth2.Config {
	scopes := creds.Scopes
	if len(scopes) == 0 {
		scopes = []string{youtube.YoutubeScope}
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}
}

func (y *YouTubeService) Name() string {
	return "YouTube"
}

// OAuthConfig implements [Authorizer].
func (y *YouTubeService) OAuthConfig() *oauth2.Config {
	return y.config
}

// Authenticate installs token and builds the API client on top of it.
func (y *YouTubeService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: youtube: no token", shared.ErrNotAuthenticated)
	}

	ctx = y.opts.oauthContext(ctx)
	y.source = y.config.TokenSource(ctx, token)

	clientOpts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, y.source))}
	if y.opts.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(y.opts.baseURL))
	}

	api, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf("%w: youtube: %w", shared.ErrAuthFailed, err)
	}
	y.api = api
	return nil
}

// Token implements [Authorizer].
func (y *YouTubeService) Token() (*oauth2.Token, error) {
	if y.source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return y.source.Token()
}

func (y *YouTubeService) ready() error {
	if y.api == nil {
		return fmt.Errorf("%w: youtube: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return nil
}

// apiError classifies an error returned by a generated API call.
func (y *YouTubeService) apiError(kind error, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return transportError(kind, y.Name(), err)
	}

	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return fmt.Errorf("%w: %w: %s: %s", kind, shared.ErrRateLimited, y.Name(), gerr.Message)
		}
	}
	return statusError(kind, y.Name(), gerr.Code, gerr.Message)
}

// GetPlaylists retrieves all playlists owned by the authenticated channel.
func (y *YouTubeService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if err := y.ready(); err != nil {
		return nil, err
	}

	return Drain(ctx, func(ctx context.Context, cursor string) (*Page[models.Playlist], error) {
		call := y.api.Playlists.List([]string{"snippet", "contentDetails", "status"}).
			Mine(true).
			MaxResults(youtubeMaxPage).
			Context(ctx)
		if cursor != "" {
			call = call.PageToken(cursor)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, y.apiError(shared.ErrFetchFailed, err)
		}

		page := &Page[models.Playlist]{Next: resp.NextPageToken}
		for _, p := range resp.Items {
			pl := models.Playlist{ID: p.Id}
			if p.Snippet != nil {
				pl.Name = p.Snippet.Title
				pl.Description = p.Snippet.Description
			}
			if p.ContentDetails != nil {
				pl.TrackCount = int(p.ContentDetails.ItemCount)
			}
			if p.Status != nil {
				pl.Public = p.Status.PrivacyStatus == "public"
			}
			page.Items = append(page.Items, pl)
		}
		return page, nil
	})
}

// PlaylistTracks reads every item of a playlist. Entries for deleted or private videos are skipped.
//
// The artist of each entry is the channel that uploaded the video.
func (y *YouTubeService) PlaylistTracks(ctx context.Context, playlistID string, pageSize int) ([]models.TrackRef, error) {
	if err := y.ready(); err != nil {
		return nil, err
	}

	limit := int64(clamp(pageSize, 1, youtubeMaxPage))
	if pageSize <= 0 {
		limit = youtubeMaxPage
	}

	return Drain(ctx, func(ctx context.Context, cursor string) (*Page[models.TrackRef], error) {
		call := y.api.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(playlistID).
			MaxResults(limit).
			Context(ctx)
		if cursor != "" {
			call = call.PageToken(cursor)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, y.apiError(shared.ErrFetchFailed, err)
		}

		page := &Page[models.TrackRef]{Next: resp.NextPageToken}
		for _, item := range resp.Items {
			sn := item.Snippet
			if sn == nil || youtubeUnavailable[sn.Title] {
				continue
			}
			ref := models.TrackRef{Title: sn.Title, Artist: sn.VideoOwnerChannelTitle}
			if sn.ResourceId != nil {
				ref.ID = sn.ResourceId.VideoId
			}
			page.Items = append(page.Items, ref)
		}
		y.logger.Debug("read page", "playlist", playlistID, "items", len(page.Items), "more", page.Next != "")
		return page, nil
	})
}

// YouTubeSearchQuery builds the search string "<artist> <track>".
func YouTubeSearchQuery(q models.NormalizedTitle) string {
	return strings.TrimSpace(q.Artist + " " + q.Track)
}

// SearchTracks searches videos.
//
// Video titles carry the same noise source titles do, so each result is normalized: the candidate
// title is the track part and the artist is the one named in the title, falling back to the channel.
func (y *YouTubeService) SearchTracks(ctx context.Context, q models.NormalizedTitle, limit int) ([]models.Candidate, error) {
	if err := y.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	resp, err := y.api.Search.List([]string{"snippet"}).
		Q(YouTubeSearchQuery(q)).
		Type("video").
		MaxResults(int64(clamp(limit, 1, youtubeMaxPage))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, y.apiError(shared.ErrSearchFailed, err)
	}

	candidates := make([]models.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		candidates = append(candidates, youtubeCandidate(item.Id.VideoId, item.Snippet.Title, item.Snippet.ChannelTitle))
	}
	return candidates, nil
}

func youtubeCandidate(id, title, channel string) models.Candidate {
	n := matching.Normalize(html.UnescapeString(title))
	artist := n.Artist
	if artist == "" {
		artist = strings.TrimSuffix(html.UnescapeString(channel), matching.TopicSuffix)
	}
	return models.Candidate{ID: id, Title: n.Track, Artist: artist}
}

// AppendToPlaylist inserts each video at the end of the playlist. The API accepts one video per call.
func (y *YouTubeService) AppendToPlaylist(ctx context.Context, playlistID string, ids []string) error {
	if err := y.ready(); err != nil {
		return err
	}
	if len(ids) > YouTubeMaxBatch {
		return fmt.Errorf("%w: %d ids exceeds the youtube batch limit of %d", shared.ErrInvalidArgument, len(ids), YouTubeMaxBatch)
	}

	for _, id := range ids {
		item := &youtube.PlaylistItem{
			Snippet: &youtube.PlaylistItemSnippet{
				PlaylistId: playlistID,
				ResourceId: &youtube.ResourceId{
					Kind:    youtubeVideoKind,
					VideoId: id,
				},
			},
		}

		if _, err := y.api.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
			return y.apiError(shared.ErrWriteFailed, err)
		}
	}
	return nil
}

// MaxBatchSize implements [Target].
func (y *YouTubeService) MaxBatchSize() int {
	return YouTubeMaxBatch
}
