// Package services implements the catalog clients the sync engine reads from and writes to.
//
// # Contracts
//
// [Catalog] lists playlists and reads their tracks. [Target] adds search, append and the
// per-call batch ceiling. [Authorizer] is the OAuth2 half: the consent configuration, installing
// a token, and reading back the (possibly refreshed) token so the CLI can persist it.
//
// # Spotify Implementation
//
// [SpotifyService] talks to the Web API through resty on top of an [oauth2] client, which
// refreshes expired tokens with the saved refresh token. Pagination follows the absolute
// "next" URLs in each response. Writes send up to 100 spotify:track URIs per call.
//
// # YouTube Implementation
//
// [YouTubeService] uses the generated Data API v3 client. Pagination follows nextPageToken.
// Search results are video titles, so they are normalized into candidates the same way source
// titles are. Writes insert one video per call.
//
// # Pagination and Writes
//
// [Drain] reads every page of a listing and refuses to stop early. [BatchWriter] splits ids into
// chunks no larger than the target accepts and paces the calls with a [rate.Limiter].
//
// # Error Handling
//
// Errors wrap sentinels from the shared package so callers can use errors.Is:
//   - [shared.ErrFetchFailed] : listing or reading a playlist failed
//   - [shared.ErrSearchFailed] : a single search failed
//   - [shared.ErrWriteFailed] : adding tracks failed
//   - [shared.ErrAuthFailed] : 401/403 or a failed token refresh
//   - [shared.ErrPlaylistNotFound] : 404
//   - [shared.ErrRateLimited] : 429 or an exhausted quota
package services
