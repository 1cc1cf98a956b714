// Package server runs the local OAuth2 callback used by `plsync auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Authorize
//
// [Authorize] wires the handler into a temporary server on the configured callback address, opens the consent
// page in a browser, waits for the single callback (or a timeout), shuts the server down and returns the token.
// The token only ever travels through the handler's result channel and the return value.
package server
