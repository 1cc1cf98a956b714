package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Catalog errors
	ErrFetchFailed        = fmt.Errorf("fetch failed")
	ErrSearchFailed       = fmt.Errorf("search failed")
	ErrWriteFailed        = fmt.Errorf("write failed")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidSelection = fmt.Errorf("invalid selection")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrCancelled        = fmt.Errorf("cancelled by user")
)
