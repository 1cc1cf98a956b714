package models

import "strings"

// Playlist is playlist metadata as listed by a catalog.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}

// TrackRef is one entry of a source playlist.
//
// Artist is whatever the platform reports alongside the title: the primary artist on Spotify,
// the uploading channel on YouTube. It may be empty.
type TrackRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

// NormalizedTitle is the (artist, track) pair a raw title reduces to. Both parts are trimmed.
type NormalizedTitle struct {
	Artist string `json:"artist"`
	Track  string `json:"track"`
}

// Empty reports whether there is nothing left to search for.
func (n NormalizedTitle) Empty() bool {
	return strings.TrimSpace(n.Track) == ""
}

// String renders the pair the way titles are usually written, "Artist - Track".
func (n NormalizedTitle) String() string {
	if n.Artist == "" {
		return n.Track
	}
	return n.Artist + " - " + n.Track
}

// Candidate is a search result on the target catalog.
type Candidate struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// ScoredCandidate carries the score breakdown of a candidate against a query.
type ScoredCandidate struct {
	Candidate
	TitleScore  float64 `json:"title_score"`
	ArtistScore float64 `json:"artist_score"`
	Combined    float64 `json:"combined"`
}

// MatchDecision is either a match on ID or no match. Best is the highest scoring candidate
// that was considered, even when it fell below the threshold, and is nil when there were none.
type MatchDecision struct {
	Matched bool             `json:"matched"`
	ID      string           `json:"id,omitempty"`
	Best    *ScoredCandidate `json:"best,omitempty"`
}

// Unmatched returns the no-match decision with best attached for reporting.
func Unmatched(best *ScoredCandidate) MatchDecision {
	return MatchDecision{Best: best}
}

// Matched returns a match on best.
func Matched(best *ScoredCandidate) MatchDecision {
	return MatchDecision{Matched: true, ID: best.ID, Best: best}
}

// TrackOutcome records what happened to one source track. Err is set when the
// target search failed; the track is then unmatched and the run continues.
type TrackOutcome struct {
	Position int             `json:"position"`
	Source   TrackRef        `json:"source"`
	Query    NormalizedTitle `json:"query"`
	Decision MatchDecision   `json:"decision"`
	Err      error           `json:"-"`
}

// Status is a one-word label for the outcome.
func (o TrackOutcome) Status() string {
	switch {
	case o.Err != nil:
		return "error"
	case o.Decision.Matched:
		return "matched"
	default:
		return "unmatched"
	}
}

// Reason returns the failure message, or an empty string.
func (o TrackOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
