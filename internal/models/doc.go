// Package models defines the values that flow through a playlist sync.
//
// The package contains two categories of types:
//
// 1. Catalog data: what the platform clients read
//   - [Playlist] : Basic playlist metadata from either catalog
//   - [TrackRef] : An opaque platform identifier with its human-readable title
//
// 2. Matching data: what the reconciliation engine derives
//   - [NormalizedTitle] : A cleaned (artist, track) pair derived from a raw title
//   - [Candidate] : One search result on the target catalog
//   - [ScoredCandidate] : A candidate with its title, artist and combined scores
//   - [MatchDecision] : The ranker's verdict for one source track
//   - [TrackOutcome] : The per-track record reported while a sync runs
//
// Nothing here is persisted; a sync works from a snapshot read once at the start of a run.
package models
