package matching

import "github.com/desertthunder/plsync/internal/models"

const (
	DefaultThreshold = 0.5

	TitleWeight  = 0.6
	ArtistWeight = 0.4

	// UnknownArtistScore stands in for the artist score when the query has no artist.
	UnknownArtistScore = 0.5
)

// Ranker picks the best candidate for a query.
type Ranker struct {
	// Threshold is the combined score a candidate must strictly exceed to be accepted.
	Threshold float64
}

// NewRanker returns a Ranker. Thresholds outside [0, 1) fall back to [DefaultThreshold].
func NewRanker(threshold float64) *Ranker {
	if threshold < 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Ranker{Threshold: threshold}
}

// Score computes the score breakdown of c against q.
func (r *Ranker) Score(q models.NormalizedTitle, c models.Candidate) models.ScoredCandidate {
	title := Similarity(q.Track, c.Title)

	artist := UnknownArtistScore
	if q.Artist != "" {
		artist = Similarity(q.Artist, c.Artist)
	}

	return models.ScoredCandidate{
		Candidate:   c,
		TitleScore:  title,
		ArtistScore: artist,
		Combined:    TitleWeight*title + ArtistWeight*artist,
	}
}

// ScoreAll scores every candidate, preserving order.
func (r *Ranker) ScoreAll(q models.NormalizedTitle, candidates []models.Candidate) []models.ScoredCandidate {
	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, r.Score(q, c))
	}
	return scored
}

// Rank scans candidates in order and keeps the first strictly highest combined score.
// The result is a match only when that score exceeds the threshold.
func (r *Ranker) Rank(q models.NormalizedTitle, candidates []models.Candidate) models.MatchDecision {
	if q.Empty() || len(candidates) == 0 {
		return models.Unmatched(nil)
	}

	var best *models.ScoredCandidate
	for _, sc := range r.ScoreAll(q, candidates) {
		if best == nil || sc.Combined > best.Combined {
			best = &sc
		}
	}

	if best.Combined > r.Threshold {
		return models.Matched(best)
	}
	return models.Unmatched(best)
}
