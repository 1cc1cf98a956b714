package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/matching"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// Playlists lists the user's playlists on a platform.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	p, err := ParsePlatform(cmd.String("platform"))
	if err != nil {
		return err
	}
	limit := cmd.Int("limit")

	svc, err := r.connect(ctx, p)
	if err != nil {
		return err
	}
	defer r.persistTokens()

	r.logger.Debug("listing playlists", "platform", p, "limit", limit)
	playlists, err := svc.GetPlaylists(ctx)
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s playlists (%d)", svc.Name(), len(playlists)))
	return r.writePlain("%s\n", formatter.PlaylistTable(playlists))
}

type trackRow struct {
	models.TrackRef
	Normalized *models.NormalizedTitle `json:"normalized,omitempty"`
}

// Tracks lists the entries of one playlist, optionally with their normalized titles.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	p, err := ParsePlatform(cmd.String("platform"))
	if err != nil {
		return err
	}
	id := cmd.String("id")

	svc, err := r.connect(ctx, p)
	if err != nil {
		return err
	}
	defer r.persistTokens()

	tracks, err := svc.PlaylistTracks(ctx, id, r.config.Sync.PageSize)
	if err != nil {
		return err
	}

	normalize := cmd.Bool("normalize")
	if cmd.Bool("json") {
		rows := make([]trackRow, len(tracks))
		for i, tr := range tracks {
			rows[i] = trackRow{TrackRef: tr}
			if normalize {
				n := matching.NormalizeTrack(tr)
				rows[i].Normalized = &n
			}
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s playlist %s (%d tracks)", svc.Name(), id, len(tracks)))
	if !normalize {
		return r.writePlain("%s\n", formatter.TrackTable(tracks))
	}

	shown := make([]models.TrackRef, len(tracks))
	for i, tr := range tracks {
		n := matching.NormalizeTrack(tr)
		shown[i] = models.TrackRef{ID: tr.ID, Title: n.Track, Artist: n.Artist}
	}
	return r.writePlain("%s\n", formatter.TrackTable(shown))
}

// Normalize prints the artist and track a raw title reduces to. It makes no network calls.
func (r *Runner) Normalize(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	n := matching.NormalizeTrack(models.TrackRef{Title: title, Artist: cmd.String("artist")})
	if cmd.Bool("json") {
		return r.writeJSON(n, cmd.Bool("pretty"))
	}

	r.writePlain("Cleaned: %s\n", matching.Clean(title))
	r.writePlain("Artist:  %s\n", n.Artist)
	return r.writePlain("Track:   %s\n", n.Track)
}

type matchReport struct {
	Query      models.NormalizedTitle   `json:"query"`
	Threshold  float64                  `json:"threshold"`
	Decision   models.MatchDecision     `json:"decision"`
	Candidates []models.ScoredCandidate `json:"candidates"`
}

// Match searches a title on a platform and prints every candidate's score and the decision.
func (r *Runner) Match(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}
	p, err := ParsePlatform(cmd.String("platform"))
	if err != nil {
		return err
	}
	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = r.config.Sync.SearchLimit
	}

	q := matching.NormalizeTrack(models.TrackRef{Title: title, Artist: cmd.String("artist")})
	if q.Empty() {
		return fmt.Errorf("%w: %q normalizes to nothing", shared.ErrInvalidArgument, title)
	}

	svc, err := r.connect(ctx, p)
	if err != nil {
		return err
	}
	defer r.persistTokens()

	candidates, err := svc.SearchTracks(ctx, q, limit)
	if err != nil {
		return err
	}

	ranker := matching.NewRanker(r.config.Sync.MatchThreshold)
	report := matchReport{
		Query:      q,
		Threshold:  ranker.Threshold,
		Decision:   ranker.Rank(q, candidates),
		Candidates: ranker.ScoreAll(q, candidates),
	}
	sort.SliceStable(report.Candidates, func(i, j int) bool {
		return report.Candidates[i].Combined > report.Candidates[j].Combined
	})

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s search: %s", svc.Name(), q))
	r.writePlain("%s\n", formatter.CandidateTable(report.Candidates))
	if report.Decision.Matched {
		return r.writePlain("✓ Match: %s (%.2f > %.2f)\n", report.Decision.ID, report.Decision.Best.Combined, report.Threshold)
	}
	return r.writePlain("✗ No candidate scored above %.2f\n", report.Threshold)
}
