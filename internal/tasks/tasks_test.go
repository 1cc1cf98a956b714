package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	tu "github.com/desertthunder/plsync/internal/testing"
)

func newSource() *tu.MockCatalog {
	return &tu.MockCatalog{
		NameValue: "youtube",
		Playlists: []models.Playlist{{ID: "yt-a", Name: "Mix A"}, {ID: "yt-b", Name: "Mix B"}},
		Tracks: map[string][]models.TrackRef{
			"yt-a": {
				{ID: "v1", Title: "Artist A - Song One (Official Video)", Artist: "Artist A VEVO"},
				{ID: "v2", Title: "Totally Unknown Garbled Noise XYZ123", Artist: "nobody"},
			},
		},
	}
}

func newTarget() *tu.MockCatalog {
	return &tu.MockCatalog{
		NameValue: "spotify",
		Playlists: []models.Playlist{{ID: "sp-list", Name: "Copies"}},
		Candidates: map[string][]models.Candidate{
			"Song One": {
				{ID: "sp2", Title: "Song One (Live)", Artist: "Cover Band"},
				{ID: "sp1", Title: "Song One", Artist: "Artist A"},
			},
		},
	}
}

func newEngine(src *tu.MockCatalog, dst *tu.MockCatalog, sel Selector) *SyncEngine {
	return NewSyncEngine(src, dst, sel, SyncOptions{SearchLimit: 5, Threshold: 0.5}, nil)
}

func TestSyncEngine(t *testing.T) {
	t.Run("Run", func(t *testing.T) {
		t.Run("matches one track and leaves the other unmatched", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			engine := newEngine(src, dst, nil)

			result, err := engine.Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Matched != 1 || result.Unmatched != 1 || result.Failed != 0 {
				t.Errorf("expected 1 matched, 1 unmatched, 0 failed, got %d/%d/%d", result.Matched, result.Unmatched, result.Failed)
			}
			if result.Written != 1 {
				t.Errorf("expected 1 written, got %d", result.Written)
			}
			if got := dst.AppendedIDs(); !slices.Equal(got, []string{"sp1"}) {
				t.Errorf("expected [sp1] appended, got %v", got)
			}
			if len(dst.Appended) != 1 {
				t.Errorf("expected a single write call, got %d", len(dst.Appended))
			}
			if result.RunID == "" {
				t.Error("expected a run id")
			}
			if result.Finished.Before(result.Started) {
				t.Error("expected finish time after start time")
			}

			first := result.Outcomes[0]
			if first.Query.Artist != "Artist A" || first.Query.Track != "Song One" {
				t.Errorf("unexpected query %+v", first.Query)
			}
			if !first.Decision.Matched || first.Decision.ID != "sp1" {
				t.Errorf("expected match on sp1, got %+v", first.Decision)
			}
			if result.Outcomes[1].Decision.Matched {
				t.Error("expected second track unmatched")
			}
			if pct := result.MatchPercentage(); pct != 50 {
				t.Errorf("expected 50%%, got %v", pct)
			}
		})

		t.Run("searches with normalized titles", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			if _, err := newEngine(src, dst, nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(dst.Searches) != 2 {
				t.Fatalf("expected 2 searches, got %d", len(dst.Searches))
			}
			if dst.Searches[1].Artist != "nobody" || dst.Searches[1].Track != "Totally Unknown Garbled Noise XYZ123" {
				t.Errorf("expected platform artist fallback, got %+v", dst.Searches[1])
			}
		})

		t.Run("selects playlists through the selector", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			sel := &tu.ScriptedSelector{Answers: []int{0, 0}}

			result, err := newEngine(src, dst, sel).Run(context.Background(), nil, SyncRequest{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Source.Name != "Mix A" || result.Target.Name != "Copies" {
				t.Errorf("unexpected selection %+v -> %+v", result.Source, result.Target)
			}
			if len(sel.Prompts) != 2 {
				t.Fatalf("expected 2 prompts, got %d", len(sel.Prompts))
			}
			if !strings.Contains(sel.Prompts[0], "youtube") || !strings.Contains(sel.Prompts[1], "spotify") {
				t.Errorf("unexpected prompts %q", sel.Prompts)
			}
		})

		t.Run("re-prompts on out of range selection", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			sel := &tu.ScriptedSelector{Answers: []int{7, -1, 0}}

			result, err := newEngine(src, dst, sel).Run(context.Background(), nil, SyncRequest{TargetPlaylistID: "sp-list"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Source.ID != "yt-a" {
				t.Errorf("expected yt-a, got %s", result.Source.ID)
			}
			if len(sel.Prompts) != 3 {
				t.Errorf("expected 3 prompts, got %d", len(sel.Prompts))
			}
		})

		t.Run("fails after repeated invalid selections", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			sel := &tu.ScriptedSelector{Answers: []int{9, 9, 9, 0}}

			_, err := newEngine(src, dst, sel).Run(context.Background(), nil, SyncRequest{})
			if !errors.Is(err, shared.ErrInvalidSelection) {
				t.Fatalf("expected ErrInvalidSelection, got %v", err)
			}
			if len(sel.Prompts) != MaxSelectAttempts {
				t.Errorf("expected %d prompts, got %d", MaxSelectAttempts, len(sel.Prompts))
			}
			if len(dst.Searches) != 0 {
				t.Error("expected no searches")
			}
		})

		t.Run("returns selector errors", func(t *testing.T) {
			cancelled := errors.New("user quit")
			sel := &tu.ScriptedSelector{Err: cancelled}

			_, err := newEngine(newSource(), newTarget(), sel).Run(context.Background(), nil, SyncRequest{})
			if !errors.Is(err, cancelled) {
				t.Fatalf("expected selector error, got %v", err)
			}
			if len(sel.Prompts) != 1 {
				t.Errorf("expected 1 prompt, got %d", len(sel.Prompts))
			}
		})

		t.Run("requires an id or a selector", func(t *testing.T) {
			_, err := newEngine(newSource(), newTarget(), nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a"})
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Fatalf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("fails on empty playlist listing", func(t *testing.T) {
			src := newSource()
			src.Playlists = nil

			_, err := newEngine(src, newTarget(), &tu.ScriptedSelector{}).Run(context.Background(), nil, SyncRequest{})
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("source read failure halts the run", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			src.TracksErr = fmt.Errorf("%w: boom", shared.ErrServiceUnavailable)

			result, err := newEngine(src, dst, nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if !errors.Is(err, shared.ErrFetchFailed) {
				t.Fatalf("expected ErrFetchFailed, got %v", err)
			}
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected cause to be kept, got %v", err)
			}
			if result == nil || len(result.Outcomes) != 0 {
				t.Errorf("expected empty partial result, got %+v", result)
			}
			if len(dst.Searches) != 0 || len(dst.Appended) != 0 {
				t.Error("expected target untouched")
			}
		})

		t.Run("search failure is recorded and the run continues", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			src.Tracks["yt-a"] = append([]models.TrackRef{{ID: "v0", Title: "Broken - Lookup"}}, src.Tracks["yt-a"]...)
			dst.SearchErr = map[string]error{"Lookup": errors.New("connection reset")}

			result, err := newEngine(src, dst, nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Failed != 1 || result.Unmatched != 2 || result.Matched != 1 {
				t.Errorf("unexpected counts %d failed, %d unmatched, %d matched", result.Failed, result.Unmatched, result.Matched)
			}
			if !errors.Is(result.Outcomes[0].Err, shared.ErrSearchFailed) {
				t.Errorf("expected ErrSearchFailed, got %v", result.Outcomes[0].Err)
			}
			if result.Outcomes[0].Status() != "error" {
				t.Errorf("expected error status, got %s", result.Outcomes[0].Status())
			}
			if got := dst.AppendedIDs(); !slices.Equal(got, []string{"sp1"}) {
				t.Errorf("expected [sp1] appended, got %v", got)
			}
		})

		t.Run("rejected target token ends the run", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			src.Tracks["yt-a"] = []models.TrackRef{
				{ID: "v1", Title: "Artist A - One"},
				{ID: "v2", Title: "Artist B - Two"},
				{ID: "v3", Title: "Artist C - Three"},
			}
			rejected := fmt.Errorf("%w: %w: status 401", shared.ErrSearchFailed, shared.ErrAuthFailed)
			dst.SearchErr = map[string]error{"One": rejected, "Two": rejected, "Three": rejected}

			for _, dryRun := range []bool{false, true} {
				dst.Searches = nil
				result, err := newEngine(src, dst, nil).Run(context.Background(), nil,
					SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list", DryRun: dryRun})
				if !errors.Is(err, shared.ErrAuthFailed) {
					t.Fatalf("dry run %v: expected ErrAuthFailed, got %v", dryRun, err)
				}
				if len(dst.Searches) != 1 {
					t.Errorf("dry run %v: expected the run to stop after one search, got %d", dryRun, len(dst.Searches))
				}
				if result == nil || len(result.Outcomes) != 1 || result.Failed != 1 || result.Unmatched != 1 {
					t.Errorf("dry run %v: unexpected partial result %+v", dryRun, result)
				}
				if len(dst.Appended) != 0 {
					t.Errorf("dry run %v: expected no writes, got %v", dryRun, dst.Appended)
				}
			}
		})

		t.Run("write failure halts the run with the written count", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			dst.AppendErr = fmt.Errorf("%w: status 429", shared.ErrRateLimited)

			result, err := newEngine(src, dst, nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if !errors.Is(err, shared.ErrWriteFailed) {
				t.Fatalf("expected ErrWriteFailed, got %v", err)
			}
			if !errors.Is(err, shared.ErrRateLimited) {
				t.Errorf("expected cause to be kept, got %v", err)
			}
			if result.Written != 0 || result.Matched != 1 {
				t.Errorf("unexpected result %+v", result)
			}
		})

		t.Run("skips the write when nothing matched", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			dst.Candidates = nil

			result, err := newEngine(src, dst, nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Matched != 0 || result.Unmatched != 2 {
				t.Errorf("unexpected counts %+v", result)
			}
			if len(dst.Appended) != 0 {
				t.Error("expected no write calls")
			}
		})

		t.Run("dry run skips the write", func(t *testing.T) {
			src, dst := newSource(), newTarget()

			result, err := newEngine(src, dst, nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list", DryRun: true})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.DryRun || result.Matched != 1 || result.Written != 0 {
				t.Errorf("unexpected result %+v", result)
			}
			if len(dst.Appended) != 0 {
				t.Error("expected no write calls")
			}
		})

		t.Run("caps the number of tracks", func(t *testing.T) {
			src, dst := newSource(), newTarget()

			result, err := newEngine(src, dst, nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list", MaxTracks: 1})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Outcomes) != 1 || len(dst.Searches) != 1 {
				t.Errorf("expected 1 track processed, got %d outcomes, %d searches", len(result.Outcomes), len(dst.Searches))
			}
		})

		t.Run("does not search blank titles", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			src.Tracks["yt-a"] = []models.TrackRef{{ID: "v9", Title: "(Official Video) [HD]"}}

			result, err := newEngine(src, dst, nil).Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Unmatched != 1 || len(dst.Searches) != 0 {
				t.Errorf("expected unmatched without search, got %+v, %d searches", result, len(dst.Searches))
			}
		})

		t.Run("stops on cancelled context", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := newEngine(src, dst, nil).Run(ctx, nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
			if len(dst.Searches) != 0 {
				t.Error("expected no searches")
			}
		})

		t.Run("uses the batched writer chunking", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			var refs []models.TrackRef
			for i := range 5 {
				refs = append(refs, models.TrackRef{ID: fmt.Sprintf("v%d", i), Title: "Artist A - Song One"})
			}
			src.Tracks["yt-a"] = refs
			pacer := &tu.CountingPacer{}

			engine := newEngine(src, dst, nil).WithWriter(services.NewBatchWriterWithPacer(dst, 2, pacer, nil))
			result, err := engine.Run(context.Background(), nil, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Written != 5 {
				t.Errorf("expected 5 written, got %d", result.Written)
			}
			if len(dst.Appended) != 3 || pacer.Calls != 3 {
				t.Errorf("expected 3 chunks and 3 waits, got %d and %d", len(dst.Appended), pacer.Calls)
			}
		})

		t.Run("requires both catalogs", func(t *testing.T) {
			_, err := NewSyncEngine(nil, newTarget(), nil, SyncOptions{}, nil).Run(context.Background(), nil, SyncRequest{})
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Fatalf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("Progress", func(t *testing.T) {
		t.Run("reports every phase in order", func(t *testing.T) {
			src, dst := newSource(), newTarget()
			progress := make(chan ProgressUpdate, 32)

			if _, err := newEngine(src, dst, nil).Run(context.Background(), progress, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			close(progress)

			var phases []Phase
			var outcomes int
			for u := range progress {
				phases = append(phases, u.Phase)
				if o, ok := u.Data.(*models.TrackOutcome); ok {
					outcomes++
					if o.Position != u.Step {
						t.Errorf("expected position %d, got %d", u.Step, o.Position)
					}
				}
			}

			want := []Phase{SelectSource, ReadSource, SelectTarget, MatchTracks, MatchTracks, WriteTarget, Done}
			if !slices.Equal(phases, want) {
				t.Errorf("expected phases %v, got %v", want, phases)
			}
			if outcomes != 2 {
				t.Errorf("expected 2 outcome updates, got %d", outcomes)
			}
		})

		t.Run("does not block on a full channel", func(t *testing.T) {
			progress := make(chan ProgressUpdate)

			result, err := newEngine(newSource(), newTarget(), nil).Run(context.Background(), progress, SyncRequest{SourcePlaylistID: "yt-a", TargetPlaylistID: "sp-list"})
			if err != nil || result.Matched != 1 {
				t.Fatalf("unexpected result %+v, %v", result, err)
			}
		})
	})
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{SelectSource, "select_source"},
		{ReadSource, "read_source"},
		{SelectTarget, "select_target"},
		{MatchTracks, "match_tracks"},
		{WriteTarget, "write_target"},
		{Done, "done"},
		{Phase(99), ""},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestMatchTrackUpdate(t *testing.T) {
	outcome := &models.TrackOutcome{
		Position: 2,
		Source:   models.TrackRef{Title: "Artist A - Song One"},
		Decision: models.Matched(&models.ScoredCandidate{Candidate: models.Candidate{ID: "sp1", Title: "Song One"}, Combined: 1}),
	}

	u := matchTrackUpdate(2, 10, outcome)
	if u.Message != "[2/10] matched: Artist A - Song One -> Song One (1.00)" {
		t.Errorf("unexpected message %q", u.Message)
	}

	outcome.Decision = models.Unmatched(nil)
	u = matchTrackUpdate(2, 10, outcome)
	if u.Message != "[2/10] unmatched: Artist A - Song One" {
		t.Errorf("unexpected message %q", u.Message)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := shared.DefaultConfig()
	opts := OptionsFromConfig(cfg.Sync)
	if opts.PageSize != 50 || opts.SearchLimit != 5 || opts.Threshold != 0.5 || opts.BatchSize != 100 {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.WriteDelay != services.DefaultWriteDelay {
		t.Errorf("expected %v, got %v", services.DefaultWriteDelay, opts.WriteDelay)
	}
}
