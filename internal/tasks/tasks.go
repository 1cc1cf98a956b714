package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plsync/internal/matching"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
)

// MaxSelectAttempts is how many times a selection is asked for before giving up.
const MaxSelectAttempts = 3

// Selector picks one playlist out of a list and returns its index.
//
// An index outside the list, or an error wrapping [shared.ErrInvalidSelection], asks again.
type Selector interface {
	Select(ctx context.Context, prompt string, playlists []models.Playlist) (int, error)
}

// Writer appends ids to a playlist and reports how many made it. [services.BatchWriter] implements it.
type Writer interface {
	AppendTracks(ctx context.Context, playlistID string, ids []string) (int, error)
}

// SyncOptions tunes a [SyncEngine].
type SyncOptions struct {
	PageSize    int
	SearchLimit int
	Threshold   float64
	BatchSize   int
	WriteDelay  time.Duration
}

// OptionsFromConfig maps the sync section of the config file.
func OptionsFromConfig(c shared.SyncConfig) SyncOptions {
	return SyncOptions{
		PageSize:    c.PageSize,
		SearchLimit: c.SearchLimit,
		Threshold:   c.MatchThreshold,
		BatchSize:   c.BatchSize,
		WriteDelay:  c.WriteDelay,
	}
}

// SyncRequest names the playlists of a run. An empty id is resolved through the [Selector].
type SyncRequest struct {
	SourcePlaylistID string
	TargetPlaylistID string
	MaxTracks        int // 0 reads the whole playlist
	DryRun           bool
}

// SyncResult contains everything a run produced, including on failure.
type SyncResult struct {
	RunID     string                `json:"run_id"`
	Source    models.Playlist       `json:"source"`
	Target    models.Playlist       `json:"target"`
	Outcomes  []models.TrackOutcome `json:"outcomes"`
	Matched   int                   `json:"matched"`
	Unmatched int                   `json:"unmatched"`
	Failed    int                   `json:"failed"` // searches that errored; also counted as unmatched
	Written   int                   `json:"written"`
	DryRun    bool                  `json:"dry_run"`
	Started   time.Time             `json:"started"`
	Finished  time.Time             `json:"finished"`
}

// MatchedIDs returns the target ids of matched tracks in source order. Repeats are kept.
func (r *SyncResult) MatchedIDs() []string {
	ids := make([]string, 0, r.Matched)
	for _, o := range r.Outcomes {
		if o.Decision.Matched {
			ids = append(ids, o.Decision.ID)
		}
	}
	return ids
}

// MatchPercentage is the share of source tracks that matched, 0 to 100.
func (r *SyncResult) MatchPercentage() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	return float64(r.Matched) / float64(len(r.Outcomes)) * 100
}

// SyncEngine copies one playlist across catalogs.
type SyncEngine struct {
	source   services.Catalog
	target   services.Target
	selector Selector
	ranker   *matching.Ranker
	writer   Writer
	opts     SyncOptions
	logger   *log.Logger
}

// NewSyncEngine wires a run between source and target. selector may be nil when every
// [SyncRequest] names both playlists.
func NewSyncEngine(source services.Catalog, target services.Target, selector Selector, opts SyncOptions, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SyncEngine{
		source:   source,
		target:   target,
		selector: selector,
		ranker:   matching.NewRanker(opts.Threshold),
		writer:   services.NewBatchWriter(target, opts.BatchSize, opts.WriteDelay, logger),
		opts:     opts,
		logger:   logger,
	}
}

// WithSelector replaces the selector.
func (e *SyncEngine) WithSelector(s Selector) *SyncEngine {
	e.selector = s
	return e
}

// WithWriter replaces the batched writer.
func (e *SyncEngine) WithWriter(w Writer) *SyncEngine {
	e.writer = w
	return e
}

// Run executes one reconciliation. The returned result is non-nil once a run has
// started, so callers can report partial work next to the error.
func (e *SyncEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, req SyncRequest) (*SyncResult, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: source and target catalogs are required", shared.ErrServiceUnavailable)
	}

	result := &SyncResult{RunID: shared.GenerateID(), DryRun: req.DryRun, Started: time.Now()}
	logger := shared.WithLogger(e.logger, "run_id", result.RunID)
	defer func() { result.Finished = time.Now() }()

	e.sendProgress(progress, selectSourceUpdate(e.source.Name()))
	src, err := e.resolve(ctx, e.source, req.SourcePlaylistID, fmt.Sprintf("Select a %s playlist to copy from", e.source.Name()))
	if err != nil {
		return result, fmt.Errorf("source playlist: %w", err)
	}
	result.Source = src

	tracks, err := e.source.PlaylistTracks(ctx, src.ID, e.opts.PageSize)
	if err != nil {
		return result, wrapIfMissing(shared.ErrFetchFailed, fmt.Errorf("failed to read %s: %w", playlistLabel(src), err))
	}
	if req.MaxTracks > 0 && len(tracks) > req.MaxTracks {
		tracks = tracks[:req.MaxTracks]
	}
	logger.Info("read source playlist", "service", e.source.Name(), "playlist", playlistLabel(src), "tracks", len(tracks))
	e.sendProgress(progress, readSourceUpdate(src, len(tracks)))

	e.sendProgress(progress, selectTargetUpdate(e.target.Name()))
	dst, err := e.resolve(ctx, e.target, req.TargetPlaylistID, fmt.Sprintf("Select a %s playlist to copy into", e.target.Name()))
	if err != nil {
		return result, fmt.Errorf("target playlist: %w", err)
	}
	result.Target = dst

	result.Outcomes = make([]models.TrackOutcome, 0, len(tracks))
	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := e.matchTrack(ctx, i, track)
		if outcome.Err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Outcomes = append(result.Outcomes, outcome)

		// A rejected token fails every later search too.
		if errors.Is(outcome.Err, shared.ErrAuthFailed) {
			result.Failed++
			result.Unmatched++
			logger.Error("search rejected, stopping", "position", i+1, "err", outcome.Err)
			return result, fmt.Errorf("%s search: %w", e.target.Name(), outcome.Err)
		}

		switch {
		case outcome.Err != nil:
			result.Failed++
			result.Unmatched++
			logger.Warn("search failed", "position", i+1, "title", track.Title, "err", outcome.Err)
		case outcome.Decision.Matched:
			result.Matched++
			logger.Info("matched", "position", i+1, "title", track.Title,
				"id", outcome.Decision.ID, "score", outcome.Decision.Best.Combined)
		default:
			result.Unmatched++
			logger.Info("unmatched", "position", i+1, "title", track.Title)
		}
		e.sendProgress(progress, matchTrackUpdate(i+1, len(tracks), &result.Outcomes[i]))
	}

	ids := result.MatchedIDs()
	switch {
	case len(ids) == 0:
		logger.Warn("no tracks matched, nothing to write")
	case req.DryRun:
		logger.Info("dry run, skipping write", "tracks", len(ids))
	default:
		e.sendProgress(progress, writeTargetUpdate(dst, len(ids)))
		written, err := e.writer.AppendTracks(ctx, dst.ID, ids)
		result.Written = written
		if err != nil {
			return result, wrapIfMissing(shared.ErrWriteFailed, err)
		}
		logger.Info("wrote target playlist", "service", e.target.Name(), "playlist", playlistLabel(dst), "written", written)
	}

	logger.Info("sync complete", "matched", result.Matched, "unmatched", result.Unmatched,
		"failed", result.Failed, "written", result.Written)
	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

func (e *SyncEngine) matchTrack(ctx context.Context, i int, track models.TrackRef) models.TrackOutcome {
	outcome := models.TrackOutcome{Position: i + 1, Source: track, Query: matching.NormalizeTrack(track)}
	if outcome.Query.Empty() {
		outcome.Decision = models.Unmatched(nil)
		return outcome
	}

	candidates, err := e.target.SearchTracks(ctx, outcome.Query, e.opts.SearchLimit)
	if err != nil {
		outcome.Err = wrapIfMissing(shared.ErrSearchFailed, err)
		outcome.Decision = models.Unmatched(nil)
		return outcome
	}
	outcome.Decision = e.ranker.Rank(outcome.Query, candidates)
	return outcome
}

// resolve returns the playlist named by id, or asks the selector for one.
func (e *SyncEngine) resolve(ctx context.Context, c services.Catalog, id, prompt string) (models.Playlist, error) {
	if id != "" {
		return models.Playlist{ID: id}, nil
	}
	if e.selector == nil {
		return models.Playlist{}, fmt.Errorf("%w: no playlist id and no selector", shared.ErrMissingArgument)
	}

	playlists, err := c.GetPlaylists(ctx)
	if err != nil {
		return models.Playlist{}, wrapIfMissing(shared.ErrFetchFailed, err)
	}
	if len(playlists) == 0 {
		return models.Playlist{}, fmt.Errorf("%w: %s has no playlists", shared.ErrPlaylistNotFound, c.Name())
	}

	for attempt := 1; attempt <= MaxSelectAttempts; attempt++ {
		idx, err := e.selector.Select(ctx, prompt, playlists)
		switch {
		case errors.Is(err, shared.ErrInvalidSelection):
			e.logger.Warn("invalid selection", "attempt", attempt, "err", err)
			continue
		case err != nil:
			return models.Playlist{}, err
		case idx < 0 || idx >= len(playlists):
			e.logger.Warn("selection out of range", "attempt", attempt, "index", idx, "choices", len(playlists))
			continue
		}
		return playlists[idx], nil
	}
	return models.Playlist{}, fmt.Errorf("%w: no valid choice after %d attempts", shared.ErrInvalidSelection, MaxSelectAttempts)
}

// sendProgress sends a progress update without blocking.
func (e *SyncEngine) sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
	}
}

func wrapIfMissing(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
