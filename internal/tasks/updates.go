package tasks

import (
	"fmt"

	"github.com/desertthunder/plsync/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Run phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data; *models.TrackOutcome during MatchTracks, *SyncResult on Done
}

// Phase is a state of [SyncEngine.Run].
type Phase int

const (
	SelectSource Phase = iota
	ReadSource
	SelectTarget
	MatchTracks
	WriteTarget
	Done
)

func (p Phase) String() string {
	switch p {
	case SelectSource:
		return "select_source"
	case ReadSource:
		return "read_source"
	case SelectTarget:
		return "select_target"
	case MatchTracks:
		return "match_tracks"
	case WriteTarget:
		return "write_target"
	case Done:
		return "done"
	default:
		return ""
	}
}

func selectSourceUpdate(service string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SelectSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Selecting source playlist on %s...", service),
	}
}

func readSourceUpdate(pl models.Playlist, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Read %d tracks from %s", tracks, playlistLabel(pl)),
		Data:    pl,
	}
}

func selectTargetUpdate(service string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SelectTarget,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Selecting target playlist on %s...", service),
	}
}

func matchTrackUpdate(step, total int, outcome *models.TrackOutcome) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: %s", step, total, outcome.Status(), outcome.Source.Title)
	if outcome.Decision.Matched && outcome.Decision.Best != nil {
		msg = fmt.Sprintf("[%d/%d] matched: %s -> %s (%.2f)", step, total,
			outcome.Source.Title, outcome.Decision.Best.Title, outcome.Decision.Best.Combined)
	}
	return ProgressUpdate{
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    outcome,
	}
}

func writeTargetUpdate(pl models.Playlist, ids int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTarget,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks to %s...", ids, playlistLabel(pl)),
	}
}

func doneUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: Done,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Done: %d matched, %d unmatched, %d failed, %d written",
			result.Matched, result.Unmatched, result.Failed, result.Written),
		Data: result,
	}
}

func playlistLabel(pl models.Playlist) string {
	if pl.Name != "" {
		return pl.Name
	}
	return pl.ID
}
