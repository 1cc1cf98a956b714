// package formatter renders sync results and catalog listings as tables and report files (CSV, JSON, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
)

// Format is a report file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts csv, json, md or markdown, in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q (want csv, json or md)", shared.ErrInvalidArgument, s)
	}
}

// Report is the serialized form of a run. Unlike [tasks.SyncResult] it keeps search errors as text.
type Report struct {
	RunID      string          `json:"run_id"`
	Source     models.Playlist `json:"source"`
	Target     models.Playlist `json:"target"`
	Matched    int             `json:"matched"`
	Unmatched  int             `json:"unmatched"`
	Failed     int             `json:"failed"`
	Written    int             `json:"written"`
	Percentage float64         `json:"match_percentage"`
	DryRun     bool            `json:"dry_run"`
	Started    time.Time       `json:"started"`
	Finished   time.Time       `json:"finished"`
	Entries    []ReportEntry   `json:"entries"`
}

// ReportEntry is one source track of a [Report].
type ReportEntry struct {
	Position int                     `json:"position"`
	Status   string                  `json:"status"`
	Source   models.TrackRef         `json:"source"`
	Query    models.NormalizedTitle  `json:"query"`
	Match    *models.ScoredCandidate `json:"match,omitempty"`
	Best     *models.ScoredCandidate `json:"best,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// NewReport flattens result.
func NewReport(result *tasks.SyncResult) *Report {
	r := &Report{
		RunID:      result.RunID,
		Source:     result.Source,
		Target:     result.Target,
		Matched:    result.Matched,
		Unmatched:  result.Unmatched,
		Failed:     result.Failed,
		Written:    result.Written,
		Percentage: result.MatchPercentage(),
		DryRun:     result.DryRun,
		Started:    result.Started,
		Finished:   result.Finished,
		Entries:    make([]ReportEntry, 0, len(result.Outcomes)),
	}
	for _, o := range result.Outcomes {
		e := ReportEntry{
			Position: o.Position,
			Status:   o.Status(),
			Source:   o.Source,
			Query:    o.Query,
			Error:    o.Reason(),
		}
		if o.Decision.Matched {
			e.Match = o.Decision.Best
		} else {
			e.Best = o.Decision.Best
		}
		r.Entries = append(r.Entries, e)
	}
	return r
}

// ReportToJSON renders the report indented.
func ReportToJSON(result *tasks.SyncResult) ([]byte, error) {
	return shared.MarshalJSON(NewReport(result), true)
}

// ReportToCSV writes one record per source track with columns:
// Position, Status, Source ID, Source Title, Source Artist, Query Artist, Query Track, Match ID, Match Title, Match Artist, Score, Error
func ReportToCSV(result *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{
		"Position", "Status", "Source ID", "Source Title", "Source Artist", "Query Artist", "Query Track",
		"Match ID", "Match Title", "Match Artist", "Score", "Error",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range NewReport(result).Entries {
		var id, title, artist, combined string
		best := e.Match
		if best == nil {
			best = e.Best
		}
		if best != nil {
			combined = score(best.Combined)
		}
		if e.Match != nil {
			id, title, artist = e.Match.ID, e.Match.Title, e.Match.Artist
		}
		record := []string{
			strconv.Itoa(e.Position),
			e.Status,
			e.Source.ID,
			e.Source.Title,
			e.Source.Artist,
			e.Query.Artist,
			e.Query.Track,
			id,
			title,
			artist,
			combined,
			e.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown renders a summary followed by matched and unmatched track lists.
func ReportToMarkdown(result *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer
	r := NewReport(result)

	fmt.Fprintf(&buf, "# %s → %s\n\n", label(r.Source), label(r.Target))
	fmt.Fprintf(&buf, "**Run**: %s\n", r.RunID)
	fmt.Fprintf(&buf, "**Matched**: %d/%d (%.1f%%)\n", r.Matched, len(r.Entries), r.Percentage)
	fmt.Fprintf(&buf, "**Written**: %d\n", r.Written)
	if r.DryRun {
		buf.WriteString("**Dry run**: nothing was written\n")
	}

	buf.WriteString("\n## Matched\n\n")
	for _, e := range r.Entries {
		if e.Match == nil {
			continue
		}
		fmt.Fprintf(&buf, "%d. %s → %s - %s [%s]\n", e.Position, e.Source.Title, e.Match.Artist, e.Match.Title, score(e.Match.Combined))
	}

	buf.WriteString("\n## Unmatched\n\n")
	for _, e := range r.Entries {
		if e.Match != nil {
			continue
		}
		line := fmt.Sprintf("%d. %s", e.Position, e.Source.Title)
		switch {
		case e.Error != "":
			line += fmt.Sprintf(" (error: %s)", e.Error)
		case e.Best != nil:
			line += fmt.Sprintf(" (best: %s - %s [%s])", e.Best.Artist, e.Best.Title, score(e.Best.Combined))
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// Render dispatches on format.
func Render(result *tasks.SyncResult, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ReportToCSV(result)
	case FormatJSON:
		return ReportToJSON(result)
	case FormatMarkdown:
		return ReportToMarkdown(result)
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteReport renders result to path and returns the path written.
//
// Defaults to plsync_{run id prefix}.{format} in the working directory.
func WriteReport(result *tasks.SyncResult, path string, format Format) (string, error) {
	if path == "" {
		path = fmt.Sprintf("plsync_%s.%s", firstN(result.RunID, 8), format)
	}

	data, err := Render(result, format)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func label(pl models.Playlist) string {
	if pl.Name != "" {
		return pl.Name
	}
	return pl.ID
}
