package formatter

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
)

const cellWidth = 48

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable lays rows out under headers. Short rows are padded with empty cells.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// PlaylistTable lists playlists with a 1-based index, the numbering the prompt selector reads back.
func PlaylistTable(playlists []models.Playlist) string {
	rows := make([][]string, 0, len(playlists))
	for i, pl := range playlists {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			shared.Truncate(pl.Name, cellWidth),
			strconv.Itoa(pl.TrackCount),
			pl.ID,
		})
	}
	return renderTable([]string{"#", "Name", "Tracks", "ID"}, rows, []columnAlignment{alignRight, alignLeft, alignRight, alignLeft})
}

// TrackTable lists the entries of a playlist.
func TrackTable(tracks []models.TrackRef) string {
	rows := make([][]string, 0, len(tracks))
	for i, tr := range tracks {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			shared.Truncate(tr.Title, cellWidth),
			shared.Truncate(tr.Artist, cellWidth/2),
			tr.ID,
		})
	}
	return renderTable([]string{"#", "Title", "Artist", "ID"}, rows, []columnAlignment{alignRight})
}

// CandidateTable shows the score breakdown of ranked candidates.
func CandidateTable(candidates []models.ScoredCandidate) string {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			shared.Truncate(c.Title, cellWidth),
			shared.Truncate(c.Artist, cellWidth/2),
			score(c.TitleScore),
			score(c.ArtistScore),
			score(c.Combined),
			c.ID,
		})
	}
	return renderTable(
		[]string{"Title", "Artist", "Title Score", "Artist Score", "Combined", "ID"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

// OutcomeTable shows one row per source track of a run.
func OutcomeTable(result *tasks.SyncResult) string {
	rows := make([][]string, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		var match, combined string
		if best := o.Decision.Best; best != nil {
			match = shared.Truncate(best.Title, cellWidth)
			combined = score(best.Combined)
		}
		if o.Err != nil {
			match = shared.Truncate(o.Reason(), cellWidth)
		}
		rows = append(rows, []string{
			strconv.Itoa(o.Position),
			o.Status(),
			shared.Truncate(o.Query.String(), cellWidth),
			match,
			combined,
		})
	}
	return renderTable(
		[]string{"#", "Status", "Query", "Best Candidate", "Score"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

// Summary is the one-line tally of a run.
func Summary(result *tasks.SyncResult) string {
	s := fmt.Sprintf("%d/%d matched (%.1f%%), %d unmatched, %d failed searches, %d written",
		result.Matched, len(result.Outcomes), result.MatchPercentage(), result.Unmatched, result.Failed, result.Written)
	if result.DryRun {
		s += " (dry run)"
	}
	return s
}

func score(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
