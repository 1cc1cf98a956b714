package matching

import (
	"regexp"
	"strings"

	"github.com/desertthunder/plsync/internal/models"
)

// Separator splits an "Artist - Track" title.
const Separator = " - "

// noise is applied in order; each pattern sees the output of the one before it.
var noise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(.*?\)`),
	regexp.MustCompile(`(?i)\[.*?\]`),
	regexp.MustCompile(`(?i)Official.*?Video`),
	regexp.MustCompile(`(?i)Official.*?Audio`),
	regexp.MustCompile(`(?i)ft\..*`),
	regexp.MustCompile(`(?i)feat\..*`),
	regexp.MustCompile(`(?i)\bHD\b`),
	regexp.MustCompile(`(?i)\bHQ\b`),
	regexp.MustCompile(`(?i)\b4K\b`),
	regexp.MustCompile(`(?i)\bLyrics\b`),
	regexp.MustCompile(`(?i)\bM/V\b`),
	regexp.MustCompile(`(?i)\bMV\b`),
}

// Clean removes the noise patterns from raw without splitting it.
func Clean(raw string) string {
	cleaned := raw
	for _, re := range noise {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return cleaned
}

// Normalize reduces a raw title to its (artist, track) pair.
//
// Whitespace runs, including tabs and no-break spaces, are collapsed before the title is cut
// at the first [Separator]. A separator with nothing before it is skipped. The artist is empty
// when no separator remains. An empty track means there is nothing worth searching for.
func Normalize(raw string) models.NormalizedTitle {
	rest := whitespace.ReplaceAllString(Clean(raw), " ")
	for {
		artist, track, found := strings.Cut(rest, Separator)
		if !found {
			return models.NormalizedTitle{Track: strings.TrimSpace(rest)}
		}
		if artist = strings.TrimSpace(artist); artist != "" {
			return models.NormalizedTitle{Artist: artist, Track: strings.TrimSpace(track)}
		}
		rest = track
	}
}

// NormalizeTrack builds the query for a source track. The title is normalized and, when it
// carries no artist of its own, the artist reported by the platform fills the gap.
func NormalizeTrack(t models.TrackRef) models.NormalizedTitle {
	n := Normalize(t.Title)
	if n.Artist == "" && !n.Empty() {
		n.Artist = squash(Clean(strings.TrimSuffix(t.Artist, TopicSuffix)))
	}
	return n
}

// TopicSuffix marks auto-generated YouTube artist channels ("Artist - Topic").
const TopicSuffix = " - Topic"

var whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)

func squash(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
