package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
)

var _ tasks.Selector = (*PromptSelector)(nil)

// PromptSelector asks for a playlist by number on a line-oriented terminal or pipe.
//
// Choices are shown 1-based; the returned index is 0-based. A number outside the list is
// returned as is so the caller can ask again.
type PromptSelector struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPromptSelector(in io.Reader, out io.Writer) *PromptSelector {
	return &PromptSelector{in: bufio.NewReader(in), out: out}
}

func (s *PromptSelector) Select(ctx context.Context, prompt string, playlists []models.Playlist) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	fmt.Fprintln(s.out, formatter.PlaylistTable(playlists))
	fmt.Fprintf(s.out, "%s [1-%d]: ", prompt, len(playlists))

	line, err := s.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return -1, fmt.Errorf("%w: %w", shared.ErrCancelled, err)
		}
		return -1, fmt.Errorf("failed to read selection: %w", err)
	}

	answer := strings.TrimSpace(line)
	n, err := strconv.Atoi(answer)
	if err != nil {
		fmt.Fprintf(s.out, "%q is not a number\n", answer)
		return -1, fmt.Errorf("%w: %q is not a number", shared.ErrInvalidSelection, answer)
	}
	if n < 1 || n > len(playlists) {
		fmt.Fprintf(s.out, "choose a number between 1 and %d\n", len(playlists))
	}
	return n - 1, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interactive reports whether both ends of the session are terminals, which the TUI needs.
func Interactive(in, out *os.File) bool {
	return IsTerminal(in) && IsTerminal(out)
}
