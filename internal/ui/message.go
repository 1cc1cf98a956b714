package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/tasks"
)

var (
	_ tea.Msg        = selectRequestMsg{}
	_ tasks.Selector = (*programSelector)(nil)
)

// selection is the answer to a [selectRequestMsg].
type selection struct {
	index int
	err   error
}

// selectRequestMsg asks the model to show a playlist list. The answer goes to reply, which is buffered.
type selectRequestMsg struct {
	prompt    string
	playlists []models.Playlist
	reply     chan selection
}

type progressUpdateMsg tasks.ProgressUpdate

type runCompleteMsg struct {
	result *tasks.SyncResult
	err    error
}

// programSelector implements [tasks.Selector] by routing requests into a running program.
type programSelector struct {
	send func(tea.Msg)
}

func (s *programSelector) Select(ctx context.Context, prompt string, playlists []models.Playlist) (int, error) {
	reply := make(chan selection, 1)
	s.send(selectRequestMsg{prompt: prompt, playlists: playlists, reply: reply})

	select {
	case sel := <-reply:
		return sel.index, sel.err
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}
