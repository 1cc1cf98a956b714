package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
)

// recentLines is how many track outcomes stay visible while a run is in progress.
const recentLines = 8

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunView ViewState = iota
	SelectView
	ResultView
)

// Runner is the part of [tasks.SyncEngine] the TUI drives.
type Runner interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, req tasks.SyncRequest) (*tasks.SyncResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	view     ViewState
	runner   Runner
	req      tasks.SyncRequest
	width    int
	height   int
	list     list.Model
	pending  *selectRequestMsg
	spinner  spinner.Model
	progress tasks.ProgressUpdate
	recent   []*models.TrackOutcome
	result   *tasks.SyncResult
	err      error
	help     help.Model
	keys     keyMap

	started      bool
	progressChan chan tasks.ProgressUpdate
	finished     chan struct{}
	final        runCompleteMsg
}

// NewModel creates a new TUI model that will run req through runner once started.
func NewModel(ctx context.Context, runner Runner, req tasks.SyncRequest) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:      ctx,
		cancel:   cancel,
		view:     RunView,
		runner:   runner,
		req:      req,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		help:     help.New(),
		keys:     newKeyMap(),
		finished: make(chan struct{}),
	}
}

// RunSync runs req through engine inside a Bubble Tea program. Playlist selection happens in
// the same program, so engine's selector is replaced.
func RunSync(ctx context.Context, engine *tasks.SyncEngine, req tasks.SyncRequest, opts ...tea.ProgramOption) (*tasks.SyncResult, error) {
	m := NewModel(ctx, engine, req)
	defer m.cancel()

	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
	engine.WithSelector(&programSelector{send: p.Send})

	_, runErr := p.Run()
	m.cancel()
	if !m.started {
		return nil, fmt.Errorf("failed to start TUI: %w", runErr)
	}

	<-m.finished
	if m.final.err == nil && runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return m.final.result, runErr
	}
	return m.final.result, m.final.err
}

// Init starts the run and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startRun(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == SelectView {
			m.list.SetSize(max(msg.Width-4, 0), max(msg.Height-8, 0))
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SelectView:
			return m.handleSelectKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		default:
			return m.handleRunKeys(msg)
		}

	case selectRequestMsg:
		m.pending = &msg
		m.list = list.New(playlistItems(msg.playlists), list.NewDefaultDelegate(), max(m.width-4, 0), max(m.height-8, 0))
		m.list.Title = msg.prompt
		m.list.SetShowHelp(false)
		m.view = SelectView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		if outcome, ok := msg.Data.(*models.TrackOutcome); ok {
			m.recent = append(m.recent, outcome)
			if len(m.recent) > recentLines {
				m.recent = m.recent[len(m.recent)-recentLines:]
			}
		}
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil

	case spinner.TickMsg:
		if m.view == ResultView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.view == SelectView {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SelectView:
		return m.renderSelect()
	case ResultView:
		return m.renderResult()
	default:
		return m.renderRun()
	}
}

func (m *Model) handleSelectKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.answer(selection{index: -1, err: fmt.Errorf("%w: selection aborted", shared.ErrCancelled)})
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back) && m.list.FilterState() == list.Unfiltered:
		m.answer(selection{index: -1, err: fmt.Errorf("%w: selection aborted", shared.ErrCancelled)})
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.list.SelectedItem().(playlistItem); ok {
			m.answer(selection{index: item.index})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleRunKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) || key.Matches(msg, m.keys.enter) {
		return m, tea.Quit
	}
	return m, nil
}

// answer replies to the pending selection and returns to the progress view.
func (m *Model) answer(sel selection) {
	if m.pending == nil {
		return
	}
	m.pending.reply <- sel
	m.pending = nil
	m.view = RunView
}

func (m *Model) startRun() tea.Cmd {
	m.started = true
	m.progressChan = make(chan tasks.ProgressUpdate, 64)

	go func() {
		result, err := m.runner.Run(m.ctx, m.progressChan, m.req)
		m.final = runCompleteMsg{result: result, err: err}
		close(m.finished)
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	ch, finished := m.progressChan, m.finished
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			<-finished
			return m.final
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderSelect() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.filter, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.list.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Syncing Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.SelectSource, tasks.SelectTarget:
		phase = "Loading playlists..."
	case tasks.ReadSource:
		phase = "Reading source playlist..."
	case tasks.MatchTracks:
		phase = fmt.Sprintf("Matching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.WriteTarget:
		phase = "Writing target playlist..."
	default:
		phase = "Processing..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s %s\n%s\n", title, m.spinner.View(), phase, m.progress.Message)
	for _, o := range m.recent {
		fmt.Fprintf(&b, "\n  %s %s", statusStyle(o.Status()).Render(fmt.Sprintf("%-9s", o.Status())), shared.Truncate(o.Source.Title, 60))
	}
	fmt.Fprintf(&b, "\n\n%s", m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	if m.err != nil {
		msg := styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err))
		if m.result != nil && len(m.result.Outcomes) > 0 {
			msg += "\n" + formatter.Summary(m.result)
		}
		return fmt.Sprintf("%s\n\n%s", msg, helpView)
	}

	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Sync Complete!")
	info := fmt.Sprintf("\nSource: %s\nTarget: %s\n%s",
		playlistName(m.result.Source), playlistName(m.result.Target), formatter.Summary(m.result))

	var unmatched string
	if m.result.Unmatched > 0 {
		unmatched = "\n\n" + styles.warn.Render(fmt.Sprintf("Unmatched %d tracks:", m.result.Unmatched))
		for _, o := range m.result.Outcomes {
			if !o.Decision.Matched {
				unmatched += fmt.Sprintf("\n  • %s", o.Source.Title)
			}
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, unmatched, helpView)
}

func playlistName(pl models.Playlist) string {
	if pl.Name != "" {
		return pl.Name
	}
	return pl.ID
}
