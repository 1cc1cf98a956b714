// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/plsync/internal/models"
)

// MockCatalog is a test double for services.Catalog and services.Target.
//
// Tracks and Candidates are keyed by playlist id and raw query track respectively.
// Every append is recorded in Appended, one slice per call.
type MockCatalog struct {
	mu sync.Mutex

	NameValue  string
	Playlists  []models.Playlist
	Tracks     map[string][]models.TrackRef
	Candidates map[string][]models.Candidate
	BatchSize  int

	PlaylistsErr error
	TracksErr    error
	SearchErr    map[string]error
	AppendErr    error
	// FailOnCall makes the Nth append call (1-based) return AppendErr; 0 fails every call when AppendErr is set.
	FailOnCall int

	Searches []models.NormalizedTitle
	Appended [][]string
}

func (m *MockCatalog) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m *MockCatalog) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return m.Playlists, nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, playlistID string, pageSize int) ([]models.TrackRef, error) {
	if m.TracksErr != nil {
		return nil, m.TracksErr
	}
	return m.Tracks[playlistID], nil
}

func (m *MockCatalog) SearchTracks(ctx context.Context, q models.NormalizedTitle, limit int) ([]models.Candidate, error) {
	m.mu.Lock()
	m.Searches = append(m.Searches, q)
	m.mu.Unlock()

	if err := m.SearchErr[q.Track]; err != nil {
		return nil, err
	}
	return m.Candidates[q.Track], nil
}

func (m *MockCatalog) AppendToPlaylist(ctx context.Context, playlistID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.Appended) + 1
	if m.AppendErr != nil && (m.FailOnCall == 0 || m.FailOnCall == call) {
		return m.AppendErr
	}
	m.Appended = append(m.Appended, append([]string(nil), ids...))
	return nil
}

func (m *MockCatalog) MaxBatchSize() int {
	if m.BatchSize == 0 {
		return 100
	}
	return m.BatchSize
}

// AppendedIDs flattens every successful append in call order.
func (m *MockCatalog) AppendedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for _, call := range m.Appended {
		ids = append(ids, call...)
	}
	return ids
}

// CountingPacer records Wait calls without blocking.
type CountingPacer struct {
	Calls int
	Err   error
}

func (p *CountingPacer) Wait(ctx context.Context) error {
	p.Calls++
	return p.Err
}

// ScriptedSelector answers Select calls from a list of indices, in order.
type ScriptedSelector struct {
	Answers []int
	Prompts []string
	Err     error
}

func (s *ScriptedSelector) Select(ctx context.Context, prompt string, playlists []models.Playlist) (int, error) {
	s.Prompts = append(s.Prompts, prompt)
	if s.Err != nil {
		return -1, s.Err
	}
	if len(s.Answers) == 0 {
		return -1, errors.New("no scripted answer left")
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// WriteJSON writes v as a JSON response with the given status. Handlers in httptest servers use it.
func WriteJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
