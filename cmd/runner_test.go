package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/plsync/internal/auth"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/server"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	tu "github.com/desertthunder/plsync/internal/testing"
)

func youtubeMock() *tu.MockCatalog {
	return &tu.MockCatalog{
		NameValue: "YouTube",
		Playlists: []models.Playlist{{ID: "yt-a", Name: "Mix A", TrackCount: 2}, {ID: "yt-b", Name: "Mix B"}},
		Tracks: map[string][]models.TrackRef{
			"yt-a": {
				{ID: "v1", Title: "Artist A - Song One (Official Video)", Artist: "Artist A VEVO"},
				{ID: "v2", Title: "Totally Unknown Garbled Noise XYZ123", Artist: "nobody"},
			},
		},
	}
}

func spotifyMock() *tu.MockCatalog {
	return &tu.MockCatalog{
		NameValue: "Spotify",
		Playlists: []models.Playlist{{ID: "sp-list", Name: "Copies"}},
		Candidates: map[string][]models.Candidate{
			"Song One": {
				{ID: "sp2", Title: "Song One (Live)", Artist: "Cover Band"},
				{ID: "sp1", Title: "Song One", Artist: "Artist A"},
			},
		},
	}
}

func mockConnect(yt, sp *tu.MockCatalog) ConnectFunc {
	return func(ctx context.Context, p Platform) (services.Target, error) {
		if p == YouTube {
			return yt, nil
		}
		return sp, nil
	}
}

// newTestRunner returns a runner with a preset config, so no files are read.
func newTestRunner(t *testing.T, connect ConnectFunc, input string) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{
		Config:      shared.DefaultConfig(),
		ConfigPath:  filepath.Join(t.TempDir(), "config.toml"),
		Logger:      shared.DiscardLogger(),
		Output:      output,
		Input:       strings.NewReader(input),
		Connect:     connect,
		Interactive: func() bool { return false },
	})
	return r, output
}

func run(r *Runner, args ...string) error {
	return newApp(r).Run(context.Background(), append([]string{"plsync"}, args...))
}

type fakeAuthorizer struct {
	token *oauth2.Token
	err   error
}

func (f *fakeAuthorizer) OAuthConfig() *oauth2.Config                           { return &oauth2.Config{} }
func (f *fakeAuthorizer) Authenticate(ctx context.Context, t *oauth2.Token) error { return nil }
func (f *fakeAuthorizer) Token() (*oauth2.Token, error)                         { return f.token, f.err }

func TestParsePlatform(t *testing.T) {
	tc := []struct {
		in   string
		want Platform
		err  error
	}{
		{in: "spotify", want: Spotify},
		{in: "SP", want: Spotify},
		{in: " youtube ", want: YouTube},
		{in: "yt", want: YouTube},
		{in: "", err: shared.ErrMissingArgument},
		{in: "tidal", err: shared.ErrInvalidArgument},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlatform(tt.in)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
			if runner.connect == nil || runner.interactive == nil {
				t.Error("expected connect and interactive to be set")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("Before", func(t *testing.T) {
		newRunner := func() *Runner {
			return NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})
		}
		missingEnv := filepath.Join(t.TempDir(), "missing.env")

		t.Run("loads the config file and environment overrides", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[sync]\nmatch_threshold = 0.7\nbatch_size = 10\n"), 0600); err != nil {
				t.Fatal(err)
			}
			t.Setenv("SPOTIFY_CLIENT_ID", "env-id")

			r := newRunner()
			if err := run(r, "--config", path, "--env-file", missingEnv, "normalize", "x"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if r.config.Sync.MatchThreshold != 0.7 || r.config.Sync.BatchSize != 10 {
				t.Errorf("file values not applied: %+v", r.config.Sync)
			}
			if r.config.Sync.PageSize != 50 {
				t.Errorf("expected default page size, got %d", r.config.Sync.PageSize)
			}
			if r.config.Credentials.Spotify.ClientID != "env-id" {
				t.Errorf("expected env client id, got %s", r.config.Credentials.Spotify.ClientID)
			}
			if r.configPath != path {
				t.Errorf("expected config path %s, got %s", path, r.configPath)
			}
		})

		t.Run("missing file uses defaults", func(t *testing.T) {
			r := newRunner()
			path := filepath.Join(t.TempDir(), "none.toml")
			if err := run(r, "--config", path, "--env-file", missingEnv, "normalize", "x"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.config.Sync.MatchThreshold != 0.5 {
				t.Errorf("expected default threshold, got %v", r.config.Sync.MatchThreshold)
			}
		})

		t.Run("invalid values are rejected", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[sync]\nmatch_threshold = 1.5\n"), 0600); err != nil {
				t.Fatal(err)
			}

			err := run(newRunner(), "--config", path, "--env-file", missingEnv, "normalize", "x")
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("malformed file is rejected", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[sync\n"), 0600); err != nil {
				t.Fatal(err)
			}

			err := run(newRunner(), "--config", path, "--env-file", missingEnv, "normalize", "x")
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("output failure", func(t *testing.T) {
			r, _ := newTestRunner(t, nil, "")
			r.output = &tu.FWriter{}
			if err := r.writeJSON(map[string]int{"a": 1}, false); err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected output error, got %v", err)
			}
		})

		t.Run("newline failure", func(t *testing.T) {
			r, _ := newTestRunner(t, nil, "")
			buf := &bytes.Buffer{}
			w := tu.NewLimitedWriter(1, 0, buf)
			r.output = &w
			if err := r.writeJSON(map[string]int{"a": 1}, false); err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
			if buf.String() != `{"a":1}` {
				t.Errorf("expected the document before the failure, got %q", buf.String())
			}
		})

		t.Run("plain output failure", func(t *testing.T) {
			r, _ := newTestRunner(t, nil, "")
			r.output = &tu.FWriter{}
			if err := run(r, "normalize", "Artist - Song"); err == nil {
				t.Error("expected an error from the failing writer")
			}
		})
	})

	t.Run("dial", func(t *testing.T) {
		t.Run("requires a saved token", func(t *testing.T) {
			r, _ := newTestRunner(t, nil, "")
			_, err := r.dial(context.Background(), Spotify)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("persistTokens", func(t *testing.T) {
		t.Run("saves refreshed tokens", func(t *testing.T) {
			r, _ := newTestRunner(t, nil, "")
			r.config.Credentials.Spotify.AccessToken = "old"
			r.authorizers[Spotify] = &fakeAuthorizer{token: &oauth2.Token{AccessToken: "new", RefreshToken: "refresh"}}

			r.persistTokens()

			saved, err := shared.LoadConfig(r.configPath)
			if err != nil {
				t.Fatalf("failed to load saved config: %v", err)
			}
			if saved.Credentials.Spotify.AccessToken != "new" || saved.Credentials.Spotify.RefreshToken != "refresh" {
				t.Errorf("unexpected saved token %+v", saved.Credentials.Spotify)
			}
			if r.config.Credentials.Spotify.AccessToken != "new" {
				t.Error("expected in-memory config to be updated")
			}
		})

		t.Run("skips unchanged tokens", func(t *testing.T) {
			r, _ := newTestRunner(t, nil, "")
			r.config.Credentials.YouTube.AccessToken = "same"
			r.authorizers[YouTube] = &fakeAuthorizer{token: &oauth2.Token{AccessToken: "same"}}

			r.persistTokens()

			if _, err := os.Stat(r.configPath); !os.IsNotExist(err) {
				t.Errorf("expected no config file to be written, got %v", err)
			}
		})

		t.Run("ignores authorizers without a token", func(t *testing.T) {
			r, _ := newTestRunner(t, nil, "")
			r.authorizers[YouTube] = &fakeAuthorizer{err: shared.ErrNotAuthenticated}

			r.persistTokens()

			if _, err := os.Stat(r.configPath); !os.IsNotExist(err) {
				t.Errorf("expected no config file to be written, got %v", err)
			}
		})
	})
}

func TestSetup(t *testing.T) {
	t.Run("creates the config file", func(t *testing.T) {
		r, output := newTestRunner(t, nil, "")
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(r, "--config", path, "setup"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, path)
		out := output.String()
		if !strings.Contains(out, "Created "+path) {
			t.Errorf("expected created message, got %s", out)
		}
		if !strings.Contains(out, "client id and secret missing") {
			t.Errorf("expected missing credentials status, got %s", out)
		}
	})

	t.Run("keeps an existing file", func(t *testing.T) {
		r, output := newTestRunner(t, nil, "")
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("# mine\n"), 0600); err != nil {
			t.Fatal(err)
		}
		r.config.Credentials.Spotify = shared.PlatformConfig{ClientID: "id", ClientSecret: "secret", AccessToken: "tok"}
		r.config.Credentials.YouTube = shared.PlatformConfig{ClientID: "id", ClientSecret: "secret"}

		if err := run(r, "--config", path, "setup"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := tu.MustReadFile(t, path); got != "# mine\n" {
			t.Errorf("existing file was modified: %q", got)
		}
		out := output.String()
		if !strings.Contains(out, "Using existing") {
			t.Errorf("expected existing message, got %s", out)
		}
		if !strings.Contains(out, "authorized") || !strings.Contains(out, "run 'plsync auth youtube'") {
			t.Errorf("unexpected platform status: %s", out)
		}
	})
}

func TestAuth(t *testing.T) {
	t.Run("saves the token from the flow", func(t *testing.T) {
		var gotOpts server.AuthorizeOptions
		flow := func(ctx context.Context, cfg *oauth2.Config, opts server.AuthorizeOptions) (*oauth2.Token, error) {
			gotOpts = opts
			return &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}, nil
		}

		r, output := newTestRunner(t, nil, "")
		r.authOpts = []auth.Option{auth.WithFlow(flow)}
		r.config.Credentials.Spotify.ClientID = "client"
		r.config.Credentials.Spotify.ClientSecret = "secret"
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(r, "--config", path, "auth", "spotify", "--timeout", "5s"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotOpts.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", gotOpts.Timeout)
		}
		saved, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if saved.Credentials.Spotify.AccessToken != "access" || saved.Credentials.Spotify.RefreshToken != "refresh" {
			t.Errorf("unexpected saved token %+v", saved.Credentials.Spotify)
		}
		if saved.Credentials.Spotify.ClientID == "client" {
			t.Error("credentials that did not come from the file should not be written to it")
		}
		if !strings.Contains(output.String(), "Authorization successful") {
			t.Errorf("expected success message, got %s", output.String())
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		r, _ := newTestRunner(t, nil, "")
		err := run(r, "auth", "youtube")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("flow failure", func(t *testing.T) {
		r, _ := newTestRunner(t, nil, "")
		r.authOpts = []auth.Option{auth.WithFlow(func(context.Context, *oauth2.Config, server.AuthorizeOptions) (*oauth2.Token, error) {
			return nil, shared.ErrTimeout
		})}
		r.config.Credentials.YouTube.ClientID = "client"
		r.config.Credentials.YouTube.ClientSecret = "secret"

		err := run(r, "auth", "yt", "--no-browser")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if _, statErr := os.Stat(r.configPath); !os.IsNotExist(statErr) {
			t.Error("expected no config file after a failed flow")
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("playlists", func(t *testing.T) {
		t.Run("table", func(t *testing.T) {
			r, output := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "playlists", "--platform", "youtube"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out := output.String()
			if !strings.Contains(out, "YouTube playlists (2)") || !strings.Contains(out, "Mix A") || !strings.Contains(out, "yt-b") {
				t.Errorf("unexpected output: %s", out)
			}
		})

		t.Run("json with limit", func(t *testing.T) {
			r, output := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "ls", "-p", "yt", "--limit", "1", "--json"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var playlists []models.Playlist
			if err := json.Unmarshal(output.Bytes(), &playlists); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(playlists) != 1 || playlists[0].ID != "yt-a" {
				t.Errorf("unexpected playlists %+v", playlists)
			}
		})

		t.Run("unknown platform", func(t *testing.T) {
			r, _ := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "playlists", "--platform", "tidal"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("fetch failure", func(t *testing.T) {
			yt := youtubeMock()
			yt.PlaylistsErr = shared.ErrFetchFailed
			r, _ := newTestRunner(t, mockConnect(yt, spotifyMock()), "")
			if err := run(r, "playlists", "--platform", "youtube"); !errors.Is(err, shared.ErrFetchFailed) {
				t.Errorf("expected ErrFetchFailed, got %v", err)
			}
		})
	})

	t.Run("tracks", func(t *testing.T) {
		t.Run("normalized json", func(t *testing.T) {
			r, output := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "tracks", "--platform", "youtube", "--id", "yt-a", "--normalize", "--json"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var rows []trackRow
			if err := json.Unmarshal(output.Bytes(), &rows); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(rows) != 2 {
				t.Fatalf("expected 2 rows, got %d", len(rows))
			}
			if rows[0].ID != "v1" || rows[0].Normalized == nil || rows[0].Normalized.Track != "Song One" {
				t.Errorf("unexpected first row %+v", rows[0])
			}
		})

		t.Run("normalized table", func(t *testing.T) {
			r, output := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "tracks", "--platform", "youtube", "--id", "yt-a", "--normalize"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out := output.String()
			if strings.Contains(out, "Official Video") {
				t.Errorf("expected cleaned titles, got %s", out)
			}
			if !strings.Contains(out, "2 tracks") {
				t.Errorf("expected track count, got %s", out)
			}
		})
	})

	t.Run("normalize", func(t *testing.T) {
		t.Run("plain", func(t *testing.T) {
			r, output := newTestRunner(t, nil, "")
			if err := run(r, "normalize", "Daft Punk - One More Time [HD]"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out := output.String()
			if !strings.Contains(out, "Artist:  Daft Punk") || !strings.Contains(out, "Track:   One More Time") {
				t.Errorf("unexpected output: %s", out)
			}
		})

		t.Run("artist flag fills the gap", func(t *testing.T) {
			r, output := newTestRunner(t, nil, "")
			if err := run(r, "normalize", "--artist", "Someone", "--json", "Some Title"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var n models.NormalizedTitle
			if err := json.Unmarshal(output.Bytes(), &n); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if n.Artist != "Someone" || n.Track != "Some Title" {
				t.Errorf("unexpected result %+v", n)
			}
		})

		t.Run("missing title", func(t *testing.T) {
			r, _ := newTestRunner(t, nil, "")
			if err := run(r, "normalize"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("match", func(t *testing.T) {
		t.Run("reports the decision", func(t *testing.T) {
			r, output := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "match", "--platform", "spotify", "Artist A - Song One (Official Video)"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out := output.String()
			if !strings.Contains(out, "✓ Match: sp1") {
				t.Errorf("expected match on sp1, got %s", out)
			}
			if !strings.Contains(out, "Song One (Live)") {
				t.Errorf("expected every candidate listed, got %s", out)
			}
		})

		t.Run("json sorts candidates by score", func(t *testing.T) {
			r, output := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "match", "-p", "spotify", "--json", "Artist A - Song One"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var report matchReport
			if err := json.Unmarshal(output.Bytes(), &report); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if !report.Decision.Matched || report.Decision.ID != "sp1" {
				t.Errorf("unexpected decision %+v", report.Decision)
			}
			if len(report.Candidates) != 2 || report.Candidates[0].ID != "sp1" {
				t.Errorf("expected sp1 first, got %+v", report.Candidates)
			}
		})

		t.Run("no candidates", func(t *testing.T) {
			r, output := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "match", "-p", "spotify", "Nothing Here"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(output.String(), "No candidate scored above 0.50") {
				t.Errorf("unexpected output: %s", output.String())
			}
		})

		t.Run("title that normalizes to nothing", func(t *testing.T) {
			r, _ := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
			if err := run(r, "match", "-p", "spotify", "[Lyrics]"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})
}

func TestSync(t *testing.T) {
	t.Run("copies matched tracks and writes a report", func(t *testing.T) {
		yt, sp := youtubeMock(), spotifyMock()
		r, output := newTestRunner(t, mockConnect(yt, sp), "")
		report := filepath.Join(t.TempDir(), "report.csv")

		err := run(r, "sync", "--source", "yt-a", "--target", "sp-list", "--report", report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := sp.AppendedIDs(); len(got) != 1 || got[0] != "sp1" {
			t.Errorf("expected [sp1] appended, got %v", got)
		}
		out := output.String()
		if !strings.Contains(out, "1/2 matched (50.0%), 1 unmatched, 0 failed searches, 1 written") {
			t.Errorf("unexpected summary: %s", out)
		}
		if !strings.Contains(out, "Report saved to "+report) {
			t.Errorf("expected report message, got %s", out)
		}
		if content := tu.MustReadFile(t, report); !strings.Contains(content, "sp1") {
			t.Errorf("report missing matched id: %s", content)
		}
	})

	t.Run("prompts for playlists when ids are omitted", func(t *testing.T) {
		yt, sp := youtubeMock(), spotifyMock()
		r, output := newTestRunner(t, mockConnect(yt, sp), "1\n1\n")

		if err := run(r, "sync", "--dry-run"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(sp.Appended) != 0 {
			t.Errorf("dry run should not write, got %v", sp.Appended)
		}
		out := output.String()
		if !strings.Contains(out, "Mix A") || !strings.Contains(out, "Copies") {
			t.Errorf("expected both playlist listings, got %s", out)
		}
		if !strings.Contains(out, "(dry run)") {
			t.Errorf("expected dry run summary, got %s", out)
		}
	})

	t.Run("closed input cancels selection", func(t *testing.T) {
		r, _ := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
		if err := run(r, "sync"); !errors.Is(err, shared.ErrCancelled) {
			t.Errorf("expected ErrCancelled, got %v", err)
		}
	})

	t.Run("reverse direction with max", func(t *testing.T) {
		yt, sp := youtubeMock(), spotifyMock()
		sp.Tracks = map[string][]models.TrackRef{
			"sp-list": {{ID: "sp1", Title: "Song One", Artist: "Artist A"}, {ID: "sp2", Title: "Other", Artist: "B"}},
		}
		yt.Candidates = map[string][]models.Candidate{
			"Song One": {{ID: "v1", Title: "Artist A - Song One (Official Video)", Artist: "Artist A"}},
		}
		r, output := newTestRunner(t, mockConnect(yt, sp), "")

		err := run(r, "sync", "--from", "spotify", "--to", "youtube", "--source", "sp-list", "--target", "yt-b", "--max", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(yt.Searches) != 1 {
			t.Errorf("expected one search, got %d", len(yt.Searches))
		}
		if !strings.Contains(output.String(), "/1 matched") {
			t.Errorf("expected a single track run, got %s", output.String())
		}
	})

	t.Run("same platform on both sides", func(t *testing.T) {
		r, _ := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
		if err := run(r, "sync", "--from", "spotify", "--to", "sp"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("write delay below the minimum", func(t *testing.T) {
		yt, sp := youtubeMock(), spotifyMock()
		r, _ := newTestRunner(t, mockConnect(yt, sp), "")
		err := run(r, "sync", "--source", "yt-a", "--target", "sp-list", "--write-delay", "0s")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(yt.Searches)+len(sp.Searches) != 0 {
			t.Error("expected no catalog calls")
		}
	})

	t.Run("write delay above the minimum", func(t *testing.T) {
		yt, sp := youtubeMock(), spotifyMock()
		r, _ := newTestRunner(t, mockConnect(yt, sp), "")
		if err := run(r, "sync", "--source", "yt-a", "--target", "sp-list", "--write-delay", "250ms"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := sp.AppendedIDs(); len(got) != 1 {
			t.Errorf("expected one id appended, got %v", got)
		}
	})

	t.Run("logs each track once", func(t *testing.T) {
		logs := &bytes.Buffer{}
		r, _ := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
		r.logger = shared.NewLogger(logs)

		if err := run(r, "sync", "--source", "yt-a", "--target", "sp-list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := strings.Count(logs.String(), "Song One"); n != 1 {
			t.Errorf("expected the matched track logged once, got %d times:\n%s", n, logs.String())
		}
		if n := strings.Count(logs.String(), "Garbled Noise"); n != 1 {
			t.Errorf("expected the unmatched track logged once, got %d times:\n%s", n, logs.String())
		}
	})

	t.Run("unknown report format", func(t *testing.T) {
		r, _ := newTestRunner(t, mockConnect(youtubeMock(), spotifyMock()), "")
		if err := run(r, "sync", "--source", "yt-a", "--target", "sp-list", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("write failure keeps the summary", func(t *testing.T) {
		yt, sp := youtubeMock(), spotifyMock()
		sp.AppendErr = errors.New("quota exceeded")
		r, output := newTestRunner(t, mockConnect(yt, sp), "")

		err := run(r, "sync", "--source", "yt-a", "--target", "sp-list")
		if !errors.Is(err, shared.ErrWriteFailed) {
			t.Errorf("expected ErrWriteFailed, got %v", err)
		}
		if !strings.Contains(output.String(), "1/2 matched") {
			t.Errorf("expected summary next to the error, got %s", output.String())
		}
	})
}
