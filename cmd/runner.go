package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/plsync/internal/auth"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/ui"
)

// Platform names a supported catalog on the command line.
type Platform string

const (
	Spotify Platform = "spotify"
	YouTube Platform = "youtube"
)

// ParsePlatform accepts the platform names and their short forms.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spotify", "sp":
		return Spotify, nil
	case "youtube", "yt":
		return YouTube, nil
	case "":
		return "", fmt.Errorf("%w: platform (spotify or youtube)", shared.ErrMissingArgument)
	default:
		return "", fmt.Errorf("%w: unknown platform %q (want spotify or youtube)", shared.ErrInvalidArgument, s)
	}
}

// ConnectFunc returns an authenticated client for a platform.
type ConnectFunc func(ctx context.Context, p Platform) (services.Target, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	logger      *log.Logger
	output      io.Writer
	input       io.Reader
	connect     ConnectFunc
	interactive func() bool
	authOpts    []auth.Option
	serviceOpts []services.Option
	authorizers map[Platform]services.Authorizer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config // skips loading the config file when set
	ConfigPath  string
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader
	Connect     ConnectFunc
	Interactive func() bool
	AuthOptions []auth.Option
	Services    []services.Option
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Interactive == nil {
		opts.Interactive = func() bool { return ui.Interactive(os.Stdin, os.Stdout) }
	}

	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       opts.Input,
		interactive: opts.Interactive,
		authOpts:    opts.AuthOptions,
		serviceOpts: opts.Services,
		authorizers: map[Platform]services.Authorizer{},
	}
	r.connect = opts.Connect
	if r.connect == nil {
		r.connect = r.dial
	}
	return r
}

// Before loads configuration ahead of every command: the TOML file (defaults when it is
// missing), then the dotenv file and environment overrides.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if p := cmd.String("config"); p != "" {
		r.configPath = p
	}
	if r.config != nil {
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		config = shared.DefaultConfig()
	case err != nil:
		return ctx, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}

	env, err := shared.LoadEnv(cmd.String("env-file"))
	if err != nil {
		return ctx, err
	}
	config.ApplyEnv(env)

	if err := config.Validate(); err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// dial builds the platform client from config and installs the saved token.
func (r *Runner) dial(ctx context.Context, p Platform) (services.Target, error) {
	creds, err := r.credentials(p)
	if err != nil {
		return nil, err
	}
	if !creds.HasToken() {
		return nil, fmt.Errorf("%w: no saved %s token, run 'plsync auth %s' first", shared.ErrNotAuthenticated, p, p)
	}

	opts := append([]services.Option{services.WithLogger(r.logger)}, r.serviceOpts...)

	var svc interface {
		services.Target
		services.Authorizer
	}
	switch p {
	case Spotify:
		svc, err = services.NewSpotifyService(creds, opts...)
	case YouTube:
		svc, err = services.NewYouTubeService(creds, opts...)
	}
	if err != nil {
		return nil, err
	}

	if err := svc.Authenticate(ctx, creds.Token()); err != nil {
		return nil, err
	}
	r.authorizers[p] = svc
	return svc, nil
}

func (r *Runner) credentials(p Platform) (shared.PlatformConfig, error) {
	switch p {
	case Spotify:
		return r.config.Credentials.Spotify, nil
	case YouTube:
		return r.config.Credentials.YouTube, nil
	default:
		return shared.PlatformConfig{}, fmt.Errorf("%w: unknown platform %q", shared.ErrInvalidArgument, p)
	}
}

func (r *Runner) platformConfig(p Platform) *shared.PlatformConfig {
	if p == Spotify {
		return &r.config.Credentials.Spotify
	}
	return &r.config.Credentials.YouTube
}

// persistTokens writes tokens that were refreshed during the command back to the config file.
// A failure is logged; the command's own result stands.
func (r *Runner) persistTokens() {
	refreshed := map[Platform]*oauth2.Token{}
	for p, a := range r.authorizers {
		token, err := a.Token()
		if err != nil {
			r.logger.Debug("no token to persist", "platform", p, "err", err)
			continue
		}
		saved := r.platformConfig(p)
		if token.AccessToken == saved.AccessToken && token.Expiry.Equal(saved.Expiry) {
			continue
		}
		refreshed[p] = token
	}
	if len(refreshed) == 0 {
		return
	}
	if err := r.saveTokens(refreshed); err != nil {
		r.logger.Warn("failed to save refreshed tokens", "path", r.configPath, "err", err)
		return
	}
	r.logger.Debug("saved refreshed tokens", "path", r.configPath, "platforms", len(refreshed))
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
