package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/plsync/internal/auth"
	"github.com/desertthunder/plsync/internal/shared"
)

var errBrowserDisabled = errors.New("browser disabled by --no-browser")

// AuthSpotify performs the OAuth2 consent flow for Spotify and saves the token.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	return r.authorize(ctx, cmd, Spotify)
}

// AuthYouTube performs the OAuth2 consent flow for Google and saves the token.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	return r.authorize(ctx, cmd, YouTube)
}

// authorize starts a local callback server, opens the browser for user consent, and exchanges
// the code for tokens.
func (r *Runner) authorize(ctx context.Context, cmd *cli.Command, p Platform) error {
	opts := []auth.Option{
		auth.WithOutput(r.output),
		auth.WithLogger(r.logger),
		auth.WithTimeout(cmd.Duration("timeout")),
	}
	if cmd.Bool("no-browser") {
		opts = append(opts, auth.WithBrowser(func(string) error { return errBrowserDisabled }))
	}
	a := auth.New(r.config, append(opts, r.authOpts...)...)

	var token *oauth2.Token
	var err error
	switch p {
	case Spotify:
		token, err = a.Spotify(ctx)
	case YouTube:
		token, err = a.YouTube(ctx)
	}
	if err != nil {
		return err
	}

	if err := r.saveTokens(map[Platform]*oauth2.Token{p: token}); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: plsync playlists --platform %s\n", p)
	return nil
}

// saveTokens stores tokens in memory and in the config file. The file is re-read first so
// values that came from the environment are not written to it.
func (r *Runner) saveTokens(tokens map[Platform]*oauth2.Token) error {
	onDisk, err := shared.LoadConfig(r.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		onDisk = shared.DefaultConfig()
	case err != nil:
		return fmt.Errorf("failed to reload config: %w", err)
	}

	for p, token := range tokens {
		if err := r.platformConfig(p).Update(token); err != nil {
			return fmt.Errorf("failed to update %s configuration: %w", p, err)
		}
		disk := &onDisk.Credentials.Spotify
		if p == YouTube {
			disk = &onDisk.Credentials.YouTube
		}
		if err := disk.Update(token); err != nil {
			return fmt.Errorf("failed to update %s configuration: %w", p, err)
		}
	}

	if err := shared.SaveConfig(r.configPath, onDisk); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
