package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plsync/internal/shared"
)

// Setup creates the config file when it is missing and reports what is left to configure.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("plsync setup")

	if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		r.logger.Info("created config file", "path", r.configPath)
		r.writePlain("✓ Created %s\n", r.configPath)
	} else {
		r.writePlain("• Using existing %s\n", r.configPath)
	}

	r.writePlainln("Credentials")
	ready := true
	for _, p := range []Platform{Spotify, YouTube} {
		creds, _ := r.credentials(p)
		switch {
		case !creds.Configured():
			ready = false
			r.writePlain("  ✗ %-8s client id and secret missing\n", p)
		case !creds.HasToken():
			ready = false
			r.writePlain("  • %-8s configured, run 'plsync auth %s'\n", p, p)
		default:
			r.writePlain("  ✓ %-8s authorized\n", p)
		}
	}

	if ready {
		return r.writePlainln("Ready: plsync sync --from youtube --to spotify")
	}

	r.writePlainln("Next steps")
	r.writePlain("  1. Register an app with Spotify and with Google Cloud (YouTube Data API v3)\n")
	r.writePlain("  2. Add the client ids and secrets to %s or to the environment\n", r.configPath)
	r.writePlain("  3. Run 'plsync auth spotify' and 'plsync auth youtube'\n")
	return nil
}
