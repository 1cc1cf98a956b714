package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/desertthunder/plsync/internal/ui"
)

// Sync copies a playlist from one platform into another.
//
// On a terminal the run happens inside the TUI unless --no-tui is set; otherwise playlists
// are chosen through numbered prompts and progress is printed line by line.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	from, err := ParsePlatform(cmd.String("from"))
	if err != nil {
		return err
	}
	to, err := ParsePlatform(cmd.String("to"))
	if err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: --from and --to are both %s", shared.ErrInvalidArgument, from)
	}

	var format formatter.Format
	if cmd.String("report") != "" || cmd.IsSet("format") {
		if format, err = formatter.ParseFormat(cmd.String("format")); err != nil {
			return err
		}
	}

	opts := tasks.OptionsFromConfig(r.config.Sync)
	if cmd.IsSet("write-delay") {
		if opts.WriteDelay = cmd.Duration("write-delay"); opts.WriteDelay < shared.MinWriteDelay {
			return fmt.Errorf("%w: --write-delay must be at least %v", shared.ErrInvalidArgument, shared.MinWriteDelay)
		}
	}

	req := tasks.SyncRequest{
		SourcePlaylistID: cmd.String("source"),
		TargetPlaylistID: cmd.String("target"),
		MaxTracks:        r.config.Sync.MaxTracks,
		DryRun:           cmd.Bool("dry-run"),
	}
	if cmd.IsSet("max") {
		req.MaxTracks = cmd.Int("max")
	}
	if req.MaxTracks < 0 {
		return fmt.Errorf("%w: --max must not be negative", shared.ErrInvalidArgument)
	}

	src, err := r.connect(ctx, from)
	if err != nil {
		return err
	}
	dst, err := r.connect(ctx, to)
	if err != nil {
		return err
	}
	defer r.persistTokens()

	engine := tasks.NewSyncEngine(src, dst, nil, opts, r.logger)
	r.logger.Debug("starting sync", "from", from, "to", to, "dry_run", req.DryRun, "max", req.MaxTracks)

	var result *tasks.SyncResult
	var runErr error
	tui := r.interactive() && !cmd.Bool("no-tui")
	if tui {
		result, runErr = r.syncTUI(ctx, engine, req)
	} else {
		result, runErr = r.syncPlain(ctx, engine, req)
	}

	if result != nil {
		if !tui {
			r.writePlainln("%s", formatter.OutcomeTable(result))
		}
		r.writePlain("%s\n", formatter.Summary(result))

		if format != "" {
			path, err := formatter.WriteReport(result, cmd.String("report"), format)
			if err != nil {
				r.logger.Error("failed to write report", "err", err)
			} else {
				r.writePlain("✓ Report saved to %s\n", path)
			}
		}
	}
	return runErr
}

// syncTUI runs the engine inside the Bubble Tea program. Only errors are logged while the
// program owns the screen.
func (r *Runner) syncTUI(ctx context.Context, engine *tasks.SyncEngine, req tasks.SyncRequest) (*tasks.SyncResult, error) {
	level := r.logger.GetLevel()
	shared.SetLogLevel(r.logger, log.ErrorLevel)
	defer shared.SetLogLevel(r.logger, level)

	return ui.RunSync(ctx, engine, req)
}

func (r *Runner) syncPlain(ctx context.Context, engine *tasks.SyncEngine, req tasks.SyncRequest) (*tasks.SyncResult, error) {
	engine.WithSelector(ui.NewPromptSelector(r.input, r.output))

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// The engine logs each track at info level already.
		for u := range progress {
			r.logger.Debug(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()

	result, err := engine.Run(ctx, progress, req)
	close(progress)
	wg.Wait()
	return result, err
}
