package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/output"
	"github.com/ledgerpipe/ledgerpipe/report"
)

type RegisterCmd struct {
	reportFlags

	Watch bool        `help:"Re-run the report whenever the journal file changes." short:"w"`
	File  FileOrStdin `help:"Journal input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

func (cmd *RegisterCmd) Run(ctx *kong.Context, globals *Globals) error {
	var printer *report.Printer
	runner := &reportRunner{
		kctx:    ctx,
		globals: globals,
		file:    cmd.File,
		opts:    cmd.options(),
		makeSink: func(states *chain.StateTable) chain.PostHandler {
			printer = report.NewPrinter(ctx.Stdout, states, output.NewStyles(ctx.Stdout))
			return printer
		},
	}

	run := func(runCtx context.Context) error {
		if err := runner.run(runCtx); err != nil {
			return err
		}
		if printer != nil {
			return printer.Err()
		}
		return nil
	}

	if !cmd.Watch {
		return run(context.Background())
	}
	return watchAndRun(ctx, runner, run)
}

// watchAndRun runs the report once, then re-runs it every time the journal
// file changes, until interrupted. The file's directory is watched rather
// than the file itself so editors that replace the file on save keep
// working.
func watchAndRun(ctx *kong.Context, runner *reportRunner, run func(context.Context) error) error {
	path, err := runner.watchPath()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(runCtx); err != nil {
		// A broken report in watch mode is not fatal; the next save may
		// fix it.
		printError(ctx.Stderr, err.Error())
	}
	printInfof(ctx.Stderr, "watching %s", path)

	for {
		select {
		case <-runCtx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			printInfof(ctx.Stderr, "%s changed, re-running", filepath.Base(path))
			if err := run(runCtx); err != nil {
				printError(ctx.Stderr, err.Error())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError(ctx.Stderr, err.Error())
		}
	}
}
