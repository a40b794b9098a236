package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/handiism/audioconv/internal/config"
	"github.com/handiism/audioconv/internal/convert"
	ioutils "github.com/handiism/audioconv/internal/io"
	"github.com/handiism/audioconv/internal/model"
	"github.com/handiism/audioconv/internal/report"
	"github.com/handiism/audioconv/internal/transcode"
)

func runConvert(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()

	settings, _, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := settings.ResolveRoots(); err != nil {
		return err
	}

	logger, _, err := newRunLogger(settings, stdout)
	if err != nil {
		return err
	}
	defer logger.Close()

	if !opts.dryRun {
		path, err := transcode.CheckBinary(settings.TranscoderBinary)
		if err != nil {
			return err
		}
		logger.Debug("transcoder found", "path", path)
	}

	logger.Info("Scanning input", "input", settings.InputDir)
	files, err := ioutils.Enumerate(ctx, settings.InputDir, func(err error) {
		logger.Warn("skipping unreadable directory", "error", err)
	})
	if err != nil {
		return fmt.Errorf("read input root: %w", err)
	}
	logger.Info(fmt.Sprintf("Found %d files", len(files)), "input", settings.InputDir)

	events := &eventLogger{logger: logger.Logger, root: settings.InputDir}
	tcOpts := settings.ToTranscodeOptions()
	if settings.ShowTranscoderOutput {
		tcOpts.Stderr = cmd.ErrOrStderr()
	}
	tcOpts.OnWarning = func(err error) {
		logger.Warn("transcoder warning", "error", err)
	}
	dispatcher := convert.NewDispatcher(settings, transcode.NewFFmpeg(tcOpts), events.handle)

	if opts.dryRun {
		tasks := dispatcher.Plan(settings.InputDir, settings.OutputDir, files)
		fmt.Fprintln(stdout, report.Plan(tasks, settings.SkipExisting, ioutils.FileExists))
		logger.Info(fmt.Sprintf("Dry run: %d files planned", len(tasks)))
		return nil
	}

	lock, err := ioutils.LockDir(settings.OutputDir)
	if err != nil {
		return fmt.Errorf("lock %s: %w", settings.OutputDir, err)
	}
	defer lock.Unlock()

	logger.Info("Converting",
		"output", settings.OutputDir,
		"mode", string(settings.Mode),
		"workers", workersFor(settings),
	)
	summary := dispatcher.Dispatch(ctx, settings.InputDir, settings.OutputDir, files)

	logger.Info("Finished",
		"processed", summary.Processed,
		"rate", report.Rate(summary.Processed, summary.Elapsed),
	)
	printSummary(stdout, settings, summary, events.failures())

	if ctx.Err() != nil {
		logger.Warn("interrupted")
		return context.Canceled
	}
	if settings.FailOnError && summary.Failed > 0 {
		return errFilesFailed(summary.Failed)
	}
	return nil
}

type errFilesFailed int

func (e errFilesFailed) Error() string {
	return fmt.Sprintf("%d files failed to convert", int(e))
}

func workersFor(s *config.Settings) string {
	switch s.Mode {
	case config.ModeAsync:
		return "unbounded"
	case config.ModeChunked:
		return fmt.Sprintf("batches of %d", s.BatchSize)
	default:
		return fmt.Sprintf("%d", s.Workers())
	}
}

func printSummary(w io.Writer, s *config.Settings, summary model.RunSummary, failures []report.Failure) {
	if strings.EqualFold(s.LogFormat, "json") {
		return
	}
	fmt.Fprintln(w, report.Summary(summary))
	if table := report.Failures(failures); table != "" {
		fmt.Fprintln(w, table)
	}
}

// eventLogger maps dispatcher events onto the run logger and remembers
// failed inputs for the summary.
type eventLogger struct {
	logger *slog.Logger
	root   string

	mu     sync.Mutex
	failed []report.Failure
}

func (l *eventLogger) handle(e convert.ProgressEvent) {
	switch e.Level {
	case convert.LevelVerbose:
		l.logger.Debug(e.Message)
	case convert.LevelWarning:
		l.logger.Warn(e.Message)
	case convert.LevelError:
		l.logger.Error(e.Message)
		if e.Input != "" {
			l.recordFailure(e)
		}
	default:
		l.logger.Info(e.Message)
	}
}

func (l *eventLogger) recordFailure(e convert.ProgressEvent) {
	reason := "unknown error"
	var te *transcode.TranscodeError
	var de *convert.DirectoryCreateError
	switch {
	case errors.As(e.Err, &te) && te.Diagnostic() != "":
		reason = te.Diagnostic()
	case errors.As(e.Err, &de):
		reason = de.Error()
	case e.Err != nil:
		reason = e.Err.Error()
	}

	l.mu.Lock()
	l.failed = append(l.failed, report.Failure{Input: report.ShortPath(l.root, e.Input), Reason: reason})
	l.mu.Unlock()
}

func (l *eventLogger) failures() []report.Failure {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]report.Failure(nil), l.failed...)
}
