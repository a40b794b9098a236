package main

import (
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/handiism/audioconv/internal/config"
	"github.com/handiism/audioconv/internal/logging"
)

// loadSettings reads the configuration file and applies every flag the
// user set explicitly on top of it.
func loadSettings(cmd *cobra.Command, opts *options) (*config.Settings, string, error) {
	path := strings.TrimSpace(opts.configPath)
	if path == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = defaultPath
	}

	settings, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}

	if err := applyFlags(cmd, opts, settings); err != nil {
		return nil, path, err
	}
	return settings, path, nil
}

func applyFlags(cmd *cobra.Command, opts *options, s *config.Settings) error {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("input") {
		s.InputDir = opts.input
	}
	if changed("output") {
		s.OutputDir = opts.output
	}
	if changed("skip") {
		s.SkipExisting = opts.skip
	}
	if changed("mode") {
		s.Mode = config.Mode(opts.mode)
	}
	if changed("batch-size") {
		s.BatchSize = opts.batchSize
	}
	if changed("jobs") {
		s.Jobs = opts.jobs
	}

	if opts.tokio && opts.chunking > 0 {
		return &config.UsageError{Field: "flags", Msg: "--tokio and --chunking cannot be combined"}
	}
	if changed("chunking") {
		if opts.chunking < 0 {
			return &config.UsageError{Field: "chunking", Msg: "must not be negative"}
		}
		if opts.chunking > 0 {
			s.Mode = config.ModeChunked
			s.BatchSize = opts.chunking
		}
	}
	if opts.tokio {
		s.Mode = config.ModeAsync
	}

	if changed("ext") {
		s.TargetExtension = opts.ext
	}
	if changed("only") {
		s.IncludeExtensions = opts.only
	}
	if changed("ffmpeg") {
		s.TranscoderBinary = opts.ffmpeg
	}
	if changed("nice") {
		s.Nice = opts.nice
	}
	if changed("no-overwrite") {
		s.Overwrite = !opts.noOverwrite
	}
	if changed("show-ffmpeg-output") {
		s.ShowTranscoderOutput = opts.showFFmpeg
	}
	if changed("tag") {
		s.FillMissingTags = opts.tag
	}
	if changed("cover-art") {
		s.SaveCoverArtInFolder = opts.coverArt
	}
	if changed("embed-cover-art") {
		s.SaveCoverArtInTags = opts.embedCoverArt
	}
	if changed("playlist") {
		s.CreatePlaylist = opts.playlist
	}
	if changed("playlist-format") {
		s.PlaylistFormat = opts.playlistFormat
	}
	if changed("fail-on-error") {
		s.FailOnError = opts.failOnError
	}

	if changed("log-level") {
		s.LogLevel = opts.logLevel
	}
	if opts.verbose {
		s.LogLevel = "debug"
	}
	if changed("log-format") {
		s.LogFormat = opts.logFormat
	}
	if changed("log-file") {
		s.LogFile = opts.logFile
	}
	if changed("color") {
		s.Color = opts.color
	}
	return nil
}

// newRunLogger builds the run logger tagged with a fresh run id.
func newRunLogger(s *config.Settings, w io.Writer) (*logging.Logger, string, error) {
	logger, err := logging.New(logging.Options{
		Level:  s.LogLevel,
		Format: s.LogFormat,
		Color:  s.Color,
		File:   s.LogFile,
		Writer: w,
	})
	if err != nil {
		return nil, "", &config.UsageError{Field: "logging", Msg: err.Error()}
	}

	runID := uuid.NewString()[:8]
	logger.Logger = logger.With("run", runID)
	return logger, runID, nil
}
