package main

import (
	"github.com/spf13/cobra"

	"github.com/handiism/audioconv/internal/config"
)

// options holds the values of every command-line flag.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	color      string
	verbose    bool

	input          string
	output         string
	skip           bool
	mode           string
	batchSize      int
	jobs           int
	chunking       int
	tokio          bool
	ext            string
	only           []string
	ffmpeg         string
	nice           int
	noOverwrite    bool
	showFFmpeg     bool
	tag            bool
	coverArt       bool
	embedCoverArt  bool
	playlist       bool
	playlistFormat string
	dryRun         bool
	failOnError    bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "audioconv --input <dir> --output <dir>",
		Short: "Convert a directory tree of media files to mp3 with ffmpeg",
		Long: "audioconv walks the input directory, mirrors its layout below the output\n" +
			"directory and runs ffmpeg once per file to produce an audio file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.UsageError{Field: "flags", Msg: err.Error()}
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (default $XDG_CONFIG_HOME/audioconv/config.toml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: console or json")
	pf.StringVar(&opts.logFile, "log-file", "", "Also append logs to this file")
	pf.StringVar(&opts.color, "color", "", "Colored output: auto, always, never")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Show debug output, including every ffmpeg invocation")

	f := rootCmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "Root of the source tree (required)")
	f.StringVarP(&opts.output, "output", "o", "", "Root of the destination tree (required)")
	f.BoolVarP(&opts.skip, "skip", "s", false, "Skip files whose output already exists")
	f.StringVar(&opts.mode, "mode", "", "Scheduling mode: pooled, chunked or async")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Files per batch in chunked mode")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "Concurrent ffmpeg processes in pooled mode (0 = number of CPUs)")
	f.IntVar(&opts.chunking, "chunking", 0, "Legacy: process files in batches of N (same as --mode chunked --batch-size N)")
	f.BoolVar(&opts.tokio, "tokio", false, "Legacy: start every conversion at once (same as --mode async)")
	f.StringVar(&opts.ext, "ext", "", "Target extension (default mp3)")
	f.StringSliceVar(&opts.only, "only", nil, "Only convert files with these extensions (comma-separated)")
	f.StringVar(&opts.ffmpeg, "ffmpeg", "", "ffmpeg binary name or path")
	f.IntVar(&opts.nice, "nice", 0, "Scheduling priority for ffmpeg processes (-20..19)")
	f.BoolVar(&opts.noOverwrite, "no-overwrite", false, "Do not pass -y to ffmpeg")
	f.BoolVar(&opts.showFFmpeg, "show-ffmpeg-output", false, "Stream ffmpeg stderr to the terminal")
	f.BoolVar(&opts.tag, "tag", false, "Fill missing ID3 tags from the directory layout")
	f.BoolVar(&opts.coverArt, "cover-art", false, "Copy folder cover art into each output directory")
	f.BoolVar(&opts.embedCoverArt, "embed-cover-art", false, "Embed folder cover art into mp3 tags")
	f.BoolVar(&opts.playlist, "playlist", false, "Write a playlist into each output directory")
	f.StringVar(&opts.playlistFormat, "playlist-format", "", "Playlist format: m3u, pls, wpl or zpl")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Print the planned conversions without running them")
	f.BoolVar(&opts.failOnError, "fail-on-error", false, "Exit with status 1 when any file failed")

	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))

	return rootCmd
}

func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &config.UsageError{Field: "arguments", Msg: err.Error()}
		}
		return nil
	}
}
