package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/handiism/audioconv/internal/model"
	"github.com/handiism/audioconv/internal/transcode"
)

// Mode selects how the dispatcher schedules conversion tasks.
type Mode string

const (
	// ModePooled runs all tasks through one pool bounded by Jobs.
	ModePooled Mode = "pooled"

	// ModeChunked runs tasks in batches of BatchSize; each batch completes
	// before the next one starts.
	ModeChunked Mode = "chunked"

	// ModeAsync starts one goroutine per task without a bound.
	ModeAsync Mode = "async"
)

// ParseMode maps a mode name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case ModePooled, "":
		return ModePooled, nil
	case ModeChunked:
		return ModeChunked, nil
	case ModeAsync:
		return ModeAsync, nil
	default:
		return "", &UsageError{Field: "mode", Msg: fmt.Sprintf("unknown mode %q (want pooled, chunked or async)", name)}
	}
}

// UsageError reports an invalid or missing setting. It is fatal and is
// reported before any work begins.
type UsageError struct {
	Field string
	Msg   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// IsUsageError reports whether err is or wraps a *UsageError.
func IsUsageError(err error) bool {
	var usage *UsageError
	return errors.As(err, &usage)
}

// Settings holds all configuration options.
type Settings struct {
	// Conversion
	InputDir          string   `toml:"input_dir"`
	OutputDir         string   `toml:"output_dir"`
	TargetExtension   string   `toml:"target_extension"`
	IncludeExtensions []string `toml:"include_extensions"`
	SkipExisting      bool     `toml:"skip_existing"`
	FailOnError       bool     `toml:"fail_on_error"`

	// Concurrency
	Mode      Mode `toml:"mode"`
	Jobs      int  `toml:"jobs"`
	BatchSize int  `toml:"batch_size"`

	// Transcoder
	TranscoderBinary     string   `toml:"transcoder_binary"`
	TranscoderArgs       []string `toml:"transcoder_args"`
	NoStdin              bool     `toml:"no_stdin"`
	Overwrite            bool     `toml:"overwrite"`
	Nice                 int      `toml:"nice"`
	ShowTranscoderOutput bool     `toml:"show_transcoder_output"`

	// Tags
	FillMissingTags bool `toml:"fill_missing_tags"`

	// Cover art settings
	SaveCoverArtInFolder bool   `toml:"save_cover_art_in_folder"`
	SaveCoverArtInTags   bool   `toml:"save_cover_art_in_tags"`
	CoverArtFileName     string `toml:"cover_art_file_name"`
	CoverArtResize       bool   `toml:"cover_art_resize"`
	CoverArtMaxSize      int    `toml:"cover_art_max_size"`

	// Playlist settings
	CreatePlaylist         bool   `toml:"create_playlist"`
	PlaylistFormat         string `toml:"playlist_format"` // m3u, pls, wpl, zpl
	PlaylistFileNameFormat string `toml:"playlist_file_name_format"`
	M3UExtended            bool   `toml:"m3u_extended"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // console, json
	LogFile   string `toml:"log_file"`
	Color     string `toml:"color"` // auto, always, never
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		TargetExtension: model.DefaultExtension,
		SkipExisting:    false,
		FailOnError:     false,

		Mode:      ModePooled,
		Jobs:      0,
		BatchSize: 0,

		TranscoderBinary: transcode.DefaultBinary,
		NoStdin:          true,
		Overwrite:        true,

		FillMissingTags: false,

		SaveCoverArtInFolder: false,
		SaveCoverArtInTags:   false,
		CoverArtFileName:     "cover.jpg",
		CoverArtResize:       true,
		CoverArtMaxSize:      1000,

		CreatePlaylist:         false,
		PlaylistFormat:         "m3u",
		PlaylistFileNameFormat: "{dir}",
		M3UExtended:            true,

		LogLevel:  "info",
		LogFormat: "console",
		Color:     "auto",
	}
}

// DefaultConfigPath returns the settings file used when none is given:
// $XDG_CONFIG_HOME/audioconv/config.toml, falling back to ~/.config.
func DefaultConfigPath() (string, error) {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return filepath.Join(base, "audioconv", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "audioconv", "config.toml"), nil
}

// Load reads settings from a TOML file. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	settings := DefaultSettings()
	if err := toml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a TOML file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings and normalises derived values. Every
// problem is reported as a *UsageError.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.InputDir) == "" {
		return &UsageError{Field: "input", Msg: "an input directory is required"}
	}
	if strings.TrimSpace(s.OutputDir) == "" {
		return &UsageError{Field: "output", Msg: "an output directory is required"}
	}

	mode, err := ParseMode(string(s.Mode))
	if err != nil {
		return err
	}
	s.Mode = mode

	if s.Jobs < 0 {
		return &UsageError{Field: "jobs", Msg: "must not be negative"}
	}
	if s.BatchSize < 0 {
		return &UsageError{Field: "batch-size", Msg: "must not be negative"}
	}
	if s.Mode == ModeChunked && s.BatchSize == 0 {
		return &UsageError{Field: "batch-size", Msg: "chunked mode needs a batch size greater than zero"}
	}
	if _, ok := model.ParsePlaylistFormat(s.PlaylistFormat); !ok {
		return &UsageError{Field: "playlist-format", Msg: fmt.Sprintf("unknown format %q (want m3u, pls, wpl or zpl)", s.PlaylistFormat)}
	}
	if s.CoverArtMaxSize < 0 {
		return &UsageError{Field: "cover-art-max-size", Msg: "must not be negative"}
	}
	if s.Nice < -20 || s.Nice > 19 {
		return &UsageError{Field: "nice", Msg: "must be between -20 and 19"}
	}
	switch strings.ToLower(s.Color) {
	case "", "auto", "always", "never":
	default:
		return &UsageError{Field: "color", Msg: fmt.Sprintf("unknown value %q (want auto, always or never)", s.Color)}
	}

	s.TargetExtension = model.NormalizeExtension(s.TargetExtension)
	return nil
}

// ResolveRoots makes both roots absolute and clean, the form Enumerate
// produces paths in, so the literal root rewrite always matches.
func (s *Settings) ResolveRoots() error {
	in, err := filepath.Abs(s.InputDir)
	if err != nil {
		return fmt.Errorf("resolve input directory: %w", err)
	}
	out, err := filepath.Abs(s.OutputDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	s.InputDir, s.OutputDir = in, out
	return nil
}

// Workers returns the pool size: Jobs, or the number of CPUs when unset.
func (s *Settings) Workers() int {
	if s.Jobs > 0 {
		return s.Jobs
	}
	return runtime.NumCPU()
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	pf, _ := model.ParsePlaylistFormat(s.PlaylistFormat)
	return &model.PathConfig{
		CoverArtFileName:       s.CoverArtFileName,
		PlaylistFileNameFormat: s.PlaylistFileNameFormat,
		PlaylistFormat:         pf,
	}
}

// ToTranscodeOptions converts settings to transcoder options.
func (s *Settings) ToTranscodeOptions() transcode.Options {
	return transcode.Options{
		Binary:    s.TranscoderBinary,
		NoStdin:   s.NoStdin,
		Overwrite: s.Overwrite,
		ExtraArgs: append([]string(nil), s.TranscoderArgs...),
		Nice:      s.Nice,
	}
}
