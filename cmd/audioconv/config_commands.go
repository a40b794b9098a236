package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handiism/audioconv/internal/config"
	"github.com/handiism/audioconv/internal/report"
)

func newConfigCommand(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand(opts))
	configCmd.AddCommand(newConfigShowCommand(opts))

	return configCmd
}

func newConfigInitCommand(opts *options) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default settings",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(opts.configPath)
			if len(args) == 1 {
				target = strings.TrimSpace(args[0])
			}
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = defaultPath
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.DefaultSettings().Save(target); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing configuration file")
	return cmd
}

func newConfigShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, path, err := loadSettings(cmd, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := path
			if _, err := os.Stat(path); err != nil {
				source = path + " (not found, using defaults)"
			}
			fmt.Fprintf(out, "Configuration: %s\n", source)
			fmt.Fprintln(out, report.Settings(settingsPairs(settings)))
			return nil
		},
	}
}

func settingsPairs(s *config.Settings) [][2]string {
	list := func(v []string) string {
		if len(v) == 0 {
			return "(all)"
		}
		return strings.Join(v, ", ")
	}
	return [][2]string{
		{"input_dir", s.InputDir},
		{"output_dir", s.OutputDir},
		{"target_extension", s.TargetExtension},
		{"include_extensions", list(s.IncludeExtensions)},
		{"skip_existing", strconv.FormatBool(s.SkipExisting)},
		{"fail_on_error", strconv.FormatBool(s.FailOnError)},
		{"mode", string(s.Mode)},
		{"jobs", strconv.Itoa(s.Jobs)},
		{"batch_size", strconv.Itoa(s.BatchSize)},
		{"transcoder_binary", s.TranscoderBinary},
		{"transcoder_args", strings.Join(s.TranscoderArgs, " ")},
		{"no_stdin", strconv.FormatBool(s.NoStdin)},
		{"overwrite", strconv.FormatBool(s.Overwrite)},
		{"nice", strconv.Itoa(s.Nice)},
		{"fill_missing_tags", strconv.FormatBool(s.FillMissingTags)},
		{"save_cover_art_in_folder", strconv.FormatBool(s.SaveCoverArtInFolder)},
		{"save_cover_art_in_tags", strconv.FormatBool(s.SaveCoverArtInTags)},
		{"create_playlist", strconv.FormatBool(s.CreatePlaylist)},
		{"playlist_format", s.PlaylistFormat},
		{"log_level", s.LogLevel},
		{"log_format", s.LogFormat},
	}
}
