package main

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	ioutils "github.com/handiism/audioconv/internal/io"
	"github.com/handiism/audioconv/internal/report"
	"github.com/handiism/audioconv/internal/transcode"
)

var errMissingDependency = errors.New("required dependencies are missing")

func newCheckCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that ffmpeg and the configured directories are usable",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := loadSettings(cmd, opts)
			if err != nil {
				return err
			}

			deps := []report.Dependency{checkTranscoder(cmd, settings.TranscoderBinary)}
			if settings.InputDir != "" {
				deps = append(deps, checkDirectory("Input directory", settings.InputDir, false))
			}
			if settings.OutputDir != "" {
				deps = append(deps, checkDirectory("Output directory", settings.OutputDir, true))
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Dependencies(deps))
			for _, dep := range deps {
				if !dep.Available && !dep.Optional {
					return errMissingDependency
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ffmpeg, "ffmpeg", "", "ffmpeg binary name or path")
	return cmd
}

func checkTranscoder(cmd *cobra.Command, binary string) report.Dependency {
	dep := report.Dependency{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Converts each input file",
	}
	path, err := transcode.CheckBinary(binary)
	if err != nil {
		dep.Detail = err.Error()
		return dep
	}
	dep.Available = true
	dep.Detail = path

	out, err := exec.CommandContext(cmd.Context(), path, "-version").Output()
	if err == nil {
		if line, _, _ := strings.Cut(string(out), "\n"); strings.TrimSpace(line) != "" {
			dep.Detail = strings.TrimSpace(line)
		}
	}
	return dep
}

func checkDirectory(name, path string, optional bool) report.Dependency {
	dep := report.Dependency{
		Name:     name,
		Command:  path,
		Optional: optional,
	}
	if !ioutils.FileExists(path) {
		dep.Detail = "does not exist"
		if optional {
			dep.Detail = "does not exist yet, created on first run"
		}
		return dep
	}
	dep.Available = true
	return dep
}
