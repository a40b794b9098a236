package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// DefaultBinary is the transcoder looked up on PATH when none is configured.
const DefaultBinary = "ffmpeg"

// maxStderrLines bounds the diagnostic text kept in a TranscodeError.
const maxStderrLines = 20

// Transcoder converts one input file into one output file.
type Transcoder interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Func adapts a plain function to the Transcoder interface.
type Func func(ctx context.Context, inputPath, outputPath string) error

// Convert calls f.
func (f Func) Convert(ctx context.Context, inputPath, outputPath string) error {
	return f(ctx, inputPath, outputPath)
}

// TranscodeError reports a transcoder process that could not be spawned or
// exited with a non-zero status.
type TranscodeError struct {
	Input    string
	Output   string
	ExitCode int // -1 when the process never ran to completion
	Stderr   string
	Err      error
}

func (e *TranscodeError) Error() string {
	if diag := e.Diagnostic(); diag != "" {
		return fmt.Sprintf("transcode %s: %v: %s", e.Input, e.Err, diag)
	}
	return fmt.Sprintf("transcode %s: %v", e.Input, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// Diagnostic returns the last meaningful line of the captured stderr.
func (e *TranscodeError) Diagnostic() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// Options configures the FFmpeg transcoder.
type Options struct {
	// Binary is the executable name or path. Empty means DefaultBinary.
	Binary string

	// NoStdin passes -nostdin so the process never waits on the terminal.
	NoStdin bool

	// Overwrite passes -y so existing outputs are replaced instead of
	// failing the conversion.
	Overwrite bool

	// ExtraArgs are inserted between the input and the output path,
	// e.g. []string{"-q:a", "2"}.
	ExtraArgs []string

	// Nice lowers the process priority (unix only, 0 leaves it unchanged).
	Nice int

	// Stderr, when set, receives a live copy of the process stderr.
	Stderr io.Writer

	// OnWarning receives problems that do not fail a conversion, such as
	// a refused priority change. It may be called concurrently.
	OnWarning func(error)
}

// FFmpeg runs an ffmpeg-compatible binary once per conversion.
type FFmpeg struct {
	opts Options

	priorityOnce sync.Once
}

// setPriority is swapped out in tests.
var setPriority = applyPriority

// NewFFmpeg creates an FFmpeg transcoder.
func NewFFmpeg(opts Options) *FFmpeg {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = DefaultBinary
	}
	return &FFmpeg{opts: opts}
}

// Binary returns the configured executable.
func (f *FFmpeg) Binary() string {
	return f.opts.Binary
}

// Args builds the argument list for one conversion:
//
//	[-nostdin] [-y] -i <input> [extra args...] <output>
func (f *FFmpeg) Args(inputPath, outputPath string) []string {
	args := make([]string, 0, 6+len(f.opts.ExtraArgs))
	if f.opts.NoStdin {
		args = append(args, "-nostdin")
	}
	if f.opts.Overwrite {
		args = append(args, "-y")
	}
	args = append(args, "-i", inputPath)
	args = append(args, f.opts.ExtraArgs...)
	return append(args, outputPath)
}

// Convert runs the transcoder and waits for it to exit.
//
// The returned error is a *TranscodeError carrying the exit code and the
// tail of stderr. A failed run may leave a partial output file behind.
func (f *FFmpeg) Convert(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, f.opts.Binary, f.Args(inputPath, outputPath)...)

	var stderrBuf bytes.Buffer
	if f.opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, f.opts.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	if err := cmd.Start(); err != nil {
		return &TranscodeError{Input: inputPath, Output: outputPath, ExitCode: -1, Err: fmt.Errorf("start %s: %w", f.opts.Binary, err)}
	}

	if f.opts.Nice != 0 {
		if err := setPriority(cmd.Process.Pid, f.opts.Nice); err != nil {
			// Reported once; the conversion still runs at normal priority.
			f.priorityOnce.Do(func() {
				f.warn(fmt.Errorf("set priority %d: %w", f.opts.Nice, err))
			})
		}
	}

	if err := cmd.Wait(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &TranscodeError{
			Input:    inputPath,
			Output:   outputPath,
			ExitCode: exitCode,
			Stderr:   tail(stderrBuf.String(), maxStderrLines),
			Err:      err,
		}
	}
	return nil
}

func (f *FFmpeg) warn(err error) {
	if f.opts.OnWarning != nil {
		f.opts.OnWarning(err)
	}
}

// CheckBinary resolves binary on PATH and returns its full path.
func CheckBinary(binary string) (string, error) {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("transcoder %q not found: %w", binary, err)
	}
	return path, nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
