package model

import (
	"path/filepath"
	"strings"
)

// DefaultExtension is the canonical target extension.
const DefaultExtension = "mp3"

// TaskStatus records how a task ended.
type TaskStatus int

const (
	// StatusPending means the task has not finished yet.
	StatusPending TaskStatus = iota

	// StatusConverted means the transcoder produced the output.
	StatusConverted

	// StatusSkipped means the output already existed and skip-existing was on.
	StatusSkipped

	// StatusFailed means directory creation or the transcoder failed.
	StatusFailed

	// StatusCancelled means the run was cancelled before the task started.
	StatusCancelled
)

// String returns the lowercase status name.
func (s TaskStatus) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Task represents a single conversion: one input file and its output path.
//
// Tasks are created by NewTask and handed to exactly one worker. Status and
// Err are written by that worker only and may be read once the dispatch has
// returned.
//
// Example:
//
//	task := NewTask("/in/album/01.flac", "/in", "/out", "mp3")
//	// task.OutputPath = "/out/album/01.mp3"
type Task struct {
	// InputPath is the file to convert, as produced by the enumerator.
	InputPath string

	// OutputPath is the destination computed by MapOutputPath.
	OutputPath string

	// Status is set when the task completes.
	Status TaskStatus

	// Err holds the failure for StatusFailed tasks.
	Err error
}

// NewTask creates a Task with its output path computed from the roots.
func NewTask(inputPath, inputRoot, outputRoot, ext string) *Task {
	return &Task{
		InputPath:  inputPath,
		OutputPath: MapOutputPath(inputPath, inputRoot, outputRoot, ext),
	}
}

// InputName returns the base name of the input file.
func (t *Task) InputName() string {
	return filepath.Base(t.InputPath)
}

// OutputName returns the base name of the output file.
func (t *Task) OutputName() string {
	return filepath.Base(t.OutputPath)
}

// OutputDir returns the directory that must exist before the task runs.
func (t *Task) OutputDir() string {
	return filepath.Dir(t.OutputPath)
}

// MapOutputPath rewrites an input path into the output tree.
//
// Every occurrence of inputRoot in inputPath is replaced with outputRoot
// (a literal substring replacement, not a relative path computation), then
// the extension of the result is replaced with ext.
//
// Example:
//
//	MapOutputPath("/in/a/b/c.wav", "/in", "/out", "mp3")     // "/out/a/b/c.mp3"
//	MapOutputPath("music/x/music/y.flac", "music", "mp3s", "mp3") // "mp3s/x/mp3s/y.mp3"
func MapOutputPath(inputPath, inputRoot, outputRoot, ext string) string {
	out := inputPath
	if inputRoot != "" {
		out = strings.ReplaceAll(inputPath, inputRoot, outputRoot)
	}
	return ReplaceExtension(out, ext)
}

// ReplaceExtension swaps the extension of the last path element for ext.
//
// A name without an extension gets ext appended. Names whose only dot is
// the leading one (".hidden") have no extension.
func ReplaceExtension(path, ext string) string {
	ext = NormalizeExtension(ext)
	base := filepath.Base(path)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return path + "." + ext
	}
	return path[:len(path)-len(base)+dot] + "." + ext
}

// NormalizeExtension lowercases ext and strips any leading dots.
// An empty ext yields DefaultExtension.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
	if ext == "" {
		return DefaultExtension
	}
	return ext
}

// HasExtension reports whether path ends with one of exts (case-insensitive,
// with or without the leading dot). An empty list matches everything.
func HasExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	base := filepath.Base(path)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return false
	}
	actual := strings.ToLower(base[dot+1:])
	for _, ext := range exts {
		if strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), ".")) == actual {
			return true
		}
	}
	return false
}
