package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/handiism/audioconv/internal/model"
)

// Summary renders the end-of-run counters.
func Summary(s model.RunSummary) string {
	rows := [][]string{
		{"Discovered", strconv.Itoa(s.Discovered)},
		{"Converted", strconv.Itoa(s.Converted)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Failed", strconv.Itoa(s.Failed)},
	}
	if s.Cancelled > 0 {
		rows = append(rows, []string{"Cancelled", strconv.Itoa(s.Cancelled)})
	}
	rows = append(rows,
		[]string{"Output size", humanize.Bytes(uint64(max(s.OutputBytes, 0)))},
		[]string{"Elapsed", s.Elapsed.Round(10 * time.Millisecond).String()},
	)
	return renderTable([]string{"Files", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}

// Failure is one failed input with the reason shown to the user.
type Failure struct {
	Input  string
	Reason string
}

// Failures renders failed inputs. It returns "" for an empty list.
func Failures(failures []Failure) string {
	if len(failures) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.Input, f.Reason})
	}
	return renderTable([]string{"Failed input", "Reason"}, rows, nil)
}

// Plan renders the task list of a dry run. exists reports whether an output
// is already present; when skip is set those rows are marked as skipped.
func Plan(tasks []*model.Task, skip bool, exists func(string) bool) string {
	rows := make([][]string, 0, len(tasks))
	for i, task := range tasks {
		action := "convert"
		if exists != nil && exists(task.OutputPath) {
			action = "overwrite"
			if skip {
				action = "skip (exists)"
			}
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), task.InputPath, task.OutputPath, action})
	}
	return renderTable(
		[]string{"#", "Input", "Output", "Action"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

// Dependency is one external requirement checked by `audioconv check`.
type Dependency struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Dependencies renders dependency check results.
func Dependencies(deps []Dependency) string {
	rows := make([][]string, 0, len(deps))
	for _, dep := range deps {
		status := "ok"
		switch {
		case !dep.Available && dep.Optional:
			status = "missing (optional)"
		case !dep.Available:
			status = "missing"
		}
		rows = append(rows, []string{dep.Name, dep.Command, status, dep.Detail})
	}
	return renderTable([]string{"Dependency", "Command", "Status", "Detail"}, rows, nil)
}

// Settings renders key/value pairs, used by `audioconv config show`.
func Settings(pairs [][2]string) string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return renderTable([]string{"Setting", "Value"}, rows, nil)
}

// ShortPath trims dir from path for display, keeping path as is when it
// is not below dir.
func ShortPath(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || filepath.IsAbs(rel) || len(rel) >= 2 && rel[:2] == ".." {
		return path
	}
	return rel
}

// Rate formats a files-per-second rate for log lines.
func Rate(files int, elapsed time.Duration) string {
	if elapsed <= 0 || files == 0 {
		return "0 files/s"
	}
	return fmt.Sprintf("%.1f files/s", float64(files)/elapsed.Seconds())
}
