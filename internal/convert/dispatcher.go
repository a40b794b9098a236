package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/audioconv/internal/audio"
	"github.com/handiism/audioconv/internal/config"
	ioutils "github.com/handiism/audioconv/internal/io"
	"github.com/handiism/audioconv/internal/model"
	"github.com/handiism/audioconv/internal/transcode"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a conversion progress update.
//
// Current and Total are set on per-task events: Current is the number of
// tasks completed so far, including this one.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
	Current int
	Total   int
	Input   string
	Output  string
	Err     error
}

// Dispatcher coordinates the conversion of a set of files.
type Dispatcher struct {
	settings     *config.Settings
	transcoder   transcode.Transcoder
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService
	pathCfg      *model.PathConfig

	mu        sync.Mutex
	completed int
	total     int

	artMu   sync.Mutex
	artwork map[string]*artworkEntry

	onProgress func(ProgressEvent)
}

type artworkEntry struct {
	once sync.Once
	data []byte // JPEG for embedding, nil when tags do not carry it
}

// NewDispatcher creates a Dispatcher. settings must have been validated.
func NewDispatcher(settings *config.Settings, transcoder transcode.Transcoder, onProgress func(ProgressEvent)) *Dispatcher {
	pathCfg := settings.ToPathConfig()
	return &Dispatcher{
		settings:     settings,
		transcoder:   transcoder,
		tagger:       audio.NewTagger(),
		playlist:     audio.NewPlaylistCreator(pathCfg.PlaylistFormat, settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		pathCfg:      pathCfg,
		artwork:      make(map[string]*artworkEntry),
		onProgress:   onProgress,
	}
}

// Plan computes the tasks for files without touching the filesystem.
// Files not matching the extension filter are dropped, as is the output
// lock file. Both roots are cleaned the way Enumerate cleans its paths.
func (d *Dispatcher) Plan(inputRoot, outputRoot string, files []string) []*model.Task {
	inputRoot, outputRoot = filepath.Clean(inputRoot), filepath.Clean(outputRoot)
	tasks := make([]*model.Task, 0, len(files))
	for _, file := range files {
		if filepath.Base(file) == ioutils.LockFileName {
			continue
		}
		if !model.HasExtension(file, d.settings.IncludeExtensions) {
			continue
		}
		tasks = append(tasks, model.NewTask(file, inputRoot, outputRoot, d.settings.TargetExtension))
	}
	return tasks
}

// Dispatch converts files and blocks until every task has completed or
// ctx is cancelled. Per-file failures are reported through events and the
// returned summary, never as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, inputRoot, outputRoot string, files []string) model.RunSummary {
	start := time.Now()
	tasks := d.Plan(inputRoot, outputRoot, files)
	d.reset(len(tasks))

	switch d.settings.Mode {
	case config.ModeChunked:
		d.runChunked(ctx, tasks)
	case config.ModeAsync:
		d.runPool(ctx, tasks, 0)
	default:
		d.runPool(ctx, tasks, d.settings.Workers())
	}

	if d.settings.CreatePlaylist && ctx.Err() == nil {
		d.writePlaylists(ctx, tasks)
	}

	summary := model.RunSummary{Discovered: len(tasks)}
	for _, task := range tasks {
		summary.Add(task.Status)
		if task.Status == model.StatusConverted || task.Status == model.StatusSkipped {
			summary.OutputBytes += ioutils.FileSize(task.OutputPath)
		}
	}
	summary.Elapsed = time.Since(start)

	if summary.Cancelled > 0 {
		d.progress(ProgressEvent{Message: fmt.Sprintf("Cancelled, %d files not converted", summary.Cancelled), Level: LevelWarning})
	}
	d.progress(ProgressEvent{
		Message: fmt.Sprintf("Converted %d files", summary.Processed),
		Level:   LevelSuccess,
		Current: summary.Processed,
		Total:   summary.Discovered,
	})

	return summary
}

// Progress returns the number of completed tasks and the task total of
// the current or last run.
func (d *Dispatcher) Progress() (completed, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed, d.total
}

func (d *Dispatcher) reset(total int) {
	d.mu.Lock()
	d.completed = 0
	d.total = total
	d.mu.Unlock()

	d.artMu.Lock()
	d.artwork = make(map[string]*artworkEntry)
	d.artMu.Unlock()
}

// next records one completed task and returns the updated count.
func (d *Dispatcher) next() (completed, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed++
	return d.completed, d.total
}

// runPool runs tasks with at most limit in flight; limit <= 0 means no
// bound. A failed task never cancels its siblings.
func (d *Dispatcher) runPool(ctx context.Context, tasks []*model.Task, limit int) {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			task.Status = model.StatusCancelled
			continue
		}
		g.Go(func() error {
			d.runTask(ctx, task)
			return nil
		})
	}

	_ = g.Wait()
}

// runChunked runs tasks in batches of BatchSize. A batch finishes
// completely before the next one starts.
func (d *Dispatcher) runChunked(ctx context.Context, tasks []*model.Task) {
	size := d.settings.BatchSize
	if size <= 0 {
		size = len(tasks)
	}

	for start := 0; start < len(tasks); start += size {
		end := min(start+size, len(tasks))
		d.runPool(ctx, tasks[start:end], end-start)

		completed, total := d.Progress()
		d.progress(ProgressEvent{
			Message: fmt.Sprintf("Converted %d/%d files", completed, total),
			Level:   LevelInfo,
			Current: completed,
			Total:   total,
		})
	}
}

func (d *Dispatcher) runTask(ctx context.Context, task *model.Task) {
	if ctx.Err() != nil {
		task.Status = model.StatusCancelled
		return
	}

	dir := task.OutputDir()
	if err := ioutils.EnsureDir(dir); err != nil {
		d.fail(task, &DirectoryCreateError{Path: dir, Err: err})
		return
	}

	if d.settings.SkipExisting && ioutils.FileExists(task.OutputPath) {
		task.Status = model.StatusSkipped
		completed, total := d.next()
		d.progress(ProgressEvent{
			Message: fmt.Sprintf("%s (skipped, exists)", counterPrefix(completed, total, task.OutputName())),
			Level:   LevelInfo,
			Current: completed,
			Total:   total,
			Input:   task.InputPath,
			Output:  task.OutputPath,
		})
		return
	}

	d.progress(ProgressEvent{
		Message: fmt.Sprintf("Converting %s -> %s", task.InputPath, task.OutputPath),
		Level:   LevelVerbose,
		Input:   task.InputPath,
		Output:  task.OutputPath,
	})

	if err := d.transcoder.Convert(ctx, task.InputPath, task.OutputPath); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			task.Status = model.StatusCancelled
			task.Err = err
			d.progress(ProgressEvent{Message: fmt.Sprintf("Cancelled %s", task.InputName()), Level: LevelVerbose, Input: task.InputPath})
			return
		}
		d.fail(task, err)
		return
	}

	d.postProcess(ctx, task)

	task.Status = model.StatusConverted
	completed, total := d.next()
	d.progress(ProgressEvent{
		Message: counterPrefix(completed, total, task.OutputName()),
		Level:   LevelSuccess,
		Current: completed,
		Total:   total,
		Input:   task.InputPath,
		Output:  task.OutputPath,
	})
}

func (d *Dispatcher) fail(task *model.Task, err error) {
	task.Status = model.StatusFailed
	task.Err = err
	completed, total := d.next()

	var te *transcode.TranscodeError
	reason := err.Error()
	if errors.As(err, &te) {
		reason = te.Diagnostic()
		if reason == "" && te.Err != nil {
			reason = te.Err.Error()
		}
	}

	d.progress(ProgressEvent{
		Message: fmt.Sprintf("%s: %s", counterPrefix(completed, total, "failed "+task.InputName()), reason),
		Level:   LevelError,
		Current: completed,
		Total:   total,
		Input:   task.InputPath,
		Output:  task.OutputPath,
		Err:     err,
	})
}

// postProcess applies cover art and tag fill-in to a converted file.
// Problems here are warnings; the conversion itself succeeded.
func (d *Dispatcher) postProcess(ctx context.Context, task *model.Task) {
	artwork := d.coverArt(ctx, task)

	if d.settings.TargetExtension != model.DefaultExtension {
		return
	}
	if !d.settings.FillMissingTags && artwork == nil {
		return
	}

	info := audio.TagInfo{}
	if d.settings.FillMissingTags {
		info = audio.InferTags(task.InputPath)
	}
	if err := d.tagger.SaveTags(task.OutputPath, info, artwork); err != nil {
		d.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", task.OutputName(), err), Level: LevelWarning, Output: task.OutputPath, Err: err})
	}
}

// coverArt prepares the cover art of the task's output directory once per
// run and returns the bytes to embed in tags, if any.
func (d *Dispatcher) coverArt(ctx context.Context, task *model.Task) []byte {
	if !d.settings.SaveCoverArtInFolder && !d.settings.SaveCoverArtInTags {
		return nil
	}

	outDir := task.OutputDir()
	d.artMu.Lock()
	entry, ok := d.artwork[outDir]
	if !ok {
		entry = &artworkEntry{}
		d.artwork[outDir] = entry
	}
	d.artMu.Unlock()

	entry.once.Do(func() {
		entry.data = d.prepareArtwork(ctx, filepath.Dir(task.InputPath), outDir)
	})
	return entry.data
}

func (d *Dispatcher) prepareArtwork(ctx context.Context, srcDir, outDir string) []byte {
	src := ioutils.FindCoverArt(srcDir)
	if src == "" {
		return nil
	}

	artwork, err := os.ReadFile(src)
	if err != nil {
		d.progress(ProgressEvent{Message: fmt.Sprintf("Error reading cover art %s: %v", src, err), Level: LevelWarning, Err: err})
		return nil
	}

	resize := d.settings.CoverArtResize && d.settings.CoverArtMaxSize > 0
	verbatim := !resize && isJPEG(src)
	switch {
	case resize:
		artwork, err = d.imageService.ResizeImage(ctx, artwork, d.settings.CoverArtMaxSize, d.settings.CoverArtMaxSize)
	case !verbatim:
		artwork, err = d.imageService.ConvertToJPEG(ctx, artwork)
	}
	if err != nil {
		d.progress(ProgressEvent{Message: fmt.Sprintf("Error processing cover art %s: %v", src, err), Level: LevelWarning, Err: err})
		return nil
	}

	if d.settings.SaveCoverArtInFolder {
		dir := model.NewDirectory(outDir, srcDir, d.pathCfg)
		if verbatim {
			err = ioutils.CopyFile(ctx, src, dir.ArtworkPath)
		} else {
			err = ioutils.WriteFile(ctx, dir.ArtworkPath, artwork)
		}
		if err != nil {
			d.progress(ProgressEvent{Message: fmt.Sprintf("Error saving cover art: %v", err), Level: LevelWarning, Err: err})
		} else {
			d.progress(ProgressEvent{Message: fmt.Sprintf("Saved cover art %s", dir.ArtworkPath), Level: LevelVerbose, Output: dir.ArtworkPath})
		}
	}

	if d.settings.SaveCoverArtInTags {
		return artwork
	}
	return nil
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

func (d *Dispatcher) writePlaylists(ctx context.Context, tasks []*model.Task) {
	for _, dir := range model.GroupByDirectory(tasks, d.pathCfg) {
		if len(dir.Completed()) == 0 {
			continue
		}
		content := d.playlist.CreatePlaylist(dir)
		if err := ioutils.WriteFile(ctx, dir.PlaylistPath, []byte(content)); err != nil {
			d.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist %s: %v", dir.PlaylistPath, err), Level: LevelWarning, Err: err})
			continue
		}
		d.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", dir.PlaylistPath), Level: LevelSuccess, Output: dir.PlaylistPath})
	}
}

func (d *Dispatcher) progress(event ProgressEvent) {
	if d.onProgress != nil {
		d.onProgress(event)
	}
}

func counterPrefix(completed, total int, name string) string {
	return fmt.Sprintf("[%4d / %d] : %s", completed, total, name)
}
