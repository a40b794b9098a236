package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bogem/id3v2"

	"github.com/handiism/audioconv/internal/config"
	ioutils "github.com/handiism/audioconv/internal/io"
	"github.com/handiism/audioconv/internal/transcode"
)

type fakeTranscoder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	hook  func(ctx context.Context, in, out string) error
}

func (f *fakeTranscoder) Convert(ctx context.Context, in, out string) error {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()

	if f.hook != nil {
		if err := f.hook(ctx, in, out); err != nil {
			return err
		}
	}
	if err, ok := f.fail[filepath.Base(in)]; ok {
		return err
	}
	return os.WriteFile(out, []byte("converted"), 0644)
}

func (f *fakeTranscoder) called(in string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == in {
			return true
		}
	}
	return false
}

type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) record(e ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) messages(level ProgressLevel) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// taskCounts returns the Current value of every per-task completion event.
func (r *recorder) taskCounts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, e := range r.events {
		if e.Input != "" && e.Current > 0 {
			out = append(out, e.Current)
		}
	}
	return out
}

func (r *recorder) last() ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func testSettings() *config.Settings {
	s := config.DefaultSettings()
	s.InputDir = "in"
	s.OutputDir = "out"
	s.Jobs = 4
	return s
}

func makeTree(t *testing.T, root string, files ...string) []string {
	t.Helper()
	var paths []string
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("source"), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestDispatch_ExampleScenario(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	out := filepath.Join(base, "out")
	makeTree(t, in, "a.wav", "sub/b.flac")

	files, err := ioutils.Enumerate(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	fake := &fakeTranscoder{hook: func(_ context.Context, _, o string) error {
		if _, err := os.Stat(filepath.Dir(o)); err != nil {
			return fmt.Errorf("parent missing before transcode: %w", err)
		}
		return nil
	}}
	rec := &recorder{}
	d := NewDispatcher(testSettings(), fake, rec.record)

	summary := d.Dispatch(context.Background(), in, out, files)

	if summary.Discovered != 2 || summary.Converted != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	for _, p := range []string{"a.mp3", "sub/b.mp3"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(p))); err != nil {
			t.Errorf("output %s missing: %v", p, err)
		}
	}
	if got := rec.last().Message; got != "Converted 2 files" {
		t.Errorf("final message = %q, want %q", got, "Converted 2 files")
	}
	if summary.OutputBytes != int64(2*len("converted")) {
		t.Errorf("OutputBytes = %d", summary.OutputBytes)
	}
}

func TestDispatch_LogLineFormat(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	files := makeTree(t, in, "a.wav")

	rec := &recorder{}
	d := NewDispatcher(testSettings(), &fakeTranscoder{}, rec.record)
	d.Dispatch(context.Background(), in, filepath.Join(base, "out"), files)

	success := rec.messages(LevelSuccess)
	if len(success) == 0 || success[0] != "[   1 / 1] : a.mp3" {
		t.Errorf("success lines = %q", success)
	}
}

func TestDispatch_ConcurrentSharedParent(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	var names []string
	for i := 0; i < 40; i++ {
		names = append(names, fmt.Sprintf("deep/nested/dir/%02d.wav", i))
	}
	files := makeTree(t, in, names...)

	settings := testSettings()
	settings.Jobs = 16
	d := NewDispatcher(settings, &fakeTranscoder{}, nil)

	summary := d.Dispatch(context.Background(), in, filepath.Join(base, "out"), files)

	if summary.Failed != 0 || summary.Converted != 40 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestDispatch_SkipExisting(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	out := filepath.Join(base, "out")
	files := makeTree(t, in, "a.wav", "b.wav")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "a.mp3"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	settings := testSettings()
	settings.SkipExisting = true
	fake := &fakeTranscoder{}
	rec := &recorder{}
	d := NewDispatcher(settings, fake, rec.record)

	summary := d.Dispatch(context.Background(), in, out, files)

	if fake.called(filepath.Join(in, "a.wav")) {
		t.Error("transcoder invoked for an existing output")
	}
	if summary.Skipped != 1 || summary.Converted != 1 || summary.Processed != 2 {
		t.Errorf("summary = %+v", summary)
	}
	var skipped bool
	for _, m := range rec.messages(LevelInfo) {
		if strings.HasSuffix(m, "a.mp3 (skipped, exists)") {
			skipped = true
		}
	}
	if !skipped {
		t.Errorf("no skipped line in %q", rec.messages(LevelInfo))
	}
	data, _ := os.ReadFile(filepath.Join(out, "a.mp3"))
	if string(data) != "old" {
		t.Errorf("existing output modified: %q", data)
	}
}

func TestDispatch_CounterReachesTotal(t *testing.T) {
	tests := []struct {
		name  string
		mode  config.Mode
		batch int
	}{
		{"pooled", config.ModePooled, 0},
		{"chunked", config.ModeChunked, 3},
		{"async", config.ModeAsync, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			in := filepath.Join(base, "in")
			var names []string
			for i := 0; i < 10; i++ {
				names = append(names, fmt.Sprintf("d%d/f%d.wav", i%3, i))
			}
			files := makeTree(t, in, names...)

			settings := testSettings()
			settings.Mode = tt.mode
			settings.BatchSize = tt.batch
			fake := &fakeTranscoder{fail: map[string]error{"f4.wav": errors.New("bad input")}}
			rec := &recorder{}
			d := NewDispatcher(settings, fake, rec.record)

			summary := d.Dispatch(context.Background(), in, filepath.Join(base, "out"), files)

			counts := rec.taskCounts()
			sort.Ints(counts)
			if len(counts) != 10 {
				t.Fatalf("per-task events = %d, want 10", len(counts))
			}
			for i, c := range counts {
				if c != i+1 {
					t.Fatalf("counter values = %v, want 1..10 once each", counts)
				}
			}
			if completed, total := d.Progress(); completed != 10 || total != 10 {
				t.Errorf("Progress() = %d, %d", completed, total)
			}
			if !summary.Complete() {
				t.Errorf("summary not complete: %+v", summary)
			}
		})
	}
}

func TestDispatch_FailureIsolation(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	files := makeTree(t, in, "a.wav", "x.wav", "c.wav")

	fail := &transcode.TranscodeError{
		Input:    filepath.Join(in, "x.wav"),
		ExitCode: 1,
		Stderr:   "header\nx.wav: Invalid data found when processing input\n",
		Err:      errors.New("exit status 1"),
	}
	fake := &fakeTranscoder{fail: map[string]error{"x.wav": fail}}
	rec := &recorder{}
	d := NewDispatcher(testSettings(), fake, rec.record)

	summary := d.Dispatch(context.Background(), in, filepath.Join(base, "out"), files)

	if summary.Converted != 2 || summary.Failed != 1 || summary.Processed != 3 {
		t.Errorf("summary = %+v", summary)
	}
	errs := rec.messages(LevelError)
	if len(errs) != 1 {
		t.Fatalf("error lines = %q", errs)
	}
	if !strings.Contains(errs[0], "] : failed x.wav: x.wav: Invalid data found when processing input") {
		t.Errorf("error line = %q", errs[0])
	}
}

func TestDispatch_ChunkBarrier(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	files := makeTree(t, in, "0.wav", "1.wav", "2.wav", "3.wav", "4.wav")
	index := make(map[string]int)
	for i, f := range files {
		index[f] = i
	}

	var mu sync.Mutex
	done, inFlight, maxInFlight := 0, 0, 0
	violations := 0
	fake := &fakeTranscoder{hook: func(_ context.Context, i, _ string) error {
		mu.Lock()
		if done < (index[i]/2)*2 {
			violations++
		}
		inFlight++
		maxInFlight = max(maxInFlight, inFlight)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		done++
		mu.Unlock()
		return nil
	}}

	settings := testSettings()
	settings.Mode = config.ModeChunked
	settings.BatchSize = 2
	rec := &recorder{}
	d := NewDispatcher(settings, fake, rec.record)

	d.Dispatch(context.Background(), in, filepath.Join(base, "out"), files)

	if violations != 0 {
		t.Errorf("%d tasks started before the previous batch finished", violations)
	}
	if maxInFlight > 2 {
		t.Errorf("max in flight = %d, want <= 2", maxInFlight)
	}

	var batches []string
	for _, m := range rec.messages(LevelInfo) {
		if strings.HasPrefix(m, "Converted ") {
			batches = append(batches, m)
		}
	}
	want := []string{"Converted 2/5 files", "Converted 4/5 files", "Converted 5/5 files"}
	if strings.Join(batches, "|") != strings.Join(want, "|") {
		t.Errorf("batch lines = %q, want %q", batches, want)
	}
}

func TestDispatch_PooledLimit(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	var names []string
	for i := 0; i < 12; i++ {
		names = append(names, fmt.Sprintf("%d.wav", i))
	}
	files := makeTree(t, in, names...)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	fake := &fakeTranscoder{hook: func(context.Context, string, string) error {
		mu.Lock()
		inFlight++
		maxInFlight = max(maxInFlight, inFlight)
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}}

	settings := testSettings()
	settings.Jobs = 3
	d := NewDispatcher(settings, fake, nil)
	d.Dispatch(context.Background(), in, filepath.Join(base, "out"), files)

	if maxInFlight > 3 {
		t.Errorf("max in flight = %d, want <= 3", maxInFlight)
	}
}

func TestDispatch_DirectoryCreateError(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	files := makeTree(t, in, "a.wav")
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, []byte("file"), 0644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeTranscoder{}
	rec := &recorder{}
	d := NewDispatcher(testSettings(), fake, rec.record)

	tasks := d.Plan(in, filepath.Join(blocker, "out"), files)
	summary := d.Dispatch(context.Background(), in, filepath.Join(blocker, "out"), files)

	if summary.Failed != 1 || summary.Processed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if fake.called(files[0]) {
		t.Error("transcoder invoked without an output directory")
	}
	if len(tasks) != 1 {
		t.Fatalf("Plan() = %d tasks", len(tasks))
	}

	var dirErr *DirectoryCreateError
	var found bool
	for _, e := range rec.events {
		if errors.As(e.Err, &dirErr) {
			found = true
		}
	}
	if !found {
		t.Error("no DirectoryCreateError reported")
	}
}

func TestDispatch_CancelledBeforeStart(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	files := makeTree(t, in, "a.wav", "b.wav", "c.wav")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeTranscoder{}
	d := NewDispatcher(testSettings(), fake, nil)
	summary := d.Dispatch(ctx, in, filepath.Join(base, "out"), files)

	if summary.Cancelled != 3 || summary.Processed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(fake.calls) != 0 {
		t.Errorf("transcoder calls = %v", fake.calls)
	}
}

func TestDispatch_CancelledDuringRun(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	files := makeTree(t, in, "a.wav", "b.wav", "c.wav", "d.wav")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &fakeTranscoder{hook: func(ctx context.Context, _, _ string) error {
		cancel()
		return ctx.Err()
	}}

	settings := testSettings()
	settings.Jobs = 1
	d := NewDispatcher(settings, fake, nil)
	summary := d.Dispatch(ctx, in, filepath.Join(base, "out"), files)

	if summary.Cancelled != 4 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(fake.calls) != 1 {
		t.Errorf("transcoder calls = %d, want 1", len(fake.calls))
	}
}

func TestPlan_IncludeExtensions(t *testing.T) {
	settings := testSettings()
	settings.IncludeExtensions = []string{"flac", ".WAV"}
	d := NewDispatcher(settings, &fakeTranscoder{}, nil)

	tasks := d.Plan("/in", "/out", []string{"/in/a.flac", "/in/b.wav", "/in/c.txt", "/in/cover.jpg"})

	var got []string
	for _, task := range tasks {
		got = append(got, task.OutputPath)
	}
	want := []string{"/out/a.mp3", "/out/b.mp3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Plan() outputs = %v, want %v", got, want)
	}
}

func TestPlan_RootSpellings(t *testing.T) {
	t.Chdir(t.TempDir())
	makeTree(t, "in", "sub/b.flac")
	d := NewDispatcher(testSettings(), &fakeTranscoder{}, nil)

	for _, root := range []string{"in", "in/", "./in"} {
		t.Run(root, func(t *testing.T) {
			files, err := ioutils.Enumerate(context.Background(), root, nil)
			if err != nil {
				t.Fatal(err)
			}
			tasks := d.Plan(root, "out/", files)
			if len(tasks) != 1 {
				t.Fatalf("Plan() = %d tasks, want 1", len(tasks))
			}
			want := filepath.Join("out", "sub", "b.mp3")
			if tasks[0].OutputPath != want {
				t.Errorf("output = %q, want %q", tasks[0].OutputPath, want)
			}
		})
	}
}

func TestPlan_SkipsLockFile(t *testing.T) {
	d := NewDispatcher(testSettings(), &fakeTranscoder{}, nil)

	tasks := d.Plan("/music", "/music", []string{"/music/a.flac", "/music/" + ioutils.LockFileName})
	if len(tasks) != 1 || tasks[0].InputPath != "/music/a.flac" {
		t.Errorf("Plan() = %+v, want only a.flac", tasks)
	}
}

func TestDispatch_Playlist(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	out := filepath.Join(base, "out")
	files := makeTree(t, in, "Artist/Album/01 Intro.wav", "Artist/Album/02 Outro.wav")

	settings := testSettings()
	settings.CreatePlaylist = true
	d := NewDispatcher(settings, &fakeTranscoder{}, nil)
	d.Dispatch(context.Background(), in, out, files)

	data, err := os.ReadFile(filepath.Join(out, "Artist", "Album", "Album.m3u"))
	if err != nil {
		t.Fatalf("playlist missing: %v", err)
	}
	want := "#EXTM3U\n#EXTINF:-1,Intro\n01 Intro.mp3\n#EXTINF:-1,Outro\n02 Outro.mp3\n"
	if string(data) != want {
		t.Errorf("playlist = %q, want %q", data, want)
	}
}

func TestDispatch_CoverArtAndTags(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	out := filepath.Join(base, "out")
	files := makeTree(t, in, "Artist/Album/01 Intro.wav", "Artist/Album/02 Outro.wav")

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "Artist", "Album", "Folder.png"), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	settings := testSettings()
	settings.SaveCoverArtInFolder = true
	settings.SaveCoverArtInTags = true
	settings.FillMissingTags = true
	settings.CoverArtMaxSize = 10
	d := NewDispatcher(settings, &fakeTranscoder{}, nil)

	summary := d.Dispatch(context.Background(), in, out, files)
	if summary.Converted != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	cover, err := os.Open(filepath.Join(out, "Artist", "Album", "cover.jpg"))
	if err != nil {
		t.Fatalf("cover art missing: %v", err)
	}
	defer cover.Close()
	cfg, err := jpeg.DecodeConfig(cover)
	if err != nil {
		t.Fatalf("cover art is not JPEG: %v", err)
	}
	if cfg.Width != 10 || cfg.Height != 5 {
		t.Errorf("cover art size = %dx%d, want 10x5", cfg.Width, cfg.Height)
	}

	tag, err := id3v2.Open(filepath.Join(out, "Artist", "Album", "02 Outro.mp3"), id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()
	if tag.Title() != "Outro" || tag.Album() != "Album" || tag.Artist() != "Artist" {
		t.Errorf("tags = %q/%q/%q", tag.Title(), tag.Album(), tag.Artist())
	}
	if pics := tag.GetFrames(tag.CommonID("Attached picture")); len(pics) != 1 {
		t.Errorf("attached pictures = %d, want 1", len(pics))
	}
}

func TestDispatch_CoverArtCopiedVerbatim(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	out := filepath.Join(base, "out")
	files := makeTree(t, in, "Album/01 Intro.wav")

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), &jpeg.Options{Quality: 50}); err != nil {
		t.Fatal(err)
	}
	src := append(buf.Bytes(), []byte("trailing")...)
	if err := os.WriteFile(filepath.Join(in, "Album", "cover.JPG"), src, 0644); err != nil {
		t.Fatal(err)
	}

	settings := testSettings()
	settings.SaveCoverArtInFolder = true
	settings.CoverArtResize = false
	d := NewDispatcher(settings, &fakeTranscoder{}, nil)
	d.Dispatch(context.Background(), in, out, files)

	got, err := os.ReadFile(filepath.Join(out, "Album", "cover.jpg"))
	if err != nil {
		t.Fatalf("cover art missing: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("cover art was re-encoded: %d bytes, want %d", len(got), len(src))
	}
}

func TestDispatch_NoTagsForOtherExtensions(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "in")
	out := filepath.Join(base, "out")
	files := makeTree(t, in, "a.wav")

	settings := testSettings()
	settings.TargetExtension = "ogg"
	settings.FillMissingTags = true
	d := NewDispatcher(settings, &fakeTranscoder{}, nil)
	d.Dispatch(context.Background(), in, out, files)

	data, err := os.ReadFile(filepath.Join(out, "a.ogg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "converted" {
		t.Errorf("non-mp3 output was modified: %q", data)
	}
}

func TestDirectoryCreateError_Unwrap(t *testing.T) {
	err := error(&DirectoryCreateError{Path: "/x", Err: os.ErrPermission})
	if !errors.Is(err, os.ErrPermission) {
		t.Error("errors.Is(err, os.ErrPermission) = false")
	}
	if !strings.Contains(err.Error(), "/x") {
		t.Errorf("Error() = %q", err.Error())
	}
}
