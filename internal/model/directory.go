package model

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Directory is one output directory together with the tasks that write
// into it.
//
// Directory contains what the post-run steps need:
//   - Path and SourcePath to locate cover art in the input tree
//   - Tasks to build the playlist
//   - Computed ArtworkPath and PlaylistPath
//
// Example:
//
//	cfg := &PathConfig{
//	    CoverArtFileName:       "cover.jpg",
//	    PlaylistFileNameFormat: "{dir}",
//	    PlaylistFormat:         PlaylistFormatM3U,
//	}
//	dir := NewDirectory("/out/Artist/Album", "/in/Artist/Album", cfg)
//	// dir.PlaylistPath = "/out/Artist/Album/Album.m3u"
type Directory struct {
	// Path is the output directory.
	Path string

	// SourcePath is the input directory the tasks were read from.
	SourcePath string

	// Tasks are the tasks whose output lands in Path, sorted by output name.
	Tasks []*Task

	// ArtworkPath is where the folder cover art is written.
	ArtworkPath string

	// PlaylistPath is where the playlist is written.
	PlaylistPath string
}

// PathConfig holds naming settings for per-directory files.
//
// PlaylistFileNameFormat supports these placeholders:
//   - {dir} - Name of the output directory
//   - {parent} - Name of the directory above it
type PathConfig struct {
	// CoverArtFileName is the file name of the cover art written into each
	// output directory. Example: "cover.jpg"
	CoverArtFileName string

	// PlaylistFileNameFormat is the playlist file name template (without
	// extension). Example: "{dir}"
	PlaylistFileNameFormat string

	// PlaylistFormat determines the playlist file type and extension.
	PlaylistFormat PlaylistFormat
}

// NewDirectory creates a Directory with computed artwork and playlist paths.
func NewDirectory(path, sourcePath string, cfg *PathConfig) *Directory {
	dir := &Directory{
		Path:       path,
		SourcePath: sourcePath,
	}
	dir.ArtworkPath = dir.parseArtworkPath(cfg)
	dir.PlaylistPath = dir.parsePlaylistPath(cfg)
	return dir
}

// Name returns the base name of the output directory.
func (d *Directory) Name() string {
	return filepath.Base(d.Path)
}

// Completed returns the tasks whose output exists after the run, in
// playlist order.
func (d *Directory) Completed() []*Task {
	var done []*Task
	for _, task := range d.Tasks {
		if task.Status == StatusConverted || task.Status == StatusSkipped {
			done = append(done, task)
		}
	}
	return done
}

// GroupByDirectory groups tasks by output directory. Directories are
// returned sorted by path, their tasks sorted by output name.
func GroupByDirectory(tasks []*Task, cfg *PathConfig) []*Directory {
	byPath := make(map[string]*Directory)
	for _, task := range tasks {
		outDir := task.OutputDir()
		dir, ok := byPath[outDir]
		if !ok {
			dir = NewDirectory(outDir, filepath.Dir(task.InputPath), cfg)
			byPath[outDir] = dir
		}
		dir.Tasks = append(dir.Tasks, task)
	}

	dirs := make([]*Directory, 0, len(byPath))
	for _, dir := range byPath {
		sort.Slice(dir.Tasks, func(i, j int) bool {
			return dir.Tasks[i].OutputPath < dir.Tasks[j].OutputPath
		})
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })
	return dirs
}

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// PlaylistFormatM3U creates .m3u playlist files (most widely supported).
	PlaylistFormatM3U PlaylistFormat = iota

	// PlaylistFormatPLS creates .pls playlist files (used by Winamp).
	PlaylistFormatPLS

	// PlaylistFormatWPL creates .wpl playlist files (Windows Media Player).
	PlaylistFormatWPL

	// PlaylistFormatZPL creates .zpl playlist files (Zune Media Player).
	PlaylistFormatZPL
)

// ParsePlaylistFormat maps a format name to a PlaylistFormat.
// Unknown names fall back to M3U and report false.
func ParsePlaylistFormat(name string) (PlaylistFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "m3u", "":
		return PlaylistFormatM3U, true
	case "pls":
		return PlaylistFormatPLS, true
	case "wpl":
		return PlaylistFormatWPL, true
	case "zpl":
		return PlaylistFormatZPL, true
	default:
		return PlaylistFormatM3U, false
	}
}

// Extension returns the file extension for the playlist format, including the dot.
//
// Returns:
//   - ".m3u" for PlaylistFormatM3U
//   - ".pls" for PlaylistFormatPLS
//   - ".wpl" for PlaylistFormatWPL
//   - ".zpl" for PlaylistFormatZPL
func (pf PlaylistFormat) Extension() string {
	switch pf {
	case PlaylistFormatM3U:
		return ".m3u"
	case PlaylistFormatPLS:
		return ".pls"
	case PlaylistFormatWPL:
		return ".wpl"
	case PlaylistFormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// parsePlaylistPath computes the full playlist file path.
func (d *Directory) parsePlaylistPath(cfg *PathConfig) string {
	fileName := cfg.PlaylistFileNameFormat
	if fileName == "" {
		fileName = "{dir}"
	}
	fileName = strings.ReplaceAll(fileName, "{dir}", d.Name())
	fileName = strings.ReplaceAll(fileName, "{parent}", filepath.Base(filepath.Dir(d.Path)))
	fileName = sanitizeFileName(fileName)
	if fileName == "" {
		fileName = "playlist"
	}
	return filepath.Join(d.Path, fileName+cfg.PlaylistFormat.Extension())
}

// parseArtworkPath computes the full cover art file path.
func (d *Directory) parseArtworkPath(cfg *PathConfig) string {
	name := sanitizeFileName(cfg.CoverArtFileName)
	if name == "" {
		name = "cover.jpg"
	}
	return filepath.Join(d.Path, name)
}

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots   = regexp.MustCompile(`\.+$`)
	repeatedSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Trailing whitespace is removed
//
// Example:
//
//	sanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}
