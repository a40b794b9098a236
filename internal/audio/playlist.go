package audio

import (
	"fmt"
	"strings"

	"github.com/handiism/audioconv/internal/model"
)

// PlaylistCreator generates playlist files in various formats.
//
// PlaylistCreator takes an output directory and generates a playlist of the
// files that exist in it after the run. Entries are relative (the file
// name only) since the playlist is written next to them.
//
// Example:
//
//	creator := NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	content := creator.CreatePlaylist(dir)
//	os.WriteFile(dir.PlaylistPath, []byte(content), 0644)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:-1,01 Intro
//	// 01 Intro.mp3
type PlaylistCreator struct {
	format   model.PlaylistFormat
	extended bool // For M3U: include EXTINF lines
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// extended only affects M3U output.
func NewPlaylistCreator(format model.PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist generates playlist content for a directory's completed
// tasks.
func (p *PlaylistCreator) CreatePlaylist(dir *model.Directory) string {
	entries := playlistEntries(dir)

	switch p.format {
	case model.PlaylistFormatPLS:
		return p.createPLS(entries)
	case model.PlaylistFormatWPL:
		return p.createWPL(dir, entries)
	case model.PlaylistFormatZPL:
		return p.createZPL(dir, entries)
	default:
		return p.createM3U(entries)
	}
}

type playlistEntry struct {
	file  string
	title string
}

func playlistEntries(dir *model.Directory) []playlistEntry {
	tasks := dir.Completed()
	entries := make([]playlistEntry, 0, len(tasks))
	for _, task := range tasks {
		name := task.OutputName()
		title := InferTags(task.InputPath).Title
		if title == "" {
			title = name
		}
		entries = append(entries, playlistEntry{file: name, title: title})
	}
	return entries
}

// createM3U generates an M3U playlist. Durations are unknown without
// probing the files, so extended entries use -1.
func (p *PlaylistCreator) createM3U(entries []playlistEntry) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, e := range entries {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:-1,%s\n", e.title)
		}
		sb.WriteString(e.file + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
func (p *PlaylistCreator) createPLS(entries []playlistEntry) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, e := range entries {
		n := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", n, e.file)
		fmt.Fprintf(&sb, "Title%d=%s\n", n, e.title)
		fmt.Fprintf(&sb, "Length%d=-1\n", n)
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(entries))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createWPL generates a Windows Media Player playlist.
func (p *PlaylistCreator) createWPL(dir *model.Directory, entries []playlistEntry) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(dir.Name()))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(e.file))
	}
	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// createZPL generates a Zune playlist. It is WPL with a few extra
// attributes.
func (p *PlaylistCreator) createZPL(dir *model.Directory, entries []playlistEntry) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(dir.Name()))
	sb.WriteString("    <meta name=\"Generator\" content=\"audioconv\"/>\n")
	fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(entries))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "      <media src=\"%s\" albumTitle=\"%s\" trackTitle=\"%s\"/>\n",
			escapeXML(e.file), escapeXML(dir.Name()), escapeXML(e.title))
	}
	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
