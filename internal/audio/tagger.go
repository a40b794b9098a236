package audio

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
)

// TagInfo holds the tag values inferred for one output file.
type TagInfo struct {
	Title       string
	Album       string
	Artist      string
	TrackNumber int
}

var leadingNumber = regexp.MustCompile(`^\s*(\d{1,3})(?:\s*[-._)]\s*|\s+)(.*)$`)

// InferTags derives tag values from the input layout
// <artist>/<album>/<NN title>.<ext>.
//
// Example:
//
//	InferTags("/in/Nina Simone/Pastel Blues/03 - Be My Husband.flac")
//	// TagInfo{Title: "Be My Husband", Album: "Pastel Blues",
//	//         Artist: "Nina Simone", TrackNumber: 3}
func InferTags(inputPath string) TagInfo {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}

	info := TagInfo{Title: stem}
	if m := leadingNumber.FindStringSubmatch(stem); m != nil && strings.TrimSpace(m[2]) != "" {
		n, _ := strconv.Atoi(m[1])
		info.TrackNumber = n
		info.Title = strings.TrimSpace(m[2])
	}

	parent := filepath.Dir(inputPath)
	if name := filepath.Base(parent); !isRootName(name) {
		info.Album = name
		if name := filepath.Base(filepath.Dir(parent)); !isRootName(name) {
			info.Artist = name
		}
	}
	return info
}

func isRootName(name string) bool {
	return name == "." || name == string(filepath.Separator) || name == ""
}

// Tagger writes ID3 tags to converted MP3 files.
//
// Only frames that are missing are written: tags the transcoder carried
// over from the source always win.
//
// Example:
//
//	tagger := NewTagger()
//	err := tagger.SaveTags("/out/Artist/Album/01 Intro.mp3",
//	    InferTags("/in/Artist/Album/01 Intro.flac"), coverJPEG)
type Tagger struct{}

// NewTagger creates a new Tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// SaveTags fills empty title, album, artist and track frames of the MP3 at
// path from info and embeds artwork as the front cover when the file has
// no picture yet. A nil artwork skips the picture.
func (t *Tagger) SaveTags(path string, info TagInfo, artwork []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	t.fillStringTags(tag, info)

	if artwork != nil {
		t.fillArtwork(tag, artwork)
	}

	return tag.Save()
}

// fillStringTags sets text frames that are currently empty.
func (t *Tagger) fillStringTags(tag *id3v2.Tag, info TagInfo) {
	if tag.Title() == "" && info.Title != "" {
		tag.SetTitle(info.Title)
	}
	if tag.Album() == "" && info.Album != "" {
		tag.SetAlbum(info.Album)
	}
	if tag.Artist() == "" && info.Artist != "" {
		tag.SetArtist(info.Artist)
	}

	trck := tag.CommonID("Track number/Position in set")
	if tag.GetTextFrame(trck).Text == "" && info.TrackNumber > 0 {
		tag.AddTextFrame(trck, id3v2.EncodingUTF8, strconv.Itoa(info.TrackNumber))
	}
}

// fillArtwork embeds artwork as an attached picture frame unless one exists.
func (t *Tagger) fillArtwork(tag *id3v2.Tag, artwork []byte) {
	if len(tag.GetFrames(tag.CommonID("Attached picture"))) > 0 {
		return
	}

	pic := id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	}
	tag.AddAttachedPicture(pic)
}
