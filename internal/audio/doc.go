// Package audio post-processes converted files: ID3 tag fill-in and
// per-directory playlists.
//
// # ID3 Tagging
//
// The Tagger only fills frames that are empty after conversion, using
// values inferred from the input layout:
//
//	tagger := audio.NewTagger()
//	err := tagger.SaveTags(task.OutputPath, audio.InferTags(task.InputPath), artwork)
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	content := creator.CreatePlaylist(dir)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
