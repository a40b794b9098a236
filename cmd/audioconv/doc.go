// Command audioconv converts every file below an input directory into an
// audio file below an output directory, mirroring the tree, by running
// ffmpeg once per file.
//
//	audioconv --input ~/music/flac --output ~/music/mp3 --skip
//
// Exit status is 0 when the run completes, even if individual files
// failed (unless --fail-on-error is set), 2 for usage errors and 1 when
// the input root cannot be read, ffmpeg is missing or another run holds
// the output tree.
package main
