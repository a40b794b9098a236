// Package logging builds the slog loggers used by audioconv.
//
// It owns the console and JSON handlers, level parsing and the optional log
// file sink. The console handler prints one line per record:
//
//	2024-05-01 12:00:00 [INFO] [   3 / 120] : track.mp3 run=5f0c...
//
// Level labels are coloured when the output is a terminal, unless NO_COLOR
// is set or the color option says otherwise.
package logging
