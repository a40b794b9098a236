// Package config provides configuration management for audioconv.
//
// This package handles:
//   - Loading and saving settings from TOML files
//   - Default configuration values
//   - Validation of flag and file values (UsageError)
//   - Conversion to model.PathConfig and transcode.Options for other packages
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Converts to mp3 with ffmpeg
//	// Pooled concurrency sized to the available CPUs
//	// Existing outputs are overwritten
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/audioconv.toml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Saving Settings
//
//	settings.Mode = config.ModeChunked
//	settings.BatchSize = 8
//	err := settings.Save("/path/to/audioconv.toml")
//
// # Configuration Options
//
// Settings includes options for:
//   - Input/output roots and the target extension
//   - Concurrency mode, worker count and batch size
//   - Transcoder binary, arguments and priority
//   - Tag fill-in, cover art and playlist generation
//   - Logging
package config
