// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Enumerating every file below an input root
//   - Directory creation and existence checks
//   - Locking an output tree against concurrent runs
//   - Cover art discovery, resizing and format conversion
//
// # Enumeration
//
//	files, err := ioutils.Enumerate(ctx, "/music/in", func(err error) {
//	    log.Warn("skipping directory", "error", err)
//	})
//
// Directories that cannot be listed are reported through the callback and
// left out; only an unreadable root is returned as an error.
//
// # File Operations
//
//	// Ensure directory exists (concurrent callers never race on EEXIST)
//	err := ioutils.EnsureDir("/path/to/new/directory")
//
//	// Hold the output tree for the duration of a run
//	lock, err := ioutils.LockDir("/music/out")
//	defer lock.Unlock()
//
// # Image Processing
//
// The ImageService handles cover art manipulation:
//
//	svc := ioutils.NewImageService()
//
//	// Resize image to fit within 500x500
//	resized, _ := svc.ResizeImage(ctx, imageData, 500, 500)
//
//	// Convert to JPEG
//	jpeg, _ := svc.ConvertToJPEG(ctx, pngData)
package ioutils
