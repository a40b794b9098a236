package ioutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirectoryReadError reports a directory that could not be listed during
// enumeration. The subtree below Path is absent from the results.
type DirectoryReadError struct {
	Path string
	Err  error
}

func (e *DirectoryReadError) Error() string {
	return fmt.Sprintf("read directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryReadError) Unwrap() error {
	return e.Err
}

// Enumerate collects the paths of all regular files below root.
//
// The walk keeps an explicit stack of directories seeded with root. Each
// popped directory is listed once: subdirectories are pushed, files are
// appended. Symbolic links are resolved, so a link to a directory is walked
// and a link to a file is collected; every real directory is listed at most
// once, which keeps link cycles finite and the result free of duplicates.
//
// A directory below root that cannot be listed, or an entry that cannot be
// resolved, is passed to onError as a *DirectoryReadError and the walk moves
// on. The returned error is non-nil only when root itself cannot be read or
// ctx is cancelled.
//
// The order of the result is unspecified.
func Enumerate(ctx context.Context, root string, onError func(error)) ([]string, error) {
	if onError == nil {
		onError = func(error) {}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &DirectoryReadError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &DirectoryReadError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	var files []string
	visited := make(map[string]struct{})
	dirs := []string{root}

	for len(dirs) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := dirs[len(dirs)-1]
		dirs = dirs[:len(dirs)-1]

		if real, err := filepath.EvalSymlinks(dir); err == nil {
			if _, seen := visited[real]; seen {
				continue
			}
			visited[real] = struct{}{}
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			readErr := &DirectoryReadError{Path: dir, Err: err}
			if dir == root {
				return nil, readErr
			}
			onError(readErr)
			continue
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			mode := entry.Type()
			if mode&os.ModeSymlink != 0 {
				target, err := os.Stat(path)
				if err != nil {
					onError(&DirectoryReadError{Path: path, Err: err})
					continue
				}
				mode = target.Mode().Type()
			}

			switch {
			case mode.IsDir():
				dirs = append(dirs, path)
			case mode.IsRegular():
				files = append(files, path)
			}
		}
	}

	return files, nil
}
