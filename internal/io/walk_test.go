package ioutils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, name := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEnumerate_Completeness(t *testing.T) {
	root := t.TempDir()
	want := []string{
		"a.wav",
		"sub/b.flac",
		"sub/deeper/c.ogg",
		"sub/deeper/d.ogg",
		"other/e.m4a",
	}
	writeTree(t, root, want...)
	if err := os.MkdirAll(filepath.Join(root, "empty", "dir"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := Enumerate(context.Background(), root, func(err error) {
		t.Errorf("unexpected directory error: %v", err)
	})
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	if len(files) != len(want) {
		t.Fatalf("Enumerate() returned %d files, want %d: %v", len(files), len(want), files)
	}

	seen := make(map[string]bool)
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatal(err)
		}
		seen[filepath.ToSlash(rel)] = true
	}
	for _, name := range want {
		if !seen[name] {
			t.Errorf("missing %s in %v", name, files)
		}
	}
}

func TestEnumerate_RootErrors(t *testing.T) {
	root := t.TempDir()

	_, err := Enumerate(context.Background(), filepath.Join(root, "missing"), nil)
	var readErr *DirectoryReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected DirectoryReadError for missing root, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}

	writeTree(t, root, "file.wav")
	if _, err := Enumerate(context.Background(), filepath.Join(root, "file.wav"), nil); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestEnumerate_UnreadableSubdirectoryContinues(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root can read any directory")
	}

	root := t.TempDir()
	writeTree(t, root, "ok/a.wav", "locked/b.wav", "c.wav")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	var reported []error
	files, err := Enumerate(context.Background(), root, func(err error) {
		reported = append(reported, err)
	})
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files from readable directories, got %v", files)
	}
	if len(reported) != 1 {
		t.Fatalf("expected one reported error, got %v", reported)
	}
	var readErr *DirectoryReadError
	if !errors.As(reported[0], &readErr) || readErr.Path != locked {
		t.Errorf("reported error = %v, want DirectoryReadError for %s", reported[0], locked)
	}
}

func TestEnumerate_SymlinkCycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}

	root := t.TempDir()
	writeTree(t, root, "a/x.wav", "b/y.wav")
	if err := os.Symlink(root, filepath.Join(root, "a", "loop")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "b", "y.wav"), filepath.Join(root, "a", "link.wav")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "dangling")); err != nil {
		t.Fatal(err)
	}

	var reported int
	files, err := Enumerate(context.Background(), root, func(error) { reported++ })
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	sort.Strings(files)
	want := []string{
		filepath.Join(root, "a", "link.wav"),
		filepath.Join(root, "a", "x.wav"),
		filepath.Join(root, "b", "y.wav"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
	if reported != 1 {
		t.Errorf("expected the dangling link to be reported once, got %d", reported)
	}
}

func TestEnumerate_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.wav")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Enumerate(ctx, root, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
