package fsio

import (
	"fmt"
	"os"
	"path/filepath"

	"ged-go/internal/editor"
	"ged-go/internal/errclass"
)

// OSFilesystemManager is the real filesystem implementation of
// FilesystemManager. It performs actual filesystem operations using the
// os package.
type OSFilesystemManager struct {
	protect *ProtectMatcher
}

// NewOSFilesystemManager creates a filesystem manager that operates on
// the real filesystem and refuses edits matching the given protected
// patterns.
func NewOSFilesystemManager(protectedPatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{
		protect: NewProtectMatcher(protectedPatterns),
	}
}

// Resolve validates a raw path and returns it in absolute form.
// The path does not have to exist yet, but an existing path must be a
// regular file.
func (m *OSFilesystemManager) Resolve(rawPath string) (string, error) {
	if rawPath == "" {
		return "", fmt.Errorf("empty path")
	}

	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			// A file that does not exist yet is fine; it can be created.
			return absPath, nil
		}
		return "", fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", absPath)
	}
	if mode&os.ModeSymlink != 0 {
		return "", fmt.Errorf("symlinks not supported: %s", absPath)
	}
	if mode&os.ModeDevice != 0 {
		return "", fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return "", fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return "", fmt.Errorf("sockets not supported: %s", absPath)
	}

	return absPath, nil
}

// Exists reports whether a regular file exists at path.
func (m *OSFilesystemManager) Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat path: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s", path)
	}
	return true, nil
}

// ReadFile returns the file's content.
func (m *OSFilesystemManager) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errclass.ErrNotFound.WithMessagef("file not found: %s", path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile replaces the file's content by writing to a temporary file
// in the same directory and renaming it into place. The original file's
// permissions are preserved when it exists.
func (m *OSFilesystemManager) WriteFile(path string, content string) error {
	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// IsProtected reports whether the path matches a protected pattern.
func (m *OSFilesystemManager) IsProtected(path string) bool {
	return m.protect.Match(path)
}

// Compile-time check that OSFilesystemManager implements the
// FilesystemManager interface.
var _ editor.FilesystemManager = (*OSFilesystemManager)(nil)
