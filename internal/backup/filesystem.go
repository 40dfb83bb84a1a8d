package backup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"ged-go/internal/editor"
	"ged-go/internal/errclass"
)

const (
	backupSuffix    = ".bak"
	encryptedSuffix = ".bak.age"

	// timestampLayout names backups so age-based cleanup can sort and
	// target them lexically as well as by mtime.
	timestampLayout = "20060102T150405.000000000"
)

// FileSystemStore implements editor.BackupStore on a local directory.
// Each backup is a timestamped copy named
//
//	<basename>.<timestamp>.bak[.age]
//
// so both glob-based and age-based cleanup can target it. When an
// encryptor is present, backups are encrypted at rest with the public key.
type FileSystemStore struct {
	root      string
	clock     editor.Clock
	encryptor editor.Encryptor // nil means plaintext backups
}

var _ editor.BackupStore = (*FileSystemStore)(nil)

// NewFileSystemStore creates a backup store rooted at the given directory,
// creating it if needed.
func NewFileSystemStore(root string, clock editor.Clock, encryptor editor.Encryptor) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	return &FileSystemStore{root: root, clock: clock, encryptor: encryptor}, nil
}

// Create stores a copy of content for the file at path and returns the
// backup's name as its ID.
func (s *FileSystemStore) Create(path string, content []byte) (string, error) {
	name := fmt.Sprintf("%s.%s%s",
		filepath.Base(path),
		s.clock.Now().UTC().Format(timestampLayout),
		backupSuffix)

	data := content
	if s.encryptor != nil {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(content), &buf); err != nil {
			return "", fmt.Errorf("encrypting backup: %w", err)
		}
		data = buf.Bytes()
		name = strings.TrimSuffix(name, backupSuffix) + encryptedSuffix
	}

	if err := writeAtomic(filepath.Join(s.root, name), data); err != nil {
		return "", err
	}
	return name, nil
}

// Restore returns the plaintext bytes of a backup. passphrase is only
// consulted for encrypted backups.
func (s *FileSystemStore) Restore(backupID string, passphrase string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, backupID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.ErrNotFound.WithMessagef("backup not found: %s", backupID)
		}
		return nil, fmt.Errorf("reading backup: %w", err)
	}

	if !strings.HasSuffix(backupID, encryptedSuffix) {
		return data, nil
	}
	if s.encryptor == nil {
		return nil, fmt.Errorf("backup %s is encrypted but no encryptor is configured", backupID)
	}

	ctx, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	var buf bytes.Buffer
	if err := ctx.Decrypt(bytes.NewReader(data), &buf); err != nil {
		return nil, fmt.Errorf("decrypting backup: %w", err)
	}
	return buf.Bytes(), nil
}

// Cleanup deletes backups in dir older than maxAge whose names match the
// doublestar glob pattern. Only files carrying a backup suffix are ever
// considered, so a mistyped directory cannot lose unrelated files.
func (s *FileSystemStore) Cleanup(dir string, maxAge time.Duration, pattern string) (editor.CleanupStats, error) {
	if dir == "" {
		dir = s.root
	}
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return editor.CleanupStats{}, fmt.Errorf("invalid cleanup pattern: %q", pattern)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return editor.CleanupStats{}, fmt.Errorf("reading backup directory: %w", err)
	}

	cutoff := s.clock.Now().Add(-maxAge)
	var stats editor.CleanupStats
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, backupSuffix) && !strings.HasSuffix(name, encryptedSuffix) {
			continue
		}
		matched, err := doublestar.Match(pattern, name)
		if err != nil || !matched {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return stats, fmt.Errorf("deleting backup %s: %w", name, err)
		}
		stats.DeletedCount++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary backup file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing backup file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming backup into place: %w", err)
	}
	return nil
}
