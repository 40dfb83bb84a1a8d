package backup_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ged-go/internal/backup"
	"ged-go/internal/editor"
	"ged-go/internal/encryption"
	"ged-go/internal/errclass"
	"ged-go/internal/testutil"
)

func TestFileSystemStore_Create(t *testing.T) {
	t.Run("writes a timestamped copy", func(t *testing.T) {
		root := t.TempDir()
		store, err := backup.NewFileSystemStore(root, testutil.FixedClock(), nil)
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}

		id, err := store.Create("/home/user/notes.txt", []byte("hello\n"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !strings.HasPrefix(id, "notes.txt.") || !strings.HasSuffix(id, ".bak") {
			t.Errorf("backup ID = %q, want notes.txt.<timestamp>.bak", id)
		}

		data, err := os.ReadFile(filepath.Join(root, id))
		if err != nil {
			t.Fatalf("reading backup: %v", err)
		}
		if string(data) != "hello\n" {
			t.Errorf("backup content = %q", data)
		}
	})

	t.Run("restore round-trips", func(t *testing.T) {
		store, err := backup.NewFileSystemStore(t.TempDir(), testutil.FixedClock(), nil)
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}

		id, err := store.Create("/tmp/a.txt", []byte("content\n"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		got, err := store.Restore(id, "")
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if string(got) != "content\n" {
			t.Errorf("Restore() = %q", got)
		}
	})

	t.Run("restore of unknown backup is NotFound", func(t *testing.T) {
		store, err := backup.NewFileSystemStore(t.TempDir(), testutil.FixedClock(), nil)
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		_, err = store.Restore("absent.bak", "")
		if !errors.Is(err, errclass.ErrNotFound) {
			t.Errorf("Restore() error = %v, want ErrNotFound", err)
		}
	})
}

func TestFileSystemStore_Encrypted(t *testing.T) {
	root := t.TempDir()
	store, err := backup.NewFileSystemStore(root, testutil.FixedClock(), encryption.NewTestEncryptor())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	id, err := store.Create("/tmp/secret.txt", []byte("plaintext\n"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasSuffix(id, ".bak.age") {
		t.Errorf("encrypted backup ID = %q, want .bak.age suffix", id)
	}

	// The stored bytes must differ from the plaintext.
	raw, err := os.ReadFile(filepath.Join(root, id))
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(raw) == "plaintext\n" {
		t.Error("encrypted backup stored as plaintext")
	}

	got, err := store.Restore(id, "passphrase")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if string(got) != "plaintext\n" {
		t.Errorf("Restore() = %q", got)
	}
}

func TestFileSystemStore_Cleanup(t *testing.T) {
	// Cleanup compares file mtimes against the clock, so these tests use
	// the real clock and age files with Chtimes.
	ageFile := func(t *testing.T, path string, age time.Duration) {
		t.Helper()
		old := time.Now().Add(-age)
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("aging %s: %v", path, err)
		}
	}

	setup := func(t *testing.T) (editor.BackupStore, string) {
		t.Helper()
		root := t.TempDir()
		store, err := backup.NewFileSystemStore(root, editor.RealClock{}, nil)
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		return store, root
	}

	t.Run("deletes only old matching backups", func(t *testing.T) {
		store, root := setup(t)

		oldBak := filepath.Join(root, "a.txt.20240101T000000.000000000.bak")
		newBak := filepath.Join(root, "a.txt.20260101T000000.000000000.bak")
		os.WriteFile(oldBak, []byte("old"), 0644)
		os.WriteFile(newBak, []byte("new"), 0644)
		ageFile(t, oldBak, 48*time.Hour)

		stats, err := store.Cleanup("", 24*time.Hour, "a.txt.*")
		if err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if stats.DeletedCount != 1 || stats.TotalBytes != 3 {
			t.Errorf("Cleanup() = %+v, want 1 deletion of 3 bytes", stats)
		}
		if _, err := os.Stat(oldBak); !os.IsNotExist(err) {
			t.Error("old backup survived cleanup")
		}
		if _, err := os.Stat(newBak); err != nil {
			t.Error("fresh backup was deleted")
		}
	})

	t.Run("pattern excludes other files", func(t *testing.T) {
		store, root := setup(t)

		other := filepath.Join(root, "b.txt.20240101T000000.000000000.bak")
		os.WriteFile(other, []byte("other"), 0644)
		ageFile(t, other, 48*time.Hour)

		stats, err := store.Cleanup("", time.Hour, "a.txt.*")
		if err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if stats.DeletedCount != 0 {
			t.Errorf("Cleanup() deleted %d files, want 0", stats.DeletedCount)
		}
	})

	t.Run("never touches non-backup files", func(t *testing.T) {
		store, root := setup(t)

		stray := filepath.Join(root, "important.txt")
		os.WriteFile(stray, []byte("keep me"), 0644)
		ageFile(t, stray, 1000*time.Hour)

		stats, err := store.Cleanup("", time.Hour, "*")
		if err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if stats.DeletedCount != 0 {
			t.Errorf("Cleanup() deleted %d files, want 0", stats.DeletedCount)
		}
		if _, err := os.Stat(stray); err != nil {
			t.Error("non-backup file was deleted")
		}
	})

	t.Run("invalid pattern fails", func(t *testing.T) {
		store, _ := setup(t)
		_, err := store.Cleanup("", time.Hour, "[")
		if err == nil {
			t.Error("Cleanup() expected error for invalid pattern")
		}
	})
}
