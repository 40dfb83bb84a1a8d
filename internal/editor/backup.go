package editor

import "time"

// BackupStore writes timestamped copies of file content before destructive
// writes. Backups are a best-effort durability aid, not transactional with
// the primary file write.
type BackupStore interface {
	// Create stores a copy of content for the file at path and returns a
	// backup ID that can later be passed to Restore.
	Create(path string, content []byte) (backupID string, err error)

	// Restore writes the decrypted bytes of a backup. passphrase is only
	// consulted when the store encrypts at rest.
	Restore(backupID string, passphrase string) ([]byte, error)

	// Cleanup deletes backups in dir older than maxAge whose names match
	// the glob pattern. An empty dir means the store's own root; an empty
	// pattern matches every backup.
	Cleanup(dir string, maxAge time.Duration, pattern string) (CleanupStats, error)
}
