package app

import (
	"fmt"
	"os"
	"time"

	"ged-go/internal/backup"
	"ged-go/internal/config"
	"ged-go/internal/editor"
	"ged-go/internal/encryption"
	"ged-go/internal/fingerprint"
	"ged-go/internal/fsio"
	"ged-go/internal/ledger"
	"ged-go/internal/pending"
	"ged-go/internal/textedit"
)

// EditorApp is the application layer between the CLI and EditorService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages store lifecycles on Close.
type EditorApp struct {
	cfg       *config.Config
	ledger    editor.Ledger
	pending   *pending.MemoryStore
	backups   editor.BackupStore
	fsmgr     editor.FilesystemManager
	encryptor editor.Encryptor
	service   *editor.EditorService
	logFile   *os.File
}

// NewEditorApp creates a fully wired EditorApp from the given config.
// operation identifies the CLI command being run (e.g. "stage", "approve").
// The caller must call Close when done.
func NewEditorApp(cfg *config.Config, operation string) (*EditorApp, error) {
	fsmgr := fsio.NewOSFilesystemManager(cfg.Filesystem.Protected)

	led, err := ledger.NewLedgerFromConfig(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("creating ledger: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	backups, err := backup.NewStoreFromConfig(cfg.Backup, editor.RealClock{}, enc)
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("creating backup store: %w", err)
	}

	ttl := time.Duration(cfg.Pending.TTLMinutes) * time.Minute
	pend := pending.NewMemoryStore(ttl, editor.RealClock{})
	if cfg.Pending.SweepSeconds > 0 {
		pend.StartSweeper(time.Duration(cfg.Pending.SweepSeconds) * time.Second)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		pend.Close()
		led.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := editor.NewEditorService(
		fingerprint.NewService(),
		pend,
		led,
		backups,
		fsmgr,
		&slogAdapter{l: logger},
		editor.RealClock{},
		editor.UUIDGenerator{},
	)

	return &EditorApp{
		cfg:       cfg,
		ledger:    led,
		pending:   pend,
		backups:   backups,
		fsmgr:     fsmgr,
		encryptor: enc,
		service:   svc,
		logFile:   logFile,
	}, nil
}

// ComputeToken resolves the given path and returns its version token.
func (a *EditorApp) ComputeToken(rawPath string) (string, error) {
	path, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return a.service.ComputeVersionToken(path)
}

// FindMatches resolves the given path and returns the 1-based line numbers
// on which the pattern occurs.
func (a *EditorApp) FindMatches(rawPath, pattern string, useRegex, caseSensitive bool) ([]int, error) {
	path, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.FindMatches(path, pattern, useRegex, caseSensitive)
}

// StageEdit resolves the given path and stages the operation for approval.
func (a *EditorApp) StageEdit(rawPath string, op textedit.Operation, token string, createBackup bool) (*editor.PendingEdit, error) {
	path, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.StageEdit(path, op, token, createBackup)
}

// ApproveEdit consumes a pending edit and applies it to disk.
func (a *EditorApp) ApproveEdit(approvalToken, confirmation string) (*editor.EditResult, error) {
	return a.service.ApproveEdit(approvalToken, confirmation)
}

// CancelEdit discards a pending edit. Returns whether one was found.
func (a *EditorApp) CancelEdit(approvalToken string) bool {
	return a.service.CancelEdit(approvalToken)
}

// ListPending returns the staged edits awaiting approval, oldest first.
func (a *EditorApp) ListPending() []*editor.PendingEdit {
	return a.service.ListPending()
}

// ApplyEdit resolves the given path and applies the operation in one call,
// without staging.
func (a *EditorApp) ApplyEdit(rawPath string, op textedit.Operation, token string, createBackup bool) (*editor.EditResult, error) {
	path, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.ApplyEdit(path, op, token, createBackup)
}

// WriteFile resolves the given path and creates or overwrites it.
func (a *EditorApp) WriteFile(rawPath, content, token string, createBackup bool) (*editor.EditResult, error) {
	path, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.WriteFile(path, content, token, createBackup)
}

// AppendToFile resolves the given path and appends text to it, creating it
// if missing.
func (a *EditorApp) AppendToFile(rawPath, text string, createBackup bool) (*editor.EditResult, error) {
	path, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.AppendToFile(path, text, createBackup)
}

// History returns change records most-recent-first. rawPath may be empty to
// list changes across all files.
func (a *EditorApp) History(rawPath string, limit int) ([]*editor.ChangeRecord, error) {
	path := ""
	if rawPath != "" {
		var err error
		path, err = a.fsmgr.Resolve(rawPath)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
	}
	return a.service.History(path, limit)
}

// Undo reverts the given change and appends an undo record.
func (a *EditorApp) Undo(changeID string) (*editor.HistoryResult, error) {
	return a.service.Undo(changeID)
}

// Redo reapplies the given undone change and appends a redo record.
func (a *EditorApp) Redo(changeID string) (*editor.HistoryResult, error) {
	return a.service.Redo(changeID)
}

// ListUndoable returns edits currently eligible for undo.
func (a *EditorApp) ListUndoable(limit int) ([]*editor.ChangeRecord, error) {
	return a.service.ListUndoable(limit)
}

// ListRedoable returns edits currently eligible for redo.
func (a *EditorApp) ListRedoable(limit int) ([]*editor.ChangeRecord, error) {
	return a.service.ListRedoable(limit)
}

// CleanupHistory truncates the ledger to the most recent keepCount records.
func (a *EditorApp) CleanupHistory(keepCount int) (int, error) {
	return a.service.CleanupHistory(keepCount)
}

// CleanupBackups deletes backups older than maxAge whose names match the
// glob pattern. dir may be empty to clean the configured backup directory.
func (a *EditorApp) CleanupBackups(dir string, maxAge time.Duration, pattern string) (editor.CleanupStats, error) {
	return a.service.CleanupBackups(dir, maxAge, pattern)
}

// RestoreBackup returns the content of a stored backup. The passphrase is
// only needed for encrypted backups.
func (a *EditorApp) RestoreBackup(backupID, passphrase string) ([]byte, error) {
	return a.backups.Restore(backupID, passphrase)
}

// SetupEncryption generates the backup encryption key pair, protecting the
// private key with the given passphrase.
func (a *EditorApp) SetupEncryption(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}

// EncryptionConfigured reports whether backup encryption keys are in place.
func (a *EditorApp) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// Close drains the pending store and closes all resources.
func (a *EditorApp) Close() error {
	var firstErr error

	a.pending.Close()

	if err := a.ledger.Close(); err != nil {
		firstErr = fmt.Errorf("closing ledger: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
