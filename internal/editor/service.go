package editor

import (
	"fmt"
	"strings"
	"time"

	"ged-go/internal/errclass"
	"ged-go/internal/fingerprint"
	"ged-go/internal/textedit"
)

// Fingerprinter computes and validates content version tokens for files.
type Fingerprinter interface {
	// ComputeToken returns the current version token for the file at path.
	ComputeToken(path string) (string, error)

	// Validate fails with errclass.ErrConflict if the file's current token
	// differs from token.
	Validate(path, token string) error
}

// EditorService is the orchestration layer that ties fingerprinting,
// staging, approval, mutation, backups, and ledger writes into the
// two-phase edit protocol and the single-phase direct-apply path.
//
// The version-token comparison at approval time is the entire concurrency
// control: no locks are held between stage and approve, and a conflicting
// approval is rejected, never merged.
type EditorService struct {
	fingerprints Fingerprinter
	pending      PendingStore
	ledger       Ledger
	backups      BackupStore
	fsmgr        FilesystemManager
	logger       Logger
	clock        Clock
	idgen        IDGenerator
}

// NewEditorService creates a new EditorService with the provided dependencies.
func NewEditorService(fingerprints Fingerprinter, pending PendingStore, ledger Ledger, backups BackupStore, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator) *EditorService {
	return &EditorService{
		fingerprints: fingerprints,
		pending:      pending,
		ledger:       ledger,
		backups:      backups,
		fsmgr:        fsmgr,
		logger:       logger,
		clock:        clock,
		idgen:        idgen,
	}
}

// ComputeVersionToken returns the current version token for a file.
func (s *EditorService) ComputeVersionToken(path string) (string, error) {
	return s.fingerprints.ComputeToken(path)
}

// ValidateVersionToken fails with Conflict if the file has changed since
// the token was computed, or NotFound if the file is gone.
func (s *EditorService) ValidateVersionToken(path, token string) error {
	return s.fingerprints.Validate(path, token)
}

// FindMatches returns the 1-based line numbers in the file on which the
// pattern occurs.
func (s *EditorService) FindMatches(path, pattern string, useRegex, caseSensitive bool) ([]int, error) {
	content, err := s.fsmgr.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return textedit.FindMatches(content, pattern, useRegex, caseSensitive)
}

// StageEdit validates the caller's token, computes the resulting content
// and preview, and stores a pending edit awaiting approval.
//
// The base token recorded on the pending edit is recomputed from the very
// bytes the mutation was applied to, not the caller-supplied token. This
// closes the race where the file could change between validation and
// snapshot: both happen against a single read.
func (s *EditorService) StageEdit(path string, op textedit.Operation, token string, createBackup bool) (*PendingEdit, error) {
	if s.fsmgr.IsProtected(path) {
		return nil, fmt.Errorf("file is protected from edits: %s", path)
	}

	content, err := s.fsmgr.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := fingerprint.TokenFor([]byte(content))
	if base != token {
		return nil, errclass.ErrConflict.WithMessagef("file changed since token was computed: %s", path)
	}

	modified, affected, err := op.Apply(content)
	if err != nil {
		return nil, err
	}

	edit := &PendingEdit{
		ApprovalToken:    s.idgen.New(),
		FilePath:         path,
		Operation:        op,
		OperationLabel:   op.Label(),
		BaseVersionToken: base,
		PreviewContent:   modified,
		LinesAffected:    affected,
		CreateBackup:     createBackup,
	}
	if err := s.pending.Put(edit); err != nil {
		return nil, fmt.Errorf("staging edit: %w", err)
	}

	s.logger.Info("edit staged",
		"path", path,
		"operation", edit.OperationLabel,
		"lines_affected", affected,
		"expires_at", edit.ExpiresAt)
	return edit, nil
}

// ApproveEdit consumes a pending edit and applies it.
//
// The confirmation literal is checked before the pending edit is consumed,
// so a caller that forgets it can retry with the same approval token. The
// edit is then taken atomically (at most one approval per token), the base
// token is re-validated against the file's current bytes, and only then is
// anything written: an optional backup, the staged content, and the ledger
// record. Every validation failure leaves the file byte-for-byte unchanged.
func (s *EditorService) ApproveEdit(approvalToken, confirmation string) (*EditResult, error) {
	if confirmation != Confirmation {
		return nil, errclass.ErrBadConfirmation.WithMessagef("approval requires confirmation %q", Confirmation)
	}

	edit, err := s.pending.Take(approvalToken)
	if err != nil {
		return nil, err
	}

	content, err := s.fsmgr.ReadFile(edit.FilePath)
	if err != nil {
		return nil, err
	}
	if fingerprint.TokenFor([]byte(content)) != edit.BaseVersionToken {
		return nil, errclass.ErrConflict.WithMessagef("file changed between stage and approve: %s", edit.FilePath)
	}

	var backupID string
	if edit.CreateBackup {
		backupID, err = s.backups.Create(edit.FilePath, []byte(content))
		if err != nil {
			return nil, fmt.Errorf("writing backup: %w", err)
		}
	}

	if err := s.fsmgr.WriteFile(edit.FilePath, edit.PreviewContent); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}

	changeID, err := s.TrackChange(edit.FilePath, content, edit.PreviewContent, edit.OperationLabel, backupID, "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("edit approved",
		"path", edit.FilePath,
		"operation", edit.OperationLabel,
		"change_id", changeID)
	return &EditResult{
		FilePath:        edit.FilePath,
		OperationLabel:  edit.OperationLabel,
		LinesAffected:   edit.LinesAffected,
		NewVersionToken: fingerprint.TokenFor([]byte(edit.PreviewContent)),
		ChangeID:        changeID,
		BackupID:        backupID,
	}, nil
}

// CancelEdit removes a pending edit regardless of expiry.
// Returns whether one was found.
func (s *EditorService) CancelEdit(approvalToken string) bool {
	found := s.pending.Cancel(approvalToken)
	if found {
		s.logger.Info("edit cancelled", "approval_token", approvalToken)
	}
	return found
}

// ListPending returns the current staged edits, oldest first.
func (s *EditorService) ListPending() []*PendingEdit {
	return s.pending.List()
}

// ApplyEdit is the single-phase path: validate the token, apply the
// mutation, and write in one call. Used for lower-risk or already-reviewed
// writes.
func (s *EditorService) ApplyEdit(path string, op textedit.Operation, token string, createBackup bool) (*EditResult, error) {
	if s.fsmgr.IsProtected(path) {
		return nil, fmt.Errorf("file is protected from edits: %s", path)
	}

	content, err := s.fsmgr.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if fingerprint.TokenFor([]byte(content)) != token {
		return nil, errclass.ErrConflict.WithMessagef("file changed since token was computed: %s", path)
	}

	modified, affected, err := op.Apply(content)
	if err != nil {
		return nil, err
	}
	return s.applyWrite(path, content, modified, op.Label(), affected, createBackup)
}

// WriteFile creates or overwrites a file with the given content.
// Overwriting an existing file requires a fresh version token; creating a
// new file does not (there is nothing to conflict with).
func (s *EditorService) WriteFile(path, content, token string, createBackup bool) (*EditResult, error) {
	if s.fsmgr.IsProtected(path) {
		return nil, fmt.Errorf("file is protected from edits: %s", path)
	}

	exists, err := s.fsmgr.Exists(path)
	if err != nil {
		return nil, err
	}
	original := ""
	if exists {
		original, err = s.fsmgr.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if fingerprint.TokenFor([]byte(original)) != token {
			return nil, errclass.ErrConflict.WithMessagef("file changed since token was computed: %s", path)
		}
	}

	normalized := textedit.Normalize(content)
	label := "write file"
	if !exists {
		label = "create file"
		createBackup = false
	}
	return s.applyWrite(path, original, normalized, label, textedit.CountLines(normalized), createBackup)
}

// AppendToFile appends text to a file, creating it if missing.
func (s *EditorService) AppendToFile(path, text string, createBackup bool) (*EditResult, error) {
	if s.fsmgr.IsProtected(path) {
		return nil, fmt.Errorf("file is protected from edits: %s", path)
	}

	exists, err := s.fsmgr.Exists(path)
	if err != nil {
		return nil, err
	}
	original := ""
	if exists {
		original, err = s.fsmgr.ReadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		createBackup = false
	}

	block := textedit.Normalize(text)
	appended := original
	if appended != "" && !strings.HasSuffix(appended, "\n") {
		appended += "\n"
	}
	appended += block

	return s.applyWrite(path, original, appended, "append", textedit.CountLines(block), createBackup)
}

// applyWrite performs the shared tail of every single-phase edit: optional
// backup, atomic write, ledger record.
func (s *EditorService) applyWrite(path, original, modified, label string, affected int, createBackup bool) (*EditResult, error) {
	var backupID string
	var err error
	if createBackup {
		backupID, err = s.backups.Create(path, []byte(original))
		if err != nil {
			return nil, fmt.Errorf("writing backup: %w", err)
		}
	}

	if err := s.fsmgr.WriteFile(path, modified); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}

	changeID, err := s.TrackChange(path, original, modified, label, backupID, "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("edit applied",
		"path", path,
		"operation", label,
		"change_id", changeID)
	return &EditResult{
		FilePath:        path,
		OperationLabel:  label,
		LinesAffected:   affected,
		NewVersionToken: fingerprint.TokenFor([]byte(modified)),
		ChangeID:        changeID,
		BackupID:        backupID,
	}, nil
}

// TrackChange persists a content snapshot and appends a change record.
// A ledger failure is fatal: surfaced immediately, never retried.
func (s *EditorService) TrackChange(path, original, modified, label, backupID, metadata string) (string, error) {
	rec := &ChangeRecord{
		ID:             s.idgen.New(),
		FilePath:       path,
		OperationLabel: label,
		Kind:           ChangeKindEdit,
		CreatedAt:      s.clock.Now(),
		BackupID:       backupID,
		Metadata:       metadata,
	}
	snap := &ContentSnapshot{
		ChangeID:        rec.ID,
		OriginalContent: original,
		ModifiedContent: modified,
	}
	if err := s.ledger.TrackChange(rec, snap); err != nil {
		return "", errclass.ErrFatal.WithMessagef("recording change: %v", err)
	}
	return rec.ID, nil
}

// Undo restores the file to the change's original content and appends an
// undo record linked to the origin. Undoing an already-undone change fails
// with Conflict until a redo flips it back.
func (s *EditorService) Undo(changeID string) (*HistoryResult, error) {
	rec, snap, err := s.toggleTarget(changeID)
	if err != nil {
		return nil, err
	}
	if rec.Undone {
		return nil, errclass.ErrConflict.WithMessagef("change %s is already undone", changeID)
	}

	if err := s.fsmgr.WriteFile(rec.FilePath, snap.OriginalContent); err != nil {
		return nil, fmt.Errorf("restoring original content: %w", err)
	}

	undoRec := &ChangeRecord{
		ID:             s.idgen.New(),
		FilePath:       rec.FilePath,
		OperationLabel: "undo: " + rec.OperationLabel,
		Kind:           ChangeKindUndo,
		CreatedAt:      s.clock.Now(),
		OriginID:       rec.ID,
	}
	if err := s.ledger.TrackChange(undoRec, nil); err != nil {
		return nil, errclass.ErrFatal.WithMessagef("recording undo: %v", err)
	}
	if err := s.ledger.MarkUndone(rec.ID, undoRec.ID); err != nil {
		return nil, errclass.ErrFatal.WithMessagef("linking undo: %v", err)
	}

	s.logger.Info("change undone", "change_id", rec.ID, "undo_change_id", undoRec.ID)
	return &HistoryResult{
		ChangeID:        undoRec.ID,
		FilePath:        rec.FilePath,
		RestoredPreview: textedit.RenderPreview(snap.OriginalContent),
		NewVersionToken: fingerprint.TokenFor([]byte(snap.OriginalContent)),
	}, nil
}

// Redo restores the file to the change's modified content. The change must
// currently be in the undone state.
func (s *EditorService) Redo(changeID string) (*HistoryResult, error) {
	rec, snap, err := s.toggleTarget(changeID)
	if err != nil {
		return nil, err
	}
	if !rec.Undone {
		return nil, errclass.ErrConflict.WithMessagef("change %s is not undone", changeID)
	}

	if err := s.fsmgr.WriteFile(rec.FilePath, snap.ModifiedContent); err != nil {
		return nil, fmt.Errorf("restoring modified content: %w", err)
	}

	redoRec := &ChangeRecord{
		ID:             s.idgen.New(),
		FilePath:       rec.FilePath,
		OperationLabel: "redo: " + rec.OperationLabel,
		Kind:           ChangeKindRedo,
		CreatedAt:      s.clock.Now(),
		OriginID:       rec.ID,
	}
	if err := s.ledger.TrackChange(redoRec, nil); err != nil {
		return nil, errclass.ErrFatal.WithMessagef("recording redo: %v", err)
	}
	if err := s.ledger.MarkRedone(rec.ID, redoRec.ID); err != nil {
		return nil, errclass.ErrFatal.WithMessagef("linking redo: %v", err)
	}

	s.logger.Info("change redone", "change_id", rec.ID, "redo_change_id", redoRec.ID)
	return &HistoryResult{
		ChangeID:        redoRec.ID,
		FilePath:        rec.FilePath,
		RestoredPreview: textedit.RenderPreview(snap.ModifiedContent),
		NewVersionToken: fingerprint.TokenFor([]byte(snap.ModifiedContent)),
	}, nil
}

// toggleTarget loads an edit record and its snapshot for undo/redo.
func (s *EditorService) toggleTarget(changeID string) (*ChangeRecord, *ContentSnapshot, error) {
	rec, err := s.ledger.GetChange(changeID)
	if err != nil {
		return nil, nil, errclass.ErrFatal.WithMessagef("loading change: %v", err)
	}
	if rec == nil || rec.Kind != ChangeKindEdit {
		return nil, nil, errclass.ErrNotFound.WithMessagef("no undoable change %s", changeID)
	}
	snap, err := s.ledger.GetSnapshot(changeID)
	if err != nil {
		return nil, nil, errclass.ErrFatal.WithMessagef("loading snapshot: %v", err)
	}
	if snap == nil {
		return nil, nil, errclass.ErrNotFound.WithMessagef("snapshot for change %s is gone", changeID)
	}
	return rec, snap, nil
}

// History returns change records most-recent-first, optionally filtered by
// file path.
func (s *EditorService) History(path string, limit int) ([]*ChangeRecord, error) {
	return s.ledger.ListChanges(path, limit)
}

// ListUndoable returns edits currently eligible for undo, most recent first.
func (s *EditorService) ListUndoable(limit int) ([]*ChangeRecord, error) {
	return s.ledger.ListUndoable(limit)
}

// ListRedoable returns edits currently eligible for redo, most recent first.
func (s *EditorService) ListRedoable(limit int) ([]*ChangeRecord, error) {
	return s.ledger.ListRedoable(limit)
}

// CleanupHistory truncates the ledger to the most recent keepCount records.
func (s *EditorService) CleanupHistory(keepCount int) (int, error) {
	deleted, err := s.ledger.Cleanup(keepCount)
	if err != nil {
		return 0, errclass.ErrFatal.WithMessagef("pruning ledger: %v", err)
	}
	if deleted > 0 {
		s.logger.Info("ledger pruned", "deleted", deleted, "kept", keepCount)
	}
	return deleted, nil
}

// CleanupBackups deletes backups older than the given age whose names match
// the glob pattern.
func (s *EditorService) CleanupBackups(dir string, maxAge time.Duration, pattern string) (CleanupStats, error) {
	stats, err := s.backups.Cleanup(dir, maxAge, pattern)
	if err != nil {
		return CleanupStats{}, fmt.Errorf("cleaning up backups: %w", err)
	}
	if stats.DeletedCount > 0 {
		s.logger.Info("backups cleaned up", "deleted", stats.DeletedCount, "bytes", stats.TotalBytes)
	}
	return stats, nil
}
