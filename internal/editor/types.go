package editor

import (
	"time"

	"ged-go/internal/textedit"
)

// Confirmation is the literal a caller must supply to ApproveEdit.
// Requiring it alongside the approval token is a deliberate friction point
// against accidental destructive calls.
const Confirmation = "APPROVE"

// DefaultPendingTTL is how long a staged edit stays approvable.
const DefaultPendingTTL = 5 * time.Minute

// PendingEdit is a staged, previewed, not-yet-applied mutation.
// It is immutable after creation: approve consumes it, cancel removes it,
// and expiry reaps it, but nothing ever modifies it in place.
type PendingEdit struct {
	ApprovalToken string
	FilePath      string
	Operation     textedit.Operation
	// OperationLabel is Operation.Label(), captured at stage time so
	// listings never need to re-evaluate the operation.
	OperationLabel string
	// BaseVersionToken is the file's token recomputed from the very bytes
	// the staged mutation was applied to. Approve re-validates against it.
	BaseVersionToken string
	// PreviewContent is the complete post-edit file content. A successful
	// approve writes exactly these bytes.
	PreviewContent string
	LinesAffected  int
	CreateBackup   bool
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// EditResult reports a successfully applied edit. Failures are reported as
// errors, never as a partially populated result.
type EditResult struct {
	FilePath        string
	OperationLabel  string
	LinesAffected   int
	NewVersionToken string
	ChangeID        string
	// BackupID is the backup written before the edit, empty if none.
	BackupID string
}

// ChangeKind distinguishes original edits from the records appended by
// undo and redo toggles.
type ChangeKind string

const (
	ChangeKindEdit ChangeKind = "edit"
	ChangeKindUndo ChangeKind = "undo"
	ChangeKindRedo ChangeKind = "redo"
)

// ChangeRecord is one entry in the append-only change ledger.
// Records are immutable once written except for the UndoneBy/RedoneBy link
// columns and the derived Undone flag, which track the toggle chain.
type ChangeRecord struct {
	ID             string
	FilePath       string
	OperationLabel string
	Kind           ChangeKind
	CreatedAt      time.Time
	BackupID       string
	Metadata       string
	// OriginID links an undo/redo record to the edit it toggles.
	OriginID string
	// UndoneBy / RedoneBy reference the most recent toggle records.
	UndoneBy string
	RedoneBy string
	// Undone reports the current state of the toggle chain: true means the
	// file currently reflects the original content of this change.
	Undone bool
}

// ContentSnapshot holds the before/after payload for a change. Snapshots
// are stored separately from change records: records are small and
// frequently scanned, snapshots are large and fetched only for undo/redo.
type ContentSnapshot struct {
	ChangeID        string
	OriginalContent string
	ModifiedContent string
}

// HistoryResult reports a successful undo or redo.
type HistoryResult struct {
	ChangeID        string
	FilePath        string
	RestoredPreview string
	NewVersionToken string
}

// CleanupStats reports what a backup cleanup removed.
type CleanupStats struct {
	DeletedCount int
	TotalBytes   int64
}
