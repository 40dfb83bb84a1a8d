package editor

// Ledger provides an interface for durable change tracking.
// Every applied edit feeds into it; undo and redo read snapshots back out
// and append toggle records. Implementations must be safe for concurrent
// use from independent edit flows.
type Ledger interface {
	// TrackChange appends a change record and, when snap is non-nil, its
	// content snapshot, atomically. A failure here is fatal for the store
	// and is never retried.
	TrackChange(rec *ChangeRecord, snap *ContentSnapshot) error

	// GetChange returns a change record by ID, or nil if unknown.
	GetChange(changeID string) (*ChangeRecord, error)

	// GetSnapshot returns the content snapshot for a change, or nil if the
	// snapshot is missing (pruned or never stored).
	GetSnapshot(changeID string) (*ContentSnapshot, error)

	// MarkUndone links an undo record to its origin and flips the origin
	// into the undone state.
	MarkUndone(changeID, undoChangeID string) error

	// MarkRedone links a redo record to its origin and flips the origin
	// back into the applied state.
	MarkRedone(changeID, redoChangeID string) error

	// ListChanges returns records most-recent-first, optionally filtered
	// by file path. limit <= 0 means no limit.
	ListChanges(filePath string, limit int) ([]*ChangeRecord, error)

	// ListUndoable returns edit records currently eligible for undo,
	// most-recent-first, at most limit entries.
	ListUndoable(limit int) ([]*ChangeRecord, error)

	// ListRedoable returns edit records currently eligible for redo,
	// most-recent-first, at most limit entries.
	ListRedoable(limit int) ([]*ChangeRecord, error)

	// Cleanup truncates the ledger to the most recent keepCount records,
	// discarding orphaned snapshots with them. Returns how many records
	// were deleted.
	Cleanup(keepCount int) (int, error)

	// Close closes the underlying store.
	Close() error
}
