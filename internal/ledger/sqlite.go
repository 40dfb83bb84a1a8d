package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ged-go/internal/editor"
	"ged-go/internal/ledger/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteLedger implements the editor.Ledger interface using SQLite.
// Change records live in the changes table; content snapshots are kept in
// their own table because records are small and frequently scanned while
// snapshots are large and only fetched for undo/redo.
type SQLiteLedger struct {
	db   *sql.DB
	path string
}

var _ editor.Ledger = (*SQLiteLedger)(nil)

// NewSQLiteLedger opens (and migrates) a ledger at path.
// path can be a file path or ":memory:" for an in-memory ledger.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger: %w", err)
	}

	return &SQLiteLedger{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a raw configured handle.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	// Foreign keys are required for snapshot cascade on cleanup; SQLite
	// default is OFF for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

const changeColumns = "id, file_path, operation, kind, created_at, backup_id, metadata, origin_id, undone_by, redone_by, undone"

func scanChange(row interface{ Scan(...any) error }) (*editor.ChangeRecord, error) {
	var rec editor.ChangeRecord
	var kind string
	var createdAt int64
	var undone int
	err := row.Scan(&rec.ID, &rec.FilePath, &rec.OperationLabel, &kind, &createdAt,
		&rec.BackupID, &rec.Metadata, &rec.OriginID, &rec.UndoneBy, &rec.RedoneBy, &undone)
	if err != nil {
		return nil, err
	}
	rec.Kind = editor.ChangeKind(kind)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.Undone = undone != 0
	return &rec, nil
}

// TrackChange appends a change record and its snapshot in one transaction.
func (l *SQLiteLedger) TrackChange(rec *editor.ChangeRecord, snap *editor.ContentSnapshot) error {
	ctx := context.Background()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	undone := 0
	if rec.Undone {
		undone = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO changes (`+changeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FilePath, rec.OperationLabel, string(rec.Kind), rec.CreatedAt.UnixNano(),
		rec.BackupID, rec.Metadata, rec.OriginID, rec.UndoneBy, rec.RedoneBy, undone)
	if err != nil {
		return fmt.Errorf("inserting change record: %w", err)
	}

	if snap != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshots (change_id, original_content, modified_content) VALUES (?, ?, ?)`,
			snap.ChangeID, []byte(snap.OriginalContent), []byte(snap.ModifiedContent))
		if err != nil {
			return fmt.Errorf("inserting content snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing change: %w", err)
	}
	return nil
}

// GetChange returns a change record by ID, or nil if unknown.
func (l *SQLiteLedger) GetChange(changeID string) (*editor.ChangeRecord, error) {
	row := l.db.QueryRow(`SELECT `+changeColumns+` FROM changes WHERE id = ?`, changeID)
	rec, err := scanChange(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading change %s: %w", changeID, err)
	}
	return rec, nil
}

// GetSnapshot returns the content snapshot for a change, or nil if missing.
func (l *SQLiteLedger) GetSnapshot(changeID string) (*editor.ContentSnapshot, error) {
	var original, modified []byte
	err := l.db.QueryRow(
		`SELECT original_content, modified_content FROM snapshots WHERE change_id = ?`,
		changeID).Scan(&original, &modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading snapshot for %s: %w", changeID, err)
	}
	return &editor.ContentSnapshot{
		ChangeID:        changeID,
		OriginalContent: string(original),
		ModifiedContent: string(modified),
	}, nil
}

// MarkUndone flips a change into the undone state and links the undo record.
func (l *SQLiteLedger) MarkUndone(changeID, undoChangeID string) error {
	return l.toggle(changeID, "UPDATE changes SET undone = 1, undone_by = ? WHERE id = ?", undoChangeID)
}

// MarkRedone flips a change back into the applied state and links the redo
// record.
func (l *SQLiteLedger) MarkRedone(changeID, redoChangeID string) error {
	return l.toggle(changeID, "UPDATE changes SET undone = 0, redone_by = ? WHERE id = ?", redoChangeID)
}

func (l *SQLiteLedger) toggle(changeID, query, linkID string) error {
	res, err := l.db.Exec(query, linkID, changeID)
	if err != nil {
		return fmt.Errorf("updating change %s: %w", changeID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of change %s: %w", changeID, err)
	}
	if affected == 0 {
		return fmt.Errorf("change not found: %s", changeID)
	}
	return nil
}

// ListChanges returns records most-recent-first, optionally filtered by
// file path. limit <= 0 means no limit.
func (l *SQLiteLedger) ListChanges(filePath string, limit int) ([]*editor.ChangeRecord, error) {
	query := `SELECT ` + changeColumns + ` FROM changes`
	var args []any
	if filePath != "" {
		query += ` WHERE file_path = ?`
		args = append(args, filePath)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return l.queryChanges(query, args...)
}

// ListUndoable returns edit records whose last toggle (if any) was a redo.
// limit <= 0 means no limit.
func (l *SQLiteLedger) ListUndoable(limit int) ([]*editor.ChangeRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT is unlimited
	}
	return l.queryChanges(
		`SELECT `+changeColumns+` FROM changes
		 WHERE kind = 'edit' AND undone = 0
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// ListRedoable returns edit records currently in the undone state.
// limit <= 0 means no limit.
func (l *SQLiteLedger) ListRedoable(limit int) ([]*editor.ChangeRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return l.queryChanges(
		`SELECT `+changeColumns+` FROM changes
		 WHERE kind = 'edit' AND undone = 1
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

func (l *SQLiteLedger) queryChanges(query string, args ...any) ([]*editor.ChangeRecord, error) {
	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing changes: %w", err)
	}
	defer rows.Close()

	var out []*editor.ChangeRecord
	for rows.Next() {
		rec, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning change record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change records: %w", err)
	}
	return out, nil
}

// Cleanup truncates the ledger to the most recent keepCount records.
// Snapshots of discarded records are removed by the cascade.
func (l *SQLiteLedger) Cleanup(keepCount int) (int, error) {
	if keepCount < 0 {
		keepCount = 0
	}
	res, err := l.db.Exec(
		`DELETE FROM changes WHERE id NOT IN (
			SELECT id FROM changes ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keepCount)
	if err != nil {
		return 0, fmt.Errorf("pruning ledger: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned records: %w", err)
	}
	return int(deleted), nil
}

// CheckMigrations verifies the schema is current without migrating.
func (l *SQLiteLedger) CheckMigrations() error {
	return migrations.CheckStatus(l.db)
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
