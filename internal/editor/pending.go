package editor

// PendingStore holds staged edits keyed by approval token until they are
// approved, cancelled, or expired. Implementations must be safe for
// concurrent staging and approval from independent edit flows.
//
// The store is allowed to be in-memory only: staged-but-unapproved edits
// simply expire if the process restarts.
type PendingStore interface {
	// Put stores a pending edit and stamps its CreatedAt/ExpiresAt.
	Put(edit *PendingEdit) error

	// Take atomically removes and returns the pending edit for a token.
	// Returns errclass.ErrNotFound for an unknown token and
	// errclass.ErrExpired for one past its TTL (the entry is reaped either
	// way). Consumption is atomic: no token is ever taken twice.
	Take(approvalToken string) (*PendingEdit, error)

	// Cancel removes a pending edit regardless of expiry and reports
	// whether one was found.
	Cancel(approvalToken string) bool

	// List returns a snapshot of current entries sorted by creation time.
	// Already-expired entries are swept on read and never returned.
	List() []*PendingEdit

	// Close stops any background sweeping and drains the store.
	Close()
}
