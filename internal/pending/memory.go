package pending

import (
	"sort"
	"sync"
	"time"

	"ged-go/internal/editor"
	"ged-go/internal/errclass"
)

// MemoryStore is an in-memory implementation of editor.PendingStore: a
// mutex-guarded table keyed by approval token with TTL expiry. Entries are
// swept lazily on every lookup and periodically by a background sweeper.
//
// Pending edits are deliberately not persisted: a staged-but-unapproved
// edit lost to a restart simply expires from the caller's point of view.
type MemoryStore struct {
	mu    sync.Mutex
	edits map[string]*editor.PendingEdit
	ttl   time.Duration
	clock editor.Clock

	stopOnce sync.Once
	stop     chan struct{}
}

var _ editor.PendingStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. ttl <= 0 falls back to
// editor.DefaultPendingTTL.
func NewMemoryStore(ttl time.Duration, clock editor.Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = editor.DefaultPendingTTL
	}
	return &MemoryStore{
		edits: make(map[string]*editor.PendingEdit),
		ttl:   ttl,
		clock: clock,
		stop:  make(chan struct{}),
	}
}

// StartSweeper launches a background goroutine that reaps expired entries
// every interval until Close is called.
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Put stores a pending edit and stamps its CreatedAt/ExpiresAt.
func (s *MemoryStore) Put(edit *editor.PendingEdit) error {
	now := s.clock.Now()
	edit.CreatedAt = now
	edit.ExpiresAt = now.Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits[edit.ApprovalToken] = edit
	return nil
}

// Take atomically removes and returns the pending edit for a token.
// An expired entry is reaped and reported as ErrExpired; it can never be
// revived.
func (s *MemoryStore) Take(approvalToken string) (*editor.PendingEdit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	edit, ok := s.edits[approvalToken]
	if !ok {
		return nil, errclass.ErrNotFound.WithMessagef("no pending edit for token %s", approvalToken)
	}
	delete(s.edits, approvalToken)
	if s.clock.Now().After(edit.ExpiresAt) {
		return nil, errclass.ErrExpired.WithMessagef("pending edit expired at %s", edit.ExpiresAt.Format(time.RFC3339))
	}
	return edit, nil
}

// Cancel removes a pending edit regardless of expiry.
func (s *MemoryStore) Cancel(approvalToken string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.edits[approvalToken]
	delete(s.edits, approvalToken)
	return ok
}

// List returns the live entries sorted by creation time, sweeping expired
// ones as a side effect.
func (s *MemoryStore) List() []*editor.PendingEdit {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*editor.PendingEdit, 0, len(s.edits))
	for token, edit := range s.edits {
		if now.After(edit.ExpiresAt) {
			delete(s.edits, token)
			continue
		}
		out = append(out, edit)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Sweep reaps expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, edit := range s.edits {
		if now.After(edit.ExpiresAt) {
			delete(s.edits, token)
			removed++
		}
	}
	return removed
}

// Close stops the sweeper and drains the store.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = make(map[string]*editor.PendingEdit)
}
