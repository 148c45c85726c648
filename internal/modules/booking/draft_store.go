package booking

import (
	"sync"
	"time"

	"taxi-booking/internal/models"

	"github.com/google/uuid"
)

// draftStore keeps booking drafts in memory. Expired drafts are swept on
// access.
type draftStore struct {
	mu     sync.RWMutex
	drafts map[string]*draftEntry
	ttl    time.Duration
	now    func() time.Time
}

type draftEntry struct {
	draft *models.BookingDraft
	// latest search sequence per endpoint
	seq map[string]uint64
	// submitting guards against two concurrent submits of one draft
	submitting bool
}

func newDraftStore(ttl time.Duration) *draftStore {
	return &draftStore{
		drafts: make(map[string]*draftEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *draftStore) create() *models.BookingDraft {
	now := s.now()
	d := &models.BookingDraft{
		ID:        uuid.New().String(),
		Step:      models.BookingStepAddresses,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.drafts[d.ID] = &draftEntry{draft: d, seq: map[string]uint64{}}
	return d.Clone()
}

func (s *draftStore) get(id string) (*models.BookingDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.drafts[id]
	if !ok || s.now().After(e.draft.ExpiresAt) {
		return nil, models.ErrNotFound
	}
	return e.draft.Clone(), nil
}

// update runs fn on the live draft under the write lock and returns a copy
// of the result. fn's error aborts without touching the draft's expiry.
func (s *draftStore) update(id string, fn func(e *draftEntry) error) (*models.BookingDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.drafts[id]
	if !ok || now.After(e.draft.ExpiresAt) {
		delete(s.drafts, id)
		return nil, models.ErrNotFound
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	e.draft.ExpiresAt = now.Add(s.ttl)
	return e.draft.Clone(), nil
}

func (s *draftStore) sweepLocked(now time.Time) {
	for id, e := range s.drafts {
		if now.After(e.draft.ExpiresAt) {
			delete(s.drafts, id)
		}
	}
}

func (s *draftStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}
