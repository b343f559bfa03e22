package repositories

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartattend/attendance-service/internal/models"
	"github.com/smartattend/attendance-service/internal/utils"
)

/*
AttemptStore holds in-flight verification attempts. Attempts are
deliberately not persisted: they are disposable, re-creatable from a fresh
start call, and expire after the idle TTL. Expiry happens lazily on lookup
plus a periodic sweep that bounds memory.

Mutations run under the store lock via Mutate; callers must not perform
network I/O inside the mutate callback.
*/
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*models.VerificationAttempt
	ttl      time.Duration
}

func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		attempts: make(map[uuid.UUID]*models.VerificationAttempt),
		ttl:      ttl,
	}
}

// Put stores a fresh attempt and returns a caller-owned copy.
func (s *AttemptStore) Put(a *models.VerificationAttempt) *models.VerificationAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.ID] = a.Clone()
	return a.Clone()
}

// Get returns a copy of the attempt, lazily expiring it when abandoned.
func (s *AttemptStore) Get(id uuid.UUID) (*models.VerificationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, utils.ErrAttemptNotFound
	}
	if s.expired(a, time.Now()) {
		delete(s.attempts, id)
		return nil, utils.ErrAttemptNotFound
	}
	return a.Clone(), nil
}

// Mutate applies fn to the stored attempt under the store lock, bumps the
// last-touched timestamp on success, and returns a copy of the result. A
// non-nil error from fn leaves the attempt untouched.
func (s *AttemptStore) Mutate(id uuid.UUID, fn func(*models.VerificationAttempt) error) (*models.VerificationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, utils.ErrAttemptNotFound
	}
	now := time.Now()
	if s.expired(a, now) {
		delete(s.attempts, id)
		return nil, utils.ErrAttemptNotFound
	}

	scratch := a.Clone()
	if err := fn(scratch); err != nil {
		return nil, err
	}
	scratch.LastTouched = now
	s.attempts[id] = scratch
	return scratch.Clone(), nil
}

// Delete releases the attempt without side effects.
func (s *AttemptStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, id)
}

// Sweep drops every expired attempt and returns how many were removed.
func (s *AttemptStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, a := range s.attempts {
		if s.expired(a, now) {
			delete(s.attempts, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live attempts (expired ones included until
// swept); used by tests and the sweep log line.
func (s *AttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

func (s *AttemptStore) expired(a *models.VerificationAttempt, now time.Time) bool {
	// Terminal attempts stay readable until the TTL runs out so the client
	// can still fetch the final snapshot.
	return now.Sub(a.LastTouched) > s.ttl
}
