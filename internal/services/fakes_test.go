package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartattend/attendance-service/internal/models"
	"github.com/smartattend/attendance-service/internal/utils"
)

// In-memory repository doubles used across the service tests.

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.AttendanceSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*models.AttendanceSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *models.AttendanceSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.RowVersion = 1
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) FindActiveBySSID(ctx context.Context, ssid string) (*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.SSID == ssid && s.Status == models.SessionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindActiveByFaculty(ctx context.Context, facultyID uuid.UUID) (*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.FacultyID == facultyID && s.Status == models.SessionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) ListByFaculty(ctx context.Context, facultyID uuid.UUID, limit int) ([]*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AttendanceSession
	for _, s := range r.sessions {
		if s.FacultyID == facultyID {
			cp := *s
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) ListActiveOpenedBefore(ctx context.Context, cutoff time.Time) ([]*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AttendanceSession
	for _, s := range r.sessions {
		if s.Status == models.SessionStatusActive && s.OpenedAt != nil && s.OpenedAt.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) ActivateAtomic(
	ctx context.Context,
	sessionID uuid.UUID,
	expectedVersion int64,
	lat, lng, radius float64,
	timeZone string,
	openedAt, lateAfter time.Time,
) (*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.RowVersion != expectedVersion || s.Status != models.SessionStatusPending {
		return nil, utils.ErrNoRowsUpdated
	}
	s.Status = models.SessionStatusActive
	s.Latitude = lat
	s.Longitude = lng
	s.RadiusMeters = radius
	s.TimeZone = timeZone
	s.OpenedAt = &openedAt
	s.LateAfter = &lateAfter
	s.RowVersion++
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) CloseAtomic(ctx context.Context, sessionID uuid.UUID, expectedVersion int64, closedAt time.Time) (*models.AttendanceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.RowVersion != expectedVersion || s.Status != models.SessionStatusActive {
		return nil, utils.ErrNoRowsUpdated
	}
	s.Status = models.SessionStatusClosed
	s.ClosedAt = &closedAt
	s.RowVersion++
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

type recordKey struct {
	sessionID  uuid.UUID
	claimantID uuid.UUID
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[recordKey]*models.AttendanceRecord
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[recordKey]*models.AttendanceRecord)}
}

func (r *fakeRecordRepo) CreateIfNotExists(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey{rec.SessionID, rec.ClaimantID}
	if _, exists := r.records[key]; exists {
		return false, nil
	}
	cp := *rec
	cp.CreatedAt = time.Now()
	r.records[key] = &cp
	return true, nil
}

func (r *fakeRecordRepo) GetBySessionAndClaimant(ctx context.Context, sessionID, claimantID uuid.UUID) (*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordKey{sessionID, claimantID}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRecordRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AttendanceRecord
	for key, rec := range r.records {
		if key.sessionID == sessionID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) CountBySessionAndStatus(ctx context.Context, sessionID uuid.UUID, status models.AttendanceStatusType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, rec := range r.records {
		if key.sessionID == sessionID && rec.Status == status {
			n++
		}
	}
	return n, nil
}

// stubMatcher returns a fixed confidence or a fixed error.
type stubMatcher struct {
	confidence float64
	err        error
	calls      int
	mu         sync.Mutex
}

func (m *stubMatcher) Match(ctx context.Context, claimantID uuid.UUID, image []byte) (*MatchResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &MatchResult{Confidence: m.confidence}, nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	committed []uuid.UUID
	closed    []uuid.UUID
	present   int
	late      int
}

func (n *recordingNotifier) RecordCommitted(sessionID, claimantID uuid.UUID, status models.AttendanceStatusType) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.committed = append(n.committed, claimantID)
}

func (n *recordingNotifier) SessionClosed(session *models.AttendanceSession, present, late int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, session.ID)
	n.present = present
	n.late = late
}
