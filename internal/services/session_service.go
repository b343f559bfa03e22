package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/latlong"
	"github.com/google/uuid"

	"github.com/smartattend/attendance-service/internal/constants"
	"github.com/smartattend/attendance-service/internal/dtos"
	"github.com/smartattend/attendance-service/internal/models"
	"github.com/smartattend/attendance-service/internal/repositories"
	"github.com/smartattend/attendance-service/internal/utils"
)

/*
SessionService owns the faculty-facing session lifecycle: create a
pending hotspot session, activate it with the geofence anchor, close it
with a claim summary, and the maintenance sweep that force-closes
sessions left open too long.
*/
type SessionService struct {
	sessionRepo   repositories.SessionRepository
	recordRepo    repositories.AttendanceRecordRepository
	notifier      Notifier
	defaultRadius float64
	latenessGrace time.Duration
}

func NewSessionService(
	sessionRepo repositories.SessionRepository,
	recordRepo repositories.AttendanceRecordRepository,
	notifier Notifier,
	defaultRadius float64,
	latenessGrace time.Duration,
) *SessionService {
	return &SessionService{
		sessionRepo:   sessionRepo,
		recordRepo:    recordRepo,
		notifier:      notifier,
		defaultRadius: defaultRadius,
		latenessGrace: latenessGrace,
	}
}

func (s *SessionService) CreateSession(
	ctx context.Context,
	facultyID string,
	req dtos.CreateSessionRequest,
) (*dtos.SessionDTO, error) {
	fUUID, parseErr := uuid.Parse(facultyID)
	if parseErr != nil {
		return nil, fmt.Errorf("invalid faculty ID format: %w", parseErr)
	}

	existing, err := s.sessionRepo.FindActiveByFaculty(ctx, fUUID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrActiveSessionExists
	}

	ssid := req.SSID
	if ssid == "" {
		ssid = generateSSID(req.SubjectCode)
	}

	session := &models.AttendanceSession{
		ID:           uuid.New(),
		FacultyID:    fUUID,
		SubjectCode:  req.SubjectCode,
		SubjectName:  req.SubjectName,
		Timeslot:     req.Timeslot,
		SSID:         ssid,
		BSSID:        req.BSSID,
		AnchorIP:     req.AnchorIP,
		GatewayIP:    utils.SubnetPrefix(req.AnchorIP) + ".1",
		RadiusMeters: s.defaultRadius,
		NotifyEmail:  req.NotifyEmail,
		NotifyPhone:  req.NotifyPhone,
		Status:       models.SessionStatusPending,
	}

	if cErr := s.sessionRepo.Create(ctx, session); cErr != nil {
		return nil, cErr
	}
	return dtos.NewSessionDTO(session), nil
}

func (s *SessionService) ActivateSession(
	ctx context.Context,
	facultyID string,
	sessionID uuid.UUID,
	req dtos.ActivateSessionRequest,
) (*dtos.SessionDTO, error) {
	session, err := s.ownedSession(ctx, facultyID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusPending {
		return nil, utils.ErrWrongStatus
	}
	if !utils.ValidateCoordinates(req.Latitude, req.Longitude) {
		return nil, fmt.Errorf("lat/lng out of range")
	}

	radius := req.RadiusMeters
	if radius <= 0 {
		radius = s.defaultRadius
	}
	if radius > constants.MaxGeofenceRadiusMeters {
		return nil, fmt.Errorf("radius exceeds %d meters", constants.MaxGeofenceRadiusMeters)
	}

	now := time.Now()
	lateAfter := now.Add(s.latenessGrace)
	if req.LateAfter != nil {
		if req.LateAfter.Before(now) {
			return nil, fmt.Errorf("late_after must be in the future")
		}
		lateAfter = *req.LateAfter
	}

	tz := latlong.LookupZoneName(req.Latitude, req.Longitude)

	updated, uErr := s.sessionRepo.ActivateAtomic(
		ctx,
		session.ID,
		session.RowVersion,
		req.Latitude, req.Longitude, radius,
		tz,
		now, lateAfter,
	)
	if uErr != nil {
		return nil, uErr
	}
	utils.Logger.Infof("Session %s activated on SSID %s (radius %.0fm, tz %s)", session.ID, session.SSID, radius, tz)
	return dtos.NewSessionDTO(updated), nil
}

func (s *SessionService) CloseSession(
	ctx context.Context,
	facultyID string,
	sessionID uuid.UUID,
) (*dtos.SessionDTO, error) {
	session, err := s.ownedSession(ctx, facultyID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, utils.ErrWrongStatus
	}

	closed, cErr := s.sessionRepo.CloseAtomic(ctx, session.ID, session.RowVersion, time.Now())
	if cErr != nil {
		return nil, cErr
	}

	s.summarize(ctx, closed)
	return dtos.NewSessionDTO(closed), nil
}

// ResolveActiveBySSID answers the student's probe: which session, if any,
// is claimable on the network they see. No active session is the signal
// to wait for the instructor.
func (s *SessionService) ResolveActiveBySSID(ctx context.Context, ssid string) (*dtos.SessionDTO, error) {
	session, err := s.sessionRepo.FindActiveBySSID(ctx, ssid)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, utils.ErrNoActiveSession
	}
	return dtos.NewSessionDTO(session), nil
}

func (s *SessionService) ListSessions(ctx context.Context, facultyID string, limit int) (*dtos.SessionListResponse, error) {
	fUUID, parseErr := uuid.Parse(facultyID)
	if parseErr != nil {
		return nil, fmt.Errorf("invalid faculty ID format: %w", parseErr)
	}
	if limit <= 0 || limit > constants.SessionListDefaultLimit {
		limit = constants.SessionListDefaultLimit
	}

	sessions, err := s.sessionRepo.ListByFaculty(ctx, fUUID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*dtos.SessionDTO, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, dtos.NewSessionDTO(sess))
	}
	return &dtos.SessionListResponse{Count: len(out), Sessions: out}, nil
}

func (s *SessionService) ListSessionRecords(ctx context.Context, facultyID string, sessionID uuid.UUID) (*dtos.SessionRecordsResponse, error) {
	session, err := s.ownedSession(ctx, facultyID, sessionID)
	if err != nil {
		return nil, err
	}

	records, rErr := s.recordRepo.ListBySession(ctx, session.ID)
	if rErr != nil {
		return nil, rErr
	}
	out := make([]*dtos.AttendanceRecordDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, dtos.NewAttendanceRecordDTO(rec))
	}
	return &dtos.SessionRecordsResponse{SessionID: session.ID, Count: len(out), Records: out}, nil
}

// RunCloseMaintenance force-closes sessions left ACTIVE beyond the
// configured window. Invoked from the cron schedule.
func (s *SessionService) RunCloseMaintenance(ctx context.Context, maxDuration time.Duration) error {
	cutoff := time.Now().Add(-maxDuration)
	stale, err := s.sessionRepo.ListActiveOpenedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, session := range stale {
		closed, cErr := s.sessionRepo.CloseAtomic(ctx, session.ID, session.RowVersion, time.Now())
		if cErr != nil {
			// Someone else closed it first; nothing to do.
			utils.Logger.WithError(cErr).Warnf("Maintenance close of session %s skipped", session.ID)
			continue
		}
		utils.Logger.Infof("Maintenance closed session %s (open since %v)", session.ID, session.OpenedAt)
		s.summarize(ctx, closed)
	}
	return nil
}

func (s *SessionService) ownedSession(ctx context.Context, facultyID string, sessionID uuid.UUID) (*models.AttendanceSession, error) {
	fUUID, parseErr := uuid.Parse(facultyID)
	if parseErr != nil {
		return nil, fmt.Errorf("invalid faculty ID format: %w", parseErr)
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, utils.ErrSessionNotFound
	}
	if session.FacultyID != fUUID {
		return nil, utils.ErrNotSessionOwner
	}
	return session, nil
}

func (s *SessionService) summarize(ctx context.Context, session *models.AttendanceSession) {
	present, pErr := s.recordRepo.CountBySessionAndStatus(ctx, session.ID, models.AttendanceStatusPresent)
	if pErr != nil {
		utils.Logger.WithError(pErr).Warnf("Count present failed for session %s", session.ID)
	}
	late, lErr := s.recordRepo.CountBySessionAndStatus(ctx, session.ID, models.AttendanceStatusLate)
	if lErr != nil {
		utils.Logger.WithError(lErr).Warnf("Count late failed for session %s", session.ID)
	}
	if s.notifier != nil {
		s.notifier.SessionClosed(session, present, late)
	}
}

// generateSSID builds the broadcast name when the faculty member does not
// supply one: ATTEND_<subject>_<base36 timestamp>, same shape the
// dashboard suggests for the hotspot.
func generateSSID(subjectCode string) string {
	code := strings.ToUpper(strings.ReplaceAll(subjectCode, " ", ""))
	if len(code) > 10 {
		code = code[:10]
	}
	return fmt.Sprintf("ATTEND_%s_%s", code, strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36)))
}
