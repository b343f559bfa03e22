package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartattend/attendance-service/internal/dtos"
	"github.com/smartattend/attendance-service/internal/models"
	"github.com/smartattend/attendance-service/internal/repositories"
	"github.com/smartattend/attendance-service/internal/utils"
)

/*
VerificationService is the step-ordered orchestrator. Each attempt moves
network → location → face → commit; a passing step auto-advances, a
failing step leaves the state unchanged so the claimant can retry, and
out-of-order submissions are rejected rather than reordered.

Each call is one short-lived request. The only server-side network hop
(the face matcher) happens outside the attempt-store lock; the final
insert relies on the storage uniqueness constraint to serialize racing
commits.
*/
type VerificationService struct {
	sessionRepo repositories.SessionRepository
	recordRepo  repositories.AttendanceRecordRepository
	attempts    *repositories.AttemptStore
	faceService *FaceService
	notifier    Notifier
}

func NewVerificationService(
	sessionRepo repositories.SessionRepository,
	recordRepo repositories.AttendanceRecordRepository,
	attempts *repositories.AttemptStore,
	faceService *FaceService,
	notifier Notifier,
) *VerificationService {
	return &VerificationService{
		sessionRepo: sessionRepo,
		recordRepo:  recordRepo,
		attempts:    attempts,
		faceService: faceService,
		notifier:    notifier,
	}
}

func (s *VerificationService) Start(ctx context.Context, claimantID string, sessionID uuid.UUID) (*dtos.AttemptDTO, error) {
	cUUID, parseErr := uuid.Parse(claimantID)
	if parseErr != nil {
		return nil, fmt.Errorf("invalid claimant ID format: %w", parseErr)
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.IsActive() {
		return nil, utils.ErrNoActiveSession
	}

	existing, rErr := s.recordRepo.GetBySessionAndClaimant(ctx, session.ID, cUUID)
	if rErr != nil {
		return nil, rErr
	}
	if existing != nil {
		return nil, utils.ErrAttemptAlreadyCommitted
	}

	now := time.Now()
	attempt := &models.VerificationAttempt{
		ID:          uuid.New(),
		SessionID:   session.ID,
		ClaimantID:  cUUID,
		State:       models.AttemptStateNetworkPending,
		StartedAt:   now,
		LastTouched: now,
	}
	stored := s.attempts.Put(attempt)
	return dtos.NewAttemptDTO(stored), nil
}

func (s *VerificationService) SubmitNetwork(ctx context.Context, claimantID string, req dtos.NetworkEvidenceRequest) (*dtos.AttemptDTO, error) {
	attempt, err := s.ownedAttempt(claimantID, req.AttemptID)
	if err != nil {
		return nil, err
	}
	if stErr := stateGate(attempt.State, models.AttemptStateNetworkPending); stErr != nil {
		return nil, stErr
	}

	session, sErr := s.activeSession(ctx, attempt.SessionID)
	if sErr != nil {
		return nil, sErr
	}

	updated, mErr := s.attempts.Mutate(attempt.ID, func(a *models.VerificationAttempt) error {
		if gErr := stateGate(a.State, models.AttemptStateNetworkPending); gErr != nil {
			return gErr
		}
		// SSID is an exact, case-sensitive match; the subnet rule is the
		// first-three-octet convention the gateway derivation uses. Both
		// values are claimed by the device, not proven; this check is a
		// soft signal and is documented as such.
		if req.SSID != session.SSID {
			return utils.ErrNetworkMismatch
		}
		if !utils.SameSubnet(req.IPAddress, session.AnchorIP) {
			return utils.ErrSubnetMismatch
		}

		a.Network = &models.NetworkEvidence{
			Verified:     true,
			ObservedIP:   req.IPAddress,
			ObservedSSID: req.SSID,
			ObservedMAC:  req.MACAddress,
			Timestamp:    time.Now(),
		}
		a.State = models.AttemptStateLocationPending
		return nil
	})
	if mErr != nil {
		return nil, mErr
	}
	return dtos.NewAttemptDTO(updated), nil
}

func (s *VerificationService) SubmitLocation(ctx context.Context, claimantID string, req dtos.LocationEvidenceRequest) (*dtos.AttemptDTO, error) {
	attempt, err := s.ownedAttempt(claimantID, req.AttemptID)
	if err != nil {
		return nil, err
	}
	if stErr := stateGate(attempt.State, models.AttemptStateLocationPending); stErr != nil {
		return nil, stErr
	}

	if req.Available == nil || !*req.Available {
		return nil, utils.ErrLocationUnavailable
	}
	if !utils.ValidateCoordinates(req.Latitude, req.Longitude) {
		return nil, fmt.Errorf("lat/lng out of range")
	}

	session, sErr := s.activeSession(ctx, attempt.SessionID)
	if sErr != nil {
		return nil, sErr
	}

	updated, mErr := s.attempts.Mutate(attempt.ID, func(a *models.VerificationAttempt) error {
		if gErr := stateGate(a.State, models.AttemptStateLocationPending); gErr != nil {
			return gErr
		}

		distance := utils.RoundMeters(utils.DistanceMeters(
			req.Latitude, req.Longitude,
			session.Latitude, session.Longitude,
		))
		// The boundary is inclusive: standing exactly at the radius passes.
		if distance > session.RadiusMeters {
			return utils.NewOutsideGeofenceError(distance, session.RadiusMeters)
		}

		a.Location = &models.LocationEvidence{
			Verified:       true,
			Latitude:       req.Latitude,
			Longitude:      req.Longitude,
			AccuracyMeters: req.AccuracyMeters,
			DistanceMeters: distance,
			Timestamp:      time.Now(),
		}
		a.State = models.AttemptStateFacePending
		return nil
	})
	if mErr != nil {
		return nil, mErr
	}
	return dtos.NewAttemptDTO(updated), nil
}

func (s *VerificationService) SubmitFace(ctx context.Context, claimantID string, attemptID uuid.UUID, image []byte) (*dtos.AttemptDTO, error) {
	attempt, err := s.ownedAttempt(claimantID, attemptID)
	if err != nil {
		return nil, err
	}
	if stErr := stateGate(attempt.State, models.AttemptStateFacePending); stErr != nil {
		return nil, stErr
	}

	// The matcher round trip happens before taking the store lock; the
	// state is re-checked when the verdict is applied.
	verified, confidence, vErr := s.faceService.Verify(ctx, attempt.ClaimantID, image)
	if vErr != nil {
		return nil, vErr
	}
	if !verified {
		return nil, &utils.FaceNotVerifiedError{Confidence: confidence}
	}

	updated, mErr := s.attempts.Mutate(attemptID, func(a *models.VerificationAttempt) error {
		if gErr := stateGate(a.State, models.AttemptStateFacePending); gErr != nil {
			return gErr
		}
		a.Face = &models.FaceEvidence{
			Verified:   true,
			Confidence: confidence,
			Timestamp:  time.Now(),
		}
		a.State = models.AttemptStateFaceVerified
		return nil
	})
	if mErr != nil {
		return nil, mErr
	}
	return dtos.NewAttemptDTO(updated), nil
}

func (s *VerificationService) Commit(ctx context.Context, claimantID string, attemptID uuid.UUID) (*dtos.AttendanceRecordDTO, error) {
	attempt, err := s.ownedAttempt(claimantID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.State == models.AttemptStateCommitted {
		return nil, utils.ErrDuplicateAttendance
	}
	if attempt.State != models.AttemptStateFaceVerified {
		return nil, utils.ErrInvalidStateTransition
	}

	session, sErr := s.activeSession(ctx, attempt.SessionID)
	if sErr != nil {
		return nil, sErr
	}

	now := time.Now()
	status := models.AttendanceStatusPresent
	if session.LateAfter != nil && now.After(*session.LateAfter) {
		status = models.AttendanceStatusLate
	}

	rec := &models.AttendanceRecord{
		ID:          uuid.New(),
		SessionID:   attempt.SessionID,
		ClaimantID:  attempt.ClaimantID,
		Status:      status,
		CommittedAt: now,
	}
	if attempt.Network != nil {
		rec.NetworkIP = attempt.Network.ObservedIP
		rec.NetworkSSID = attempt.Network.ObservedSSID
		rec.NetworkMAC = attempt.Network.ObservedMAC
	}
	if attempt.Location != nil {
		rec.DistanceMeters = attempt.Location.DistanceMeters
	}
	if attempt.Face != nil {
		rec.FaceConfidence = attempt.Face.Confidence
	}

	inserted, iErr := s.recordRepo.CreateIfNotExists(ctx, rec)
	if iErr != nil {
		return nil, iErr
	}
	if !inserted {
		// A concurrent commit for this (session, claimant) won the race.
		return nil, utils.ErrDuplicateAttendance
	}

	if _, mErr := s.attempts.Mutate(attemptID, func(a *models.VerificationAttempt) error {
		a.State = models.AttemptStateCommitted
		return nil
	}); mErr != nil {
		// The record is durable; a lost attempt snapshot is harmless.
		utils.Logger.WithError(mErr).Warnf("Could not finalize attempt %s after commit", attemptID)
	}

	if s.notifier != nil {
		s.notifier.RecordCommitted(rec.SessionID, rec.ClaimantID, rec.Status)
	}
	return dtos.NewAttendanceRecordDTO(rec), nil
}

func (s *VerificationService) Cancel(ctx context.Context, claimantID string, attemptID uuid.UUID) error {
	attempt, err := s.ownedAttempt(claimantID, attemptID)
	if err != nil {
		return err
	}
	if attempt.State.IsTerminal() {
		return utils.ErrInvalidStateTransition
	}

	_, mErr := s.attempts.Mutate(attemptID, func(a *models.VerificationAttempt) error {
		if a.State.IsTerminal() {
			return utils.ErrInvalidStateTransition
		}
		a.State = models.AttemptStateCancelled
		return nil
	})
	return mErr
}

func (s *VerificationService) GetAttempt(ctx context.Context, claimantID string, attemptID uuid.UUID) (*dtos.AttemptDTO, error) {
	attempt, err := s.ownedAttempt(claimantID, attemptID)
	if err != nil {
		return nil, err
	}
	return dtos.NewAttemptDTO(attempt), nil
}

// ownedAttempt resolves the attempt and hides other claimants' attempts
// behind not-found.
func (s *VerificationService) ownedAttempt(claimantID string, attemptID uuid.UUID) (*models.VerificationAttempt, error) {
	cUUID, parseErr := uuid.Parse(claimantID)
	if parseErr != nil {
		return nil, fmt.Errorf("invalid claimant ID format: %w", parseErr)
	}
	attempt, err := s.attempts.Get(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.ClaimantID != cUUID {
		return nil, utils.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *VerificationService) activeSession(ctx context.Context, sessionID uuid.UUID) (*models.AttendanceSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.IsActive() {
		return nil, utils.ErrNoActiveSession
	}
	return session, nil
}

// stateGate maps the attempt's current state against the state a step
// expects: later states mean the step already finished (its evidence is
// immutable), earlier states mean the client skipped ahead.
func stateGate(current, expected models.AttemptStateType) error {
	if current == expected {
		return nil
	}
	switch current {
	case models.AttemptStateCommitted:
		return utils.ErrAttemptAlreadyCommitted
	case models.AttemptStateCancelled:
		return utils.ErrInvalidStateTransition
	}
	if stateOrder(current) > stateOrder(expected) {
		return utils.ErrStepAlreadyComplete
	}
	return utils.ErrInvalidStateTransition
}

func stateOrder(s models.AttemptStateType) int {
	switch s {
	case models.AttemptStateNetworkPending:
		return 0
	case models.AttemptStateLocationPending:
		return 1
	case models.AttemptStateFacePending:
		return 2
	case models.AttemptStateFaceVerified:
		return 3
	case models.AttemptStateCommitted:
		return 4
	default:
		return -1
	}
}
