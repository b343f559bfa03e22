package utils

import (
	"errors"
	"fmt"
)

/*
   Sentinel errors for the verification domain.
   The controller can do: if errors.Is(err, ErrXYZ) { ... }
*/
var (
	ErrNoActiveSession         = errors.New("no_active_session")
	ErrNetworkMismatch         = errors.New("network_mismatch")
	ErrSubnetMismatch          = errors.New("subnet_mismatch")
	ErrLocationUnavailable     = errors.New("location_unavailable")
	ErrStepAlreadyComplete     = errors.New("step_already_complete")
	ErrAttemptAlreadyCommitted = errors.New("attempt_already_committed")
	ErrDuplicateAttendance     = errors.New("duplicate_attendance")
	ErrInvalidStateTransition  = errors.New("invalid_state_transition")

	ErrAttemptNotFound      = errors.New("attempt_not_found")
	ErrSessionNotFound      = errors.New("session_not_found")
	ErrNotSessionOwner      = errors.New("not_session_owner")
	ErrWrongStatus          = errors.New("wrong_status")
	ErrActiveSessionExists  = errors.New("active_session_exists")

	ErrNoRowsUpdated = errors.New("no_rows_updated") // Can be used by repos
)

/*
   OutsideGeofenceError carries the measured distance so the client can
   tell the claimant how far off they are.
*/
type OutsideGeofenceError struct {
	DistanceMeters float64
	AllowedRadius  float64
}

func (e *OutsideGeofenceError) Error() string {
	return "outside_geofence"
}

func NewOutsideGeofenceError(distance, radius float64) error {
	return &OutsideGeofenceError{DistanceMeters: distance, AllowedRadius: radius}
}

// FaceNotVerifiedError is returned when the matcher produced a confidence
// below the configured threshold. The score is surfaced to the claimant.
type FaceNotVerifiedError struct {
	Confidence float64
}

func (e *FaceNotVerifiedError) Error() string {
	return "face_not_verified"
}

/*
   MatcherError wraps any failure of the face-matching collaborator
   (no face detected, service unreachable). It is never converted into a
   pass or fail verdict; the claimant recaptures and retries.
*/
type MatcherError struct {
	Reason string
	Err    error
}

func (e *MatcherError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("matcher_error: %s: %v", e.Reason, e.Err)
	}
	return "matcher_error: " + e.Reason
}

func (e *MatcherError) Unwrap() error {
	return e.Err
}
