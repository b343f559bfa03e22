package models

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStateType enumerates the orchestrator states. A passing step
// auto-advances into the next pending state, so verified intermediate
// states are never at rest; the states persisted between requests are the
// three pending states, FACE_VERIFIED, and the terminal pair.
type AttemptStateType string

const (
	AttemptStateNetworkPending  AttemptStateType = "NETWORK_PENDING"
	AttemptStateLocationPending AttemptStateType = "LOCATION_PENDING"
	AttemptStateFacePending     AttemptStateType = "FACE_PENDING"
	AttemptStateFaceVerified    AttemptStateType = "FACE_VERIFIED"
	AttemptStateCommitted       AttemptStateType = "COMMITTED"
	AttemptStateCancelled       AttemptStateType = "CANCELLED"
)

// IsTerminal reports whether no further submissions are accepted.
func (s AttemptStateType) IsTerminal() bool {
	return s == AttemptStateCommitted || s == AttemptStateCancelled
}

type NetworkEvidence struct {
	Verified     bool      `json:"verified"`
	ObservedIP   string    `json:"observed_ip"`
	ObservedSSID string    `json:"observed_ssid"`
	ObservedMAC  string    `json:"observed_mac,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type LocationEvidence struct {
	Verified       bool      `json:"verified"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	DistanceMeters float64   `json:"distance_meters"`
	Timestamp      time.Time `json:"timestamp"`
}

type FaceEvidence struct {
	Verified   bool      `json:"verified"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

/*
VerificationAttempt is one claimant's in-progress journey through the
three verification steps for one session. It lives only in the attempt
store (in-memory, TTL-expired); a successful commit replaces it with the
durable AttendanceRecord. Evidence, once accepted, is immutable for the
lifetime of the attempt.
*/
type VerificationAttempt struct {
	ID         uuid.UUID        `json:"attempt_id"`
	SessionID  uuid.UUID        `json:"session_id"`
	ClaimantID uuid.UUID        `json:"claimant_id"`
	State      AttemptStateType `json:"state"`

	Network  *NetworkEvidence  `json:"network,omitempty"`
	Location *LocationEvidence `json:"location,omitempty"`
	Face     *FaceEvidence     `json:"face,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	LastTouched time.Time `json:"last_touched"`
}

// Clone returns a deep copy so callers never share the stored value.
func (a *VerificationAttempt) Clone() *VerificationAttempt {
	cp := *a
	if a.Network != nil {
		n := *a.Network
		cp.Network = &n
	}
	if a.Location != nil {
		l := *a.Location
		cp.Location = &l
	}
	if a.Face != nil {
		f := *a.Face
		cp.Face = &f
	}
	return &cp
}
