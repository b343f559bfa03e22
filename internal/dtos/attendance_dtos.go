package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartattend/attendance-service/internal/models"
)

/*
StartAttemptRequest opens a fresh verification attempt against an active
session.
*/
type StartAttemptRequest struct {
	SessionID uuid.UUID `json:"session_id" validate:"required"`
}

// NetworkEvidenceRequest is the claimant device's self-reported network
// attachment. It is a soft signal, recorded as claimed.
type NetworkEvidenceRequest struct {
	AttemptID  uuid.UUID `json:"attempt_id" validate:"required"`
	SSID       string    `json:"ssid" validate:"required"`
	IPAddress  string    `json:"ip_address" validate:"required,ip4_addr"`
	MACAddress string    `json:"mac_address"`
	DeviceInfo string    `json:"device_info"`
}

// LocationEvidenceRequest carries the claimed GPS fix. Available=false
// means the device denied or lacks geolocation; no coordinates expected.
type LocationEvidenceRequest struct {
	AttemptID      uuid.UUID `json:"attempt_id" validate:"required"`
	Available      *bool     `json:"available" validate:"required"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
}

// FaceEvidenceRequest carries the captured face image as a data URL or
// bare base64, same shape the capture widget produces.
type FaceEvidenceRequest struct {
	AttemptID     uuid.UUID `json:"attempt_id" validate:"required"`
	CapturedImage string    `json:"captured_image" validate:"required"`
}

type CommitRequest struct {
	AttemptID uuid.UUID `json:"attempt_id" validate:"required"`
}

/*
AttemptDTO is the attempt snapshot returned by every step endpoint; the
client renders progress from it instead of keeping its own mutable copy.
*/
type AttemptDTO struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	SessionID  uuid.UUID `json:"session_id"`
	ClaimantID uuid.UUID `json:"claimant_id"`
	State      string    `json:"state"`

	Network  *models.NetworkEvidence  `json:"network,omitempty"`
	Location *models.LocationEvidence `json:"location,omitempty"`
	Face     *models.FaceEvidence     `json:"face,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

func NewAttemptDTO(a *models.VerificationAttempt) *AttemptDTO {
	return &AttemptDTO{
		AttemptID:  a.ID,
		SessionID:  a.SessionID,
		ClaimantID: a.ClaimantID,
		State:      string(a.State),
		Network:    a.Network,
		Location:   a.Location,
		Face:       a.Face,
		StartedAt:  a.StartedAt,
	}
}

type AttendanceRecordDTO struct {
	RecordID       uuid.UUID `json:"record_id"`
	SessionID      uuid.UUID `json:"session_id"`
	ClaimantID     uuid.UUID `json:"claimant_id"`
	Status         string    `json:"status"`
	CommittedAt    time.Time `json:"committed_at"`
	DistanceMeters float64   `json:"distance_meters"`
	FaceConfidence float64   `json:"face_confidence"`
}

func NewAttendanceRecordDTO(rec *models.AttendanceRecord) *AttendanceRecordDTO {
	return &AttendanceRecordDTO{
		RecordID:       rec.ID,
		SessionID:      rec.SessionID,
		ClaimantID:     rec.ClaimantID,
		Status:         string(rec.Status),
		CommittedAt:    rec.CommittedAt,
		DistanceMeters: rec.DistanceMeters,
		FaceConfidence: rec.FaceConfidence,
	}
}

// OutsideGeofenceDetails / FaceDetails ride in the error envelope so the
// UI can show the measured value next to the allowed one.
type OutsideGeofenceDetails struct {
	DistanceMeters float64 `json:"distance_meters"`
	AllowedRadius  float64 `json:"allowed_radius"`
}

type FaceConfidenceDetails struct {
	Confidence float64 `json:"confidence"`
}
