package models

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceStatusType string

const (
	AttendanceStatusPresent AttendanceStatusType = "PRESENT"
	AttendanceStatusLate    AttendanceStatusType = "LATE"
	AttendanceStatusAbsent  AttendanceStatusType = "ABSENT"
)

/*
AttendanceRecord is the durable outcome of a fully verified attempt.
Exactly one record exists per (session, claimant); the storage layer's
unique constraint is the single source of truth for that invariant and a
concurrent second commit surfaces as duplicate_attendance.

The record keeps an evidence summary (observed network identifiers,
measured distance, confidence score), not the raw captured image.
*/
type AttendanceRecord struct {
	ID         uuid.UUID            `json:"id"`
	SessionID  uuid.UUID            `json:"session_id"`
	ClaimantID uuid.UUID            `json:"claimant_id"`
	Status     AttendanceStatusType `json:"status"`

	CommittedAt time.Time `json:"committed_at"`

	NetworkIP      string  `json:"network_ip,omitempty"`
	NetworkSSID    string  `json:"network_ssid,omitempty"`
	NetworkMAC     string  `json:"network_mac,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
	FaceConfidence float64 `json:"face_confidence"`

	CreatedAt time.Time `json:"created_at"`
}
