package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatusType string

const (
	SessionStatusPending SessionStatusType = "PENDING"
	SessionStatusActive  SessionStatusType = "ACTIVE"
	SessionStatusClosed  SessionStatusType = "CLOSED"
)

/*
AttendanceSession is one open window during which attendance may be claimed
for a specific class meeting. The owning faculty member configures the
anchor hotspot (SSID, anchor IP) and the geofence anchor (lat/lng, radius)
before the session goes ACTIVE. At most one ACTIVE session exists per
(subject, timeslot); the storage layer enforces this with a partial unique
index.
*/
type AttendanceSession struct {
	Versioned

	ID        uuid.UUID `json:"id"`
	FacultyID uuid.UUID `json:"faculty_id"`

	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Timeslot    string `json:"timeslot"`

	// Anchor network descriptor. AnchorIP is the hotspot device's own
	// address; GatewayIP is derived from its first three octets.
	SSID      string  `json:"ssid"`
	BSSID     *string `json:"bssid,omitempty"`
	AnchorIP  string  `json:"anchor_ip"`
	GatewayIP string  `json:"gateway_ip"`

	// Geofence anchor.
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`

	// IANA zone derived from the anchor coordinates at activation.
	TimeZone string `json:"time_zone,omitempty"`

	// Where the close summary goes. Optional.
	NotifyEmail string `json:"notify_email,omitempty"`
	NotifyPhone string `json:"notify_phone,omitempty"`

	Status    SessionStatusType `json:"status"`
	OpenedAt  *time.Time        `json:"opened_at,omitempty"`
	ClosedAt  *time.Time        `json:"closed_at,omitempty"`
	LateAfter *time.Time        `json:"late_after,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *AttendanceSession) GetID() string {
	return s.ID.String()
}

// IsActive reports whether claims are currently accepted.
func (s *AttendanceSession) IsActive() bool {
	return s.Status == SessionStatusActive
}
