package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartattend/attendance-service/internal/models"
)

type CreateSessionRequest struct {
	SubjectCode string  `json:"subject_code" validate:"required"`
	SubjectName string  `json:"subject_name"`
	Timeslot    string  `json:"timeslot" validate:"required"`
	SSID        string  `json:"ssid"`
	BSSID       *string `json:"bssid"`
	AnchorIP    string  `json:"anchor_ip" validate:"required,ip4_addr"`
	NotifyEmail string  `json:"notify_email" validate:"omitempty,email"`
	NotifyPhone string  `json:"notify_phone" validate:"omitempty,e164"`
}

// ActivateSessionRequest supplies the geofence anchor at the moment the
// hotspot actually goes up. LateAfter overrides the default grace window.
type ActivateSessionRequest struct {
	Latitude     float64    `json:"latitude" validate:"required,latitude"`
	Longitude    float64    `json:"longitude" validate:"required,longitude"`
	RadiusMeters float64    `json:"radius_meters" validate:"omitempty,gt=0"`
	LateAfter    *time.Time `json:"late_after"`
}

type SessionDTO struct {
	SessionID   uuid.UUID `json:"session_id"`
	SubjectCode string    `json:"subject_code"`
	SubjectName string    `json:"subject_name,omitempty"`
	Timeslot    string    `json:"timeslot"`
	SSID        string    `json:"ssid"`
	GatewayIP   string    `json:"gateway_ip,omitempty"`

	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	RadiusMeters float64 `json:"radius_meters,omitempty"`
	TimeZone     string  `json:"time_zone,omitempty"`

	Status    string     `json:"status"`
	OpenedAt  *time.Time `json:"opened_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	LateAfter *time.Time `json:"late_after,omitempty"`
}

func NewSessionDTO(s *models.AttendanceSession) *SessionDTO {
	return &SessionDTO{
		SessionID:    s.ID,
		SubjectCode:  s.SubjectCode,
		SubjectName:  s.SubjectName,
		Timeslot:     s.Timeslot,
		SSID:         s.SSID,
		GatewayIP:    s.GatewayIP,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		RadiusMeters: s.RadiusMeters,
		TimeZone:     s.TimeZone,
		Status:       string(s.Status),
		OpenedAt:     s.OpenedAt,
		ClosedAt:     s.ClosedAt,
		LateAfter:    s.LateAfter,
	}
}

type SessionListResponse struct {
	Count    int           `json:"count"`
	Sessions []*SessionDTO `json:"sessions"`
}

type SessionRecordsResponse struct {
	SessionID uuid.UUID              `json:"session_id"`
	Count     int                    `json:"count"`
	Records   []*AttendanceRecordDTO `json:"records"`
}

// ActiveSessionResponse answers the student's "is there a session for this
// network" probe.
type ActiveSessionResponse struct {
	Session *SessionDTO `json:"session"`
}

type HealthCheckResponse struct {
	Status string `json:"status"`
}
