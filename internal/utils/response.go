package utils

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Ambient error codes shared by every endpoint.
const (
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeTokenExpired   = "token_expired"
	ErrCodeForbidden      = "forbidden"
	ErrCodeInternal       = "internal_server_error"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
)

// Verification-flow error codes. Each one is distinct and user-actionable;
// the client renders the specific reason, never a generic "failed".
const (
	ErrCodeNoActiveSession         = "no_active_session"
	ErrCodeNetworkMismatch         = "network_mismatch"
	ErrCodeSubnetMismatch          = "subnet_mismatch"
	ErrCodeLocationUnavailable     = "location_unavailable"
	ErrCodeOutsideGeofence         = "outside_geofence"
	ErrCodeMatcherError            = "matcher_error"
	ErrCodeFaceNotVerified         = "face_not_verified"
	ErrCodeStepAlreadyComplete     = "step_already_complete"
	ErrCodeAttemptAlreadyCommitted = "attempt_already_committed"
	ErrCodeDuplicateAttendance     = "duplicate_attendance"
	ErrCodeInvalidStateTransition  = "invalid_state_transition"
)

// ErrorResponse carries a stable code, a public message, and an optional
// Details payload (measured distance, confidence, mismatch kind) so the
// client can explain the problem precisely.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// RespondErrorWithCode builds a JSON error response with a standard
// code and message. The optional `details` is included if non-nil.
func RespondErrorWithCode(
	w http.ResponseWriter,
	status int,
	errorCode string,
	publicMessage string,
	details any,
	devErrs ...error,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errBody := ErrorResponse{
		Code:    errorCode,
		Message: publicMessage,
	}
	if details != nil {
		errBody.Details = details
	}
	_ = json.NewEncoder(w).Encode(errBody)

	if len(devErrs) > 0 && devErrs[0] != nil {
		Logger.WithFields(logrus.Fields{
			"status": status,
			"error":  devErrs[0].Error(),
		}).Error(publicMessage)
	} else {
		Logger.WithFields(logrus.Fields{
			"status": status,
		}).Error(publicMessage)
	}
}

// RespondWithJSON for successful cases
func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
