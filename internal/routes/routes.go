package routes

const (
	// Health
	Health = "/health"

	// Student verification endpoints
	AttendanceActiveSession = "/api/v1/attendance/session/active"
	AttendanceStart         = "/api/v1/attendance/attempt/start"
	AttendanceNetwork       = "/api/v1/attendance/attempt/network"
	AttendanceLocation      = "/api/v1/attendance/attempt/location"
	AttendanceFace          = "/api/v1/attendance/attempt/face"
	AttendanceSubmit        = "/api/v1/attendance/attempt/submit"
	AttendanceAttempt       = "/api/v1/attendance/attempt/{attemptId}"
	AttendanceAttemptCancel = "/api/v1/attendance/attempt/{attemptId}/cancel"

	// Faculty session endpoints
	SessionsBase     = "/api/v1/sessions"
	SessionsActivate = "/api/v1/sessions/{sessionId}/activate"
	SessionsEnd      = "/api/v1/sessions/{sessionId}/end"
	SessionsRecords  = "/api/v1/sessions/{sessionId}/records"
)
