package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/smartattend/attendance-service/internal/constants"
	"github.com/smartattend/attendance-service/internal/dtos"
	"github.com/smartattend/attendance-service/internal/middleware"
	"github.com/smartattend/attendance-service/internal/services"
	"github.com/smartattend/attendance-service/internal/utils"
)

type AttendanceController struct {
	verificationService *services.VerificationService
	sessionService      *services.SessionService
}

func NewAttendanceController(
	vs *services.VerificationService,
	ss *services.SessionService,
) *AttendanceController {
	return &AttendanceController{
		verificationService: vs,
		sessionService:      ss,
	}
}

var attendanceValidate = validator.New()

// ----------------------------------------------------------------
// GET /api/v1/attendance/session/active?ssid=...
// ----------------------------------------------------------------
func (c *AttendanceController) ActiveSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	ssid := r.URL.Query().Get("ssid")
	if ssid == "" {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "ssid query parameter is required", nil, nil)
		return
	}

	session, err := c.sessionService.ResolveActiveBySSID(ctx, ssid)
	if err != nil {
		if errors.Is(err, utils.ErrNoActiveSession) {
			utils.RespondErrorWithCode(
				w, http.StatusNotFound, utils.ErrCodeNoActiveSession,
				"No active session for this network", nil, nil,
			)
			return
		}
		utils.Logger.WithError(err).Error("Resolve active session error")
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not resolve session", nil, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ActiveSessionResponse{Session: session})
}

// ----------------------------------------------------------------
// POST /api/v1/attendance/attempt/start
// ----------------------------------------------------------------
func (c *AttendanceController) StartAttemptHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	var req dtos.StartAttemptRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	attempt, err := c.verificationService.Start(ctx, ctxUserID.(string), req.SessionID)
	if err != nil {
		respondVerificationError(w, err, "Could not start verification attempt")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, attempt)
}

// ----------------------------------------------------------------
// POST /api/v1/attendance/attempt/network
// ----------------------------------------------------------------
func (c *AttendanceController) SubmitNetworkHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	var req dtos.NetworkEvidenceRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	attempt, err := c.verificationService.SubmitNetwork(ctx, ctxUserID.(string), req)
	if err != nil {
		respondVerificationError(w, err, "Network check failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, attempt)
}

// ----------------------------------------------------------------
// POST /api/v1/attendance/attempt/location
// ----------------------------------------------------------------
func (c *AttendanceController) SubmitLocationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	var req dtos.LocationEvidenceRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}
	if req.Available != nil && *req.Available {
		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
				"lat/lng out of range", nil, nil,
			)
			return
		}
		if req.AccuracyMeters > constants.MaxLocationAccuracyMeters {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
				"GPS accuracy is too low. Please move to an area with a clearer view of the sky.", nil, nil,
			)
			return
		}
	}

	attempt, err := c.verificationService.SubmitLocation(ctx, ctxUserID.(string), req)
	if err != nil {
		respondVerificationError(w, err, "Location check failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, attempt)
}

// ----------------------------------------------------------------
// POST /api/v1/attendance/attempt/face
// ----------------------------------------------------------------
func (c *AttendanceController) SubmitFaceHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	var req dtos.FaceEvidenceRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	image, decErr := services.DecodeCapturedImage(req.CapturedImage)
	if decErr != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"captured_image is not valid base64 image data", nil, nil,
		)
		return
	}
	if len(image) > constants.MaxCapturedImageBytes {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"captured_image exceeds the maximum size", nil, nil,
		)
		return
	}

	attempt, err := c.verificationService.SubmitFace(ctx, ctxUserID.(string), req.AttemptID, image)
	if err != nil {
		respondVerificationError(w, err, "Face check failed")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, attempt)
}

// ----------------------------------------------------------------
// POST /api/v1/attendance/attempt/submit
// ----------------------------------------------------------------
func (c *AttendanceController) CommitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	var req dtos.CommitRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	record, err := c.verificationService.Commit(ctx, ctxUserID.(string), req.AttemptID)
	if err != nil {
		respondVerificationError(w, err, "Could not record attendance")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, record)
}

// ----------------------------------------------------------------
// GET /api/v1/attendance/attempt/{attemptId}
// ----------------------------------------------------------------
func (c *AttendanceController) GetAttemptHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	attemptID, ok := parseAttemptID(w, r)
	if !ok {
		return
	}

	attempt, err := c.verificationService.GetAttempt(ctx, ctxUserID.(string), attemptID)
	if err != nil {
		respondVerificationError(w, err, "Could not fetch attempt")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, attempt)
}

// ----------------------------------------------------------------
// POST /api/v1/attendance/attempt/{attemptId}/cancel
// ----------------------------------------------------------------
func (c *AttendanceController) CancelAttemptHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	attemptID, ok := parseAttemptID(w, r)
	if !ok {
		return
	}

	if err := c.verificationService.Cancel(ctx, ctxUserID.(string), attemptID); err != nil {
		respondVerificationError(w, err, "Could not cancel attempt")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func parseAttemptID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := mux.Vars(r)["attemptId"]
	attemptID, err := uuid.Parse(idStr)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"attemptId must be a valid UUID", nil, nil,
		)
		return uuid.Nil, false
	}
	return attemptID, true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON body", nil, err)
		return false
	}
	if err := attendanceValidate.StructCtx(r.Context(), req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", validationErrors.Error(), nil)
		} else {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request data", nil, err)
		}
		return false
	}
	return true
}

// respondVerificationError maps the verification flow's failure modes to
// the wire taxonomy. Step failures are 400s with distinct codes, ordering
// and duplication problems are 409s, matcher outages are 502s.
func respondVerificationError(w http.ResponseWriter, err error, publicMessage string) {
	var geoErr *utils.OutsideGeofenceError
	if errors.As(err, &geoErr) {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeOutsideGeofence,
			"You are outside the class geofence",
			dtos.OutsideGeofenceDetails{
				DistanceMeters: geoErr.DistanceMeters,
				AllowedRadius:  geoErr.AllowedRadius,
			},
			err,
		)
		return
	}

	var faceErr *utils.FaceNotVerifiedError
	if errors.As(err, &faceErr) {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeFaceNotVerified,
			"Face did not match the registered profile",
			dtos.FaceConfidenceDetails{Confidence: faceErr.Confidence},
			err,
		)
		return
	}

	var matcherErr *utils.MatcherError
	if errors.As(err, &matcherErr) {
		utils.RespondErrorWithCode(
			w, http.StatusBadGateway, utils.ErrCodeMatcherError,
			"Face verification is temporarily unavailable, please retry",
			nil,
			err,
		)
		return
	}

	switch {
	case errors.Is(err, utils.ErrAttemptNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Attempt not found or expired", nil, nil,
		)
	case errors.Is(err, utils.ErrNoActiveSession):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNoActiveSession,
			"No active session", nil, nil,
		)
	case errors.Is(err, utils.ErrNetworkMismatch):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeNetworkMismatch,
			"Connect to the class Wi-Fi network and retry", nil, err,
		)
	case errors.Is(err, utils.ErrSubnetMismatch):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeSubnetMismatch,
			"Your device is not on the class network", nil, err,
		)
	case errors.Is(err, utils.ErrLocationUnavailable):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeLocationUnavailable,
			"Location access is required for attendance", nil, err,
		)
	case errors.Is(err, utils.ErrStepAlreadyComplete):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeStepAlreadyComplete,
			"This verification step is already complete", nil, err,
		)
	case errors.Is(err, utils.ErrAttemptAlreadyCommitted):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeAttemptAlreadyCommitted,
			"Attendance for this session is already recorded", nil, err,
		)
	case errors.Is(err, utils.ErrDuplicateAttendance):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeDuplicateAttendance,
			"Attendance for this session is already recorded", nil, err,
		)
	case errors.Is(err, utils.ErrInvalidStateTransition):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeInvalidStateTransition,
			"Verification steps must be completed in order", nil, err,
		)
	default:
		utils.Logger.WithError(err).Error(publicMessage)
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			publicMessage, nil, err,
		)
	}
}
