package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/smartattend/attendance-service/internal/constants"
	"github.com/smartattend/attendance-service/internal/dtos"
	"github.com/smartattend/attendance-service/internal/middleware"
	"github.com/smartattend/attendance-service/internal/services"
	"github.com/smartattend/attendance-service/internal/utils"
)

type SessionsController struct {
	sessionService *services.SessionService
}

func NewSessionsController(ss *services.SessionService) *SessionsController {
	return &SessionsController{sessionService: ss}
}

// ----------------------------------------------------------------
// POST /api/v1/sessions
// ----------------------------------------------------------------
func (c *SessionsController) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	var req dtos.CreateSessionRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	session, err := c.sessionService.CreateSession(ctx, ctxUserID.(string), req)
	if err != nil {
		if errors.Is(err, utils.ErrActiveSessionExists) {
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrActiveSessionExists.Error(),
				"You already have an active session, end it first", nil, err,
			)
			return
		}
		utils.Logger.WithError(err).Error("Create session error")
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not create session", nil, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, session)
}

// ----------------------------------------------------------------
// POST /api/v1/sessions/{sessionId}/activate
// ----------------------------------------------------------------
func (c *SessionsController) ActivateSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	var req dtos.ActivateSessionRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	session, err := c.sessionService.ActivateSession(ctx, ctxUserID.(string), sessionID, req)
	if err != nil {
		respondSessionError(w, err, "Could not activate session")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, session)
}

// ----------------------------------------------------------------
// POST /api/v1/sessions/{sessionId}/end
// ----------------------------------------------------------------
func (c *SessionsController) EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	session, err := c.sessionService.CloseSession(ctx, ctxUserID.(string), sessionID)
	if err != nil {
		respondSessionError(w, err, "Could not end session")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, session)
}

// ----------------------------------------------------------------
// GET /api/v1/sessions?limit=...
// ----------------------------------------------------------------
func (c *SessionsController) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	limit := constants.SessionListDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, pErr := strconv.Atoi(raw)
		if pErr != nil || parsed <= 0 {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
				"limit must be a positive integer", nil, nil,
			)
			return
		}
		limit = parsed
	}

	resp, err := c.sessionService.ListSessions(ctx, ctxUserID.(string), limit)
	if err != nil {
		utils.Logger.WithError(err).Error("List sessions error")
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not list sessions", nil, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// GET /api/v1/sessions/{sessionId}/records
// ----------------------------------------------------------------
func (c *SessionsController) ListSessionRecordsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctxUserID := ctx.Value(middleware.ContextKeyUserID)
	if ctxUserID == nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "No userID in context", nil, nil)
		return
	}

	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	resp, err := c.sessionService.ListSessionRecords(ctx, ctxUserID.(string), sessionID)
	if err != nil {
		respondSessionError(w, err, "Could not list session records")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := mux.Vars(r)["sessionId"]
	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"sessionId must be a valid UUID", nil, nil,
		)
		return uuid.Nil, false
	}
	return sessionID, true
}

func respondSessionError(w http.ResponseWriter, err error, publicMessage string) {
	switch {
	case errors.Is(err, utils.ErrSessionNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Session not found", nil, nil,
		)
	case errors.Is(err, utils.ErrNotSessionOwner):
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeForbidden,
			"You do not own this session", nil, err,
		)
	case errors.Is(err, utils.ErrWrongStatus):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrWrongStatus.Error(),
			publicMessage, nil, err,
		)
	case errors.Is(err, utils.ErrNoRowsUpdated):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeConflict,
			"Another update occurred, please refresh", nil, err,
		)
	default:
		utils.Logger.WithError(err).Error(publicMessage)
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			publicMessage, nil, err,
		)
	}
}
