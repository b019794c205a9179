package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/validator"
)

// maxOperationBytes bounds an operation envelope body.
const maxOperationBytes = 16 << 10

// PracticeSessions is the server-authoritative session API.
type PracticeSessions interface {
	Start(ctx context.Context, userID, examSlug string) (*model.StartSessionResult, error)
	Get(ctx context.Context, userID, sessionID string) (*model.ApiResponse, error)
	View(ctx context.Context, userID, sessionID string) (*model.ClientSession, error)
	Apply(ctx context.Context, userID, sessionID string, op model.Operation) (*model.ApiResponse, error)
}

// PracticeSessionHandler serves authenticated practice sessions.
type PracticeSessionHandler struct {
	sessions PracticeSessions
	log      zerolog.Logger
}

// NewPracticeSessionHandler creates a new PracticeSessionHandler.
func NewPracticeSessionHandler(sessions PracticeSessions, log zerolog.Logger) *PracticeSessionHandler {
	return &PracticeSessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "practice_session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/practice/exams/:slug/sessions
func (h *PracticeSessionHandler) StartSession(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.sessions.Start(c.Request.Context(), userID, c.Param("slug"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// GetSession godoc
// GET /api/v1/practice/sessions/:id
// Returns the wire representation.
func (h *PracticeSessionHandler) GetSession(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	resp, err := h.sessions.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// GetSessionView godoc
// GET /api/v1/practice/sessions/:id/view
// Returns the client view model with the active question resolved.
func (h *PracticeSessionHandler) GetSessionView(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.sessions.View(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// ApplyOperation godoc
// PATCH /api/v1/practice/sessions/:id
// Body is one operation envelope.
func (h *PracticeSessionHandler) ApplyOperation(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	op, ok := bindOperation(c)
	if !ok {
		return
	}

	resp, err := h.sessions.Apply(c.Request.Context(), userID, c.Param("id"), op)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// bindOperation decodes and validates an operation envelope from the body.
// It writes the error response itself and reports false on failure.
func bindOperation(c *gin.Context) (model.Operation, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxOperationBytes+1))
	if err != nil || len(raw) > maxOperationBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return nil, false
	}
	return decodeOperation(c, raw)
}

func decodeOperation(c *gin.Context, raw []byte) (model.Operation, bool) {
	op, fields := parseOperation(raw)
	if fields != nil {
		code := response.ErrValidation
		if _, unknown := fields["operation"]; unknown {
			code = response.ErrInvalidOperation
		}
		response.FailWithFields(c, http.StatusBadRequest, code, fields)
		return nil, false
	}
	return op, true
}

// parseOperation returns the operation or the field errors explaining why
// raw is not one.
func parseOperation(raw []byte) (model.Operation, map[string]string) {
	op, err := model.DecodeOperation(raw)
	if err != nil {
		if isUnknownOperation(err) {
			return nil, map[string]string{"operation": err.Error()}
		}
		return nil, map[string]string{"detail": err.Error()}
	}
	if fields := validator.Struct(op); fields != nil {
		return nil, fields
	}
	return op, nil
}
