package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
)

// SampleSessions is the sample-mode session API, keyed by client id.
type SampleSessions interface {
	Load(ctx context.Context, clientID, examSlug string) (*model.ClientSession, error)
	Apply(ctx context.Context, clientID, examSlug string, op model.Operation) (*model.ClientSession, error)
	Reset(ctx context.Context, clientID, examSlug string) error
}

// SampleSessionHandler serves sample sessions to anonymous and signed-in clients.
type SampleSessionHandler struct {
	samples SampleSessions
	log     zerolog.Logger
}

// NewSampleSessionHandler creates a new SampleSessionHandler.
func NewSampleSessionHandler(samples SampleSessions, log zerolog.Logger) *SampleSessionHandler {
	return &SampleSessionHandler{
		samples: samples,
		log:     log.With().Str("component", "sample_session_handler").Logger(),
	}
}

// LoadSample godoc
// GET /api/v1/practice/sample/:slug
func (h *SampleSessionHandler) LoadSample(c *gin.Context) {
	cs, err := h.samples.Load(c.Request.Context(), middleware.ClientID(c), c.Param("slug"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, cs)
}

// ApplySample godoc
// PATCH /api/v1/practice/sample/:slug
func (h *SampleSessionHandler) ApplySample(c *gin.Context) {
	op, ok := bindOperation(c)
	if !ok {
		return
	}

	cs, err := h.samples.Apply(c.Request.Context(), middleware.ClientID(c), c.Param("slug"), op)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, cs)
}

// ResetSample godoc
// DELETE /api/v1/practice/sample/:slug
func (h *SampleSessionHandler) ResetSample(c *gin.Context) {
	if err := h.samples.Reset(c.Request.Context(), middleware.ClientID(c), c.Param("slug")); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.NoContent(c)
}
