package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
)

// Explainer produces AI explanations.
type Explainer interface {
	RequestExplanation(ctx context.Context, in service.ExplanationInput) (*model.ExplanationResponse, error)
}

// ExplanationHandler serves AI explanation requests.
type ExplanationHandler struct {
	explainer Explainer
	log       zerolog.Logger
}

// NewExplanationHandler creates a new ExplanationHandler.
func NewExplanationHandler(explainer Explainer, log zerolog.Logger) *ExplanationHandler {
	return &ExplanationHandler{
		explainer: explainer,
		log:       log.With().Str("component", "explanation_handler").Logger(),
	}
}

// RequestExplanation godoc
// POST /api/v1/practice/explanations
// Rate limited per user: 5 per minute, 50 per day by default.
func (h *ExplanationHandler) RequestExplanation(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ExplanationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.explainer.RequestExplanation(c.Request.Context(), service.ExplanationInput{
		QuestionID:        req.QuestionID,
		SelectedChoiceIDs: req.SelectedChoiceIDs,
		UserID:            userID,
		Locale:            req.Locale,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}
