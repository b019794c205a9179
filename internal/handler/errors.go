package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
)

// serviceFailure is the HTTP rendering of a domain error.
type serviceFailure struct {
	status  int
	code    response.ErrCode
	message string
	fields  map[string]string
	// retryAfter is set for rate limit failures, in whole seconds.
	retryAfter int
}

// classify maps the domain error taxonomy onto status codes and error codes.
func classify(err error) serviceFailure {
	var (
		val *apperror.ValidationError
		nf  *apperror.NotFoundError
		rl  *apperror.RateLimitError
		dep *apperror.DependencyError
	)
	switch {
	case errors.As(err, &rl):
		retry := int((rl.RetryAfter + time.Second - 1) / time.Second)
		return serviceFailure{
			status: http.StatusTooManyRequests,
			code:   response.ErrRateLimitExceeded,
			fields: map[string]string{
				"remaining":           strconv.Itoa(min(rl.Remaining, 0)),
				"retry_after_seconds": strconv.Itoa(retry),
			},
			retryAfter: retry,
		}
	case errors.As(err, &val):
		f := serviceFailure{status: http.StatusBadRequest, code: response.ErrValidation}
		switch {
		case errors.Is(err, model.ErrUnknownOperation):
			f.code = response.ErrInvalidOperation
		case val.Field == "status":
			f.status, f.code = http.StatusConflict, response.ErrSessionCompleted
		}
		if val.Field != "" {
			f.fields = map[string]string{val.Field: val.Message}
		} else {
			f.message = val.Message
		}
		return f
	case errors.As(err, &nf):
		f := serviceFailure{status: http.StatusNotFound, code: response.ErrNotFound}
		switch nf.Resource {
		case "session":
			f.code = response.ErrSessionNotFound
		case "question":
			f.code = response.ErrQuestionNotFound
		case "exam":
			f.code = response.ErrNoQuestions
		}
		return f
	case errors.As(err, &dep):
		return serviceFailure{status: http.StatusServiceUnavailable, code: response.ErrDependencyUnavailable}
	default:
		return serviceFailure{status: http.StatusInternalServerError, code: response.ErrInternal}
	}
}

// writeServiceError renders err in the response envelope. Server-side
// failures are logged; client errors are not.
func writeServiceError(c *gin.Context, log zerolog.Logger, err error) {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		l := response.Logger(c, log)
		l.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	if f.retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(f.retryAfter))
	}
	if f.message == "" {
		f.message = response.GetMessage(f.code)
	}
	response.FailWithMessage(c, f.status, f.code, f.message, f.fields)
}

func isUnknownOperation(err error) bool {
	return errors.Is(err, model.ErrUnknownOperation)
}
