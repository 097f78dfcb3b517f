package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/app/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// writeError maps an application error onto status and body. Internal causes are not echoed.
func writeError(c *gin.Context, err error) {
	kind, code := apperr.Classify(err)
	status := apperr.HTTPStatus(err)
	message := err.Error()
	switch kind {
	case apperr.KindInternal:
		message = "internal error"
	case apperr.KindIntegrity:
		message = "payment verified but booking could not be created"
	case apperr.KindUnavailable:
		message = "service temporarily unavailable"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: message, Code: code, Field: apperr.FieldOf(err)})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_body"})
}

func logFailure(logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		return
	}
	attrs = append(attrs, "error", err)
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		logger.Error(msg, attrs...)
		return
	}
	logger.Debug(msg, attrs...)
}
