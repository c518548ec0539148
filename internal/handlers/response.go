package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careloop/referral-backend/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the service error taxonomy onto HTTP statuses.
// Conflict covers everything a retry with the same input cannot fix but a
// different input could; oracle outages surface as a bad gateway.
func RespondServiceError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindDuplicateReferral, apperr.KindInvalidTransition, apperr.KindNoActiveSession:
		status = http.StatusConflict
	case apperr.KindOracleUnavailable:
		status = http.StatusBadGateway
	}
	RespondError(c, status, string(kind), err)
}
