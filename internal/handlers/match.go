package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/services"
	"github.com/careloop/referral-backend/internal/types"
)

type MatchHandler struct {
	log      *logger.Logger
	matchSvc services.MatchService
}

func NewMatchHandler(log *logger.Logger, matchSvc services.MatchService) *MatchHandler {
	return &MatchHandler{
		log:      log.With("handler", "MatchHandler"),
		matchSvc: matchSvc,
	}
}

type matchRequest struct {
	ClientID uuid.UUID `json:"client_id"`
	Category string    `json:"category"`
	Message  string    `json:"message"`
}

func (r *matchRequest) category() (types.Category, error) {
	cat, ok := types.ParseCategory(r.Category)
	if !ok {
		return "", errors.New("unknown category " + r.Category)
	}
	return cat, nil
}

// POST /api/match
func (h *MatchHandler) RequestMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	cat, err := req.category()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	result, err := h.matchSvc.RequestMatch(c.Request.Context(), req.ClientID, cat)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/match/followup
func (h *MatchHandler) FollowUp(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	cat, err := req.category()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	reply, err := h.matchSvc.FollowUp(c.Request.Context(), req.ClientID, cat, req.Message)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"reply": reply})
}

// POST /api/match/reset
func (h *MatchHandler) ResetSession(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	cat, err := req.category()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	if err := h.matchSvc.ResetSession(c.Request.Context(), req.ClientID, cat); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"reset": true})
}
