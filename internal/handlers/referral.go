package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/referral-backend/internal/apperr"
	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/services"
	"github.com/careloop/referral-backend/internal/types"
)

type ReferralHandler struct {
	log         *logger.Logger
	referralSvc services.ReferralService
}

func NewReferralHandler(log *logger.Logger, referralSvc services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		log:         log.With("handler", "ReferralHandler"),
		referralSvc: referralSvc,
	}
}

type commitReferralRequest struct {
	ClientID    uuid.UUID `json:"client_id"`
	ResourceID  uuid.UUID `json:"resource_id"`
	Provenance  string    `json:"provenance"`
	Rationale   string    `json:"rationale"`
	Notes       string    `json:"notes"`
	NotifyEmail string    `json:"notify_email"`
}

// POST /api/referrals
// A duplicate commit returns 409 but still carries the existing entry so
// the caller can show what is already on the ledger.
func (h *ReferralHandler) CommitReferral(c *gin.Context) {
	var req commitReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	entry, err := h.referralSvc.Commit(c.Request.Context(), services.CommitInput{
		ClientID:    req.ClientID,
		ResourceID:  req.ResourceID,
		Provenance:  types.ReferralProvenance(req.Provenance),
		Rationale:   req.Rationale,
		Notes:       req.Notes,
		NotifyEmail: req.NotifyEmail,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicateReferral && entry != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":    APIError{Message: err.Error(), Code: string(apperr.KindDuplicateReferral)},
				"referral": entry,
			})
			return
		}
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"referral": entry})
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// PUT /api/clients/:id/referrals/:resourceId/status
func (h *ReferralHandler) UpdateStatus(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", errors.New("invalid client id"))
		return
	}
	resourceID, err := uuid.Parse(c.Param("resourceId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", errors.New("invalid resource id"))
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	entry, err := h.referralSvc.UpdateStatus(c.Request.Context(), clientID, resourceID, types.ReferralStatus(req.Status), req.Notes)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"referral": entry})
}

// GET /api/clients/:id/referrals
func (h *ReferralHandler) ListForClient(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", errors.New("invalid client id"))
		return
	}
	views, err := h.referralSvc.ListForClient(c.Request.Context(), clientID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"referrals": views, "count": len(views)})
}

// GET /api/dashboard/referrals?limit=<n>
func (h *ReferralHandler) RecentActivity(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RespondError(c, http.StatusBadRequest, "validation_error", errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	activity, err := h.referralSvc.Recent(c.Request.Context(), limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, activity)
}
