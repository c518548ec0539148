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

type ClientHandler struct {
	log       *logger.Logger
	clientSvc services.ClientService
}

func NewClientHandler(log *logger.Logger, clientSvc services.ClientService) *ClientHandler {
	return &ClientHandler{
		log:       log.With("handler", "ClientHandler"),
		clientSvc: clientSvc,
	}
}

type createClientRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Contact     string `json:"contact"`
	Notes       string `json:"notes"`
}

// POST /api/clients
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	client := &types.Client{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Contact:     req.Contact,
		Notes:       req.Notes,
	}
	created, err := h.clientSvc.CreateClient(c.Request.Context(), nil, client)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": created})
}

// GET /api/clients
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.clientSvc.ListClients(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"clients": clients, "count": len(clients)})
}

// GET /api/clients/:id
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", errors.New("invalid client id"))
		return
	}
	client, err := h.clientSvc.GetClient(c.Request.Context(), nil, id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"client": client})
}
