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

type ResourceHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
}

func NewResourceHandler(log *logger.Logger, catalog services.CatalogService) *ResourceHandler {
	return &ResourceHandler{
		log:     log.With("handler", "ResourceHandler"),
		catalog: catalog,
	}
}

type createResourceRequest struct {
	Organization     string            `json:"organization"`
	ProgramType      string            `json:"program_type"`
	Contact          string            `json:"contact"`
	Services         string            `json:"services"`
	TargetPopulation string            `json:"target_population"`
	Attributes       map[string]string `json:"attributes"`
}

// POST /api/resources
func (h *ResourceHandler) CreateResource(c *gin.Context) {
	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	record := &types.ResourceRecord{
		Organization:     req.Organization,
		ProgramType:      req.ProgramType,
		Contact:          req.Contact,
		Services:         req.Services,
		TargetPopulation: req.TargetPopulation,
	}
	if req.Attributes != nil {
		attrs, err := services.EncodeAttributes(req.Attributes)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "validation_error", err)
			return
		}
		record.Attributes = attrs
	}
	created, err := h.catalog.Create(c.Request.Context(), nil, record)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"resource": created})
}

// GET /api/resources and /api/resources/search?q=<text>&category=<category|All>
func (h *ResourceHandler) ListResources(c *gin.Context) {
	query := c.Query("q")
	category := types.CategoryAll
	if raw := c.Query("category"); raw != "" {
		parsed, ok := types.ParseCategory(raw)
		if !ok {
			RespondError(c, http.StatusBadRequest, "validation_error",
				errors.New("unknown category "+raw))
			return
		}
		category = parsed
	}
	records, err := h.catalog.Search(c.Request.Context(), nil, query, category)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"resources": records, "count": len(records)})
}

// PATCH /api/resources/:id
func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", errors.New("invalid resource id"))
		return
	}
	var patch services.ResourcePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	updated, err := h.catalog.Update(c.Request.Context(), nil, id, patch)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"resource": updated})
}
