package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/careloop/referral-backend/internal/apperr"
	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/repos"
	"github.com/careloop/referral-backend/internal/types"
)

// ResourcePatch is a partial update. The id field is accepted by the
// decoder only so it can be explicitly rejected.
type ResourcePatch struct {
	ID               OptionalString `json:"id"`
	Organization     OptionalString `json:"organization"`
	ProgramType      OptionalString `json:"program_type"`
	Contact          OptionalString `json:"contact"`
	Services         OptionalString `json:"services"`
	TargetPopulation OptionalString `json:"target_population"`
	Category         OptionalString `json:"category"`
	Attributes       OptionalJSON   `json:"attributes"`
}

type CatalogService interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.ResourceRecord) (*types.ResourceRecord, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.ResourceRecord, error)
	Search(ctx context.Context, tx *gorm.DB, query string, category types.Category) ([]*types.ResourceRecord, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch ResourcePatch) (*types.ResourceRecord, error)
	Categorize(record *types.ResourceRecord) types.Category
}

type catalogService struct {
	db           *gorm.DB
	log          *logger.Logger
	resourceRepo repos.ResourceRepo
	categorizer  types.Categorizer
}

func NewCatalogService(db *gorm.DB, baseLog *logger.Logger, resourceRepo repos.ResourceRepo, categorizer types.Categorizer) CatalogService {
	return &catalogService{
		db:           db,
		log:          baseLog.With("service", "CatalogService"),
		resourceRepo: resourceRepo,
		categorizer:  categorizer,
	}
}

func (cs *catalogService) Categorize(record *types.ResourceRecord) types.Category {
	return cs.categorizer.Categorize(record)
}

// EncodeAttributes packs free-form descriptive fields into the JSON column.
func EncodeAttributes(attrs map[string]string) (datatypes.JSON, error) {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func (cs *catalogService) Create(ctx context.Context, tx *gorm.DB, record *types.ResourceRecord) (*types.ResourceRecord, error) {
	if record == nil || strings.TrimSpace(record.Organization) == "" {
		return nil, apperr.Validation("organization is required")
	}
	if record.Category == "" {
		record.Category = types.CategoryHousing
	}
	if _, ok := types.ParseCategory(string(record.Category)); !ok || record.Category == types.CategoryAll {
		return nil, apperr.Validation("invalid category %q", record.Category)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if _, err := cs.resourceRepo.Create(ctx, tx, []*types.ResourceRecord{record}); err != nil {
		cs.log.Error("Create resource failed", "error", err)
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return record, nil
}

func (cs *catalogService) List(ctx context.Context, tx *gorm.DB) ([]*types.ResourceRecord, error) {
	return cs.resourceRepo.List(ctx, tx)
}

// Search filters by case-insensitive substring over organization, program
// type, and services, then by the derived category (not the stored field
// alone) so fallback-housing records stay visible under Housing.
func (cs *catalogService) Search(ctx context.Context, tx *gorm.DB, query string, category types.Category) ([]*types.ResourceRecord, error) {
	switch category {
	case types.CategoryAll, types.CategoryHousing, types.CategoryFood, types.CategoryTransportation:
	default:
		return nil, apperr.Validation("invalid search category %q", category)
	}

	records, err := cs.resourceRepo.List(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*types.ResourceRecord, 0, len(records))
	for _, rec := range records {
		if q != "" {
			haystack := strings.ToLower(rec.Organization + " " + rec.ProgramType + " " + rec.Services)
			if !strings.Contains(haystack, q) {
				continue
			}
		}
		if category != types.CategoryAll && cs.categorizer.Categorize(rec) != category {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (cs *catalogService) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch ResourcePatch) (*types.ResourceRecord, error) {
	if patch.ID.Set {
		return nil, apperr.Validation("resource id is immutable")
	}

	existing, err := cs.resourceRepo.GetByIDs(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}
	if len(existing) == 0 {
		return nil, apperr.NotFound("resource %s not found", id)
	}
	current := existing[0]

	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	applyString := func(column string, o OptionalString) {
		if !o.Set {
			return
		}
		if o.Value == nil {
			updates[column] = ""
			return
		}
		updates[column] = *o.Value
	}
	applyString("organization", patch.Organization)
	applyString("program_type", patch.ProgramType)
	applyString("contact", patch.Contact)
	applyString("services", patch.Services)
	applyString("target_population", patch.TargetPopulation)

	if patch.Category.Set {
		if patch.Category.Value == nil {
			return nil, apperr.Validation("category cannot be null")
		}
		cat, ok := types.ParseCategory(*patch.Category.Value)
		if !ok || cat == types.CategoryAll {
			return nil, apperr.Validation("invalid category %q", *patch.Category.Value)
		}
		updates["category"] = cat
	}

	if patch.Attributes.Set {
		if patch.Attributes.Value == nil {
			updates["attributes"] = nil
		} else {
			merged, err := mergeJSONObjects(json.RawMessage(current.Attributes), *patch.Attributes.Value)
			if err != nil {
				return nil, apperr.Validation("malformed attributes patch: %v", err)
			}
			updates["attributes"] = datatypes.JSON(merged)
		}
	}

	if _, err := cs.resourceRepo.UpdateFields(ctx, tx, id, updates); err != nil {
		cs.log.Error("Update resource failed", "error", err, "resource_id", id)
		return nil, fmt.Errorf("update resource: %w", err)
	}

	updated, err := cs.resourceRepo.GetByIDs(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("reload resource: %w", err)
	}
	if len(updated) == 0 {
		return nil, apperr.NotFound("resource %s not found", id)
	}
	return updated[0], nil
}
