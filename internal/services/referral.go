package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/careloop/referral-backend/internal/apperr"
	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/repos"
	"github.com/careloop/referral-backend/internal/sse"
	"github.com/careloop/referral-backend/internal/types"
)

type CommitInput struct {
	ClientID    uuid.UUID
	ResourceID  uuid.UUID
	Provenance  types.ReferralProvenance
	Rationale   string
	Notes       string
	NotifyEmail string
}

// ReferralView is one ledger entry resolved against the catalog and client
// directory. A dangling reference (resource or client deleted out from
// under the entry) marks the view incomplete instead of failing the read.
type ReferralView struct {
	Entry      *types.ReferralEntry  `json:"entry"`
	Resource   *types.ResourceRecord `json:"resource,omitempty"`
	ClientName string                `json:"client_name,omitempty"`
	Incomplete bool                  `json:"incomplete"`
}

type RecentReferral struct {
	ClientID     uuid.UUID            `json:"client_id"`
	ClientName   string               `json:"client_name"`
	ResourceID   uuid.UUID            `json:"resource_id"`
	Organization string               `json:"organization"`
	ProgramType  string               `json:"program_type"`
	Status       types.ReferralStatus `json:"status"`
	Category     types.Category       `json:"category"`
	AddedDate    time.Time            `json:"added_date"`
	LastUpdated  time.Time            `json:"last_updated"`
	Incomplete   bool                 `json:"incomplete"`
}

type RecentActivity struct {
	Recent     []*RecentReferral `json:"recent_referrals"`
	TotalCount int64             `json:"total_count"`
}

// ReferralService owns the ledger. Commit is the single write path into it;
// status changes go through the central transition table.
type ReferralService interface {
	Commit(ctx context.Context, input CommitInput) (*types.ReferralEntry, error)
	UpdateStatus(ctx context.Context, clientID, resourceID uuid.UUID, newStatus types.ReferralStatus, notes string) (*types.ReferralEntry, error)
	ListForClient(ctx context.Context, clientID uuid.UUID) ([]*ReferralView, error)
	Recent(ctx context.Context, limit int) (*RecentActivity, error)
}

type referralService struct {
	db           *gorm.DB
	log          *logger.Logger
	referralRepo repos.ReferralRepo
	resourceRepo repos.ResourceRepo
	clientRepo   repos.ClientRepo
	catalog      CatalogService
	sseHub       *sse.SSEHub
	mailer       ReferralMailer
}

func NewReferralService(
	db *gorm.DB,
	baseLog *logger.Logger,
	referralRepo repos.ReferralRepo,
	resourceRepo repos.ResourceRepo,
	clientRepo repos.ClientRepo,
	catalog CatalogService,
	sseHub *sse.SSEHub,
	mailer ReferralMailer,
) ReferralService {
	return &referralService{
		db:           db,
		log:          baseLog.With("service", "ReferralService"),
		referralRepo: referralRepo,
		resourceRepo: resourceRepo,
		clientRepo:   clientRepo,
		catalog:      catalog,
		sseHub:       sseHub,
		mailer:       mailer,
	}
}

// Commit creates the referral unless one already exists for the pair.
// On a duplicate the existing entry is returned alongside the error so the
// caller can show what is already there; the original is never overwritten.
func (s *referralService) Commit(ctx context.Context, input CommitInput) (*types.ReferralEntry, error) {
	if _, ok := types.ParseReferralProvenance(string(input.Provenance)); !ok {
		return nil, apperr.Validation("invalid provenance %q", input.Provenance)
	}

	resources, err := s.resourceRepo.GetByIDs(ctx, nil, []uuid.UUID{input.ResourceID})
	if err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}
	if len(resources) == 0 {
		return nil, apperr.NotFound("resource %s not found", input.ResourceID)
	}
	resource := resources[0]
	if _, ok := types.ParseCategory(string(resource.Category)); !ok {
		return nil, apperr.Validation("resource %s has invalid category %q", resource.ID, resource.Category)
	}

	clients, err := s.clientRepo.GetByIDs(ctx, nil, []uuid.UUID{input.ClientID})
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	if len(clients) == 0 {
		return nil, apperr.NotFound("client %s not found", input.ClientID)
	}
	client := clients[0]

	now := time.Now().UTC()
	entry := &types.ReferralEntry{
		ID:          uuid.New(),
		ClientID:    input.ClientID,
		ResourceID:  input.ResourceID,
		Status:      types.StatusPending,
		Provenance:  input.Provenance,
		Notes:       input.Notes,
		AddedDate:   now,
		LastUpdated: now,
	}
	// AI provenance is the only path that records reasoning.
	if input.Provenance == types.ProvenanceMatch && strings.TrimSpace(input.Rationale) != "" {
		rationale := input.Rationale
		entry.AIReasoning = &rationale
	}

	inserted, err := s.referralRepo.CreateIfAbsent(ctx, nil, entry)
	if err != nil {
		s.log.Error("Commit insert failed", "error", err, "client_id", input.ClientID, "resource_id", input.ResourceID)
		return nil, fmt.Errorf("create referral: %w", err)
	}
	if !inserted {
		existing, err := s.referralRepo.GetByKey(ctx, nil, input.ClientID, input.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("load existing referral: %w", err)
		}
		return existing, apperr.DuplicateReferral("referral already exists for client %s and resource %s", input.ClientID, input.ResourceID)
	}

	s.broadcast(sse.SSEEventReferralCreated, client, resource, entry)

	if input.NotifyEmail != "" && s.mailer != nil {
		if err := s.mailer.SendReferralNotice(ctx, client, resource, entry, input.NotifyEmail); err != nil {
			// Notification is best-effort; the referral itself stands.
			s.log.Warn("Referral notification failed", "error", err, "to", input.NotifyEmail)
		}
	}

	return entry, nil
}

func (s *referralService) UpdateStatus(ctx context.Context, clientID, resourceID uuid.UUID, newStatus types.ReferralStatus, notes string) (*types.ReferralEntry, error) {
	if _, ok := types.ParseReferralStatus(string(newStatus)); !ok {
		return nil, apperr.Validation("unknown status %q", newStatus)
	}

	var updated *types.ReferralEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.referralRepo.GetByKey(ctx, tx, clientID, resourceID)
		if err != nil {
			return fmt.Errorf("load referral: %w", err)
		}
		if entry == nil {
			return apperr.NotFound("no referral for client %s and resource %s", clientID, resourceID)
		}
		if !entry.Status.CanTransitionTo(newStatus) {
			return apperr.InvalidTransition("cannot move referral from %q to %q", entry.Status, newStatus)
		}

		updates := map[string]interface{}{
			"status":       newStatus,
			"last_updated": time.Now().UTC(),
		}
		if strings.TrimSpace(notes) != "" {
			combined := notes
			if entry.Notes != "" {
				combined = entry.Notes + "\n" + notes
			}
			updates["notes"] = combined
		}

		if _, err := s.referralRepo.UpdateFields(ctx, tx, clientID, resourceID, updates); err != nil {
			return fmt.Errorf("update referral: %w", err)
		}
		updated, err = s.referralRepo.GetByKey(ctx, tx, clientID, resourceID)
		if err != nil {
			return fmt.Errorf("reload referral: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(sse.SSEEventReferralStatusChanged, nil, nil, updated)
	return updated, nil
}

// ListForClient resolves the client's entries in insertion order. Resource
// and client lookups run in parallel; missing references do not fail the
// read, they mark the row incomplete (reconciliation-on-read).
func (s *referralService) ListForClient(ctx context.Context, clientID uuid.UUID) ([]*ReferralView, error) {
	entries, err := s.referralRepo.ListByClientID(ctx, nil, clientID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}

	resourceIDs := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		resourceIDs = append(resourceIDs, e.ResourceID)
	}

	var (
		resources []*types.ResourceRecord
		clients   []*types.Client
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resources, err = s.resourceRepo.GetByIDs(gctx, nil, resourceIDs)
		return err
	})
	g.Go(func() error {
		var err error
		clients, err = s.clientRepo.GetByIDs(gctx, nil, []uuid.UUID{clientID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve referral references: %w", err)
	}

	byID := make(map[uuid.UUID]*types.ResourceRecord, len(resources))
	for _, r := range resources {
		byID[r.ID] = r
	}
	clientName := ""
	if len(clients) > 0 {
		clientName = clients[0].DisplayName()
	}

	views := make([]*ReferralView, 0, len(entries))
	for _, e := range entries {
		view := &ReferralView{
			Entry:      e,
			Resource:   byID[e.ResourceID],
			ClientName: clientName,
		}
		view.Incomplete = view.Resource == nil || clientName == ""
		views = append(views, view)
	}
	return views, nil
}

func (s *referralService) Recent(ctx context.Context, limit int) (*RecentActivity, error) {
	entries, err := s.referralRepo.ListRecent(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent referrals: %w", err)
	}
	total, err := s.referralRepo.Count(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}

	resourceIDs := make([]uuid.UUID, 0, len(entries))
	clientIDs := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		resourceIDs = append(resourceIDs, e.ResourceID)
		clientIDs = append(clientIDs, e.ClientID)
	}

	var (
		resources []*types.ResourceRecord
		clients   []*types.Client
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resources, err = s.resourceRepo.GetByIDs(gctx, nil, resourceIDs)
		return err
	})
	g.Go(func() error {
		var err error
		clients, err = s.clientRepo.GetByIDs(gctx, nil, clientIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve recent references: %w", err)
	}

	resourceByID := make(map[uuid.UUID]*types.ResourceRecord, len(resources))
	for _, r := range resources {
		resourceByID[r.ID] = r
	}
	clientByID := make(map[uuid.UUID]*types.Client, len(clients))
	for _, c := range clients {
		clientByID[c.ID] = c
	}

	out := make([]*RecentReferral, 0, len(entries))
	for _, e := range entries {
		row := &RecentReferral{
			ClientID:    e.ClientID,
			ResourceID:  e.ResourceID,
			Status:      e.Status,
			AddedDate:   e.AddedDate,
			LastUpdated: e.LastUpdated,
		}
		if c, ok := clientByID[e.ClientID]; ok {
			row.ClientName = c.DisplayName()
		}
		if r, ok := resourceByID[e.ResourceID]; ok {
			row.Organization = r.Organization
			row.ProgramType = r.ProgramType
			row.Category = s.catalog.Categorize(r)
		}
		row.Incomplete = row.ClientName == "" || row.Organization == ""
		out = append(out, row)
	}
	return &RecentActivity{Recent: out, TotalCount: total}, nil
}

func (s *referralService) broadcast(event sse.SSEEvent, client *types.Client, resource *types.ResourceRecord, entry *types.ReferralEntry) {
	if s.sseHub == nil || entry == nil {
		return
	}
	data := map[string]interface{}{
		"client_id":   entry.ClientID,
		"resource_id": entry.ResourceID,
		"status":      entry.Status,
	}
	if client != nil {
		data["client_name"] = client.DisplayName()
	}
	if resource != nil {
		data["organization"] = resource.Organization
	}
	s.sseHub.Broadcast(sse.SSEMessage{
		Channel: sse.ChannelDashboard,
		Event:   event,
		Data:    data,
	})
}
