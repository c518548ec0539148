package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careloop/referral-backend/internal/apperr"
	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/repos"
	"github.com/careloop/referral-backend/internal/types"
)

// ClientService is the client directory surface the referral core depends
// on: lookup by id and listing, plus intake creation for the caseworker UI.
type ClientService interface {
	CreateClient(ctx context.Context, tx *gorm.DB, client *types.Client) (*types.Client, error)
	GetClient(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Client, error)
	ListClients(ctx context.Context, tx *gorm.DB) ([]*types.Client, error)
}

type clientService struct {
	db         *gorm.DB
	log        *logger.Logger
	clientRepo repos.ClientRepo
}

func NewClientService(db *gorm.DB, baseLog *logger.Logger, clientRepo repos.ClientRepo) ClientService {
	return &clientService{
		db:         db,
		log:        baseLog.With("service", "ClientService"),
		clientRepo: clientRepo,
	}
}

func (s *clientService) CreateClient(ctx context.Context, tx *gorm.DB, client *types.Client) (*types.Client, error) {
	if client == nil || strings.TrimSpace(client.FirstName) == "" {
		return nil, apperr.Validation("first name is required")
	}
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	if _, err := s.clientRepo.Create(ctx, tx, []*types.Client{client}); err != nil {
		s.log.Error("CreateClient failed", "error", err)
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Client, error) {
	clients, err := s.clientRepo.GetByIDs(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	if len(clients) == 0 {
		return nil, apperr.NotFound("client %s not found", id)
	}
	return clients[0], nil
}

func (s *clientService) ListClients(ctx context.Context, tx *gorm.DB) ([]*types.Client, error) {
	return s.clientRepo.List(ctx, tx)
}
