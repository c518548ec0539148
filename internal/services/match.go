package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careloop/referral-backend/internal/apperr"
	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/repos"
	"github.com/careloop/referral-backend/internal/types"
)

type MatchResult struct {
	Candidates []types.RankedCandidate `json:"candidates"`
	Rationale  string                  `json:"rationale"`
}

// MatchService orchestrates assisted matching: it feeds the ranking oracle
// the client profile plus the category-filtered catalog subset, keeps the
// resulting session for follow-up refinement, and never re-sorts what the
// oracle returned.
type MatchService interface {
	RequestMatch(ctx context.Context, clientID uuid.UUID, category types.Category) (*MatchResult, error)
	FollowUp(ctx context.Context, clientID uuid.UUID, category types.Category, message string) (string, error)
	ResetSession(ctx context.Context, clientID uuid.UUID, category types.Category) error
}

type matchService struct {
	db         *gorm.DB
	log        *logger.Logger
	clientRepo repos.ClientRepo
	catalog    CatalogService
	oracle     RankingOracle
	sessions   MatchSessionStore
}

func NewMatchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	clientRepo repos.ClientRepo,
	catalog CatalogService,
	oracle RankingOracle,
	sessions MatchSessionStore,
) MatchService {
	return &matchService{
		db:         db,
		log:        baseLog.With("service", "MatchService"),
		clientRepo: clientRepo,
		catalog:    catalog,
		oracle:     oracle,
		sessions:   sessions,
	}
}

func validMatchCategory(category types.Category) bool {
	switch category {
	case types.CategoryHousing, types.CategoryFood, types.CategoryTransportation:
		return true
	}
	return false
}

func (s *matchService) loadProfile(ctx context.Context, clientID uuid.UUID) (ClientProfile, error) {
	clients, err := s.clientRepo.GetByIDs(ctx, nil, []uuid.UUID{clientID})
	if err != nil {
		return ClientProfile{}, fmt.Errorf("load client: %w", err)
	}
	if len(clients) == 0 {
		return ClientProfile{}, apperr.NotFound("client %s not found", clientID)
	}
	c := clients[0]
	return ClientProfile{
		ID:          c.ID,
		Name:        c.DisplayName(),
		DateOfBirth: c.DateOfBirth,
		Contact:     c.Contact,
		Notes:       c.Notes,
	}, nil
}

func (s *matchService) RequestMatch(ctx context.Context, clientID uuid.UUID, category types.Category) (*MatchResult, error) {
	if !validMatchCategory(category) {
		return nil, apperr.Validation("invalid match category %q", category)
	}

	profile, err := s.loadProfile(ctx, clientID)
	if err != nil {
		return nil, err
	}

	subset, err := s.catalog.Search(ctx, nil, "", category)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &types.MatchSession{
		ClientID:     clientID,
		Category:     category,
		CreatedAt:    now,
		LastActivity: now,
	}

	if len(subset) > 0 {
		ranked, err := s.oracle.Rank(ctx, profile, category, subset)
		if err != nil {
			// The oracle failed: surface it, keep any prior session intact.
			s.log.Warn("RequestMatch oracle failure", "error", err, "client_id", clientID, "category", category)
			return nil, err
		}
		byID := make(map[string]*types.ResourceRecord, len(subset))
		for _, rec := range subset {
			byID[rec.ID.String()] = rec
		}
		for _, item := range ranked.Ranking {
			rec, ok := byID[item.ResourceID]
			if !ok {
				s.log.Warn("Oracle ranked unknown resource, skipping", "resource_id", item.ResourceID)
				continue
			}
			session.Candidates = append(session.Candidates, types.RankedCandidate{
				Resource: *rec,
				Reason:   item.Reason,
			})
		}
		session.Rationale = ranked.Rationale
	} else {
		session.Rationale = "No catalog entries matched this category."
	}

	// Later responses win: a concurrent RequestMatch for the same key is
	// overwritten by whichever Put lands last.
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store match session: %w", err)
	}

	return &MatchResult{Candidates: session.Candidates, Rationale: session.Rationale}, nil
}

func (s *matchService) FollowUp(ctx context.Context, clientID uuid.UUID, category types.Category, message string) (string, error) {
	if message == "" {
		return "", apperr.Validation("message is required")
	}
	if !validMatchCategory(category) {
		return "", apperr.Validation("invalid match category %q", category)
	}

	session, err := s.sessions.Get(ctx, clientID, category)
	if err != nil {
		return "", fmt.Errorf("load match session: %w", err)
	}
	if session == nil {
		return "", apperr.NoActiveSession("no active match session for client %s in %s", clientID, category)
	}

	profile, err := s.loadProfile(ctx, clientID)
	if err != nil {
		return "", err
	}

	reply, err := s.oracle.Converse(ctx, profile, session.Candidates, session.Transcript, message)
	if err != nil {
		// Session stays exactly as it was; the caller can retry the turn.
		return "", err
	}

	now := time.Now().UTC()
	session.Transcript = session.AppendTurns(
		types.MatchTurn{Role: types.TurnRoleUser, Content: message, At: now},
		types.MatchTurn{Role: types.TurnRoleAssistant, Content: reply, At: now},
	)
	session.LastActivity = now
	if err := s.sessions.Put(ctx, session); err != nil {
		return "", fmt.Errorf("store match session: %w", err)
	}
	return reply, nil
}

func (s *matchService) ResetSession(ctx context.Context, clientID uuid.UUID, category types.Category) error {
	if !validMatchCategory(category) {
		return apperr.Validation("invalid match category %q", category)
	}
	return s.sessions.Delete(ctx, clientID, category)
}
