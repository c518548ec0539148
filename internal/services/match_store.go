package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/types"
)

// MatchSessionStore holds ephemeral matching sessions keyed by
// (client, category). Implementations enforce the inactivity TTL; an
// expired session reads as absent. Sessions are never persisted to the
// database.
type MatchSessionStore interface {
	Get(ctx context.Context, clientID uuid.UUID, category types.Category) (*types.MatchSession, error)
	Put(ctx context.Context, session *types.MatchSession) error
	Delete(ctx context.Context, clientID uuid.UUID, category types.Category) error
}

func matchSessionKey(clientID uuid.UUID, category types.Category) string {
	return clientID.String() + ":" + string(category)
}

type MemoryMatchStore struct {
	log *logger.Logger
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*types.MatchSession

	// now is swappable in tests.
	now func() time.Time
}

func NewMemoryMatchStore(baseLog *logger.Logger, ttl time.Duration) *MemoryMatchStore {
	return &MemoryMatchStore{
		log:      baseLog.With("service", "MemoryMatchStore"),
		ttl:      ttl,
		sessions: make(map[string]*types.MatchSession),
		now:      time.Now,
	}
}

func copySession(s *types.MatchSession) *types.MatchSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Candidates = append([]types.RankedCandidate(nil), s.Candidates...)
	cp.Transcript = append([]types.MatchTurn(nil), s.Transcript...)
	return &cp
}

func (m *MemoryMatchStore) Get(_ context.Context, clientID uuid.UUID, category types.Category) (*types.MatchSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := matchSessionKey(clientID, category)
	session, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	if m.now().Sub(session.LastActivity) > m.ttl {
		delete(m.sessions, key)
		return nil, nil
	}
	return copySession(session), nil
}

func (m *MemoryMatchStore) Put(_ context.Context, session *types.MatchSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[matchSessionKey(session.ClientID, session.Category)] = copySession(session)
	return nil
}

func (m *MemoryMatchStore) Delete(_ context.Context, clientID uuid.UUID, category types.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, matchSessionKey(clientID, category))
	return nil
}

// StartJanitor sweeps expired sessions so abandoned conversations do not
// pile up between reads.
func (m *MemoryMatchStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *MemoryMatchStore) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, session := range m.sessions {
		if now.Sub(session.LastActivity) > m.ttl {
			delete(m.sessions, key)
		}
	}
}
