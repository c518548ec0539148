package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/types"
)

// MatchStore keeps match sessions in Redis under TTL'd keys so multiple
// replicas share them. Key expiry implements the inactivity window: every
// Put resets the TTL, an expired key reads as no session.
type MatchStore struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewMatchStore(log *logger.Logger, ttl time.Duration) (*MatchStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_MATCH_PREFIX"))
	if prefix == "" {
		prefix = "match_session"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &MatchStore{
		log:    log.With("service", "RedisMatchStore"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (s *MatchStore) key(clientID uuid.UUID, category types.Category) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, clientID, category)
}

func (s *MatchStore) Get(ctx context.Context, clientID uuid.UUID, category types.Category) (*types.MatchSession, error) {
	raw, err := s.rdb.Get(ctx, s.key(clientID, category)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var session types.MatchSession
	if err := json.Unmarshal(raw, &session); err != nil {
		s.log.Warn("Dropping undecodable match session", "error", err)
		return nil, nil
	}
	return &session, nil
}

func (s *MatchStore) Put(ctx context.Context, session *types.MatchSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(session.ClientID, session.Category), raw, s.ttl).Err()
}

func (s *MatchStore) Delete(ctx context.Context, clientID uuid.UUID, category types.Category) error {
	return s.rdb.Del(ctx, s.key(clientID, category)).Err()
}

func (s *MatchStore) Close() error {
	return s.rdb.Close()
}
