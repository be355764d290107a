// Package session keeps conversation history for HTTP callers in Redis.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"query-router/internal/common/config"
	"query-router/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "query-router:session:"

// RedisStore holds each session as a capped Redis list of JSON turns.
type RedisStore struct {
	client   *redis.Client
	ttl      time.Duration
	maxTurns int
}

func NewRedisStore(client *redis.Client, cfg config.SessionConfig) *RedisStore {
	return &RedisStore{
		client:   client,
		ttl:      time.Duration(cfg.TTL) * time.Second,
		maxTurns: cfg.MaxTurns,
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Load returns the stored turns, oldest first. An unknown session is empty.
func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]models.HistoryTurn, error) {
	raw, err := s.client.LRange(ctx, key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	turns := make([]models.HistoryTurn, 0, len(raw))
	for _, item := range raw {
		var turn models.HistoryTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append adds turns, keeps the newest maxTurns and refreshes the TTL.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...models.HistoryTurn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, len(turns))
	for i, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		values[i] = b
	}

	k := key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, k, values...)
	if s.maxTurns > 0 {
		pipe.LTrim(ctx, k, int64(-s.maxTurns), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, k, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return nil
}
