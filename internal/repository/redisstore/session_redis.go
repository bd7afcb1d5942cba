package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docgate/internal/model"
	"docgate/internal/repository"
)

const keyPrefix = "docgate:session:"

func sessionKey(id string) string { return keyPrefix + id }
func actionsKey(id string) string { return keyPrefix + id + ":actions" }
func userKey(userID string) string {
	return "docgate:user_sessions:" + userID
}

// incrIfExists bumps the action counter only while the session key lives.
var incrIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local n = redis.call('INCR', KEYS[2])
redis.call('PEXPIRE', KEYS[2], redis.call('PTTL', KEYS[1]))
return n
`)

// updateIfExists rewrites a live session without touching its counter
// value, so a destroyed session stays destroyed.
var updateIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
if redis.call('PTTL', KEYS[3]) < tonumber(ARGV[2]) then
  redis.call('PEXPIRE', KEYS[3], ARGV[2])
end
return 1
`)

// SessionRepository stores sessions in Redis so several API instances share
// one view of sessions and action counters. Expiry is delegated to key TTLs.
type SessionRepository struct {
	rdb *redis.Client
	now func() time.Time
}

func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb, now: time.Now}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Save(ctx context.Context, s *model.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.SessionID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(s.SessionID), data, ttl)
		p.SetNX(ctx, actionsKey(s.SessionID), s.ActionCount, ttl)
		p.Expire(ctx, actionsKey(s.SessionID), ttl)
		p.SAdd(ctx, userKey(s.UserID), s.SessionID)
		p.Expire(ctx, userKey(s.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, s *model.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.SessionID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	keys := []string{sessionKey(s.SessionID), actionsKey(s.SessionID), userKey(s.UserID)}
	ok, err := updateIfExists.Run(ctx, r.rdb, keys, data, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *SessionRepository) Find(ctx context.Context, id string) (*model.Session, error) {
	var dataCmd *redis.StringCmd
	var countCmd *redis.StringCmd
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		dataCmd = p.Get(ctx, sessionKey(id))
		countCmd = p.Get(ctx, actionsKey(id))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("find session: %w", err)
	}

	data, err := dataCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if n, err := countCmd.Int(); err == nil {
		s.ActionCount = n
	}
	if s.Expired(r.now()) {
		return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	s, err := r.Find(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(id), actionsKey(id))
		if s != nil {
			p.SRem(ctx, userKey(s.UserID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) IncrementActions(ctx context.Context, id string) (int, error) {
	n, err := incrIfExists.Run(ctx, r.rdb, []string{sessionKey(id), actionsKey(id)}).Int()
	if err != nil {
		return 0, fmt.Errorf("increment session actions: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	return n, nil
}

func (r *SessionRepository) FindByUser(ctx context.Context, userID string) ([]model.Session, error) {
	ids, err := r.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	var out []model.Session
	var stale []any
	for _, id := range ids {
		s, err := r.Find(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if len(stale) > 0 {
		r.rdb.SRem(ctx, userKey(userID), stale...)
	}
	return out, nil
}

// DeleteExpired is a no-op: Redis drops session keys when their TTL runs
// out, and user indexes are pruned lazily by FindByUser.
func (r *SessionRepository) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
