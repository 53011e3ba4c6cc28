package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when a refresh token hash is unknown,
// expired or revoked.
var ErrTokenNotFound = errors.New("refresh token not found")

// RefreshSession is what a refresh token hash resolves to.
type RefreshSession struct {
	AccountID string
	Teacher   bool
}

// RedisTokenRepo keeps refresh token hashes in Redis hashes that expire
// with the token:
//
//	<prefix>:<sha256> -> {account_id, teacher}
type RedisTokenRepo struct {
	RDB    *redis.Client
	Prefix string
}

func NewRedisTokenRepo(rdb *redis.Client) *RedisTokenRepo {
	return &RedisTokenRepo{RDB: rdb, Prefix: "refresh"}
}

func (r *RedisTokenRepo) key(hash string) string { return r.Prefix + ":" + hash }

// StoreRefresh records a token hash until exp.
func (r *RedisTokenRepo) StoreRefresh(ctx context.Context, tokenHash string, sess RefreshSession, exp time.Time) error {
	teacher := "0"
	if sess.Teacher {
		teacher = "1"
	}
	k := r.key(tokenHash)
	_, err := r.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, "account_id", sess.AccountID, "teacher", teacher)
		p.ExpireAt(ctx, k, exp)
		return nil
	})
	return err
}

// ValidateRefresh resolves a token hash.  Expired keys are gone from
// Redis, so existence is validity.
func (r *RedisTokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (RefreshSession, error) {
	vals, err := r.RDB.HGetAll(ctx, r.key(tokenHash)).Result()
	if err != nil {
		return RefreshSession{}, err
	}
	id := vals["account_id"]
	if id == "" {
		return RefreshSession{}, ErrTokenNotFound
	}
	return RefreshSession{AccountID: id, Teacher: vals["teacher"] == "1"}, nil
}

// RevokeByHash deletes a token.  Revoking an unknown token is a no-op.
func (r *RedisTokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.RDB.Del(ctx, r.key(tokenHash)).Err()
}

// MemoryTokenRepo is the process-local fallback used when Redis is not
// reachable at startup.  Tokens do not survive a restart.
type MemoryTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

type memoryToken struct {
	sess RefreshSession
	exp  time.Time
}

func NewMemoryTokenRepo() *MemoryTokenRepo {
	return &MemoryTokenRepo{tokens: make(map[string]memoryToken), now: time.Now}
}

func (m *MemoryTokenRepo) StoreRefresh(_ context.Context, tokenHash string, sess RefreshSession, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = memoryToken{sess: sess, exp: exp}
	return nil
}

func (m *MemoryTokenRepo) ValidateRefresh(_ context.Context, tokenHash string) (RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok {
		return RefreshSession{}, ErrTokenNotFound
	}
	if m.now().After(t.exp) {
		delete(m.tokens, tokenHash)
		return RefreshSession{}, ErrTokenNotFound
	}
	return t.sess, nil
}

func (m *MemoryTokenRepo) RevokeByHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, tokenHash)
	return nil
}
