package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	accessTokenField  = "accessToken"
	refreshTokenField = "refreshToken"
)

// RedisStore keeps a session's pair in Redis under
// <prefix>:<session>:accessToken and <prefix>:<session>:refreshToken,
// so that several processes of the same session share one pair.
type RedisStore struct {
	redis   redis.UniversalClient
	prefix  string
	session string
}

// NewRedisStore creates a RedisStore for one session
func NewRedisStore(rdb redis.UniversalClient, prefix, session string) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if session == "" {
		return nil, errors.New("session id is required")
	}
	if prefix == "" {
		prefix = "booktracker"
	}
	return &RedisStore{redis: rdb, prefix: prefix, session: session}, nil
}

func (s *RedisStore) key(field string) string {
	return s.prefix + ":" + s.session + ":" + field
}

func (s *RedisStore) Load(ctx context.Context) (CredentialPair, error) {
	values, err := s.redis.MGet(ctx, s.key(accessTokenField), s.key(refreshTokenField)).Result()
	if err != nil {
		return CredentialPair{}, fmt.Errorf("load credentials: %w", err)
	}

	pair := CredentialPair{
		AccessToken:  stringValue(values[0]),
		RefreshToken: stringValue(values[1]),
	}
	if err := pair.Validate(); err != nil {
		return CredentialPair{}, err
	}
	return pair, nil
}

func (s *RedisStore) Save(ctx context.Context, pair CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	if pair.IsZero() {
		return s.Clear(ctx)
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(accessTokenField), pair.AccessToken, 0)
		pipe.Set(ctx, s.key(refreshTokenField), pair.RefreshToken, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key(accessTokenField), s.key(refreshTokenField)).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
