package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Domenick1991/airdash/config"
	"github.com/Domenick1991/airdash/internal/session"
)

// RedisSessionStore persists the dashboard session in Redis so several
// dashboard processes (or hosts) can share one sign-in per profile.
type RedisSessionStore struct {
	client     redis.Cmdable
	profile    string
	sessionTTL time.Duration
}

func NewRedisSessionStore(cfg config.RedisConfig, profile string, sessionTTL time.Duration) *RedisSessionStore {
	return NewRedisSessionStoreWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		profile,
		sessionTTL,
	)
}

func NewRedisSessionStoreWithClient(client redis.Cmdable, profile string, sessionTTL time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, profile: profile, sessionTTL: sessionTTL}
}

func (c *RedisSessionStore) Load(ctx context.Context) (session.Session, error) {
	data, err := c.client.Get(ctx, sessionKey(c.profile)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return session.Session{}, fmt.Errorf("%w: %v", session.ErrCorrupt, err)
	}
	return sess, nil
}

func (c *RedisSessionStore) Save(ctx context.Context, sess session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(c.profile), payload, c.sessionTTL).Err()
}

func (c *RedisSessionStore) Clear(ctx context.Context) error {
	return c.client.Del(ctx, sessionKey(c.profile)).Err()
}

// Ping checks connectivity before the store is handed to the session manager.
func (c *RedisSessionStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func sessionKey(profile string) string {
	return fmt.Sprintf("airdash:session:%s", profile)
}

var _ session.Store = (*RedisSessionStore)(nil)
