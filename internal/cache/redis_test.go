package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/airdash/config"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/session"
)

// MockCmdable overrides only the redis commands the store uses.
type MockCmdable struct {
	redis.Cmdable
	mock.Mock
}

func (m *MockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	cmd := redis.NewStringCmd(ctx)
	if err := args.Error(1); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(args.String(0))
	}
	return cmd
}

func (m *MockCmdable) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, ttl)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetErr(args.Error(0))
	return cmd
}

func (m *MockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetErr(args.Error(0))
	return cmd
}

func TestNewRedisSessionStore(t *testing.T) {
	store := NewRedisSessionStore(config.RedisConfig{Addr: "localhost:6379"}, "default", time.Hour)
	assert.NotNil(t, store)
}

func TestRedisSessionStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	client := &MockCmdable{}
	client.On("Get", ctx, "airdash:session:ops").Return("", redis.Nil).Once()

	_, err := NewRedisSessionStoreWithClient(client, "ops", time.Hour).Load(ctx)

	assert.ErrorIs(t, err, session.ErrNotFound)
	client.AssertExpectations(t)
}

func TestRedisSessionStore_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	client := &MockCmdable{}
	client.On("Get", ctx, "airdash:session:ops").Return("{", nil).Once()

	_, err := NewRedisSessionStoreWithClient(client, "ops", time.Hour).Load(ctx)

	assert.ErrorIs(t, err, session.ErrCorrupt)
}

func TestRedisSessionStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	sess := session.Session{Token: "tok", User: &domain.User{ID: 3, Role: domain.RoleManager}}
	payload, err := json.Marshal(sess)
	require.NoError(t, err)

	client := &MockCmdable{}
	client.On("Set", ctx, "airdash:session:ops", payload, time.Hour).Return(nil).Once()
	client.On("Get", ctx, "airdash:session:ops").Return(string(payload), nil).Once()
	store := NewRedisSessionStoreWithClient(client, "ops", time.Hour)

	require.NoError(t, store.Save(ctx, sess))
	loaded, err := store.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Token)
	assert.Equal(t, domain.RoleManager, loaded.User.Role)
	client.AssertExpectations(t)
}

func TestRedisSessionStore_ClearPropagatesError(t *testing.T) {
	ctx := context.Background()
	client := &MockCmdable{}
	client.On("Del", ctx, []string{"airdash:session:ops"}).Return(errors.New("connection refused")).Once()

	err := NewRedisSessionStoreWithClient(client, "ops", time.Hour).Clear(ctx)

	assert.EqualError(t, err, "connection refused")
}
