package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNopAlwaysOwnsKey(t *testing.T) {
	var g SubmissionGuard = Nop{}

	_, ok, err := g.Begin(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, g.Complete(context.Background(), "k", uuid.New()))
	assert.NoError(t, g.Abort(context.Background(), "k"))
}

func TestNewRedisClient_EmptyOrUnreachable(t *testing.T) {
	assert.Nil(t, NewRedisClient("", "", 0, zap.NewNop()))
	assert.Nil(t, NewRedisClient("127.0.0.1:1", "", 0, zap.NewNop()))
}

func TestRedisGuard_ReportsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer client.Close()
	g := NewRedisGuard(client, time.Second, time.Minute, zap.NewNop())

	_, ok, err := g.Begin(context.Background(), "k")

	assert.Error(t, err)
	assert.False(t, ok)
	assert.NotErrorIs(t, err, ErrInFlight)
}

// fakeRedis keeps values and their TTLs in memory for the four commands the
// guard issues.
type fakeRedis struct {
	redis.Cmdable

	mu   sync.Mutex
	vals map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{vals: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vals[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.vals[key], f.ttls[key] = value.(string), ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vals[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key], f.ttls[key] = value.(string), ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.vals[k]; ok {
			delete(f.vals, k)
			delete(f.ttls, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// expire drops key as Redis would once its TTL ran out.
func (f *fakeRedis) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vals, key)
	delete(f.ttls, key)
}

func TestRedisGuard_PendingClaimIsShortLived(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	g := NewRedisGuard(rdb, 30*time.Second, 24*time.Hour, zap.NewNop())
	key := "hotel-booking:submission:form-1"

	_, ok, err := g.Begin(ctx, "form-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, rdb.ttls[key])

	_, _, err = g.Begin(ctx, "form-1")
	assert.ErrorIs(t, err, ErrInFlight)

	id := uuid.New()
	require.NoError(t, g.Complete(ctx, "form-1", id))
	assert.Equal(t, 24*time.Hour, rdb.ttls[key])

	existing, ok, err := g.Begin(ctx, "form-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, id, existing)
}

func TestRedisGuard_ExpiredPendingClaimCanBeRetaken(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	g := NewRedisGuard(rdb, 30*time.Second, 24*time.Hour, zap.NewNop())

	_, ok, err := g.Begin(ctx, "form-1")
	require.NoError(t, err)
	require.True(t, ok)

	// the owner crashed before Complete or Abort
	rdb.expire("hotel-booking:submission:form-1")

	_, ok, err = g.Begin(ctx, "form-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_AbortReleasesKey(t *testing.T) {
	ctx := context.Background()
	g := NewRedisGuard(newFakeRedis(), 30*time.Second, 24*time.Hour, zap.NewNop())

	_, ok, err := g.Begin(ctx, "form-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, g.Abort(ctx, "form-1"))

	_, ok, err = g.Begin(ctx, "form-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRedisGuard_PendingTTLNeverExceedsTTL(t *testing.T) {
	g := NewRedisGuard(newFakeRedis(), 0, time.Hour, zap.NewNop())
	assert.Equal(t, time.Hour, g.pendingTTL)

	g = NewRedisGuard(newFakeRedis(), 2*time.Hour, time.Hour, zap.NewNop())
	assert.Equal(t, time.Hour, g.pendingTTL)
}
