// Package guard collapses repeated booking submissions that carry the same
// client Idempotency-Key onto one reservation.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrInFlight means an earlier submission with the key has not finished.
var ErrInFlight = errors.New("submission already in progress")

type SubmissionGuard interface {
	// Begin claims key. It returns the reservation id of a finished earlier
	// submission, or ok=true when the caller now owns the key.
	Begin(ctx context.Context, key string) (existing uuid.UUID, ok bool, err error)
	Complete(ctx context.Context, key string, reservationID uuid.UUID) error
	Abort(ctx context.Context, key string) error
}

const pendingMarker = "pending"

type RedisGuard struct {
	client     redis.Cmdable
	pendingTTL time.Duration
	ttl        time.Duration
	prefix     string
	log        *zap.Logger
}

// NewRedisGuard keeps an in-flight claim for pendingTTL, so a crashed
// submission frees its key quickly, and a finished one for ttl.
func NewRedisGuard(client redis.Cmdable, pendingTTL, ttl time.Duration, log *zap.Logger) *RedisGuard {
	if pendingTTL <= 0 || pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &RedisGuard{
		client:     client,
		pendingTTL: pendingTTL,
		ttl:        ttl,
		prefix:     "hotel-booking:submission:",
		log:        log.With(zap.String("guard", "redis")),
	}
}

func (g *RedisGuard) Begin(ctx context.Context, key string) (uuid.UUID, bool, error) {
	k := g.prefix + key

	claimed, err := g.client.SetNX(ctx, k, pendingMarker, g.pendingTTL).Result()
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("claim submission key: %w", err)
	}
	if claimed {
		return uuid.Nil, true, nil
	}

	val, err := g.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		claimed, err = g.client.SetNX(ctx, k, pendingMarker, g.pendingTTL).Result()
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("claim submission key: %w", err)
		}
		if claimed {
			return uuid.Nil, true, nil
		}
		return uuid.Nil, false, ErrInFlight
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("read submission key: %w", err)
	}
	if val == pendingMarker {
		return uuid.Nil, false, ErrInFlight
	}

	id, err := uuid.Parse(val)
	if err != nil {
		g.log.Warn("Corrupt submission key value", zap.String("key", key))
		return uuid.Nil, false, ErrInFlight
	}
	return id, false, nil
}

func (g *RedisGuard) Complete(ctx context.Context, key string, reservationID uuid.UUID) error {
	if err := g.client.Set(ctx, g.prefix+key, reservationID.String(), g.ttl).Err(); err != nil {
		return fmt.Errorf("complete submission key: %w", err)
	}
	return nil
}

func (g *RedisGuard) Abort(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("release submission key: %w", err)
	}
	return nil
}

// Nop lets every submission through. It is used when Redis is not configured.
type Nop struct{}

func (Nop) Begin(context.Context, string) (uuid.UUID, bool, error) { return uuid.Nil, true, nil }
func (Nop) Complete(context.Context, string, uuid.UUID) error      { return nil }
func (Nop) Abort(context.Context, string) error                    { return nil }

// NewRedisClient connects to addr and pings it. It returns nil when the server
// is unreachable so callers can fall back to Nop.
func NewRedisClient(addr, password string, db int, log *zap.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, submission guard disabled", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
