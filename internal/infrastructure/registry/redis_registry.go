// Package registry is a redis-backed service registry. Each instance owns
// one TTL key under registry:services:<name>:<instance> whose value is its
// host:port; liveness is the key still existing, so a crashed instance
// vanishes after one TTL with no deregistration protocol.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
)

const keyPrefix = "registry:services:"

type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger

	instanceID string
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisRegistry {
	return &RedisRegistry{
		client:     client,
		ttl:        ttl,
		log:        log,
		instanceID: uuid.NewString(),
	}
}

func (r *RedisRegistry) key(service string) string {
	return keyPrefix + service + ":" + r.instanceID
}

// Register announces this instance under the logical service name and keeps
// the registration alive by refreshing the key at half the TTL until the
// context is cancelled. The key is deleted on shutdown so peers stop
// resolving to a dying instance immediately.
func (r *RedisRegistry) Register(ctx context.Context, service, addr string) error {
	key := r.key(service)
	if err := r.client.Set(ctx, key, addr, r.ttl).Err(); err != nil {
		return domain.WrapUnavailable("registry register", err)
	}
	r.log.Info("service registered",
		zap.String("service", service), zap.String("addr", addr))

	go func() {
		ticker := time.NewTicker(r.ttl / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				if err := r.client.Del(cleanup, key).Err(); err != nil {
					r.log.Warn("registry deregister failed", zap.Error(err))
				}
				cancel()
				return
			case <-ticker.C:
				if err := r.client.Set(ctx, key, addr, r.ttl).Err(); err != nil && ctx.Err() == nil {
					r.log.Warn("registry heartbeat failed",
						zap.String("service", service), zap.Error(err))
				}
			}
		}
	}()
	return nil
}

// Resolve returns the live endpoints for a logical service name.
func (r *RedisRegistry) Resolve(ctx context.Context, service string) ([]string, error) {
	pattern := keyPrefix + service + ":*"

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 64).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, domain.WrapUnavailable("registry scan", err)
	}
	if len(keys) == 0 {
		return nil, domain.Unavailablef("no live instances of service %q", service)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.WrapUnavailable("registry mget", err)
	}

	endpoints := make([]string, 0, len(vals))
	for _, v := range vals {
		// A key can expire between SCAN and MGET.
		if s, ok := v.(string); ok && s != "" {
			endpoints = append(endpoints, s)
		}
	}
	if len(endpoints) == 0 {
		return nil, domain.Unavailablef("no live instances of service %q", service)
	}
	return endpoints, nil
}
