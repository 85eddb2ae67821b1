package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces idempotency keys so a shared Redis can host other
// tenants without collisions.
const keyPrefix = "eventsink:idem:"

// Redis is an idempotency store backed by a shared Redis instance, for
// deployments running more than one dispatcher replica.
type Redis struct {
	client *redis.Client
}

// NewRedis connects a store to the given Redis instance.
// Callers must Close the store; use Ping to verify reachability at startup.
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Once claims key for ttl using SET NX, which is atomic across replicas.
func (r *Redis) Once(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, keyPrefix+key, 1, ttl).Result()
}

// Ping verifies the Redis instance is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	return r.client.Close()
}
