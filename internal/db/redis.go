package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps the redis client shared by the native bridge and the
// tools that stand in for a native host.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes an instrumented Redis client and checks the
// connection.
func InitRedis(addr string, logger *zap.Logger) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		_ = rs.Client.Close()
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		_ = rs.Client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if logger != nil {
		logger.Info("Connected to Redis", zap.String("addr", addr))
	}
	return rs, nil
}

// Publish sends payload on channel.
func (r *RedisStore) Publish(channel string, payload []byte) error {
	return r.Client.Publish(r.Ctx, channel, payload).Err()
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.Client.Close()
}
