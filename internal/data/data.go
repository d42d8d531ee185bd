// Package data provides data access layer implementations.
// It handles database connections and data persistence.
package data

import (
	"CircuitLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewMySQLClient,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient is the Redis client for event publishing
	redisClient *redis.Client
	// Note: MySQL DB is not stored here, it's injected directly to repositories
}

// NewData creates a new Data instance with all data layer dependencies.
// Redis connection failure does not prevent application startup (graceful degradation).
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	// Check if Redis is available
	if rdb == nil {
		helper.Warn("Redis client is nil, circuit events stay local to this process")
	}

	d := &Data{
		redisClient: rdb,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		// Redis cleanup is handled by NewRedisClient's cleanup function
		// which is called automatically by Wire
	}

	return d, cleanup, nil
}

// GetRedisClient returns the Redis client for event publishing.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
