package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"

	"github.com/calagora/freebusy-backend/internal/config"
	"github.com/calagora/freebusy-backend/internal/model"
)

const addressGenerationKey = "addresses:generation"

// AddressCache caches directory lookups keyed by calendar address. Entries
// live under a generation counter, so Reset invalidates the whole cache with
// a single INCR instead of scanning keys.
type AddressCache struct {
	pool   *redis.Pool
	logger *zap.SugaredLogger
}

func NewAddressCache(pool *redis.Pool, logger *zap.SugaredLogger) *AddressCache {
	return &AddressCache{
		pool:   pool,
		logger: logger,
	}
}

func (c *AddressCache) Get(ctx context.Context, address string) (*model.User, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	key, err := c.addressKey(conn, address)
	if err != nil {
		return nil, err
	}

	data, err := redis.Bytes(conn.Do("GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, model.ErrNoRecord
		}
		return nil, fmt.Errorf("GET: %w", err)
	}

	user := &model.User{}
	if err := json.Unmarshal(data, user); err != nil {
		c.logger.Warnw("Dropping unreadable cache entry", "key", key, "err", err)
		return nil, model.ErrNoRecord
	}

	return user, nil
}

func (c *AddressCache) Set(ctx context.Context, address string, user *model.User) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	key, err := c.addressKey(conn, address)
	if err != nil {
		return err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	ttl := int64(config.DirectoryCacheTTL().Seconds())
	if _, err := conn.Do("SETEX", key, ttl, data); err != nil {
		return fmt.Errorf("SETEX: %w", err)
	}

	return nil
}

// Reset bumps the generation counter, orphaning every cached entry. Orphans
// expire on their own TTL.
func (c *AddressCache) Reset(ctx context.Context) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("INCR", addressGenerationKey); err != nil {
		return fmt.Errorf("INCR: %w", err)
	}

	return nil
}

func (c *AddressCache) addressKey(conn redis.Conn, address string) (string, error) {
	generation, err := redis.Int64(conn.Do("GET", addressGenerationKey))
	if err != nil && !errors.Is(err, redis.ErrNil) {
		return "", fmt.Errorf("GET generation: %w", err)
	}

	return fmt.Sprintf("addresses:%d:%s", generation, address), nil
}
