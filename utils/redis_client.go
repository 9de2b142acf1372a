package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
)

var (
	redisClient *redis.Client
	redisInit   bool
	redisMu     sync.Mutex
)

// GetRedis returns a singleton Redis client based on loaded config, or nil when
// Redis is not configured.
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisInit {
		return redisClient
	}
	redisInit = true

	rc := config.Get().Redis
	if rc.Host == "" {
		return nil
	}
	redisClient = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(rc.Host, strconv.Itoa(rc.Port)),
		Password:     rc.Password,
		DB:           rc.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	// ping only to log; callers fall back to the database on errors
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis ping failed addr=%s err=%v", redisClient.Options().Addr, err)
	}
	return redisClient
}

// UseRedis replaces the shared client; nil disables Redis.
func UseRedis(c *redis.Client) {
	redisMu.Lock()
	redisClient = c
	redisInit = true
	redisMu.Unlock()
}
