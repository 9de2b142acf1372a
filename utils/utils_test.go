package utils

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
)

func useTestConfig(t *testing.T) {
	t.Helper()
	cfg := config.AppConfig{}
	cfg.App.JWTSecret = "test-secret"
	cfg.Redis.CacheTTLSeconds = 20
	config.Set(cfg)
}

// useMiniredis points the shared client at an in-process Redis for the test.
func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	UseRedis(rc)
	t.Cleanup(func() {
		UseRedis(nil)
		_ = rc.Close()
	})
	return mr
}

func withoutRedis(t *testing.T) {
	t.Helper()
	UseRedis(nil)
}
