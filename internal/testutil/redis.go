// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// GetTestRedisOptions points at REDIS_TEST_ADDR, or a local Redis on DB 1 so
// tests never touch DB 0.
func GetTestRedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return &redis.Options{Addr: addr, DB: 1}
}

// NewTestRedis starts an in-process miniredis and a client for it. Both are
// closed when the test ends.
func NewTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return server, client
}
