package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniredis starts an in-process Redis server for backend tests, so the
// redis cache store can be exercised without a real server. Shut down via
// test cleanup.
func NewMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	return miniredis.RunT(t)
}

// NewMiniredisClient starts an in-process Redis server and returns it along
// with a client wired to it, the pair redisdb.NewWithClient wants in tests.
// Both are shut down via test cleanup.
func NewMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close miniredis client: %v", err)
		}
	})

	return mr, client
}
