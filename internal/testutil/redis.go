//go:build integration

package testutil

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
)

// DeleteKey removes key now and again when the test finishes.
func DeleteKey(t *testing.T, addr, key string) {
	t.Helper()

	del := func() {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		if err := client.Del(context.Background(), key).Err(); err != nil {
			t.Errorf("deleting %s: %v", key, err)
		}
	}
	del()
	t.Cleanup(del)
}

// ListLen returns the length of the list at key.
func ListLen(t *testing.T, addr, key string) int64 {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	n, err := client.LLen(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("LLEN %s: %v", key, err)
	}
	return n
}
