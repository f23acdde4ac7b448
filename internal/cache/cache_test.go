package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/timkrebs/imageweb/internal/commands"
)

// getTestRedisClient creates a Redis client for testing
// Skips the test if Redis is not available
func getTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
		return nil
	}

	return client
}

func TestKey(t *testing.T) {
	inv := commands.InvariantCulture
	a := Key("photos/cat.jpg", "v1", commands.ParseQuery("width=4&height=6"), inv)
	b := Key("photos/cat.jpg", "v1", commands.ParseQuery("HEIGHT=6&width=4"), inv)
	if a != b {
		t.Errorf("Key() differs for reordered commands: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len(Key()) = %d, want 64", len(a))
	}

	tests := []struct {
		name    string
		path    string
		version string
		cmds    *commands.Collection
		culture commands.Culture
	}{
		{"other path", "photos/dog.jpg", "v1", commands.ParseQuery("width=4&height=6"), inv},
		{"replaced source", "photos/cat.jpg", "v2", commands.ParseQuery("width=4&height=6"), inv},
		{"other value", "photos/cat.jpg", "v1", commands.ParseQuery("width=5&height=6"), inv},
		{"no commands", "photos/cat.jpg", "v1", commands.NewCollection(), inv},
		{"other culture", "photos/cat.jpg", "v1", commands.ParseQuery("width=4&height=6"), commands.ParseCulture("de-DE")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.path, tt.version, tt.cmds, tt.culture); got == a {
				t.Errorf("Key(%s) collides with the reference key", tt.name)
			}
		})
	}
}

func TestCache_SetGet(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	c := New(client, time.Minute, 0)
	ctx := context.Background()
	key := Key("test/cache.png", "", commands.ParseQuery("width=1"), commands.InvariantCulture)
	defer c.Delete(ctx, key)

	if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get() before Set error = %v, want ErrMiss", err)
	}

	want := &Entry{ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G', 0x00}}
	if err := c.Set(ctx, key, want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ContentType != want.ContentType || string(got.Data) != string(want.Data) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	ttl, err := client.TTL(ctx, keyPrefix+key).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within (0, 1m]", ttl)
	}
}

func TestCache_SkipsOversized(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	c := New(client, time.Minute, 4)
	ctx := context.Background()
	key := Key("test/large.png", "", commands.NewCollection(), commands.InvariantCulture)
	defer c.Delete(ctx, key)

	if err := c.Set(ctx, key, &Entry{ContentType: "image/png", Data: []byte("too large")}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() error = %v, want ErrMiss", err)
	}
}
