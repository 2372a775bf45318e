package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// redisBackend is one Redis implementation the store contract runs against.
type redisBackend struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisBackends always includes miniredis. REDIS_ADDR adds an existing server and
// GO_TEST_INTEGRATION adds a redis:7 container.
func redisBackends(t *testing.T) []redisBackend {
	t.Helper()
	backends := []redisBackend{{
		name: "miniredis",
		setup: func(t *testing.T) redis.UniversalClient {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return rdb
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		backends = append(backends, redisBackend{
			name:  "standalone",
			setup: func(t *testing.T) redis.UniversalClient { return dialRedis(t, addr) },
		})
	}

	if os.Getenv("GO_TEST_INTEGRATION") != "" {
		backends = append(backends, redisBackend{
			name: "container",
			setup: func(t *testing.T) redis.UniversalClient {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
					ContainerRequest: testcontainers.ContainerRequest{
						Image:        "redis:7-alpine",
						ExposedPorts: []string{"6379/tcp"},
						WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
					},
					Started: true,
				})
				if err != nil {
					t.Fatalf("start redis container: %v", err)
				}
				t.Cleanup(func() { _ = c.Terminate(context.Background()) })

				host, err := c.Host(ctx)
				if err != nil {
					t.Fatalf("container host: %v", err)
				}
				port, err := c.MappedPort(ctx, "6379/tcp")
				if err != nil {
					t.Fatalf("mapped port: %v", err)
				}
				return dialRedis(t, fmt.Sprintf("%s:%s", host, port.Port()))
			},
		})
	}
	return backends
}

func dialRedis(t *testing.T, addr string) redis.UniversalClient {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("cannot connect to Redis at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisStoreContract(t *testing.T) {
	for _, backend := range redisBackends(t) {
		t.Run(backend.name, func(t *testing.T) {
			rdb := backend.setup(t)
			// A fresh prefix keeps runs against a shared server apart.
			store := NewRedisStore(rdb, "compat-"+uuid.NewString()[:8])
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)

			if err := store.Register(ctx, "t1", "alice", exp); err != nil {
				t.Fatalf("register: %v", err)
			}
			if err := store.Register(ctx, "t1", "alice", exp); !errors.Is(err, ErrDuplicateTokenID) {
				t.Fatalf("duplicate register: got %v", err)
			}

			next, err := store.Rotate(ctx, "t1", "t2", exp)
			if err != nil {
				t.Fatalf("rotate: %v", err)
			}
			if next.SubjectID != "alice" || next.Status != StatusActive {
				t.Fatalf("unexpected successor %+v", next)
			}

			if _, err := store.Rotate(ctx, "t1", "t3", exp); !errors.Is(err, ErrTokenReuseDetected) {
				t.Fatalf("replayed rotate: got %v", err)
			}

			if err := store.Register(ctx, "t4", "alice", exp); err != nil {
				t.Fatalf("register second session: %v", err)
			}
			active, err := store.ActiveSessions(ctx, "alice")
			if err != nil {
				t.Fatalf("active sessions: %v", err)
			}
			if len(active) != 2 {
				t.Fatalf("expected 2 active sessions, got %d", len(active))
			}

			n, err := store.RevokeAll(ctx, "alice")
			if err != nil {
				t.Fatalf("revoke all: %v", err)
			}
			if n != 2 {
				t.Fatalf("expected 2 revoked, got %d", n)
			}
			for _, id := range []string{"t2", "t4"} {
				e, err := store.Lookup(ctx, id)
				if err != nil {
					t.Fatalf("lookup %s: %v", id, err)
				}
				if e.Status != StatusRevoked {
					t.Fatalf("%s status = %s", id, e.Status)
				}
			}

			if err := store.Revoke(ctx, "missing"); err != nil {
				t.Fatalf("revoke missing: %v", err)
			}
			if err := store.Ping(ctx); err != nil {
				t.Fatalf("ping: %v", err)
			}
		})
	}
}

func TestRedisStoreExclusiveContract(t *testing.T) {
	for _, backend := range redisBackends(t) {
		t.Run(backend.name, func(t *testing.T) {
			store := NewRedisStore(backend.setup(t), "compat-"+uuid.NewString()[:8])
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)

			for _, id := range []string{"a", "b"} {
				if err := store.Register(ctx, id, "bob", exp); err != nil {
					t.Fatalf("register %s: %v", id, err)
				}
			}
			revoked, err := store.RegisterExclusive(ctx, "c", "bob", exp)
			if err != nil {
				t.Fatalf("register exclusive: %v", err)
			}
			if revoked != 2 {
				t.Fatalf("expected 2 revoked, got %d", revoked)
			}
			active, err := store.ActiveSessions(ctx, "bob")
			if err != nil {
				t.Fatalf("active sessions: %v", err)
			}
			if len(active) != 1 || active[0].TokenID != "c" {
				t.Fatalf("unexpected active set %+v", active)
			}
		})
	}
}
