package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, *time.Time) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Now()
	store := NewRedisStore(rdb, "test").WithClock(func() time.Time { return now })
	return store, mr, &now
}

func mustRegister(t *testing.T, s *RedisStore, id, subject string, exp time.Time) {
	t.Helper()
	if err := s.Register(context.Background(), id, subject, exp); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
}

func mustStatus(t *testing.T, s *RedisStore, id string, want Status) {
	t.Helper()
	entry, err := s.Lookup(context.Background(), id)
	if err != nil {
		t.Fatalf("lookup %s: %v", id, err)
	}
	if entry.Status != want {
		t.Fatalf("entry %s status = %s, want %s", id, entry.Status, want)
	}
}

func TestRegisterAndLookup(t *testing.T) {
	s, mr, now := newRedisStoreTest(t)
	exp := now.Add(time.Hour)

	mustRegister(t, s, "r1", "alice-id", exp)

	entry, err := s.Lookup(context.Background(), "r1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry.SubjectID != "alice-id" || entry.Status != StatusActive || entry.ExpiresAt.Unix() != exp.Unix() {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if ttl := mr.TTL("test:rt:r1"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected entry TTL to mirror expiry, got %v", ttl)
	}
	if !mr.Exists("test:rs:alice-id") {
		t.Fatal("expected subject index to be created")
	}
}

func TestRegisterRejectsDuplicateTokenID(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	mustRegister(t, s, "r1", "alice-id", now.Add(time.Hour))

	err := s.Register(context.Background(), "r1", "bob-id", now.Add(time.Hour))
	if !errors.Is(err, ErrDuplicateTokenID) {
		t.Fatalf("expected ErrDuplicateTokenID, got %v", err)
	}
	entry, err := s.Lookup(context.Background(), "r1")
	if err != nil || entry.SubjectID != "alice-id" {
		t.Fatalf("duplicate register must not overwrite the original entry: %+v %v", entry, err)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	ctx := context.Background()

	if err := s.Register(ctx, "", "alice-id", now.Add(time.Hour)); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry for empty id, got %v", err)
	}
	if err := s.Register(ctx, "r1", "", now.Add(time.Hour)); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry for empty subject, got %v", err)
	}
	if err := s.Register(ctx, "r1", "alice-id", *now); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry for past expiry, got %v", err)
	}
}

func TestLookupExpiredIsNotFound(t *testing.T) {
	s, mr, now := newRedisStoreTest(t)
	mustRegister(t, s, "r1", "alice-id", now.Add(time.Minute))
	mustRegister(t, s, "r2", "alice-id", now.Add(time.Minute))

	mr.FastForward(2 * time.Minute)
	if _, err := s.Lookup(context.Background(), "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected TTL-expired entry to be ErrNotFound, got %v", err)
	}

	*now = now.Add(2 * time.Minute)
	mr.Set("test:rt:r3", string(mustEncode(t, "alice-id", now.Add(-time.Second))))
	if _, err := s.Lookup(context.Background(), "r3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected entry past its expiry to be ErrNotFound, got %v", err)
	}
}

func TestRotateMarksOldRotatedAndCreatesNew(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	mustRegister(t, s, "r1", "alice-id", now.Add(time.Hour))

	next, err := s.Rotate(context.Background(), "r1", "r2", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if next.TokenID != "r2" || next.SubjectID != "alice-id" || next.Status != StatusActive {
		t.Fatalf("unexpected rotated entry: %+v", next)
	}

	mustStatus(t, s, "r1", StatusRotated)
	mustStatus(t, s, "r2", StatusActive)

	entry, _ := s.Lookup(context.Background(), "r2")
	if entry.ExpiresAt.Unix() != now.Add(2*time.Hour).Unix() {
		t.Fatalf("new entry expiry = %v, want %v", entry.ExpiresAt, now.Add(2*time.Hour))
	}
}

func TestRotateRejectsNonActiveAsReuse(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	ctx := context.Background()
	mustRegister(t, s, "r1", "alice-id", now.Add(time.Hour))

	if _, err := s.Rotate(ctx, "r1", "r2", now.Add(time.Hour)); err != nil {
		t.Fatalf("first rotate: %v", err)
	}
	if _, err := s.Rotate(ctx, "r1", "r3", now.Add(time.Hour)); !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("expected ErrTokenReuseDetected for rotated entry, got %v", err)
	}
	if _, err := s.Lookup(ctx, "r3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("failed rotate must not create a successor, got %v", err)
	}

	if err := s.Revoke(ctx, "r2"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.Rotate(ctx, "r2", "r4", now.Add(time.Hour)); !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("expected ErrTokenReuseDetected for revoked entry, got %v", err)
	}
}

func TestRotateMissingAndDuplicate(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	ctx := context.Background()

	if _, err := s.Rotate(ctx, "missing", "r2", now.Add(time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mustRegister(t, s, "r1", "alice-id", now.Add(time.Hour))
	mustRegister(t, s, "r2", "bob-id", now.Add(time.Hour))
	if _, err := s.Rotate(ctx, "r1", "r2", now.Add(time.Hour)); !errors.Is(err, ErrDuplicateTokenID) {
		t.Fatalf("expected ErrDuplicateTokenID, got %v", err)
	}
	mustStatus(t, s, "r1", StatusActive)

	if _, err := s.Rotate(ctx, "r1", "r1", now.Add(time.Hour)); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry for self-rotation, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	ctx := context.Background()
	mustRegister(t, s, "r1", "alice-id", now.Add(time.Hour))

	for i := 0; i < 2; i++ {
		if err := s.Revoke(ctx, "r1"); err != nil {
			t.Fatalf("revoke #%d: %v", i+1, err)
		}
		mustStatus(t, s, "r1", StatusRevoked)
	}
	if err := s.Revoke(ctx, "never-registered"); err != nil {
		t.Fatalf("revoke of absent entry must succeed, got %v", err)
	}
}

func TestRevokeLeavesRotatedEntryRotated(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	ctx := context.Background()
	mustRegister(t, s, "r1", "alice-id", now.Add(time.Hour))
	if _, err := s.Rotate(ctx, "r1", "r2", now.Add(time.Hour)); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if err := s.Revoke(ctx, "r1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	mustStatus(t, s, "r1", StatusRotated)
}

func TestRevokeAllRevokesOnlyActiveEntriesOfSubject(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	ctx := context.Background()
	mustRegister(t, s, "a1", "alice-id", now.Add(time.Hour))
	mustRegister(t, s, "a2", "alice-id", now.Add(time.Hour))
	mustRegister(t, s, "b1", "bob-id", now.Add(time.Hour))
	if _, err := s.Rotate(ctx, "a1", "a3", now.Add(time.Hour)); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	n, err := s.RevokeAll(ctx, "alice-id")
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked = %d, want 2", n)
	}
	mustStatus(t, s, "a1", StatusRotated)
	mustStatus(t, s, "a2", StatusRevoked)
	mustStatus(t, s, "a3", StatusRevoked)
	mustStatus(t, s, "b1", StatusActive)

	if n, err := s.RevokeAll(ctx, "alice-id"); err != nil || n != 0 {
		t.Fatalf("second revoke all = %d, %v; want 0, nil", n, err)
	}
}

func TestRevokeAllPrunesExpiredIndexMembers(t *testing.T) {
	s, mr, now := newRedisStoreTest(t)
	ctx := context.Background()
	mustRegister(t, s, "a1", "alice-id", now.Add(time.Minute))
	mustRegister(t, s, "a2", "alice-id", now.Add(time.Hour))

	mr.FastForward(2 * time.Minute)
	if _, err := s.RevokeAll(ctx, "alice-id"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	members, err := mr.Members("test:rs:alice-id")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0] != "a2" {
		t.Fatalf("expected only live member to remain, got %v", members)
	}
}

func TestRegisterExclusiveRevokesOtherSessions(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	ctx := context.Background()
	mustRegister(t, s, "a1", "alice-id", now.Add(time.Hour))
	mustRegister(t, s, "a2", "alice-id", now.Add(time.Hour))

	n, err := s.RegisterExclusive(ctx, "a3", "alice-id", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("register exclusive: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked = %d, want 2", n)
	}
	mustStatus(t, s, "a1", StatusRevoked)
	mustStatus(t, s, "a2", StatusRevoked)
	mustStatus(t, s, "a3", StatusActive)

	if _, err := s.RegisterExclusive(ctx, "a3", "alice-id", now.Add(time.Hour)); !errors.Is(err, ErrDuplicateTokenID) {
		t.Fatalf("expected ErrDuplicateTokenID, got %v", err)
	}
	mustStatus(t, s, "a3", StatusActive)
}

func TestActiveSessionsListsOnlyActive(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	ctx := context.Background()
	mustRegister(t, s, "a1", "alice-id", now.Add(time.Hour))
	mustRegister(t, s, "a2", "alice-id", now.Add(time.Hour))
	if err := s.Revoke(ctx, "a1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	sessions, err := s.ActiveSessions(ctx, "alice-id")
	if err != nil {
		t.Fatalf("active sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].TokenID != "a2" {
		t.Fatalf("unexpected active sessions: %+v", sessions)
	}

	none, err := s.ActiveSessions(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no sessions for unknown subject, got %v %v", none, err)
	}
}

func TestCorruptEntryIsReported(t *testing.T) {
	s, mr, now := newRedisStoreTest(t)
	ctx := context.Background()
	mr.Set("test:rt:bad", "garbage")

	if _, err := s.Lookup(ctx, "bad"); !errors.Is(err, ErrCorruptEntry) {
		t.Fatalf("expected ErrCorruptEntry from lookup, got %v", err)
	}
	if _, err := s.Rotate(ctx, "bad", "r2", now.Add(time.Hour)); !errors.Is(err, ErrCorruptEntry) {
		t.Fatalf("expected ErrCorruptEntry from rotate, got %v", err)
	}
}

func TestBackendFailureIsStoreUnavailable(t *testing.T) {
	s, mr, now := newRedisStoreTest(t)
	mr.Close()

	ctx := context.Background()
	if err := s.Register(ctx, "r1", "alice-id", now.Add(time.Hour)); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("register: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := s.Lookup(ctx, "r1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("lookup: expected ErrStoreUnavailable, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("ping: expected ErrStoreUnavailable, got %v", err)
	}
}

func TestConcurrentRotateHasSingleWinner(t *testing.T) {
	s, _, now := newRedisStoreTest(t)
	mustRegister(t, s, "r1", "alice-id", now.Add(time.Hour))

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		reuse   int
		other   []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := s.Rotate(context.Background(), "r1", fmt.Sprintf("next-%d", i), now.Add(time.Hour))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrTokenReuseDetected):
				reuse++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if success != 1 || reuse != workers-1 || len(other) != 0 {
		t.Fatalf("success=%d reuse=%d other=%v; want exactly one winner", success, reuse, other)
	}
}

func TestRotateRacingRevokeAllLeavesNoActiveEntry(t *testing.T) {
	for i := 0; i < 20; i++ {
		s, _, now := newRedisStoreTest(t)
		mustRegister(t, s, "r1", "alice-id", now.Add(time.Hour))

		var wg sync.WaitGroup
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, _ = s.Rotate(context.Background(), "r1", "r2", now.Add(time.Hour))
		}()
		go func() {
			defer wg.Done()
			<-start
			_, _ = s.RevokeAll(context.Background(), "alice-id")
		}()
		close(start)
		wg.Wait()

		active, err := s.ActiveSessions(context.Background(), "alice-id")
		if err != nil {
			t.Fatalf("active sessions: %v", err)
		}
		if len(active) != 0 {
			t.Fatalf("iteration %d: rotate racing revoke-all left active entries: %+v", i, active)
		}
	}
}

func mustEncode(t *testing.T, subject string, exp time.Time) []byte {
	t.Helper()
	blob, err := encodeEntry(&Entry{SubjectID: subject, Status: StatusActive, CreatedAt: exp.Add(-time.Hour), ExpiresAt: exp})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return blob
}
