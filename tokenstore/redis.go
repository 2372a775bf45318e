package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const luaHelpers = `
local function read_be64(s, i)
  local n = 0
  for k = i, i + 7 do
    local b = string.byte(s, k)
    if not b then
      return nil
    end
    n = n * 256 + b
  end
  return n
end

local function write_be64(n)
  local out = {}
  for i = 8, 1, -1 do
    out[i] = string.char(n % 256)
    n = math.floor(n / 256)
  end
  return table.concat(out)
end

local function parse_entry(data)
  if not data or string.len(data) < 20 or string.byte(data, 1) ~= 1 then
    return nil
  end
  local sub_len = string.byte(data, 19)
  if sub_len == 0 or string.len(data) ~= 19 + sub_len then
    return nil
  end
  return {
    status = string.byte(data, 2),
    expires_at = read_be64(data, 11),
    subject = string.sub(data, 20, 19 + sub_len),
  }
end

local function with_status(data, status)
  return string.sub(data, 1, 1) .. string.char(status) .. string.sub(data, 3)
end

local function extend_index(index_key, ttl_ms)
  if redis.call("PTTL", index_key) < ttl_ms then
    redis.call("PEXPIRE", index_key, ttl_ms)
  end
end

local function revoke_others(index_key, entry_prefix, keep_id)
  local ids = redis.call("SMEMBERS", index_key)
  local revoked = 0
  for _, id in ipairs(ids) do
    if id ~= keep_id then
      local key = entry_prefix .. id
      local data = redis.call("GET", key)
      if not data then
        redis.call("SREM", index_key, id)
      elseif string.byte(data, 2) == 1 then
        local ttl = redis.call("PTTL", key)
        if ttl > 0 then
          redis.call("SET", key, with_status(data, 3), "PX", ttl)
          revoked = revoked + 1
        end
      end
    end
  end
  return revoked
end
`

// KEYS: entry, subject index. ARGV: blob, ttl ms, token id, entry prefix, exclusive flag.
const registerScript = luaHelpers + `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return {0, 0}
end
local revoked = 0
if ARGV[5] == "1" then
  revoked = revoke_others(KEYS[2], ARGV[4], ARGV[3])
end
local ttl = tonumber(ARGV[2])
redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
redis.call("SADD", KEYS[2], ARGV[3])
extend_index(KEYS[2], ttl)
return {1, revoked}
`

// KEYS: old entry, new entry. ARGV: new id, index prefix, now unix, new expiry unix, new ttl ms.
const rotateScript = luaHelpers + `
local data = redis.call("GET", KEYS[1])
if not data then
  return {0}
end
local entry = parse_entry(data)
if not entry then
  return {4}
end
local now = tonumber(ARGV[3])
if entry.expires_at <= now then
  return {0}
end
if entry.status ~= 1 then
  return {2, entry.status}
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return {3}
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  return {0}
end
redis.call("SET", KEYS[1], with_status(data, 2), "PX", ttl)

local next_ttl = tonumber(ARGV[5])
local next_entry = string.char(1, 1) .. write_be64(now) .. write_be64(tonumber(ARGV[4])) ..
  string.char(string.len(entry.subject)) .. entry.subject
redis.call("SET", KEYS[2], next_entry, "PX", next_ttl)

local index_key = ARGV[2] .. entry.subject
redis.call("SADD", index_key, ARGV[1])
extend_index(index_key, next_ttl)
return {1, entry.subject}
`

// KEYS: entry.
const revokeScript = luaHelpers + `
local data = redis.call("GET", KEYS[1])
if not data or string.byte(data, 2) ~= 1 then
  return 0
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  return 0
end
redis.call("SET", KEYS[1], with_status(data, 3), "PX", ttl)
return 1
`

// KEYS: subject index. ARGV: entry prefix.
const revokeAllScript = luaHelpers + `
return revoke_others(KEYS[1], ARGV[1], "")
`

var (
	registerLua  = redis.NewScript(registerScript)
	rotateLua    = redis.NewScript(rotateScript)
	revokeLua    = redis.NewScript(revokeScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
)

const (
	rotateStatusNotFound  = 0
	rotateStatusRotated   = 1
	rotateStatusReuse     = 2
	rotateStatusDuplicate = 3
	rotateStatusCorrupt   = 4
)

// RedisStore is the Redis implementation of [Store].
//
// Entries live under "<prefix>:rt:<token id>" with a TTL equal to the token lifetime. Each subject
// has an index set "<prefix>:rs:<subject>" used by RevokeAll and ActiveSessions. Scripts touch
// entry keys derived from the index at run time, so all keys of a prefix must live on one node
// when running against Redis Cluster.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a [RedisStore] using client and the key namespace prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "gx"
	}
	return &RedisStore{redis: client, prefix: prefix, now: time.Now}
}

// WithClock replaces the clock used for expiry checks.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	if now != nil {
		s.now = now
	}
	return s
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) entryPrefix() string { return s.prefix + ":rt:" }
func (s *RedisStore) indexPrefix() string { return s.prefix + ":rs:" }

func (s *RedisStore) entryKey(tokenID string) string   { return s.entryPrefix() + tokenID }
func (s *RedisStore) indexKey(subjectID string) string { return s.indexPrefix() + subjectID }

// Register creates an active entry.
//
//	Performance: 1 EVALSHA.
func (s *RedisStore) Register(ctx context.Context, tokenID, subjectID string, expiresAt time.Time) error {
	_, err := s.register(ctx, tokenID, subjectID, expiresAt, false)
	return err
}

// RegisterExclusive creates an active entry and revokes the subject's other active entries.
//
//	Performance: 1 EVALSHA, O(n) in the subject's index size.
func (s *RedisStore) RegisterExclusive(ctx context.Context, tokenID, subjectID string, expiresAt time.Time) (int, error) {
	return s.register(ctx, tokenID, subjectID, expiresAt, true)
}

func (s *RedisStore) register(ctx context.Context, tokenID, subjectID string, expiresAt time.Time, exclusive bool) (int, error) {
	if tokenID == "" {
		return 0, fmt.Errorf("%w: empty token id", ErrInvalidEntry)
	}
	now := s.now()
	ttl := expiresAt.Sub(now)
	if ttl < time.Millisecond {
		return 0, fmt.Errorf("%w: expiry is not in the future", ErrInvalidEntry)
	}
	blob, err := encodeEntry(&Entry{
		SubjectID: subjectID,
		Status:    StatusActive,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	flag := "0"
	if exclusive {
		flag = "1"
	}
	res, err := registerLua.Run(
		ctx,
		s.redis,
		[]string{s.entryKey(tokenID), s.indexKey(subjectID)},
		blob,
		ttl.Milliseconds(),
		tokenID,
		s.entryPrefix(),
		flag,
	).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("%w: invalid register script response", ErrStoreUnavailable)
	}
	if res[0] == 0 {
		return 0, ErrDuplicateTokenID
	}
	return int(res[1]), nil
}

// Lookup returns the entry for tokenID. Expired entries are reported as [ErrNotFound].
//
//	Performance: 1 GET.
func (s *RedisStore) Lookup(ctx context.Context, tokenID string) (*Entry, error) {
	data, err := s.redis.Get(ctx, s.entryKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	entry, err := decodeEntry(tokenID, data)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(entry.ExpiresAt) {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Rotate atomically retires oldID and creates newID for the same subject.
//
//	Performance: 1 EVALSHA (compare-and-swap on the old entry status).
func (s *RedisStore) Rotate(ctx context.Context, oldID, newID string, newExpiresAt time.Time) (*Entry, error) {
	if oldID == "" || newID == "" || oldID == newID {
		return nil, fmt.Errorf("%w: invalid rotation ids", ErrInvalidEntry)
	}
	now := s.now()
	ttl := newExpiresAt.Sub(now)
	if ttl < time.Millisecond {
		return nil, fmt.Errorf("%w: expiry is not in the future", ErrInvalidEntry)
	}

	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.entryKey(oldID), s.entryKey(newID)},
		newID,
		s.indexPrefix(),
		now.Unix(),
		newExpiresAt.Unix(),
		ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrStoreUnavailable)
	}
	code, ok := result[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrStoreUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return nil, ErrNotFound
	case rotateStatusReuse:
		return nil, ErrTokenReuseDetected
	case rotateStatusDuplicate:
		return nil, ErrDuplicateTokenID
	case rotateStatusCorrupt:
		return nil, ErrCorruptEntry
	case rotateStatusRotated:
		if len(result) < 2 {
			return nil, fmt.Errorf("%w: missing rotated subject", ErrStoreUnavailable)
		}
		subject, ok := result[1].(string)
		if !ok || subject == "" {
			return nil, fmt.Errorf("%w: invalid rotated subject", ErrStoreUnavailable)
		}
		return &Entry{
			TokenID:   newID,
			SubjectID: subject,
			Status:    StatusActive,
			CreatedAt: time.Unix(now.Unix(), 0),
			ExpiresAt: time.Unix(newExpiresAt.Unix(), 0),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status %d", ErrStoreUnavailable, code)
	}
}

// Revoke marks tokenID revoked. Missing, rotated, and revoked entries are left untouched.
//
//	Performance: 1 EVALSHA.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	if err := revokeLua.Run(ctx, s.redis, []string{s.entryKey(tokenID)}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeAll revokes every active entry of subjectID in one script execution, which makes it
// linearizable with Rotate.
//
//	Performance: 1 EVALSHA, O(n) in the subject's index size.
func (s *RedisStore) RevokeAll(ctx context.Context, subjectID string) (int, error) {
	if subjectID == "" {
		return 0, nil
	}
	n, err := revokeAllLua.Run(ctx, s.redis, []string{s.indexKey(subjectID)}, s.entryPrefix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(n), nil
}

// ActiveSessions lists the subject's active entries, oldest first.
//
//	Performance: 1 SMEMBERS + 1 pipelined GET batch. Not atomic with concurrent writers.
func (s *RedisStore) ActiveSessions(ctx context.Context, subjectID string) ([]Entry, error) {
	ids, err := s.redis.SMembers(ctx, s.indexKey(subjectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Get(ctx, s.entryKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := s.now()
	out := make([]Entry, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		entry, err := decodeEntry(ids[i], data)
		if err != nil || !entry.Active(now) {
			continue
		}
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
