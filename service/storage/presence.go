package storage

import (
	"context"
	"strconv"
	"time"

	"GVChat/tools/errs"

	"github.com/redis/go-redis/v9"
)

const presencePrefix = "gvchat:presence:"

// The hash per user holds the live connection count across gateway nodes
// and the last connect/disconnect time in unix ms. The key expires so a
// crashed node cannot pin a user online forever.
//
// KEYS[1] = presence key
// ARGV[1] = now unix ms
// ARGV[2] = ttl seconds
const luaConnect = `
local n = redis.call("HINCRBY", KEYS[1], "conns", 1)
redis.call("HSET", KEYS[1], "last_seen", ARGV[1])
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))
return n
`

// Never goes below zero, so a stray disconnect cannot poison the count.
const luaDisconnect = `
local n = redis.call("HINCRBY", KEYS[1], "conns", -1)
if n < 0 then
  redis.call("HSET", KEYS[1], "conns", 0)
  n = 0
end
redis.call("HSET", KEYS[1], "last_seen", ARGV[1])
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))
return n
`

var (
	connectScript    = redis.NewScript(luaConnect)
	disconnectScript = redis.NewScript(luaDisconnect)
)

// PresenceCounter keeps per-user connection counts in Redis so the "last
// connection" presence policy works across gateway nodes.
type PresenceCounter struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewPresenceCounter(rdb *redis.Client, ttl time.Duration) *PresenceCounter {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PresenceCounter{rdb: rdb, ttl: ttl, now: time.Now}
}

func presenceKey(userID int64) string {
	return presencePrefix + strconv.FormatInt(userID, 10)
}

func (p *PresenceCounter) run(ctx context.Context, s *redis.Script, userID int64) (int64, error) {
	n, err := s.Run(ctx, p.rdb, []string{presenceKey(userID)},
		p.now().UnixMilli(), int64(p.ttl/time.Second)).Int64()
	if err != nil {
		return 0, errs.WrapMsg(err, "presence script", "user", userID)
	}
	return n, nil
}

// Incr registers a connection and returns the new count.
func (p *PresenceCounter) Incr(ctx context.Context, userID int64) (int64, error) {
	return p.run(ctx, connectScript, userID)
}

// Decr unregisters a connection and returns the remaining count.
func (p *PresenceCounter) Decr(ctx context.Context, userID int64) (int64, error) {
	return p.run(ctx, disconnectScript, userID)
}

// Count returns the live connection count, 0 for unknown users.
func (p *PresenceCounter) Count(ctx context.Context, userID int64) (int64, error) {
	v, err := p.rdb.HGet(ctx, presenceKey(userID), "conns").Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errs.WrapMsg(err, "presence count", "user", userID)
	}
	return v, nil
}
