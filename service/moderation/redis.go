package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
)

const (
	rateKeyPrefix = "mod:rate:"
	blockSetKey   = "mod:blocklist"
	flagSetKey    = "mod:flaglist"
)

type RedisConfig struct {
	Addr      string
	Window    time.Duration // rate window, default 10s
	MaxInWind int64         // messages per window, default 20
}

type RedisGateway struct {
	rdb  *redis.Client
	conf RedisConfig
}

func NewRedisGateway(ctx context.Context, conf RedisConfig) (*RedisGateway, error) {
	if conf.Window <= 0 {
		conf.Window = 10 * time.Second
	}
	if conf.MaxInWind <= 0 {
		conf.MaxInWind = 20
	}
	rdb := redis.NewClient(&redis.Options{Addr: conf.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	return &RedisGateway{rdb: rdb, conf: conf}, nil
}

func (g *RedisGateway) Close() error { return g.rdb.Close() }

// CheckMessageRate runs a fixed window: INCR the user's counter, arm the
// expiry on first hit, deny above the window budget.
func (g *RedisGateway) CheckMessageRate(ctx context.Context, userID string) (bool, error) {
	key := rateKeyPrefix + userID
	n, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, errs.ErrDatabase.Wrap(err)
	}
	if n == 1 {
		if err := g.rdb.Expire(ctx, key, g.conf.Window).Err(); err != nil {
			return false, errs.ErrDatabase.Wrap(err)
		}
	}
	return n <= g.conf.MaxInWind, nil
}

// FilterContent matches the text against the block and flag word sets.
// Sets are re-read per call; moderation changes apply immediately.
func (g *RedisGateway) FilterContent(ctx context.Context, text string) (FilterResult, error) {
	lowered := strings.ToLower(text)

	blocked, err := g.rdb.SMembers(ctx, blockSetKey).Result()
	if err != nil {
		return FilterResult{}, errs.ErrDatabase.Wrap(err)
	}
	for _, w := range blocked {
		if w != "" && strings.Contains(lowered, strings.ToLower(w)) {
			return FilterResult{Verdict: VerdictBlocked, Reason: "blocked term: " + w}, nil
		}
	}

	flagged, err := g.rdb.SMembers(ctx, flagSetKey).Result()
	if err != nil {
		return FilterResult{}, errs.ErrDatabase.Wrap(err)
	}
	for _, w := range flagged {
		if w != "" && strings.Contains(lowered, strings.ToLower(w)) {
			return FilterResult{Verdict: VerdictFlagged, Reason: "flagged term: " + w}, nil
		}
	}
	return FilterResult{Verdict: VerdictAllowed}, nil
}
