package health

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chrisjchandler/Riffy/src/upstream"
	"github.com/go-redis/redis/v8"
)

// DefaultCacheAge is how long a RedisTracker trusts a locally cached failure
// count before asking redis again.
const DefaultCacheAge = 1 * time.Second

// RedisTracker is an observer that keeps failure counts in redis so that a
// group of proxy instances share their view of upstream health. Counters
// expire after the cooldown window, which re-admits the target.
//
// Failure counts are cached locally for a short period so that eligibility
// checks do not cost a redis round-trip per request. If redis is unavailable
// the tracker falls back to the cached value, and failing that, reports the
// target as eligible.
type RedisTracker struct {
	Logger    *log.Logger
	Client    *redis.Client
	Threshold int
	Cooldown  time.Duration
	CacheAge  time.Duration

	mutex sync.RWMutex
	cache map[string]*failureCacheItem
}

type failureCacheItem struct {
	Failures int
	SeenAt   time.Time
}

// RecordSuccess clears the shared failure count for target.
func (t *RedisTracker) RecordSuccess(ctx context.Context, target *upstream.Target) {
	err := t.Client.Del(ctx, failureRedisKey(target.Address)).Err()
	if err != nil && t.Logger != nil {
		t.Logger.Printf("health: unable to clear failure count for %s: %s", target.Address, err)
	}

	t.writeToCache(target.Address, 0)
}

// RecordFailure increments the shared failure count for target and restarts
// its cooldown window.
func (t *RedisTracker) RecordFailure(ctx context.Context, target *upstream.Target) {
	key := failureRedisKey(target.Address)

	count, err := t.Client.Incr(ctx, key).Result()
	if err != nil {
		if t.Logger != nil {
			t.Logger.Printf("health: unable to record failure for %s: %s", target.Address, err)
		}
		return
	}

	if t.Cooldown > 0 {
		t.Client.Expire(ctx, key, t.Cooldown)
	}

	t.writeToCache(target.Address, int(count))
}

// IsEligible returns false while target has reached the failure threshold and
// its redis counter has not yet expired.
func (t *RedisTracker) IsEligible(target *upstream.Target) bool {
	if count, ok := t.findInCache(target.Address); ok {
		return count < t.Threshold
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	count, err := t.Client.Get(ctx, failureRedisKey(target.Address)).Int()
	if err == redis.Nil {
		count = 0
	} else if err != nil {
		// Redis is down or broken; do not penalise the target for it.
		return true
	}

	t.writeToCache(target.Address, count)

	return count < t.Threshold
}

func failureRedisKey(address string) string {
	return fmt.Sprintf("health:%s", address)
}

func (t *RedisTracker) cacheAge() time.Duration {
	if t.CacheAge > 0 {
		return t.CacheAge
	}

	return DefaultCacheAge
}

func (t *RedisTracker) findInCache(address string) (int, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	item, ok := t.cache[address]
	if !ok || time.Now().Sub(item.SeenAt) >= t.cacheAge() {
		return 0, false
	}

	return item.Failures, true
}

func (t *RedisTracker) writeToCache(address string, failures int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.cache == nil {
		t.cache = map[string]*failureCacheItem{}
	}

	t.cache[address] = &failureCacheItem{
		Failures: failures,
		SeenAt:   time.Now(),
	}
}
