package pkg

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DistributedLimiter combines a per-key local rate.Limiter with a Redis window counter,
// so a key is limited across every API replica and not only inside this process.
type DistributedLimiter struct {
	mu          sync.Mutex
	local       map[string]*localEntry
	lastSweep   time.Time
	idleTTL     time.Duration // local limiters unused this long are dropped
	now         func() time.Time
	ratePerSec  int
	burst       int
	redisClient *redis.Client
	prefix      string        // e.g: "ratelimit:redeem"
	window      time.Duration // counter expiry, e.g: 1s
	logger      *zap.Logger
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewDistributedLimiter creates a limiter; if ratePerSec=0, it's unlimited.
// A nil redisClient limits locally only.
func NewDistributedLimiter(redisClient *redis.Client, prefix string, ratePerSec, burst int, window time.Duration, logger *zap.Logger) *DistributedLimiter {
	if burst < 1 {
		burst = 1
	}
	// entries are dropped only once their bucket would have refilled (burst/rate)
	idle := time.Minute
	if ratePerSec > 0 {
		if refill := time.Duration(burst) * time.Second / time.Duration(ratePerSec); refill > idle {
			idle = refill
		}
	}
	return &DistributedLimiter{
		local:       make(map[string]*localEntry),
		idleTTL:     idle,
		now:         time.Now,
		ratePerSec:  ratePerSec,
		burst:       burst,
		redisClient: redisClient,
		prefix:      prefix,
		window:      window,
		logger:      logger,
	}
}

// Allow reports whether one more request for key may proceed.
func (d *DistributedLimiter) Allow(ctx context.Context, key string) bool {
	if d.ratePerSec <= 0 {
		return true // Unlimited
	}

	// Local check first (fast path)
	if !d.limiterFor(key).Allow() {
		return false
	}
	if d.redisClient == nil {
		return true
	}

	// Distributed check via Redis atomic increment. The window opens with the first
	// request; later requests must not push the expiry out.
	redisKey := d.prefix + ":" + key
	pipe := d.redisClient.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, d.window)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Error("redis rate limit error; falling back to local", zap.String("key", redisKey), zap.Error(err))
		return true
	}

	// The counter allows ratePerSec per window plus the burst allowance.
	limit := int64(float64(d.ratePerSec)*d.window.Seconds()) + int64(d.burst)
	if count := incr.Val(); count > limit {
		d.logger.Warn("global rate limit exceeded", zap.String("key", redisKey), zap.Int64("count", count), zap.Int64("limit", limit))
		return false
	}
	return true
}

func (d *DistributedLimiter) limiterFor(key string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if now.Sub(d.lastSweep) >= d.idleTTL {
		for k, e := range d.local {
			if now.Sub(e.lastSeen) >= d.idleTTL {
				delete(d.local, k)
			}
		}
		d.lastSweep = now
	}
	e, ok := d.local[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Limit(d.ratePerSec), d.burst)}
		d.local[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// tracked reports how many local limiters are held.
func (d *DistributedLimiter) tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.local)
}
