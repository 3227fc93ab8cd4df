package ratelimit

import (
	"sync"
	"time"
)

// idleBucketTTL is how long an unused bucket is kept before cleanup drops it.
const idleBucketTTL = time.Hour

// Info describes the limit applied to one request.
type Info struct {
	Allowed    bool
	Rule       string
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter tracks one token bucket per client and rule.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	stopOnce sync.Once
	stop     chan struct{}
}

// NewLimiter creates a Limiter. A nil config uses DefaultConfig.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Limiter{
		config:  cfg,
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	if cfg.Enabled && cfg.CleanupInterval > 0 {
		go l.cleanupLoop(cfg.CleanupInterval)
	}
	return l
}

// Allow charges one request by clientID against the rule matching method and path.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Allowlist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blocklist[clientID] {
		return false, Info{Allowed: false, Rule: "blocklist"}
	}

	rule := MatchRule(path, method, l.config.Rules)
	if rule == nil {
		rule = &Rule{Name: "default", Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, Info{Allowed: true, Rule: rule.Name}
	}

	now := l.now()
	bucket := l.bucket(clientID+"|"+rule.Name, rule, now)
	allowed, remaining, full := bucket.take(now)

	info := Info{
		Allowed:   allowed,
		Rule:      rule.Name,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetTime: full,
	}
	if !allowed {
		info.RetryAfter = bucket.retryAfter()
	}
	return allowed, info
}

func (l *Limiter) bucket(key string, rule *Rule, now time.Time) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	burst := rule.Burst
	if burst <= 0 {
		burst = rule.Limit
	}
	b := newTokenBucket(burst, float64(rule.Limit)/rule.Window.Seconds(), now)
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops buckets idle for longer than idleBucketTTL.
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-idleBucketTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.idleSince().Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
