// Package permission implements the command permission policy the shell
// tool consults before running anything: an ordered list of pattern
// rules, a default level, and an LRU cache of recent decisions.
package permission

import (
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Level is the outcome of a permission check.
type Level int

const (
	LevelAllow Level = iota
	LevelDeny
	LevelRequireApproval
)

func (l Level) String() string {
	switch l {
	case LevelAllow:
		return "allow"
	case LevelDeny:
		return "deny"
	case LevelRequireApproval:
		return "require_approval"
	default:
		return "unknown"
	}
}

// matchKind is the compiled form of a rule's pattern.
type matchKind int

const (
	matchPrefix matchKind = iota
	matchSubstring
)

// Rule pairs a command pattern with the level it grants. Patterns ending
// in a single trailing '*' with no other '*' compile to a prefix match;
// every other pattern (with or without '*') compiles to a
// case-insensitive substring match, with any '*' stripped first.
type Rule struct {
	Pattern string
	Level   Level

	kind    matchKind
	compiled string
}

func compileRule(r Rule) Rule {
	p := r.Pattern
	switch {
	case strings.HasSuffix(p, "*") && strings.Count(p, "*") == 1 && !strings.HasPrefix(p, "*"):
		r.kind = matchPrefix
		r.compiled = strings.ToLower(strings.TrimSuffix(p, "*"))
	default:
		r.kind = matchSubstring
		r.compiled = strings.ToLower(strings.ReplaceAll(p, "*", ""))
	}
	return r
}

func (r Rule) matches(lowered string) bool {
	switch r.kind {
	case matchPrefix:
		return strings.HasPrefix(lowered, r.compiled)
	default:
		return strings.Contains(lowered, r.compiled)
	}
}

const defaultCacheCapacity = 1000

// Metrics holds atomic counters describing policy check outcomes.
type Metrics struct {
	TotalChecks int64
	CacheHits   int64
	CacheMisses int64
	Allowed     int64
	Denied      int64
	RequireApp  int64
}

// Snapshot is a point-in-time, non-atomic copy of Metrics plus the
// derived cache-hit rate.
type Snapshot struct {
	TotalChecks  int64
	CacheHits    int64
	CacheMisses  int64
	Allowed      int64
	Denied       int64
	RequireApp   int64
	CacheHitRate float64
}

// Policy evaluates commands against an ordered rule list, caching recent
// decisions by lowercased command text.
type Policy struct {
	rules        []Rule
	defaultLevel Level

	mu    sync.Mutex
	cache *lru.Cache[string, Level]

	metrics Metrics
}

// New builds a policy from rules, evaluated in order (first match wins),
// falling back to defaultLevel. rules is copied and compiled once.
func New(rules []Rule, defaultLevel Level) *Policy {
	compiled := make([]Rule, len(rules))
	for i, r := range rules {
		compiled[i] = compileRule(r)
	}
	cache, _ := lru.New[string, Level](defaultCacheCapacity)
	return &Policy{rules: compiled, defaultLevel: defaultLevel, cache: cache}
}

// CheckPermission returns the level for command, consulting (and
// populating) the cache.
func (p *Policy) CheckPermission(command string) Level {
	atomic.AddInt64(&p.metrics.TotalChecks, 1)
	lowered := strings.ToLower(command)

	p.mu.Lock()
	if level, ok := p.cache.Get(lowered); ok {
		p.mu.Unlock()
		atomic.AddInt64(&p.metrics.CacheHits, 1)
		p.countOutcome(level)
		return level
	}
	p.mu.Unlock()

	atomic.AddInt64(&p.metrics.CacheMisses, 1)

	level := p.defaultLevel
	for _, r := range p.rules {
		if r.matches(lowered) {
			level = r.Level
			break
		}
	}

	p.mu.Lock()
	if p.cache.Len() >= defaultCacheCapacity {
		p.evictHalfLocked()
	}
	p.cache.Add(lowered, level)
	p.mu.Unlock()

	p.countOutcome(level)
	return level
}

// evictHalfLocked drops the least-recently-used half of the cache. Caller
// must hold p.mu. Keys() returns oldest-first, so the first half is the
// half to drop.
func (p *Policy) evictHalfLocked() {
	keys := p.cache.Keys()
	for _, k := range keys[:len(keys)/2] {
		p.cache.Remove(k)
	}
}

func (p *Policy) countOutcome(level Level) {
	switch level {
	case LevelAllow:
		atomic.AddInt64(&p.metrics.Allowed, 1)
	case LevelDeny:
		atomic.AddInt64(&p.metrics.Denied, 1)
	case LevelRequireApproval:
		atomic.AddInt64(&p.metrics.RequireApp, 1)
	}
}

// MetricsSnapshot returns a consistent-enough point-in-time view of the
// policy's atomic counters, with the derived cache-hit rate.
func (p *Policy) MetricsSnapshot() Snapshot {
	total := atomic.LoadInt64(&p.metrics.TotalChecks)
	hits := atomic.LoadInt64(&p.metrics.CacheHits)
	misses := atomic.LoadInt64(&p.metrics.CacheMisses)
	s := Snapshot{
		TotalChecks: total,
		CacheHits:   hits,
		CacheMisses: misses,
		Allowed:     atomic.LoadInt64(&p.metrics.Allowed),
		Denied:      atomic.LoadInt64(&p.metrics.Denied),
		RequireApp:  atomic.LoadInt64(&p.metrics.RequireApp),
	}
	if hits+misses > 0 {
		s.CacheHitRate = float64(hits) / float64(hits+misses)
	}
	return s
}

// Reset clears all metrics counters. The cache and rule set are untouched.
func (p *Policy) Reset() {
	atomic.StoreInt64(&p.metrics.TotalChecks, 0)
	atomic.StoreInt64(&p.metrics.CacheHits, 0)
	atomic.StoreInt64(&p.metrics.CacheMisses, 0)
	atomic.StoreInt64(&p.metrics.Allowed, 0)
	atomic.StoreInt64(&p.metrics.Denied, 0)
	atomic.StoreInt64(&p.metrics.RequireApp, 0)
}
