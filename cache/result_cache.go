package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rushteam/bookrec/core"
)

// DefaultTTL 结果缓存的默认存活时间。
const DefaultTTL = 30 * time.Minute

// DefaultCapacity 默认缓存容量（条目数）。
const DefaultCapacity = 1000

// Key 生成结果缓存的复合键：userID + 查询类型 + 排序后的参数。
// 参数按 key 字典序拼接，保证同一组参数无论传入顺序如何都命中同一条。
func Key(userID, queryType string, params map[string]any) string {
	var b strings.Builder
	b.WriteString(userID)
	b.WriteByte(':')
	b.WriteString(queryType)
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(':')
			b.WriteString(k)
			b.WriteByte('=')
			fmt.Fprintf(&b, "%v", params[k])
		}
	}
	return b.String()
}

type entry struct {
	userID     string
	value      []*core.Recommendation
	insertedAt time.Time
	expireAt   time.Time
}

// ResultCache 是进程内的推荐结果缓存：TTL + 容量上限。
//
// 语义：
//   - 过期条目读取时视为未命中并剔除
//   - 容量满时淘汰"最早插入"的条目（非 LRU，命中不续期）
//   - InvalidateUser 清掉某用户的全部条目，其他用户不受影响
//
// Now 可注入假时钟做 TTL 测试。线程安全。
type ResultCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	capacity int
	ttl      time.Duration

	// Now 时间源，为空用 time.Now
	Now func() time.Time

	hits   int64
	misses int64
}

type Option func(*ResultCache)

// WithTTL 设置条目存活时间。
func WithTTL(ttl time.Duration) Option {
	return func(c *ResultCache) { c.ttl = ttl }
}

// WithCapacity 设置容量上限。
func WithCapacity(n int) Option {
	return func(c *ResultCache) { c.capacity = n }
}

// WithClock 注入时间源（测试用）。
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.Now = now }
}

func NewResultCache(opts ...Option) *ResultCache {
	c := &ResultCache{
		entries:  make(map[string]*entry),
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ResultCache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Get 读取缓存；未命中或已过期返回 (nil, false)。
func (c *ResultCache) Get(_ context.Context, key string) ([]*core.Recommendation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().After(e.expireAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set 写入缓存；容量满时先淘汰最早插入的条目。
func (c *ResultCache) Set(_ context.Context, key, userID string, value []*core.Recommendation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = &entry{
		userID:     userID,
		value:      value,
		insertedAt: now,
		expireAt:   now.Add(c.ttl),
	}
}

// evictOldest 淘汰插入时间最早的条目。调用方持锁。
func (c *ResultCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.insertedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// InvalidateUser 失效某用户的全部缓存条目（refresh / 画像更新时调用）。
// 返回清理的条目数。
func (c *ResultCache) InvalidateUser(_ context.Context, userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if e.userID == userID {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len 返回当前条目数（含未被惰性剔除的过期条目）。
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats 返回命中/未命中计数与命中率。
func (c *ResultCache) Stats() (hits, misses int64, hitRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hits, misses = c.hits, c.misses
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return hits, misses, hitRate
}
