package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rushteam/bookrec/core"
)

// StoreCache 是共享后端的结果缓存：多进程部署时把缓存放到
// Redis 等 KeyValueStore，保证各实例命中同一份结果。
//
// 存储布局：
//   - 值：rec:v:<key> → JSON（带 TTL）
//   - 用户索引：rec:u:<userID> 的 Hash，field 为 key
//
// InvalidateUser 扫用户索引逐条删除。值有 TTL 而索引没有，
// 索引里残留的过期 key 在读取时会自然未命中，无害。
type StoreCache struct {
	Store core.KeyValueStore
	TTL   time.Duration
}

func NewStoreCache(store core.KeyValueStore, ttl time.Duration) *StoreCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StoreCache{Store: store, TTL: ttl}
}

func valueKey(key string) string     { return "rec:v:" + key }
func userIndexKey(uid string) string { return "rec:u:" + uid }

// Get 读取缓存；未命中或反序列化失败返回 (nil, false)。
func (c *StoreCache) Get(ctx context.Context, key string) ([]*core.Recommendation, bool) {
	data, err := c.Store.Get(ctx, valueKey(key))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var recs []*core.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, false
	}
	return recs, true
}

// Set 写入缓存并登记用户索引。序列化失败静默丢弃（缓存是加速层，不报错）。
func (c *StoreCache) Set(ctx context.Context, key, userID string, value []*core.Recommendation) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	ttlSec := int(c.TTL / time.Second)
	if err := c.Store.Set(ctx, valueKey(key), data, ttlSec); err != nil {
		return
	}
	_ = c.Store.HSet(ctx, userIndexKey(userID), key, []byte("1"))
}

// InvalidateUser 失效某用户的全部缓存条目，返回清理的条目数。
func (c *StoreCache) InvalidateUser(ctx context.Context, userID string) int {
	fields, err := c.Store.HGetAll(ctx, userIndexKey(userID))
	if err != nil {
		return 0
	}
	n := 0
	for key := range fields {
		if err := c.Store.Delete(ctx, valueKey(key)); err == nil {
			n++
		}
	}
	_ = c.Store.Delete(ctx, userIndexKey(userID))
	return n
}
