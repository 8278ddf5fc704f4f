package core

import (
	"context"
	"time"
)

// Store 是底层 KV 存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 结果缓存的共享后端（多进程部署时用 Redis）
//   - 热门榜单/分群榜单（Demographic 策略）
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位秒（可选）
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取（减少网络往返）
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// BatchSet 批量写入
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是 Store 的扩展接口，支持更丰富的 KV 操作。
//
// 扩展功能：
//   - 有序集合（SortedSet）：热门榜单、分群榜单
//   - 哈希表（Hash）：按用户分组的缓存条目（失效时整组删除）
//
// 如果后端不支持某些操作，可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRange 按分数降序获取有序集合成员（TopN 召回）
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZScore 获取成员的分数
	ZScore(ctx context.Context, key string, member string) (float64, error)

	// HGet 读取 Hash 字段
	HGet(ctx context.Context, key, field string) ([]byte, error)

	// HSet 写入 Hash 字段
	HSet(ctx context.Context, key, field string, value []byte) error

	// HGetAll 读取整个 Hash
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

// CatalogFilter 是书目查询的过滤条件。零值字段不参与过滤。
type CatalogFilter struct {
	Genres         []string
	ExcludeIDs     []string
	PublishedAfter *time.Time

	// RequireEmbeddings 只返回存在有效 Embedding 的书（向量类策略用）
	RequireEmbeddings bool

	// Limit <= 0 表示不限制
	Limit int
}

// SimilarBook 是向量检索返回的"书 + 相似度"。
type SimilarBook struct {
	Book       *Book
	Similarity float64
}

// ProfileStore 提供用户画像的读写。
type ProfileStore interface {
	// Get 获取用户画像；不存在时返回 NOT_FOUND
	Get(ctx context.Context, userID string) (*UserProfile, error)

	// Save 保存（覆盖）用户画像
	Save(ctx context.Context, profile *UserProfile) error
}

// CatalogStore 提供书目查询与向量检索。
type CatalogStore interface {
	// FindByID 按 ID 查书；不存在时返回 NOT_FOUND
	FindByID(ctx context.Context, bookID string) (*Book, error)

	// Find 按过滤条件查书
	Find(ctx context.Context, filter CatalogFilter) ([]*Book, error)

	// AggregateVectorSearch 近似最近邻检索（ANN）。
	// 配置错误/服务不可用时返回 UNAVAILABLE —— 调用方必须捕获并降级
	AggregateVectorSearch(
		ctx context.Context,
		queryVector []float64,
		facet Facet,
		numCandidates int,
		limit int,
		filter CatalogFilter,
	) ([]*SimilarBook, error)
}

// BehaviorStore 提供行为聚合（聚类标签、参与度）。
type BehaviorStore interface {
	// Get 获取用户行为聚合；不存在时返回 NOT_FOUND
	Get(ctx context.Context, userID string) (*UserBehavior, error)
}

// EmbeddingProvider 是外部嵌入服务的黑盒接口。
// 失败时调用方以零向量兜底（零向量与任何向量的余弦相似度为 0）。
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string, dimensions int) ([]float64, error)
}
