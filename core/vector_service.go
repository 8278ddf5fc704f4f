package core

import "context"

// VectorService 是向量检索服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - Content 策略只依赖此接口，不关心后端是内存实现还是向量数据库
type VectorService interface {
	// Search 向量搜索（核心功能）
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Insert 插入向量
	Insert(ctx context.Context, req *VectorInsertRequest) error

	// Delete 删除向量
	Delete(ctx context.Context, collection string, ids []string) error

	// CreateCollection 创建集合
	CreateCollection(ctx context.Context, name string, dimension int, metric string) error

	// HasCollection 检查集合是否存在
	HasCollection(ctx context.Context, name string) (bool, error)

	// Close 关闭连接
	Close() error
}

// VectorSearchRequest 向量搜索请求
type VectorSearchRequest struct {
	// Collection 集合名称（按切面分集合，例如 "books:primary"）
	Collection string

	// Vector 查询向量
	Vector []float64

	// TopK 返回 TopK 个最相似的结果
	TopK int

	// Metric 距离度量方式：cosine / euclidean / inner_product
	Metric string

	// MinScore 最小相似度阈值（低于此分的结果被丢弃）
	MinScore float64

	// Filter 元数据过滤条件
	Filter map[string]any
}

// VectorSearchResult 向量搜索结果
type VectorSearchResult struct {
	Items []VectorSearchItem
}

// VectorSearchItem 单条搜索命中
type VectorSearchItem struct {
	ID    string
	Score float64
}

// VectorInsertRequest 向量插入请求
type VectorInsertRequest struct {
	Collection string
	IDs        []string
	Vectors    [][]float64
	Metadata   []map[string]any
}
