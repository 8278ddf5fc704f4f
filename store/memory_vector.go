package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/vectormath"
)

// MemoryVectorService 是内存实现的向量服务，用于测试/开发/中小规模书目。
// 平替 Milvus 等向量数据库 SDK，支持搜索、插入、删除。
//
// 特点：
//   - 纯内存实现，进程重启后数据丢失
//   - 支持余弦相似度、欧氏距离、内积
//   - 线程安全
type MemoryVectorService struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	name      string
	dimension int
	metric    string
	vectors   map[string][]float64
	metadata  map[string]map[string]any
}

// NewMemoryVectorService 创建内存向量服务实例。
func NewMemoryVectorService() *MemoryVectorService {
	return &MemoryVectorService{
		collections: make(map[string]*collection),
	}
}

var _ core.VectorService = (*MemoryVectorService)(nil)

// Search 实现 core.VectorService 接口
func (m *MemoryVectorService) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector search request is nil")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[req.Collection]
	if !ok {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "collection not found: "+req.Collection)
	}

	if len(req.Vector) != col.dimension {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeDimensionMismatch, "vector dimension mismatch")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	metric := req.Metric
	if metric == "" {
		metric = col.metric
	}
	if metric == "" {
		metric = "cosine"
	}

	type scored struct {
		id    string
		score float64
	}
	hits := make([]scored, 0, len(col.vectors))

	for id, vec := range col.vectors {
		if req.Filter != nil && !matchFilter(req.Filter, col.metadata[id]) {
			continue
		}

		var score float64
		switch metric {
		case "euclidean":
			// 距离转换为相似度分数（距离越小，分数越高）
			score = 1.0 / (1.0 + vectormath.Euclidean(req.Vector, vec))
		case "inner_product":
			score = innerProduct(req.Vector, vec)
		default:
			score = vectormath.Cosine(req.Vector, vec)
		}

		if score < req.MinScore {
			continue
		}
		hits = append(hits, scored{id: id, score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	items := make([]core.VectorSearchItem, len(hits))
	for i, h := range hits {
		items[i] = core.VectorSearchItem{ID: h.id, Score: h.score}
	}
	return &core.VectorSearchResult{Items: items}, nil
}

// Insert 实现 core.VectorService 接口
func (m *MemoryVectorService) Insert(ctx context.Context, req *core.VectorInsertRequest) error {
	if req == nil {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "insert request is nil")
	}
	if len(req.Vectors) != len(req.IDs) {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vectors and ids length mismatch")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[req.Collection]
	if !ok {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "collection not found: "+req.Collection)
	}

	for i, vec := range req.Vectors {
		if len(vec) != col.dimension {
			return core.NewDomainError(core.ModuleVector, core.ErrorCodeDimensionMismatch, "vector dimension mismatch")
		}
		col.vectors[req.IDs[i]] = vec
		if len(req.Metadata) > i {
			col.metadata[req.IDs[i]] = req.Metadata[i]
		}
	}
	return nil
}

// Delete 实现 core.VectorService 接口
func (m *MemoryVectorService) Delete(ctx context.Context, collectionName string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collectionName]
	if !ok {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "collection not found: "+collectionName)
	}
	for _, id := range ids {
		delete(col.vectors, id)
		delete(col.metadata, id)
	}
	return nil
}

// CreateCollection 实现 core.VectorService 接口
func (m *MemoryVectorService) CreateCollection(ctx context.Context, name string, dimension int, metric string) error {
	if name == "" || dimension <= 0 {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "invalid collection config")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[name]; ok {
		return nil // 已存在视为幂等
	}
	m.collections[name] = &collection{
		name:      name,
		dimension: dimension,
		metric:    metric,
		vectors:   make(map[string][]float64),
		metadata:  make(map[string]map[string]any),
	}
	return nil
}

// HasCollection 实现 core.VectorService 接口
func (m *MemoryVectorService) HasCollection(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

// Close 实现 core.VectorService 接口
func (m *MemoryVectorService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]*collection)
	return nil
}

func matchFilter(filter map[string]any, metadata map[string]any) bool {
	if metadata == nil {
		return false
	}
	for k, want := range filter {
		if got, ok := metadata[k]; !ok || got != want {
			return false
		}
	}
	return true
}

func innerProduct(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
