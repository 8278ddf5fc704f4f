package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/bookrec/core"
)

// MemoryCatalog 是内存实现的 CatalogStore。
// 向量检索委托给注入的 core.VectorService（按切面分集合 "books:<facet>"）；
// 未注入向量服务时 AggregateVectorSearch 返回 UNAVAILABLE，
// 由 Content 策略降级到全量相似度计算。
type MemoryCatalog struct {
	mu      sync.RWMutex
	books   map[string]*core.Book
	order   []string // 入库顺序，"最新书目"兜底用
	vectors core.VectorService
}

func NewMemoryCatalog(vs core.VectorService) *MemoryCatalog {
	return &MemoryCatalog{
		books:   make(map[string]*core.Book),
		vectors: vs,
	}
}

var _ core.CatalogStore = (*MemoryCatalog)(nil)

// Upsert 写入/更新一本书，并把维度正确的切面向量同步进向量服务。
func (c *MemoryCatalog) Upsert(ctx context.Context, b *core.Book) error {
	if b == nil || b.ID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "catalog: book id required")
	}

	c.mu.Lock()
	if _, ok := c.books[b.ID]; !ok {
		c.order = append(c.order, b.ID)
	}
	c.books[b.ID] = b
	c.mu.Unlock()

	if c.vectors == nil {
		return nil
	}
	for _, f := range core.Facets() {
		vec, ok := b.Embedding(f)
		if !ok {
			continue
		}
		colName := "books:" + string(f)
		if err := c.vectors.CreateCollection(ctx, colName, f.Dim(), "cosine"); err != nil {
			return err
		}
		err := c.vectors.Insert(ctx, &core.VectorInsertRequest{
			Collection: colName,
			IDs:        []string{b.ID},
			Vectors:    [][]float64{vec},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *MemoryCatalog) FindByID(ctx context.Context, bookID string) (*core.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.books[bookID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "catalog: book not found: "+bookID)
	}
	return b, nil
}

func (c *MemoryCatalog) Find(ctx context.Context, filter core.CatalogFilter) ([]*core.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	excluded := make(map[string]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}

	out := make([]*core.Book, 0, len(c.order))
	for _, id := range c.order {
		b := c.books[id]
		if excluded[b.ID] {
			continue
		}
		if filter.RequireEmbeddings && !b.HasEmbeddings() {
			continue
		}
		if filter.PublishedAfter != nil {
			if b.PublishDate == nil || b.PublishDate.Before(*filter.PublishedAfter) {
				continue
			}
		}
		if len(filter.Genres) > 0 && !genreIntersects(b.Genres, filter.Genres) {
			continue
		}
		out = append(out, b)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Recent 返回按入库时间倒序的前 n 本书（兜底列表）。
func (c *MemoryCatalog) Recent(ctx context.Context, n int) []*core.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*core.Book, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.books[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (c *MemoryCatalog) AggregateVectorSearch(
	ctx context.Context,
	queryVector []float64,
	facet core.Facet,
	numCandidates int,
	limit int,
	filter core.CatalogFilter,
) ([]*core.SimilarBook, error) {
	if c.vectors == nil {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeUnavailable, "catalog: vector service not configured")
	}
	if !core.ValidVector(facet, queryVector) {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeDimensionMismatch, "catalog: query vector dimension mismatch")
	}

	res, err := c.vectors.Search(ctx, &core.VectorSearchRequest{
		Collection: "books:" + string(facet),
		Vector:     queryVector,
		TopK:       numCandidates,
		Metric:     "cosine",
	})
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*core.SimilarBook, 0, limit)
	for _, item := range res.Items {
		if excluded[item.ID] {
			continue
		}
		b, ok := c.books[item.ID]
		if !ok {
			continue
		}
		if len(filter.Genres) > 0 && !genreIntersects(b.Genres, filter.Genres) {
			continue
		}
		out = append(out, &core.SimilarBook{Book: b, Similarity: item.Score})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func genreIntersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
