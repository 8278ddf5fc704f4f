package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/rushteam/bookrec/core"
)

// ProfileVectorRefresher 离线重算用户的 primary 兴趣向量：
// 按交互权重平均已读书目的 primary 嵌入。书目缺嵌入时通过
// EmbeddingProvider 以书名/作者/类型文本即时补算；补算失败
// 回退零向量（零向量不贡献方向，只稀释权重）。
//
// 引擎的 RefreshProfile 钩子接它的 Refresh，画像过期或参与
// 事件后异步触发，绝不阻塞推荐请求。
type ProfileVectorRefresher struct {
	Profiles   core.ProfileStore
	Catalog    core.CatalogStore
	Embeddings core.EmbeddingProvider // 可选：缺嵌入的书走它补算

	Logger *log.Logger

	// Now 时间源，测试可注入
	Now func() time.Time
}

// Refresh 重算并保存用户画像向量。无可用嵌入时画像保持原样。
func (r *ProfileVectorRefresher) Refresh(ctx context.Context, userID string) error {
	p, err := r.Profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	if len(p.History) == 0 {
		return nil
	}

	dim := core.FacetPrimary.Dim()
	sum := make([]float64, dim)
	total := 0.0
	for _, it := range p.History {
		b, err := r.Catalog.FindByID(ctx, it.BookID)
		if err != nil {
			continue
		}
		vec, ok := b.Embedding(core.FacetPrimary)
		if !ok {
			vec = r.embedBook(ctx, b, dim)
		}
		w := it.Weight()
		for i := range sum {
			sum[i] += vec[i] * w
		}
		total += w
	}
	if total == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= total
	}

	if p.Vectors == nil {
		p.Vectors = make(map[core.Facet][]float64)
	}
	p.Vectors[core.FacetPrimary] = sum
	if r.Now != nil {
		p.UpdateTime = r.Now()
	} else {
		p.UpdateTime = time.Now()
	}
	return r.Profiles.Save(ctx, p)
}

// embedBook 为缺嵌入的书即时补算 primary 向量；失败回退零向量。
func (r *ProfileVectorRefresher) embedBook(ctx context.Context, b *core.Book, dim int) []float64 {
	zero := make([]float64, dim)
	if r.Embeddings == nil {
		return zero
	}
	parts := append([]string{b.Title, b.Author}, b.Genres...)
	vec, err := r.Embeddings.Embed(ctx, strings.Join(parts, " "), dim)
	if err != nil || len(vec) != dim {
		if r.Logger != nil {
			r.Logger.Printf("refresher: embed book %s: %v", b.ID, err)
		}
		return zero
	}
	return vec
}
