package core

import (
	"math"
	"time"
)

// Book 是推荐链路中图书候选的统一承载结构。
//
// Embedding 切面与 UserProfile.Vectors 同构，两两可比；
// 只有切面存在且维度正确的书才有资格进入向量类策略，
// 否则只能通过 demographic / fallback 路径被召回。
type Book struct {
	ID     string
	Title  string
	Author string
	Genres []string

	// PublishDate 可选：缺失时不参与出版时间过滤（绝不因此被剔除）
	PublishDate *time.Time

	// Embeddings 多切面嵌入，维度见 core.Facet
	Embeddings map[Facet][]float64

	// Stats 运营统计信号
	Stats BookStats

	// ComplexityScore 阅读难度 0-10，多样性分桶用
	ComplexityScore float64

	// CreatedAt 入库时间，"最新书目"兜底排序用
	CreatedAt time.Time
}

// BookStats 是图书的统计信号。
type BookStats struct {
	ViewCount int64
	Rating    float64 // 0-5
	Trending  float64 // 热度趋势信号
}

// Embedding 返回维度正确的切面向量；维度不符视为缺失。
func (b *Book) Embedding(f Facet) ([]float64, bool) {
	if b == nil || b.Embeddings == nil {
		return nil, false
	}
	vec, ok := b.Embeddings[f]
	if !ok || !ValidVector(f, vec) {
		return nil, false
	}
	return vec, true
}

// HasEmbeddings 判断是否存在至少一个维度正确的切面。
func (b *Book) HasEmbeddings() bool {
	if b == nil {
		return false
	}
	for f := range b.Embeddings {
		if ValidVector(f, b.Embeddings[f]) {
			return true
		}
	}
	return false
}

// QualityScore 质量加成：rating × log(viewCount+1)。
// 向量类策略用它与相似度混合，避免冷门低质书靠单一向量命中上位。
func (b *Book) QualityScore() float64 {
	if b == nil {
		return 0
	}
	return b.Stats.Rating * math.Log(float64(b.Stats.ViewCount)+1)
}

// PublishedWithin 判断出版时间是否落在 [now-d, now] 内。
// 无出版时间返回 false（调用方决定是否因此过滤）。
func (b *Book) PublishedWithin(now time.Time, d time.Duration) bool {
	if b == nil || b.PublishDate == nil {
		return false
	}
	return b.PublishDate.After(now.Add(-d))
}
