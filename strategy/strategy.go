package strategy

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// Kind 是策略的封闭枚举。
// 策略选择基于类型化枚举而非字符串分发：新增策略必须在此登记。
type Kind string

const (
	KindCollaborative Kind = "collaborative" // 协同过滤：邻居用户背书
	KindContent       Kind = "content"       // 内容/向量：嵌入相似度
	KindHybrid        Kind = "hybrid"        // 混合：协同 + 内容动态调权
	KindDemographic   Kind = "demographic"   // 人群：分群榜单/热门兜底
	KindColdStart     Kind = "coldstart"     // 冷启动：新书 + 采样 + 类型多样
	KindRecent        Kind = "recent"        // 最新书目：永不为空的最终兜底
)

// Strategy 表示一个独立的打分策略（可并发 fan-out 的策略单元）。
//
// 约定：Score 对外绝不 panic；内部失败记日志并返回空列表。
// 数据缺失（无画像/无向量）不是错误，返回空列表即可，由上层降级。
type Strategy interface {
	Name() string
	Kind() Kind

	Score(
		ctx context.Context,
		rctx *core.RecommendContext,
		limit int,
	) ([]*core.ScoredCandidate, error)
}

// validVectors 过滤出维度正确的画像切面向量，错维视为缺失。
func validVectors(p *core.UserProfile) map[core.Facet][]float64 {
	out := make(map[core.Facet][]float64)
	if p == nil {
		return out
	}
	for _, f := range core.Facets() {
		if vec, ok := p.Vector(f); ok {
			out[f] = vec
		}
	}
	return out
}

// validEmbeddings 过滤出维度正确的图书切面向量。
func validEmbeddings(b *core.Book) map[core.Facet][]float64 {
	out := make(map[core.Facet][]float64)
	if b == nil {
		return out
	}
	for _, f := range core.Facets() {
		if vec, ok := b.Embedding(f); ok {
			out[f] = vec
		}
	}
	return out
}

// interactedIDs 返回用户已交互书目 ID 列表（排除已读用）。
func interactedIDs(p *core.UserProfile) []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.History))
	for _, it := range p.History {
		out = append(out, it.BookID)
	}
	return out
}
