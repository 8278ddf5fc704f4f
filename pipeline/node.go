package pipeline

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindStrategy    Kind = "strategy"    // 策略阶段：各打分策略生成候选集
	KindAggregate   Kind = "aggregate"   // 聚合阶段：多策略候选加权合并
	KindReRank      Kind = "rerank"      // 重排阶段：多样性/上下文/随机扰动
	KindPostProcess Kind = "postprocess" // 后处理阶段：补充解释或最终结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 candidates -> 输出 candidates"的形态，
// 方便策略生成、聚合合并、重排截断等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		candidates []*core.ScoredCandidate,
	) ([]*core.ScoredCandidate, error)
}
