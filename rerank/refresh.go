package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
)

// Refresh 是换一批重排节点：对头部候选注入随机扰动后重新排序，
// 让同一用户连续刷新看到不同但仍然相关的结果。
//
// 只在 rctx.Refresh 为 true 时生效：
//  1. 取前 Factor×limit 个候选（默认 3 倍）
//  2. 每个候选分数加 uniform(-Perturb, +Perturb) 扰动
//  3. 按 score + ReorderWeight×rand 重排
//  4. 截断到 limit
//
// 随机源来自 rctx.Random()，注入固定种子即可复现。
type Refresh struct {
	// Factor 扰动窗口倍数，默认 3
	Factor int

	// Perturb 分数扰动幅度，默认 0.3
	Perturb float64

	// ReorderWeight 重排随机项权重，默认 0.2
	ReorderWeight float64
}

func (n *Refresh) Name() string        { return "rerank.refresh" }
func (n *Refresh) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Refresh) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	candidates []*core.ScoredCandidate,
) ([]*core.ScoredCandidate, error) {
	if rctx == nil || !rctx.Refresh || len(candidates) == 0 {
		return candidates, nil
	}

	factor := n.Factor
	if factor <= 0 {
		factor = 3
	}
	perturb := n.Perturb
	if perturb == 0 {
		perturb = 0.3
	}
	reorderW := n.ReorderWeight
	if reorderW == 0 {
		reorderW = 0.2
	}

	limit := rctx.Limit
	if limit <= 0 {
		limit = len(candidates)
	}
	window := limit * factor
	if window > len(candidates) {
		window = len(candidates)
	}

	rng := rctx.Random()
	pool := candidates[:window]
	keys := make(map[*core.ScoredCandidate]float64, len(pool))
	for _, c := range pool {
		c.Score += (rng.Float64()*2 - 1) * perturb
		keys[c] = c.Score + reorderW*rng.Float64()
		c.PutLabel(core.LabelFactor, utils.Label{Value: "refresh_shuffle", Source: n.Name()})
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return keys[pool[i]] > keys[pool[j]]
	})

	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool, nil
}
