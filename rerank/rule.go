package rerank

import (
	"context"
	"log"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/dsl"
	"github.com/rushteam/bookrec/pkg/utils"
)

// BoostRule 是一条加权规则：命中 CEL 表达式的候选按 Boost 调整分数。
type BoostRule struct {
	Name string
	// Expr CEL 表达式，如 `candidate.rating > 4.5 && "Fantasy" in candidate.genres`
	Expr string
	// Boost 加到候选分数上，可为负（降权）
	Boost float64
}

// Rule 是业务规则重排节点：运营配置的 CEL 规则对候选做加降权。
// 表达式编译/求值失败的规则对该候选静默跳过（记日志），绝不让
// 一条坏规则拖垮整个推荐链路。
type Rule struct {
	Rules  []BoostRule
	Logger *log.Logger
}

func (n *Rule) Name() string        { return "rerank.rule" }
func (n *Rule) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Rule) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	candidates []*core.ScoredCandidate,
) ([]*core.ScoredCandidate, error) {
	if len(n.Rules) == 0 || len(candidates) == 0 {
		return candidates, nil
	}

	for _, c := range candidates {
		if c == nil || c.Book == nil {
			continue
		}
		ev := dsl.NewEval(c, rctx)
		for _, r := range n.Rules {
			hit, err := ev.Evaluate(r.Expr)
			if err != nil {
				if n.Logger != nil {
					n.Logger.Printf("rule: %s evaluate failed: %v", r.Name, err)
				}
				continue
			}
			if hit {
				c.Score += r.Boost
				c.PutLabel(core.LabelFactor, utils.Label{Value: "rule:" + r.Name, Source: n.Name()})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}
