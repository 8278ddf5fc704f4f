package strategy

import (
	"context"
	"log"

	"github.com/rushteam/bookrec/core"
)

// Rung 是降级链上的一级。
type Rung struct {
	Name string
	Run  func(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.ScoredCandidate, error)
}

// Chain 是显式的降级链：依序尝试每一级，失败或空结果才进入下一级。
//
// 推荐链路的降级阶梯（§错误处理）由它显式表达：
//
//	向量检索 → 全量相似度（Content 内部）
//	多策略聚合 → 冷启动 → 最新书目（Chain 表达）
//
// 最后一级应当永远可用（Recent 策略），因此 Score 对非空书目保证非空输出。
type Chain struct {
	Rungs  []Rung
	Logger *log.Logger

	// OnFallback 观测钩子：每次降级换档时回调（记录 analytics 用）
	OnFallback func(from, to string)
}

// Score 依序执行降级链，返回第一个非空结果及命中的级别名。
func (c *Chain) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.ScoredCandidate, string) {
	for i, rung := range c.Rungs {
		out, err := rung.Run(ctx, rctx, limit)
		if err != nil {
			if c.Logger != nil {
				c.Logger.Printf("chain: rung %s failed: %v", rung.Name, err)
			}
		}
		if err == nil && len(out) > 0 {
			return out, rung.Name
		}
		if i+1 < len(c.Rungs) && c.OnFallback != nil {
			c.OnFallback(rung.Name, c.Rungs[i+1].Name)
		}
	}
	return nil, ""
}

// RungOf 把 Strategy 包装成降级链的一级。
func RungOf(s Strategy) Rung {
	return Rung{
		Name: s.Name(),
		Run:  s.Score,
	}
}
