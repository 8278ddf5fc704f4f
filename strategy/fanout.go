package strategy

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/bookrec/core"
)

// Weighted 是带聚合权重的策略单元。
type Weighted struct {
	Strategy Strategy
	Weight   float64
}

// Result 是单个策略的执行结果，供聚合阶段消费。
type Result struct {
	Kind       Kind
	Weight     float64
	Candidates []*core.ScoredCandidate
	Err        error // 记录失败原因（观测用）；失败的策略不贡献候选
}

// Fanout 并发执行一组策略并收集各自结果。
// 支持超时、并发上限；单个策略 panic/出错只丢弃该策略的贡献，不中断整体。
type Fanout struct {
	Strategies []Weighted

	// Timeout 每个策略的超时时间（0 表示不限制）
	Timeout time.Duration

	// MaxConcurrent 最大并发数（0 表示无限制）
	MaxConcurrent int

	Logger *log.Logger
}

// Run 返回与 Strategies 顺序一致的结果列表。
func (f *Fanout) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) []Result {
	results := make([]Result, len(f.Strategies))
	if len(f.Strategies) == 0 {
		return results
	}

	var mu sync.Mutex
	eg, egctx := errgroup.WithContext(ctx)
	if f.MaxConcurrent > 0 {
		eg.SetLimit(f.MaxConcurrent)
	}

	for i, ws := range f.Strategies {
		i, ws := i, ws
		eg.Go(func() error {
			scoreCtx := egctx
			if f.Timeout > 0 {
				var cancel context.CancelFunc
				scoreCtx, cancel = context.WithTimeout(egctx, f.Timeout)
				defer cancel()
			}

			cands, err := f.safeScore(scoreCtx, ws.Strategy, rctx, limit)

			mu.Lock()
			results[i] = Result{
				Kind:       ws.Strategy.Kind(),
				Weight:     ws.Weight,
				Candidates: cands,
				Err:        err,
			}
			mu.Unlock()
			// 策略失败不中断其他策略
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// safeScore 执行单个策略：panic 折算为错误，错误记日志。
// 对外保证"策略绝不抛出"。
func (f *Fanout) safeScore(
	ctx context.Context,
	s Strategy,
	rctx *core.RecommendContext,
	limit int,
) (cands []*core.ScoredCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			if f.Logger != nil {
				f.Logger.Printf("fanout: strategy %s panicked: %v", s.Name(), r)
			}
			cands = nil
			err = core.NewDomainError(core.ModuleStrategy, "INTERNAL_ERROR", "strategy panicked")
		}
	}()

	cands, err = s.Score(ctx, rctx, limit)
	if err != nil {
		if f.Logger != nil {
			f.Logger.Printf("fanout: strategy %s failed: %v", s.Name(), err)
		}
		return nil, err
	}
	return cands, nil
}
