package engine

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/rushteam/bookrec/analytics"
	"github.com/rushteam/bookrec/cache"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/rank"
	"github.com/rushteam/bookrec/rerank"
	"github.com/rushteam/bookrec/strategy"
)

// Cache 是引擎消费的结果缓存接口。
// cache.ResultCache（进程内）与 cache.StoreCache（Redis 共享）都实现它。
type Cache interface {
	Get(ctx context.Context, key string) ([]*core.Recommendation, bool)
	Set(ctx context.Context, key, userID string, value []*core.Recommendation)
	InvalidateUser(ctx context.Context, userID string) int
}

// Engine 是推荐引擎的编排层。
//
// 单次请求的链路：
//
//	缓存检查 → 策略 fan-out → 聚合 → 规则/上下文重排 → 多样性
//	→ [refresh 扰动] → 截断 → 缓存写入 → 返回
//
// 降级阶梯：多策略聚合为空 → 冷启动 → 最新书目。
// 引擎对外绝不 panic、绝不返回空结果（书目非空时）。
type Engine struct {
	Profiles  core.ProfileStore
	Catalog   core.CatalogStore
	Behaviors core.BehaviorStore // 可选

	Cache     Cache               // 可选：nil 时每次现算
	Analytics *analytics.Recorder // 可选

	// Fanout 主策略编排（权重进聚合阶段）
	Fanout *strategy.Fanout

	// ColdStart 冷启动路由（画像缺失/空白时直接走它）
	ColdStart strategy.Strategy

	// Fallback 聚合为空时的降级链（coldstart → recent）
	Fallback *strategy.Chain

	// Rules 运营配置的 CEL 加权规则（可为空）
	Rules []rerank.BoostRule

	// RefreshProfile 画像过期时的异步刷新钩子（fire-and-forget，可为空）
	RefreshProfile func(userID string)

	// ProfileStaleAfter 画像视为过期的时长，默认 24h
	ProfileStaleAfter time.Duration

	ModelVersion string
	Logger       *log.Logger

	// Now 时间源，测试可注入
	Now func() time.Time
}

// Options 配置默认引擎的可选依赖。
type Options struct {
	Behaviors core.BehaviorStore
	Ranking   core.KeyValueStore // 榜单后端（Demographic 策略）
	Cache     Cache
	Rules     []rerank.BoostRule
	Logger    *log.Logger
}

// New 用标准策略组合装配引擎：
// Hybrid（协同+内容）、Demographic 并发 fan-out，
// 冷启动与最新书目作为降级链。
func New(profiles core.ProfileStore, neighbors strategy.NeighborSource, catalog core.CatalogStore, opts Options) *Engine {
	logger := opts.Logger

	collaborative := &strategy.Collaborative{Neighbors: neighbors, Catalog: catalog, Logger: logger}
	content := &strategy.Content{Catalog: catalog, Logger: logger}
	hybrid := &strategy.Hybrid{Collaborative: collaborative, Content: content, Logger: logger}
	demographic := &strategy.Demographic{
		Catalog:   catalog,
		Behaviors: opts.Behaviors,
		Store:     opts.Ranking,
		Logger:    logger,
	}
	coldstart := &strategy.ColdStart{Catalog: catalog, Logger: logger}
	recent := &strategy.Recent{Catalog: catalog, Logger: logger}

	e := &Engine{
		Profiles:  profiles,
		Catalog:   catalog,
		Behaviors: opts.Behaviors,
		Cache:     opts.Cache,
		Analytics: analytics.NewRecorder(),
		Fanout: &strategy.Fanout{
			Strategies: []strategy.Weighted{
				{Strategy: hybrid, Weight: 0.6},
				{Strategy: demographic, Weight: 0.4},
			},
			Timeout: 2 * time.Second,
			Logger:  logger,
		},
		ColdStart: coldstart,
		Fallback: &strategy.Chain{
			Rungs:  []strategy.Rung{strategy.RungOf(coldstart), strategy.RungOf(recent)},
			Logger: logger,
		},
		Rules:        opts.Rules,
		ModelVersion: "bookrec-v1",
		Logger:       logger,
	}
	e.Fallback.OnFallback = func(from, to string) {
		e.Analytics.RecordFallback()
	}
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// Request 是一次推荐请求。
type Request struct {
	UserID string
	Limit  int

	// Refresh 换一批：请求前失效缓存、重排扰动、结果不回写
	Refresh bool

	// Context 场景参数：mood / time_of_day / genres / publication
	Context map[string]any

	// Rand 请求级随机源（测试注入固定种子）
	Rand *rand.Rand
}

func (r *Request) limit() int {
	if r.Limit <= 0 {
		return 10
	}
	return r.Limit
}

// buildContext 装配 RecommendContext：加载画像与行为聚合。
// 画像不存在不是错误（冷启动路径），其他加载失败记日志后继续。
func (e *Engine) buildContext(ctx context.Context, req *Request) *core.RecommendContext {
	rctx := &core.RecommendContext{
		UserID:  req.UserID,
		Refresh: req.Refresh,
		Limit:   req.limit(),
		Rand:    req.Rand,
		Params:  req.Context,
	}

	if e.Profiles != nil && req.UserID != "" {
		p, err := e.Profiles.Get(ctx, req.UserID)
		switch {
		case err == nil:
			rctx.User = p
			e.maybeRefreshProfile(p)
		case core.IsNotFound(err):
			// 无画像走冷启动
		default:
			e.logf("engine: load profile %s: %v", req.UserID, err)
		}
	}

	if e.Behaviors != nil && req.UserID != "" {
		b, err := e.Behaviors.Get(ctx, req.UserID)
		if err == nil {
			rctx.Behavior = b
		} else if !core.IsNotFound(err) {
			e.logf("engine: load behavior %s: %v", req.UserID, err)
		}
	}
	return rctx
}

// maybeRefreshProfile 画像过期时触发异步刷新，不阻塞请求。
func (e *Engine) maybeRefreshProfile(p *core.UserProfile) {
	if e.RefreshProfile == nil || p == nil {
		return
	}
	staleAfter := e.ProfileStaleAfter
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	if e.now().Sub(p.UpdateTime) < staleAfter {
		return
	}
	go e.RefreshProfile(p.UserID)
}

// generate 是推荐生成的核心链路，queryType 区分缓存命名空间。
func (e *Engine) generate(ctx context.Context, req *Request, queryType string) ([]*core.Recommendation, error) {
	started := e.now()
	recs, err := e.safeGenerate(ctx, req, queryType)
	if e.Analytics != nil {
		e.Analytics.RecordGeneration(e.now().Sub(started), err == nil && len(recs) > 0)
	}
	return recs, err
}

// safeGenerate 捕获链路中的任何 panic，折算为最新书目兜底。
func (e *Engine) safeGenerate(ctx context.Context, req *Request, queryType string) (recs []*core.Recommendation, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logf("engine: generate panicked: %v", r)
			recs = e.lastResort(ctx, req)
			err = nil
		}
	}()

	limit := req.limit()
	key := cache.Key(req.UserID, queryType, req.Context)

	if req.Refresh {
		// 换一批：先清掉该用户全部缓存，本次结果也不回写
		if e.Cache != nil {
			e.Cache.InvalidateUser(ctx, req.UserID)
		}
	} else if e.Cache != nil {
		if cached, ok := e.Cache.Get(ctx, key); ok {
			if e.Analytics != nil {
				e.Analytics.RecordCache(true)
			}
			return cached, nil
		}
		if e.Analytics != nil {
			e.Analytics.RecordCache(false)
		}
	}

	rctx := e.buildContext(ctx, req)
	candidates := e.score(ctx, rctx, limit)

	candidates, perr := e.rerankPipeline(queryType, limit, req.Refresh).Run(ctx, rctx, candidates)
	if perr != nil {
		e.logf("engine: pipeline: %v", perr)
		return e.lastResort(ctx, req), nil
	}
	if len(candidates) == 0 {
		return e.lastResort(ctx, req), nil
	}

	recs = e.toRecommendations(candidates)
	if e.Cache != nil && !req.Refresh {
		e.Cache.Set(ctx, key, req.UserID, recs)
	}
	return recs, nil
}

// score 产出聚合前的候选集：冷启动路由 / fan-out + 降级链。
func (e *Engine) score(ctx context.Context, rctx *core.RecommendContext, limit int) []*core.ScoredCandidate {
	// 冷启动路由：画像缺失或空白直接走探索性书单
	if rctx.User.IsColdStart() && e.ColdStart != nil {
		out, err := e.ColdStart.Score(ctx, rctx, limit)
		if err == nil && len(out) > 0 {
			if e.Analytics != nil {
				e.Analytics.RecordStrategy(e.ColdStart.Name(), true)
			}
			return out
		}
	}

	var aggregated []*core.ScoredCandidate
	if e.Fanout != nil {
		results := e.Fanout.Run(ctx, rctx, limit*3)
		if e.Analytics != nil {
			for _, res := range results {
				e.Analytics.RecordStrategy(string(res.Kind), res.Err == nil && len(res.Candidates) > 0)
			}
		}
		aggregated = rank.Aggregate(results)
	}
	if len(aggregated) > 0 {
		return aggregated
	}

	// 聚合为空：走显式降级链
	if e.Fallback != nil {
		out, rung := e.Fallback.Score(ctx, rctx, limit)
		if len(out) > 0 {
			if e.Analytics != nil {
				e.Analytics.RecordStrategy(rung, true)
			}
			return out
		}
	}
	return nil
}

// rerankPipeline 按查询类型装配重排链。
// 换一批请求把多样性窗口放宽到 3×limit，让后面的扰动能换出
// 不同的书，而不只是重排同一批；最终截断交给 Refresh/TopN。
func (e *Engine) rerankPipeline(queryType string, limit int, refresh bool) *pipeline.Pipeline {
	diversityLimit := limit
	if refresh {
		diversityLimit = limit * 3
	}

	nodes := make([]pipeline.Node, 0, 5)
	if len(e.Rules) > 0 {
		nodes = append(nodes, &rerank.Rule{Rules: e.Rules, Logger: e.Logger})
	}
	if queryType == queryContextual {
		nodes = append(nodes, &rerank.Contextual{Now: e.Now})
	}
	nodes = append(nodes,
		&rerank.Diversity{Limit: diversityLimit},
		&rerank.Refresh{},
		&rerank.TopN{N: limit},
	)
	return &pipeline.Pipeline{Nodes: nodes}
}

// lastResort 是链路崩溃时的最终兜底：最新书目，书目非空时必非空。
func (e *Engine) lastResort(ctx context.Context, req *Request) []*core.Recommendation {
	recent := &strategy.Recent{Catalog: e.Catalog, Logger: e.Logger}
	rctx := &core.RecommendContext{UserID: req.UserID, Limit: req.limit()}
	out, err := recent.Score(ctx, rctx, req.limit())
	if err != nil {
		return nil
	}
	return e.toRecommendations(out)
}

// toRecommendations 把候选转成对外结果：补充解释与元信息。
func (e *Engine) toRecommendations(candidates []*core.ScoredCandidate) []*core.Recommendation {
	out := make([]*core.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Book == nil {
			continue
		}
		strategies := c.Strategies()
		factors := c.Factors()
		out = append(out, &core.Recommendation{
			Book:                c.Book,
			RecommendationScore: c.Score,
			Confidence:          c.Confidence,
			Reason:              reasonFor(strategies, factors),
			Metadata: core.RecommendationMeta{
				Strategies:   strategies,
				Factors:      factors,
				ModelVersion: e.ModelVersion,
			},
		})
	}
	return out
}
