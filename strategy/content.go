package strategy

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
	"github.com/rushteam/bookrec/pkg/vectormath"
)

// Content 是基于内容/向量的策略（Content-Based，嵌入相似度）。
//
// 两级执行：
//  1. ANN 路径：以画像 primary 向量做近似最近邻检索
//     （候选数 = NumCandidatesFactor × limit，最小相似度 MinSimilarity），
//     相似度再叠加质量加成 rating × log(viewCount+1)
//  2. 降级路径：ANN 失败或维度不符时，对所有有嵌入的书做全量
//     多切面加权相似度计算，阈值 FallbackThreshold
//
// primary 向量完全缺失时两级都走不通，返回空列表，由上层换策略。
type Content struct {
	Catalog core.CatalogStore

	// MinSimilarity ANN 路径的最小相似度阈值，默认 0.5
	MinSimilarity float64

	// FallbackThreshold 全量降级路径的相似度阈值，默认 0.4
	FallbackThreshold float64

	// NumCandidatesFactor ANN 候选放大倍数（numCandidates = factor × limit），默认 10
	NumCandidatesFactor int

	// Weights 全量路径的切面权重；为空时使用 defaultFacetWeights
	Weights map[core.Facet]float64

	Logger *log.Logger
}

// defaultFacetWeights 是多切面加权相似度的默认权重。
var defaultFacetWeights = map[core.Facet]float64{
	core.FacetPrimary:   0.45,
	core.FacetSemantic:  0.20,
	core.FacetStyle:     0.15,
	core.FacetEmotional: 0.10,
	core.FacetTemporal:  0.10,
}

func (s *Content) Name() string { return "strategy.content" }
func (s *Content) Kind() Kind   { return KindContent }

func (s *Content) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.ScoredCandidate, error) {
	if s.Catalog == nil || rctx == nil || rctx.User == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	primary, ok := rctx.User.Vector(core.FacetPrimary)
	if ok {
		out, err := s.annSearch(ctx, rctx, primary, limit)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		if err != nil && s.Logger != nil {
			s.Logger.Printf("content: ann search failed, falling back to exhaustive: %v", err)
		}
	}

	// ANN 不可用 / primary 缺失（错维同缺失）：全量加权相似度
	return s.exhaustive(ctx, rctx, limit)
}

func (s *Content) annSearch(
	ctx context.Context,
	rctx *core.RecommendContext,
	primary []float64,
	limit int,
) ([]*core.ScoredCandidate, error) {
	factor := s.NumCandidatesFactor
	if factor <= 0 {
		factor = 10
	}
	minSim := s.MinSimilarity
	if minSim == 0 {
		minSim = 0.5
	}

	sims, err := s.Catalog.AggregateVectorSearch(
		ctx,
		primary,
		core.FacetPrimary,
		factor*limit,
		limit*3,
		core.CatalogFilter{ExcludeIDs: interactedIDs(rctx.User)},
	)
	if err != nil {
		return nil, err
	}

	confidence := rctx.User.Confidence[core.FacetPrimary]
	if confidence == 0 {
		confidence = 0.6
	}

	out := make([]*core.ScoredCandidate, 0, len(sims))
	for _, sb := range sims {
		if sb.Similarity < minSim {
			continue
		}
		cand := core.NewScoredCandidate(sb.Book)
		cand.Score = blendQuality(sb.Similarity, sb.Book)
		cand.Confidence = confidence
		cand.PutLabel(core.LabelStrategy, utils.Label{Value: string(KindContent), Source: "strategy"})
		cand.PutLabel(core.LabelFactor, utils.Label{Value: "vector_search", Source: "strategy"})
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// exhaustive 对所有有嵌入的书做多切面加权相似度（降级路径）。
// 只有存在且维度正确的切面参与计算，结果只会来自有嵌入的书。
func (s *Content) exhaustive(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.ScoredCandidate, error) {
	userVecs := validVectors(rctx.User)
	if len(userVecs) == 0 {
		return nil, nil
	}

	threshold := s.FallbackThreshold
	if threshold == 0 {
		threshold = 0.4
	}
	weights := s.Weights
	if weights == nil {
		weights = defaultFacetWeights
	}

	books, err := s.Catalog.Find(ctx, core.CatalogFilter{
		RequireEmbeddings: true,
		ExcludeIDs:        interactedIDs(rctx.User),
	})
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("content: exhaustive find: %v", err)
		}
		return nil, nil
	}

	confidence := rctx.User.Confidence[core.FacetPrimary]
	if confidence == 0 {
		confidence = 0.5
	}

	out := make([]*core.ScoredCandidate, 0, len(books))
	for _, b := range books {
		sim := vectormath.Weighted(userVecs, validEmbeddings(b), weights)
		if sim < threshold {
			continue
		}
		cand := core.NewScoredCandidate(b)
		cand.Score = blendQuality(sim, b)
		cand.Confidence = confidence
		cand.PutLabel(core.LabelStrategy, utils.Label{Value: string(KindContent), Source: "strategy"})
		cand.PutLabel(core.LabelFactor, utils.Label{Value: "vector_fallback", Source: "strategy"})
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// blendQuality 把相似度与质量信号混合：质量加成经 tanh 压缩，上限 +0.1，
// 避免高曝光书完全盖过相似度信号。
func blendQuality(sim float64, b *core.Book) float64 {
	return sim + 0.1*math.Tanh(b.QualityScore()/10)
}
