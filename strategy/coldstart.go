package strategy

import (
	"context"
	"log"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
)

// ColdStart 是冷启动策略：给无历史、无向量的新用户拼一份探索性书单。
//
// 构成（按 limit 配比）：
//   - 30% 最新入库
//   - 40% 均匀采样（请求级随机源，测试可复现）
//   - 30% 每个类型取一本（类型多样性）
//
// 去重后整体洗牌；书目足够时恰好返回 limit 本。
type ColdStart struct {
	Catalog core.CatalogStore

	Logger *log.Logger
}

func (s *ColdStart) Name() string { return "strategy.coldstart" }
func (s *ColdStart) Kind() Kind   { return KindColdStart }

func (s *ColdStart) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.ScoredCandidate, error) {
	if s.Catalog == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	books, err := s.Catalog.Find(ctx, core.CatalogFilter{})
	if err != nil || len(books) == 0 {
		if err != nil && s.Logger != nil {
			s.Logger.Printf("coldstart: find catalog: %v", err)
		}
		return nil, nil
	}

	rng := rctx.Random()

	recentN := (limit*3 + 9) / 10 // 30%
	sampleN := (limit*4 + 9) / 10 // 40%
	genreN := limit - recentN - sampleN
	if genreN < 0 {
		genreN = 0
	}

	picked := make(map[string]bool, limit)
	pool := make([]*core.Book, 0, limit*2)
	take := func(b *core.Book, n *int) {
		if *n <= 0 || b == nil || picked[b.ID] {
			return
		}
		picked[b.ID] = true
		pool = append(pool, b)
		*n--
	}

	// 1. 最新入库
	byRecency := make([]*core.Book, len(books))
	copy(byRecency, books)
	sort.SliceStable(byRecency, func(i, j int) bool {
		return byRecency[i].CreatedAt.After(byRecency[j].CreatedAt)
	})
	for _, b := range byRecency {
		if recentN <= 0 {
			break
		}
		take(b, &recentN)
	}

	// 2. 每个类型取一本
	seenGenre := make(map[string]bool)
	for _, b := range books {
		if genreN <= 0 {
			break
		}
		for _, g := range b.Genres {
			if !seenGenre[g] {
				seenGenre[g] = true
				take(b, &genreN)
				break
			}
		}
	}

	// 3. 均匀采样补足（剩余配额全给采样）
	sampleN += recentN + genreN
	perm := rng.Perm(len(books))
	for _, idx := range perm {
		if sampleN <= 0 || len(pool) >= limit {
			break
		}
		take(books[idx], &sampleN)
	}

	// 整体洗牌后输出：分数按洗牌后名次递减，保持排序稳定
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > limit {
		pool = pool[:limit]
	}

	out := make([]*core.ScoredCandidate, 0, len(pool))
	for i, b := range pool {
		cand := core.NewScoredCandidate(b)
		cand.Score = 1 - float64(i)/float64(len(pool)+1)
		cand.Confidence = 0.3
		cand.PutLabel(core.LabelStrategy, utils.Label{Value: string(KindColdStart), Source: "strategy"})
		cand.PutLabel(core.LabelFactor, utils.Label{Value: "exploration", Source: "strategy"})
		out = append(out, cand)
	}
	return out, nil
}
