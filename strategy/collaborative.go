package strategy

import (
	"context"
	"log"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
)

// NeighborSource 提供候选邻居画像（协同过滤用）。
// store.MemoryProfileStore 实现此接口；生产环境可换成离线产出的 u2u 结果。
type NeighborSource interface {
	All(ctx context.Context) ([]*core.UserProfile, error)
}

// Collaborative 是基于用户的协同过滤策略（User-CF）。
//
// 核心思想："兴趣相似的读者，喜欢相似的书"
//
// 算法流程：
//  1. 找共同交互 ≥ MinSharedBooks 本书的邻居用户
//  2. 邻居权重 = 共book占比 × 单书交互权重（评分/读完/收藏，上限 3×）
//  3. 聚合邻居背书、目标用户未读的书，按加权分求和
//  4. 置信度 = min(背书邻居数 / 5, 1)
type Collaborative struct {
	Neighbors NeighborSource
	Catalog   core.CatalogStore

	// MinSharedBooks 成为邻居所需的最少共同交互书目数，默认 3
	MinSharedBooks int

	Logger *log.Logger
}

func (s *Collaborative) Name() string { return "strategy.collaborative" }
func (s *Collaborative) Kind() Kind   { return KindCollaborative }

func (s *Collaborative) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.ScoredCandidate, error) {
	if s.Neighbors == nil || s.Catalog == nil || rctx == nil || rctx.User == nil {
		return nil, nil
	}
	target := rctx.User
	targetItems := target.Interacted()
	if len(targetItems) == 0 {
		return nil, nil
	}

	minShared := s.MinSharedBooks
	if minShared <= 0 {
		minShared = 3
	}

	neighbors, err := s.Neighbors.All(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("collaborative: list neighbors: %v", err)
		}
		return nil, nil
	}

	// score[bookID] = Σ(共book占比 × 交互权重)
	bookScores := make(map[string]float64)
	endorsers := make(map[string]map[string]bool) // bookID -> 背书邻居集合

	for _, nb := range neighbors {
		if nb == nil || nb.UserID == target.UserID || len(nb.History) == 0 {
			continue
		}

		shared := 0
		for _, it := range nb.History {
			if _, ok := targetItems[it.BookID]; ok {
				shared++
			}
		}
		if shared < minShared {
			continue
		}
		sharedRatio := float64(shared) / float64(len(nb.History))

		for _, it := range nb.History {
			// 跳过目标用户已经交互过的书
			if _, ok := targetItems[it.BookID]; ok {
				continue
			}
			bookScores[it.BookID] += sharedRatio * it.Weight()
			if endorsers[it.BookID] == nil {
				endorsers[it.BookID] = make(map[string]bool)
			}
			endorsers[it.BookID][nb.UserID] = true
		}
	}

	if len(bookScores) == 0 {
		return nil, nil
	}

	out := make([]*core.ScoredCandidate, 0, len(bookScores))
	for bookID, score := range bookScores {
		book, err := s.Catalog.FindByID(ctx, bookID)
		if err != nil {
			continue // 邻居读过但书目里已下架
		}
		cand := core.NewScoredCandidate(book)
		cand.Score = score
		cand.Confidence = float64(len(endorsers[bookID])) / 5
		if cand.Confidence > 1 {
			cand.Confidence = 1
		}
		cand.PutLabel(core.LabelStrategy, utils.Label{Value: string(KindCollaborative), Source: "strategy"})
		cand.PutLabel(core.LabelFactor, utils.Label{Value: "neighbor_endorsed", Source: "strategy"})
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
