package strategy

import (
	"context"
	"log"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
)

// Demographic 是人群/热门策略：分群榜单优先，热门排序兜底。
//
// 保证：只要书目非空，输出就非空 —— 对无向量、无历史的画像也成立。
// 置信度固定为 Confidence（不是学习值），默认 0.5。
//
// 榜单来源优先级：
//   - KeyValueStore 的 "hot:cluster:<cluster>"（用户分群榜单，zset）
//   - KeyValueStore 的 "hot:global"（全局热门榜，zset）
//   - Catalog 按 rating / viewCount / trending 排序
type Demographic struct {
	Catalog   core.CatalogStore
	Behaviors core.BehaviorStore // 可选：提供分群标签
	Store     core.KeyValueStore // 可选：榜单后端（Redis 生产 / Memory 测试）

	// Confidence 固定置信度，默认 0.5
	Confidence float64

	Logger *log.Logger
}

func (s *Demographic) Name() string { return "strategy.demographic" }
func (s *Demographic) Kind() Kind   { return KindDemographic }

func (s *Demographic) Score(
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

	confidence := s.Confidence
	if confidence == 0 {
		confidence = 0.5
	}

	interacted := make(map[string]bool)
	if rctx != nil && rctx.User != nil {
		for _, id := range interactedIDs(rctx.User) {
			interacted[id] = true
		}
	}

	// 1. 榜单路径（分群优先，其次全局）
	if s.Store != nil {
		factor := "popular"
		key := "hot:global"
		if cluster := s.userCluster(ctx, rctx); cluster != "" {
			key = "hot:cluster:" + cluster
			factor = "cluster:" + cluster
		}
		if out := s.fromRankedList(ctx, key, factor, confidence, interacted, limit); len(out) > 0 {
			return out, nil
		}
		// 分群榜单为空时退回全局榜
		if key != "hot:global" {
			if out := s.fromRankedList(ctx, "hot:global", "popular", confidence, interacted, limit); len(out) > 0 {
				return out, nil
			}
		}
	}

	// 2. 热门排序兜底
	books, err := s.Catalog.Find(ctx, core.CatalogFilter{})
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("demographic: find catalog: %v", err)
		}
		return nil, nil
	}

	sort.SliceStable(books, func(i, j int) bool {
		if books[i].Stats.Rating != books[j].Stats.Rating {
			return books[i].Stats.Rating > books[j].Stats.Rating
		}
		if books[i].Stats.ViewCount != books[j].Stats.ViewCount {
			return books[i].Stats.ViewCount > books[j].Stats.ViewCount
		}
		return books[i].Stats.Trending > books[j].Stats.Trending
	})

	out := make([]*core.ScoredCandidate, 0, limit)
	for _, b := range books {
		if interacted[b.ID] {
			continue
		}
		out = append(out, s.candidate(b, "popular", confidence))
		if len(out) >= limit {
			break
		}
	}
	// 全部读过也要保证非空：放开已读过滤
	if len(out) == 0 {
		for _, b := range books {
			out = append(out, s.candidate(b, "popular", confidence))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Demographic) userCluster(ctx context.Context, rctx *core.RecommendContext) string {
	if rctx != nil && rctx.Behavior != nil {
		return rctx.Behavior.Cluster
	}
	if s.Behaviors == nil || rctx == nil || rctx.UserID == "" {
		return ""
	}
	b, err := s.Behaviors.Get(ctx, rctx.UserID)
	if err != nil {
		return "" // 无行为聚合视为未分群
	}
	return b.Cluster
}

func (s *Demographic) fromRankedList(
	ctx context.Context,
	key, factor string,
	confidence float64,
	interacted map[string]bool,
	limit int,
) []*core.ScoredCandidate {
	members, err := s.Store.ZRange(ctx, key, 0, int64(limit*2)-1)
	if err != nil || len(members) == 0 {
		return nil
	}

	out := make([]*core.ScoredCandidate, 0, limit)
	for rank, id := range members {
		if interacted[id] {
			continue
		}
		b, err := s.Catalog.FindByID(ctx, id)
		if err != nil {
			continue
		}
		cand := s.candidate(b, factor, confidence)
		// 榜单名次折算分数，保持降序
		cand.Score = 1 - float64(rank)/float64(len(members))
		out = append(out, cand)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func (s *Demographic) candidate(b *core.Book, factor string, confidence float64) *core.ScoredCandidate {
	cand := core.NewScoredCandidate(b)
	// 热门度折算到 0-1 区间
	cand.Score = b.Stats.Rating / 5
	cand.Confidence = confidence
	cand.PutLabel(core.LabelStrategy, utils.Label{Value: string(KindDemographic), Source: "strategy"})
	cand.PutLabel(core.LabelFactor, utils.Label{Value: factor, Source: "strategy"})
	return cand
}
