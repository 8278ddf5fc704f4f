package strategy

import (
	"context"
	"log"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
)

// Recent 是最终兜底策略：按入库时间倒序返回最新书目。
// 只要书目非空，输出就非空 —— 降级链的最后一级，永远可用。
type Recent struct {
	Catalog core.CatalogStore

	Logger *log.Logger
}

func (s *Recent) Name() string { return "strategy.recent" }
func (s *Recent) Kind() Kind   { return KindRecent }

func (s *Recent) Score(
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
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("recent: find catalog: %v", err)
		}
		return nil, nil
	}

	sort.SliceStable(books, func(i, j int) bool {
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})
	if len(books) > limit {
		books = books[:limit]
	}

	out := make([]*core.ScoredCandidate, 0, len(books))
	for i, b := range books {
		cand := core.NewScoredCandidate(b)
		cand.Score = 1 - float64(i)/float64(len(books)+1)
		cand.Confidence = 0.3
		cand.PutLabel(core.LabelStrategy, utils.Label{Value: string(KindRecent), Source: "strategy"})
		cand.PutLabel(core.LabelFactor, utils.Label{Value: "recent_addition", Source: "strategy"})
		out = append(out, cand)
	}
	return out, nil
}
