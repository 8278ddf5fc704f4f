package strategy

import (
	"context"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
)

// Hybrid 是协同 + 内容的混合策略。
//
// 两个子策略并发执行，按数据可得性动态调权：
//   - 内容权重：随画像置信度与 primary 向量存在而增大
//   - 协同权重：随历史长度与社交图规模而增大
//
// 同一本书的贡献按权重加和；置信度取贡献方均值。
type Hybrid struct {
	Collaborative *Collaborative
	Content       *Content

	Logger *log.Logger
}

func (s *Hybrid) Name() string { return "strategy.hybrid" }
func (s *Hybrid) Kind() Kind   { return KindHybrid }

func (s *Hybrid) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.ScoredCandidate, error) {
	if s.Collaborative == nil || s.Content == nil || rctx == nil || rctx.User == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var (
		collabOut  []*core.ScoredCandidate
		contentOut []*core.ScoredCandidate
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		out, err := s.Collaborative.Score(egctx, rctx, limit*2)
		if err == nil {
			collabOut = out
		}
		// 子策略失败只丢弃该侧贡献，不中断另一侧
		return nil
	})
	eg.Go(func() error {
		out, err := s.Content.Score(egctx, rctx, limit*2)
		if err == nil {
			contentOut = out
		}
		return nil
	})
	_ = eg.Wait()

	collabW, contentW := s.weights(rctx)

	type merged struct {
		cand  *core.ScoredCandidate
		score float64
		confs []float64
	}
	byBook := make(map[string]*merged)

	absorb := func(cands []*core.ScoredCandidate, w float64) {
		for _, c := range cands {
			if c == nil || c.Book == nil {
				continue
			}
			m, ok := byBook[c.Book.ID]
			if !ok {
				m = &merged{cand: core.NewScoredCandidate(c.Book)}
				byBook[c.Book.ID] = m
			}
			m.score += c.Score * w
			m.confs = append(m.confs, c.Confidence)
			for k, lbl := range c.Labels {
				m.cand.PutLabel(k, lbl)
			}
		}
	}
	absorb(collabOut, collabW)
	absorb(contentOut, contentW)

	out := make([]*core.ScoredCandidate, 0, len(byBook))
	for _, m := range byBook {
		m.cand.Score = m.score
		var sum float64
		for _, c := range m.confs {
			sum += c
		}
		if len(m.confs) > 0 {
			m.cand.Confidence = sum / float64(len(m.confs))
		}
		m.cand.PutLabel(core.LabelStrategy, utils.Label{Value: string(KindHybrid), Source: "strategy"})
		out = append(out, m.cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// weights 按数据可得性计算两侧权重。
func (s *Hybrid) weights(rctx *core.RecommendContext) (collabW, contentW float64) {
	p := rctx.User

	contentW = 0.3 + 0.4*p.OverallConfidence()
	if _, ok := p.Vector(core.FacetPrimary); ok {
		contentW += 0.2
	}

	histScale := float64(len(p.History)) / 20
	if histScale > 1 {
		histScale = 1
	}
	collabW = 0.3 + 0.5*histScale
	if rctx.Behavior != nil {
		socialScale := float64(rctx.Behavior.SocialDegree) / 10
		if socialScale > 1 {
			socialScale = 1
		}
		collabW += 0.2 * socialScale
	}
	return collabW, contentW
}
