package rerank

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// 复杂度分桶边界：low ≤3，medium 4-7，high ≥8。
func complexityBucket(score float64) string {
	switch {
	case score <= 3:
		return "low"
	case score >= 8:
		return "high"
	default:
		return "medium"
	}
}

// Diversity 是多样性重排节点：限制类型/作者/复杂度桶的重复。
//
// 准入规则（沿排序列表顺序走）：
//   - 任一类型已出现 ≥ MaxPerGenre 次 → 拒绝
//   - 作者已出现 ≥ MaxPerAuthor 次 → 拒绝
//   - 复杂度桶已达 ceil(limit/3) → 拒绝
//   - 例外：聚合分 > OverrideScore 的候选无条件准入
//
// 不足 limit 时用被拒候选按原序回填，直到凑满或耗尽。
type Diversity struct {
	// Limit 目标数量；<= 0 表示不限制（只做约束过滤，不回填）
	Limit int

	// MaxPerGenre / MaxPerAuthor 默认 2
	MaxPerGenre  int
	MaxPerAuthor int

	// OverrideScore 高分豁免阈值，默认 0.8
	OverrideScore float64
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	candidates []*core.ScoredCandidate,
) ([]*core.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	maxGenre := n.MaxPerGenre
	if maxGenre <= 0 {
		maxGenre = 2
	}
	maxAuthor := n.MaxPerAuthor
	if maxAuthor <= 0 {
		maxAuthor = 2
	}
	override := n.OverrideScore
	if override == 0 {
		override = 0.8
	}

	limit := n.Limit
	bucketCap := 0
	if limit > 0 {
		bucketCap = (limit + 2) / 3 // ceil(limit/3)
	}

	genreCount := make(map[string]int)
	authorCount := make(map[string]int)
	bucketCount := make(map[string]int)

	admitted := make([]*core.ScoredCandidate, 0, len(candidates))
	rejected := make([]*core.ScoredCandidate, 0)

	admit := func(c *core.ScoredCandidate) {
		for _, g := range c.Book.Genres {
			genreCount[g]++
		}
		if c.Book.Author != "" {
			authorCount[c.Book.Author]++
		}
		bucketCount[complexityBucket(c.Book.ComplexityScore)]++
		admitted = append(admitted, c)
	}

	for _, c := range candidates {
		if c == nil || c.Book == nil {
			continue
		}
		if limit > 0 && len(admitted) >= limit {
			break
		}

		// 高分豁免：不受任何多样性约束
		if c.Score > override {
			admit(c)
			continue
		}

		blocked := false
		for _, g := range c.Book.Genres {
			if genreCount[g] >= maxGenre {
				blocked = true
				break
			}
		}
		if !blocked && c.Book.Author != "" && authorCount[c.Book.Author] >= maxAuthor {
			blocked = true
		}
		if !blocked && bucketCap > 0 && bucketCount[complexityBucket(c.Book.ComplexityScore)] >= bucketCap {
			blocked = true
		}

		if blocked {
			rejected = append(rejected, c)
			continue
		}
		admit(c)
	}

	// 回填：多样性约束挡掉太多时，按原序用高分候选补满
	if limit > 0 {
		for _, c := range rejected {
			if len(admitted) >= limit {
				break
			}
			admitted = append(admitted, c)
		}
	}
	return admitted, nil
}
