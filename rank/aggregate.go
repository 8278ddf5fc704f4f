package rank

import (
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/strategy"
)

// Aggregate 把多策略结果合并为单一排序列表。
//
// 合并规则：
//   - 同一本书：聚合分 = Σ(rawScore × strategyWeight)
//   - 置信度取各贡献方均值
//   - strategy / factor 标签做并集（MergeLabel 累积）
//
// 结果按聚合分降序；同分按 BookID 排序保证确定性（map 遍历无序）。
func Aggregate(results []strategy.Result) []*core.ScoredCandidate {
	type agg struct {
		cand  *core.ScoredCandidate
		score float64
		confs []float64
	}
	byBook := make(map[string]*agg)
	order := make([]string, 0, 64) // 首次出现顺序，便于稳定输出

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		for _, c := range res.Candidates {
			if c == nil || c.Book == nil {
				continue
			}
			a, ok := byBook[c.Book.ID]
			if !ok {
				a = &agg{cand: core.NewScoredCandidate(c.Book)}
				byBook[c.Book.ID] = a
				order = append(order, c.Book.ID)
			}
			a.score += c.Score * res.Weight
			a.confs = append(a.confs, c.Confidence)
			for k, lbl := range c.Labels {
				a.cand.PutLabel(k, lbl)
			}
		}
	}

	out := make([]*core.ScoredCandidate, 0, len(order))
	for _, id := range order {
		a := byBook[id]
		a.cand.Score = a.score
		var sum float64
		for _, c := range a.confs {
			sum += c
		}
		if len(a.confs) > 0 {
			a.cand.Confidence = sum / float64(len(a.confs))
		}
		out = append(out, a.cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Book.ID < out[j].Book.ID
	})
	return out
}
