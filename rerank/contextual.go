package rerank

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
)

// 情绪 → 类型白名单。命中白名单的候选获得加权。
var moodGenres = map[string][]string{
	"relaxed":     {"Romance", "Comedy", "Slice of Life"},
	"adventurous": {"Fantasy", "Science Fiction", "Adventure"},
	"thoughtful":  {"Literary Fiction", "Philosophy", "Biography"},
	"escapist":    {"Fantasy", "Mystery", "Thriller"},
	"learning":    {"Non-Fiction", "History", "Science"},
}

// 时段 → 复杂度上限与偏好类型。
// 深夜偏轻松读物，通勤偏短平快，周末可啃硬书。
var timeOfDayPrefs = map[string]struct {
	maxComplexity float64
	genres        []string
}{
	"morning":   {maxComplexity: 10, genres: []string{"Non-Fiction", "News", "Self-Help"}},
	"commute":   {maxComplexity: 5, genres: []string{"Mystery", "Thriller", "Short Stories"}},
	"evening":   {maxComplexity: 7, genres: []string{"Fiction", "Fantasy", "Romance"}},
	"lateNight": {maxComplexity: 4, genres: []string{"Comedy", "Romance", "Slice of Life"}},
}

// Contextual 是场景重排节点，两段式：
//
//  1. 过滤：mood 的类型白名单、time_of_day 的复杂度上限是硬约束，
//     带有对应字段却不满足的候选被剔除；字段缺失（无类型标签、
//     复杂度未评估）的候选一律豁免。全部被剔除时回退原候选集，
//     该节点绝不把结果过滤成空。
//  2. 加权：命中场景信号的候选加分重排（genres / publication
//     只加权不过滤），累计封顶 MaxBoost。
type Contextual struct {
	// Now 时间源，测试可注入；为空用 time.Now
	Now func() time.Time

	// MaxBoost 单候选累计加权上限，默认 1.0
	MaxBoost float64
}

func (n *Contextual) Name() string        { return "rerank.contextual" }
func (n *Contextual) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Contextual) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	candidates []*core.ScoredCandidate,
) ([]*core.ScoredCandidate, error) {
	if len(candidates) == 0 || rctx == nil {
		return candidates, nil
	}

	mood := rctx.ParamString("mood")
	timeOfDay := rctx.ParamString("time_of_day")
	wantGenres := rctx.ParamStrings("genres")
	publication := rctx.ParamString("publication")
	if mood == "" && timeOfDay == "" && len(wantGenres) == 0 && publication == "" {
		return candidates, nil
	}

	maxBoost := n.MaxBoost
	if maxBoost == 0 {
		maxBoost = 1.0
	}
	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}

	candidates = applyContextFilter(candidates, mood, timeOfDay)

	for _, c := range candidates {
		if c == nil || c.Book == nil {
			continue
		}
		boost := 0.0
		var factors []string

		if gs, ok := moodGenres[mood]; ok && genreHit(c.Book.Genres, gs) {
			boost += 0.3
			factors = append(factors, "mood_match")
		}
		if pref, ok := timeOfDayPrefs[timeOfDay]; ok {
			timeBoost := 0.0
			if c.Book.ComplexityScore <= pref.maxComplexity {
				timeBoost += 0.1
			}
			if genreHit(c.Book.Genres, pref.genres) {
				timeBoost += 0.2
			}
			if timeBoost > 0 {
				boost += timeBoost
				factors = append(factors, "time_match")
			}
		}
		if len(wantGenres) > 0 && genreHit(c.Book.Genres, wantGenres) {
			boost += 0.4
			factors = append(factors, "genre_request")
		}
		if publication != "" && publicationHit(c.Book, now, publication) {
			boost += 0.2
			factors = append(factors, "publication_match")
		}

		if boost > maxBoost {
			boost = maxBoost
		}
		if boost > 0 {
			c.Score += boost
			for _, f := range factors {
				c.PutLabel(core.LabelFactor, utils.Label{Value: f, Source: n.Name()})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

// applyContextFilter 执行硬约束过滤：
//   - mood 白名单：有类型标签但全部不在白名单内的候选剔除
//   - time_of_day 复杂度上限：复杂度已评估（>0）且超限的候选剔除
//
// 字段缺失的候选豁免；过滤后为空则回退原候选集。
func applyContextFilter(candidates []*core.ScoredCandidate, mood, timeOfDay string) []*core.ScoredCandidate {
	allowGenres, moodActive := moodGenres[mood]
	timePref, timeActive := timeOfDayPrefs[timeOfDay]
	if !moodActive && !timeActive {
		return candidates
	}

	kept := make([]*core.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Book == nil {
			continue
		}
		if moodActive && len(c.Book.Genres) > 0 && !genreHit(c.Book.Genres, allowGenres) {
			continue
		}
		if timeActive && c.Book.ComplexityScore > 0 && c.Book.ComplexityScore > timePref.maxComplexity {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return candidates
	}
	return kept
}

// publicationHit 按出版时间分桶匹配：
// recent ≤6 个月，this_year ≤1 年，last_few_years ≤3 年，classic >25 年。
// 无出版时间的候选不命中也不排除。
func publicationHit(b *core.Book, now time.Time, bucket string) bool {
	if b.PublishDate == nil {
		return false
	}
	age := now.Sub(*b.PublishDate)
	switch bucket {
	case "recent":
		return age <= 6*30*24*time.Hour
	case "this_year":
		return age <= 365*24*time.Hour
	case "last_few_years":
		return age <= 3*365*24*time.Hour
	case "classic":
		return age > 25*365*24*time.Hour
	}
	return false
}

func genreHit(have, want []string) bool {
	for _, g := range have {
		for _, w := range want {
			if strings.EqualFold(g, w) {
				return true
			}
		}
	}
	return false
}
