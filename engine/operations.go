package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rushteam/bookrec/analytics"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/rerank"
)

// 缓存命名空间（复合键的 queryType 段）。
const (
	queryRecommended = "recommended"
	queryDaily       = "daily"
	queryContextual  = "contextual"
)

// GetRecommendedBooks 生成个性化推荐列表。
//
// 书目非空时保证返回非空：多策略 → 冷启动 → 最新书目逐级降级。
func (e *Engine) GetRecommendedBooks(ctx context.Context, req *Request) ([]*core.Recommendation, error) {
	return e.generate(ctx, req, queryRecommended)
}

// DailyRecommendation 是"今日一书"。
type DailyRecommendation struct {
	Recommendation *core.Recommendation
	Date           time.Time
	Message        string
}

// GetDailyRecommendation 返回当天的每日推荐。
//
// 同一用户同一天结果确定：dayValue 取日期数字（YYYYMMDD），
// 候选池走缓存，选择只依赖 dayValue。
func (e *Engine) GetDailyRecommendation(ctx context.Context, userID string, date time.Time) (*DailyRecommendation, error) {
	req := &Request{UserID: userID, Limit: 10}
	recs, err := e.generate(ctx, req, queryDaily)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound, "engine: no candidates for daily recommendation")
	}

	candidates := make([]*core.ScoredCandidate, 0, len(recs))
	for _, r := range recs {
		candidates = append(candidates, &core.ScoredCandidate{
			Book:       r.Book,
			Score:      r.RecommendationScore,
			Confidence: r.Confidence,
		})
	}

	dayValue := date.Year()*10000 + int(date.Month())*100 + date.Day()
	picked := rerank.SelectDaily(candidates, dayValue)
	if picked == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound, "engine: daily selection empty")
	}

	var rec *core.Recommendation
	for _, r := range recs {
		if r.Book.ID == picked.Book.ID {
			rec = r
			break
		}
	}

	return &DailyRecommendation{
		Recommendation: rec,
		Date:           date,
		Message:        dailyMessages[int(date.Weekday())%len(dailyMessages)],
	}, nil
}

// GetSimilarBooks 返回与指定书相似的书。
//
// 两级：primary 嵌入向量检索 → 同类型按评分排序降级。
func (e *Engine) GetSimilarBooks(ctx context.Context, bookID string, limit int) ([]*core.Recommendation, error) {
	if limit <= 0 {
		limit = 10
	}
	book, err := e.Catalog.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if vec, ok := book.Embedding(core.FacetPrimary); ok {
		sims, err := e.Catalog.AggregateVectorSearch(
			ctx, vec, core.FacetPrimary, limit*10, limit,
			core.CatalogFilter{ExcludeIDs: []string{bookID}},
		)
		if err == nil && len(sims) > 0 {
			out := make([]*core.Recommendation, 0, len(sims))
			for _, sb := range sims {
				out = append(out, &core.Recommendation{
					Book:                sb.Book,
					RecommendationScore: sb.Similarity,
					Confidence:          0.8,
					Reason:              "Readers who enjoyed this book also liked these",
					Metadata: core.RecommendationMeta{
						Factors:      []string{"vector_search"},
						ModelVersion: e.ModelVersion,
					},
				})
			}
			return out, nil
		}
		if err != nil {
			e.logf("engine: similar books vector search: %v", err)
		}
	}

	// 降级：同类型按评分排序
	books, err := e.Catalog.Find(ctx, core.CatalogFilter{
		Genres:     book.Genres,
		ExcludeIDs: []string{bookID},
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].Stats.Rating > books[j].Stats.Rating
	})
	if len(books) > limit {
		books = books[:limit]
	}

	out := make([]*core.Recommendation, 0, len(books))
	for _, b := range books {
		out = append(out, &core.Recommendation{
			Book:                b,
			RecommendationScore: b.Stats.Rating / 5,
			Confidence:          0.5,
			Reason:              "From the same genre",
			Metadata: core.RecommendationMeta{
				Factors:      []string{"genre_match"},
				ModelVersion: e.ModelVersion,
			},
		})
	}
	return out, nil
}

// GetContextualRecommendations 生成场景化推荐：
// mood / time_of_day / genres / publication 参数驱动重排加权。
func (e *Engine) GetContextualRecommendations(ctx context.Context, req *Request) ([]*core.Recommendation, error) {
	return e.generate(ctx, req, queryContextual)
}

// GetNewReleases 返回近 90 天出版的新书，出版时间倒序。
// 用户有类型偏好时优先按偏好过滤；过滤后为空则回退全量新书。
func (e *Engine) GetNewReleases(ctx context.Context, userID string, limit int) ([]*core.Recommendation, error) {
	if limit <= 0 {
		limit = 10
	}
	cutoff := e.now().AddDate(0, 0, -90)

	var preferred []string
	if e.Profiles != nil && userID != "" {
		if p, err := e.Profiles.Get(ctx, userID); err == nil {
			preferred = p.PreferGenres
		} else if !core.IsNotFound(err) {
			e.logf("engine: new releases load profile %s: %v", userID, err)
		}
	}

	books, err := e.Catalog.Find(ctx, core.CatalogFilter{PublishedAfter: &cutoff, Genres: preferred})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 && len(preferred) > 0 {
		books, err = e.Catalog.Find(ctx, core.CatalogFilter{PublishedAfter: &cutoff})
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(books, func(i, j int) bool {
		if books[i].PublishDate == nil || books[j].PublishDate == nil {
			return books[j].PublishDate == nil
		}
		return books[i].PublishDate.After(*books[j].PublishDate)
	})
	if len(books) > limit {
		books = books[:limit]
	}

	out := make([]*core.Recommendation, 0, len(books))
	for i, b := range books {
		out = append(out, &core.Recommendation{
			Book:                b,
			RecommendationScore: 1 - float64(i)/float64(len(books)+1),
			Confidence:          0.6,
			Reason:              "Hot off the press",
			Metadata: core.RecommendationMeta{
				Factors:      []string{"new_release"},
				ModelVersion: e.ModelVersion,
			},
		})
	}
	return out, nil
}

// RecordEngagement 上报用户参与事件（view / click / favorite / completed）。
//
// favorite / completed 会同步进画像交互历史并失效该用户缓存，
// 让下一次推荐立即反映变化；其他事件只做计数。
func (e *Engine) RecordEngagement(ctx context.Context, userID, bookID, event string) error {
	if e.Analytics != nil {
		e.Analytics.RecordEngagement(event)
	}
	if event != "favorite" && event != "completed" {
		return nil
	}
	if e.Profiles == nil || userID == "" || bookID == "" {
		return nil
	}

	p, err := e.Profiles.Get(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			p = core.NewUserProfile(userID)
		} else {
			return err
		}
	}

	it := core.Interaction{BookID: bookID, AddedAt: e.now(), LastReadAt: e.now()}
	if prev, ok := p.Interacted()[bookID]; ok {
		it = prev
		it.LastReadAt = e.now()
	}
	switch event {
	case "favorite":
		it.Favorite = true
	case "completed":
		it.Status = core.StatusCompleted
	}
	p.AddInteraction(it)

	if err := e.Profiles.Save(ctx, p); err != nil {
		return err
	}
	if e.Cache != nil {
		e.Cache.InvalidateUser(ctx, userID)
	}
	// 参与事件后异步重算画像向量，不阻塞上报
	if e.RefreshProfile != nil {
		go e.RefreshProfile(userID)
	}
	return nil
}

// GetPerformanceReport 返回引擎的性能快照。
func (e *Engine) GetPerformanceReport() analytics.PerformanceReport {
	if e.Analytics == nil {
		return analytics.PerformanceReport{}
	}
	cacheSize := 0
	if sized, ok := e.Cache.(interface{ Len() int }); ok {
		cacheSize = sized.Len()
	}
	return e.Analytics.Report(cacheSize)
}
