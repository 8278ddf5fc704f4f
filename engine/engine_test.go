package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rushteam/bookrec/cache"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/store"
)

func unit384(axis int) []float64 {
	v := make([]float64, 384)
	v[axis] = 1
	return v
}

// testFixture 搭一套完整的内存环境：5 本书 + 目标用户 + 两个邻居。
type testFixture struct {
	engine   *Engine
	profiles *store.MemoryProfileStore
	catalog  *store.MemoryCatalog
	cache    *cache.ResultCache
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	catalog := store.NewMemoryCatalog(store.NewMemoryVectorService())
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	books := []*core.Book{
		{ID: "fantasy1", Title: "The Dragon Gate", Author: "aria", Genres: []string{"Fantasy"},
			Embeddings: map[core.Facet][]float64{core.FacetPrimary: unit384(0)},
			Stats:      core.BookStats{Rating: 4.6, ViewCount: 900}, ComplexityScore: 5},
		{ID: "fantasy2", Title: "Ashes of Eldern", Author: "brom", Genres: []string{"Fantasy"},
			Embeddings: map[core.Facet][]float64{core.FacetPrimary: unit384(1)},
			Stats:      core.BookStats{Rating: 4.1, ViewCount: 400}, ComplexityScore: 6},
		{ID: "mystery1", Title: "The Hollow Clock", Author: "cole", Genres: []string{"Mystery"},
			Embeddings: map[core.Facet][]float64{core.FacetPrimary: unit384(2)},
			Stats:      core.BookStats{Rating: 4.3, ViewCount: 600}, ComplexityScore: 4},
		{ID: "romance1", Title: "Letters at Dusk", Author: "dara", Genres: []string{"Romance"},
			Embeddings: map[core.Facet][]float64{core.FacetPrimary: unit384(3)},
			Stats:      core.BookStats{Rating: 3.9, ViewCount: 300}, ComplexityScore: 2},
		{ID: "mystery2", Title: "Silent Harbor", Author: "cole", Genres: []string{"Mystery"},
			Stats: core.BookStats{Rating: 3.2, ViewCount: 100}, ComplexityScore: 9},
	}
	for i, b := range books {
		b.CreatedAt = base.AddDate(0, 0, i)
		if err := catalog.Upsert(ctx, b); err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}

	profiles := store.NewMemoryProfileStore()

	target := core.NewUserProfile("reader")
	target.Vectors[core.FacetPrimary] = unit384(0)
	target.Confidence[core.FacetPrimary] = 0.8
	target.AddInteraction(core.Interaction{BookID: "fantasy2", Rating: 5, Status: core.StatusCompleted})
	target.AddInteraction(core.Interaction{BookID: "mystery1", Rating: 4})
	target.AddInteraction(core.Interaction{BookID: "romance1", Rating: 3})
	_ = profiles.Save(ctx, target)

	for _, nbID := range []string{"nb1", "nb2", "nb3"} {
		nb := core.NewUserProfile(nbID)
		nb.AddInteraction(core.Interaction{BookID: "fantasy2", Rating: 5})
		nb.AddInteraction(core.Interaction{BookID: "mystery1", Rating: 4})
		nb.AddInteraction(core.Interaction{BookID: "romance1", Rating: 4})
		nb.AddInteraction(core.Interaction{BookID: "fantasy1", Rating: 5, Favorite: true})
		_ = profiles.Save(ctx, nb)
	}

	rc := cache.NewResultCache()
	e := New(profiles, profiles, catalog, Options{Cache: rc})
	return &testFixture{engine: e, profiles: profiles, catalog: catalog, cache: rc}
}

func TestEngine_PersonalizedRecommendations(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	recs, err := fx.engine.GetRecommendedBooks(ctx, &Request{
		UserID: "reader",
		Limit:  3,
		Rand:   rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("GetRecommendedBooks() error = %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("recommendations must not be empty for a warm profile")
	}

	interacted := map[string]bool{"fantasy2": true, "mystery1": true, "romance1": true}
	for _, r := range recs {
		if interacted[r.Book.ID] {
			t.Errorf("interacted book %s must not be recommended", r.Book.ID)
		}
		if r.Reason == "" {
			t.Errorf("recommendation %s missing reason", r.Book.ID)
		}
		if r.Metadata.ModelVersion == "" {
			t.Errorf("recommendation %s missing model version", r.Book.ID)
		}
	}

	// 邻居重度背书 + 向量对齐的 fantasy1 应当在场
	found := false
	for _, r := range recs {
		if r.Book.ID == "fantasy1" {
			found = true
		}
	}
	if !found {
		t.Errorf("fantasy1 (endorsed + vector aligned) should be recommended, got %v", recIDs(recs))
	}
}

func TestEngine_CacheHitOnSecondCall(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	req := &Request{UserID: "reader", Limit: 3, Rand: rand.New(rand.NewSource(1))}
	if _, err := fx.engine.GetRecommendedBooks(ctx, req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := fx.engine.GetRecommendedBooks(ctx, req); err != nil {
		t.Fatalf("second call: %v", err)
	}

	report := fx.engine.GetPerformanceReport()
	if report.CacheHits != 1 || report.CacheMisses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1", report.CacheHits, report.CacheMisses)
	}
}

func TestEngine_RefreshInvalidatesAndSkipsWriteback(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// 第一次：写入缓存
	if _, err := fx.engine.GetRecommendedBooks(ctx, &Request{UserID: "reader", Limit: 3}); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	if fx.cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1 after warmup", fx.cache.Len())
	}

	// refresh：清掉缓存且不回写
	if _, err := fx.engine.GetRecommendedBooks(ctx, &Request{
		UserID:  "reader",
		Limit:   3,
		Refresh: true,
		Rand:    rand.New(rand.NewSource(7)),
	}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if fx.cache.Len() != 0 {
		t.Errorf("cache len = %d, refresh must invalidate without writing back", fx.cache.Len())
	}
}

func TestEngine_RefreshChangesResultMembership(t *testing.T) {
	ctx := context.Background()

	// 12 本评分近乎打平的书（差距远小于 ±0.3 扰动），
	// 类型/作者全不同、复杂度铺满三档，多样性约束不掐窗口
	catalog := store.NewMemoryCatalog(nil)
	complexities := []float64{2, 5, 9}
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	pool := map[string]bool{}
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("b%02d", i)
		pool[id] = true
		b := &core.Book{
			ID:              id,
			Author:          fmt.Sprintf("author-%d", i),
			Genres:          []string{fmt.Sprintf("genre-%d", i)},
			ComplexityScore: complexities[i%3],
			Stats:           core.BookStats{Rating: 4.0 + float64(i)*0.05},
			CreatedAt:       base.AddDate(0, 0, i),
		}
		if err := catalog.Upsert(ctx, b); err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}

	// 有历史的画像：走 fan-out 路径而非冷启动
	profiles := store.NewMemoryProfileStore()
	reader := core.NewUserProfile("reader")
	reader.AddInteraction(core.Interaction{BookID: "read1", Rating: 4})
	reader.AddInteraction(core.Interaction{BookID: "read2", Rating: 5})
	reader.AddInteraction(core.Interaction{BookID: "read3", Rating: 3})
	_ = profiles.Save(ctx, reader)

	e := New(profiles, profiles, catalog, Options{Cache: cache.NewResultCache()})

	distinct := map[string]bool{}
	for seed := int64(0); seed < 30; seed++ {
		recs, err := e.GetRecommendedBooks(ctx, &Request{
			UserID:  "reader",
			Limit:   3,
			Refresh: true,
			Rand:    rand.New(rand.NewSource(seed)),
		})
		if err != nil {
			t.Fatalf("refresh seed %d: %v", seed, err)
		}
		if len(recs) != 3 {
			t.Fatalf("seed %d: len = %d, want 3", seed, len(recs))
		}
		ids := recIDs(recs)
		for _, id := range ids {
			if !pool[id] {
				t.Fatalf("seed %d: unexpected book %s", seed, id)
			}
		}
		sort.Strings(ids)
		distinct[strings.Join(ids, ",")] = true
	}

	// 扰动窗口是 3×limit：换一批必须能换出不同的书，而不只是重排
	if len(distinct) < 2 {
		t.Errorf("refresh produced only %d distinct result set(s) over 30 seeds; membership must vary", len(distinct))
	}
}

func TestEngine_ColdStartExactLimit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// stranger 无画像：冷启动路由，恰好 limit 本且无重复
	recs, err := fx.engine.GetRecommendedBooks(ctx, &Request{
		UserID: "stranger",
		Limit:  3,
		Rand:   rand.New(rand.NewSource(11)),
	})
	if err != nil {
		t.Fatalf("GetRecommendedBooks() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want exactly 3 for cold start", len(recs))
	}
	seen := map[string]bool{}
	for _, r := range recs {
		if seen[r.Book.ID] {
			t.Errorf("duplicate book %s", r.Book.ID)
		}
		seen[r.Book.ID] = true
	}
}

func TestEngine_DailyRecommendationDeterministic(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	first, err := fx.engine.GetDailyRecommendation(ctx, "reader", date)
	if err != nil {
		t.Fatalf("GetDailyRecommendation() error = %v", err)
	}
	if first.Recommendation == nil || first.Message == "" {
		t.Fatalf("daily recommendation incomplete: %+v", first)
	}
	for i := 0; i < 5; i++ {
		again, err := fx.engine.GetDailyRecommendation(ctx, "reader", date)
		if err != nil {
			t.Fatalf("repeat call: %v", err)
		}
		if again.Recommendation.Book.ID != first.Recommendation.Book.ID {
			t.Fatalf("same user same day must pick the same book")
		}
	}
}

func TestEngine_SimilarBooksVectorAndGenreFallback(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// fantasy1 有 primary 嵌入：向量路径
	recs, err := fx.engine.GetSimilarBooks(ctx, "fantasy1", 3)
	if err != nil {
		t.Fatalf("GetSimilarBooks(fantasy1) error = %v", err)
	}
	for _, r := range recs {
		if r.Book.ID == "fantasy1" {
			t.Errorf("a book must not be similar to itself")
		}
	}

	// mystery2 无嵌入：同类型降级，只能是 Mystery
	recs, err = fx.engine.GetSimilarBooks(ctx, "mystery2", 3)
	if err != nil {
		t.Fatalf("GetSimilarBooks(mystery2) error = %v", err)
	}
	if len(recs) != 1 || recs[0].Book.ID != "mystery1" {
		t.Errorf("genre fallback = %v, want [mystery1]", recIDs(recs))
	}
	if recs[0].Reason != "From the same genre" {
		t.Errorf("reason = %q, want genre fallback reason", recs[0].Reason)
	}
}

func TestEngine_ContextualGenreRequest(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	recs, err := fx.engine.GetContextualRecommendations(ctx, &Request{
		UserID:  "stranger",
		Limit:   3,
		Context: map[string]any{"genres": []string{"Mystery"}},
		Rand:    rand.New(rand.NewSource(3)),
	})
	if err != nil {
		t.Fatalf("GetContextualRecommendations() error = %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("contextual recommendations must not be empty")
	}
	// 显式类型请求只加权不过滤：未命中类型的书允许存在，
	// 但命中请求类型的书必须带上 genre_request 因子
	boosted := false
	for _, r := range recs {
		for _, f := range r.Metadata.Factors {
			if f == "genre_request" {
				boosted = true
				if r.Book.Genres[0] != "Mystery" {
					t.Errorf("genre_request factor on %s, which is not Mystery", r.Book.ID)
				}
			}
		}
	}
	if !boosted {
		t.Errorf("no candidate carried the genre_request factor: %v", recIDs(recs))
	}
}

func TestEngine_NewReleases(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	fx.engine.Now = func() time.Time { return now }

	recent := now.AddDate(0, -1, 0)
	older := now.AddDate(0, -2, 0)
	tooOld := now.AddDate(-1, 0, 0)
	_ = fx.catalog.Upsert(ctx, &core.Book{ID: "new1", Genres: []string{"Fantasy"}, PublishDate: &recent, CreatedAt: now})
	_ = fx.catalog.Upsert(ctx, &core.Book{ID: "new2", Genres: []string{"Mystery"}, PublishDate: &older, CreatedAt: now})
	_ = fx.catalog.Upsert(ctx, &core.Book{ID: "old1", Genres: []string{"Romance"}, PublishDate: &tooOld, CreatedAt: now})

	recs, err := fx.engine.GetNewReleases(ctx, "", 10)
	if err != nil {
		t.Fatalf("GetNewReleases() error = %v", err)
	}
	got := recIDs(recs)
	if len(got) != 2 || got[0] != "new1" || got[1] != "new2" {
		t.Errorf("new releases = %v, want [new1 new2] newest first", got)
	}

	// 有类型偏好的用户只看偏好内的新书
	fan := core.NewUserProfile("mystery-fan")
	fan.PreferGenres = []string{"Mystery"}
	if err := fx.profiles.Save(ctx, fan); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	recs, err = fx.engine.GetNewReleases(ctx, "mystery-fan", 10)
	if err != nil {
		t.Fatalf("GetNewReleases() error = %v", err)
	}
	got = recIDs(recs)
	if len(got) != 1 || got[0] != "new2" {
		t.Errorf("preferred-genre new releases = %v, want [new2]", got)
	}

	// 偏好过滤后为空时回退全量新书
	fan.PreferGenres = []string{"Horror"}
	_ = fx.profiles.Save(ctx, fan)
	recs, err = fx.engine.GetNewReleases(ctx, "mystery-fan", 10)
	if err != nil {
		t.Fatalf("GetNewReleases() error = %v", err)
	}
	if len(recIDs(recs)) != 2 {
		t.Errorf("empty preference match must fall back to all new releases, got %v", recIDs(recs))
	}
}

func TestEngine_RecordEngagementUpdatesProfile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// 预热缓存，favorite 事件必须把它打掉
	if _, err := fx.engine.GetRecommendedBooks(ctx, &Request{UserID: "reader", Limit: 3}); err != nil {
		t.Fatalf("warmup: %v", err)
	}

	if err := fx.engine.RecordEngagement(ctx, "reader", "fantasy1", "favorite"); err != nil {
		t.Fatalf("RecordEngagement() error = %v", err)
	}

	p, err := fx.profiles.Get(ctx, "reader")
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	it, ok := p.Interacted()["fantasy1"]
	if !ok || !it.Favorite {
		t.Errorf("favorite engagement must land in the profile history")
	}
	if fx.cache.Len() != 0 {
		t.Errorf("favorite engagement must invalidate the user's cache")
	}

	report := fx.engine.GetPerformanceReport()
	if report.EngagementEvents["favorite"] != 1 {
		t.Errorf("engagement counter = %d, want 1", report.EngagementEvents["favorite"])
	}
}

func TestEngine_PerformanceReport(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := fx.engine.GetRecommendedBooks(ctx, &Request{UserID: "reader", Limit: 3}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	report := fx.engine.GetPerformanceReport()
	if report.TotalGenerated != 3 {
		t.Errorf("TotalGenerated = %d, want 3", report.TotalGenerated)
	}
	if report.SuccessRate != 1 {
		t.Errorf("SuccessRate = %v, want 1", report.SuccessRate)
	}
	if report.CacheHits != 2 {
		t.Errorf("CacheHits = %d, want 2 (calls after the first)", report.CacheHits)
	}
	if len(report.Strategies) == 0 {
		t.Errorf("strategy stats must be recorded")
	}
}

func recIDs(recs []*core.Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Book.ID)
	}
	return out
}
