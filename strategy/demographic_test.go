package strategy

import (
	"context"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/store"
)

func popularBook(id string, rating float64, views int64) *core.Book {
	return &core.Book{
		ID:    id,
		Title: "Book " + id,
		Stats: core.BookStats{Rating: rating, ViewCount: views},
	}
}

func TestDemographic_ClusterRanking(t *testing.T) {
	ctx := context.Background()
	catalog := store.NewMemoryCatalog(nil)
	_ = catalog.Upsert(ctx, popularBook("b1", 3.0, 10))
	_ = catalog.Upsert(ctx, popularBook("b2", 3.0, 10))
	_ = catalog.Upsert(ctx, popularBook("b3", 5.0, 999))

	kv := store.NewMemoryStore()
	defer kv.Close()
	// binge_reader 分群榜单：b2 > b1
	_ = kv.ZAdd(ctx, "hot:cluster:binge_reader", 0.9, "b2")
	_ = kv.ZAdd(ctx, "hot:cluster:binge_reader", 0.5, "b1")

	s := &Demographic{Catalog: catalog, Store: kv}
	rctx := &core.RecommendContext{
		UserID:   "u1",
		Behavior: &core.UserBehavior{UserID: "u1", Cluster: "binge_reader"},
	}
	out, err := s.Score(ctx, rctx, 10)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	got := ids(out)
	if len(got) != 2 || got[0] != "b2" || got[1] != "b1" {
		t.Fatalf("candidates = %v, want cluster ranking order [b2 b1]", got)
	}
	if out[0].Score <= out[1].Score {
		t.Errorf("ranked-list scores must be descending: %v vs %v", out[0].Score, out[1].Score)
	}
}

func TestDemographic_GlobalRankingFallback(t *testing.T) {
	ctx := context.Background()
	catalog := store.NewMemoryCatalog(nil)
	_ = catalog.Upsert(ctx, popularBook("b1", 3.0, 10))
	_ = catalog.Upsert(ctx, popularBook("b2", 4.0, 10))

	kv := store.NewMemoryStore()
	defer kv.Close()
	_ = kv.ZAdd(ctx, "hot:global", 1.0, "b1")

	// 用户有分群但分群榜单为空：退回全局榜
	s := &Demographic{Catalog: catalog, Store: kv}
	rctx := &core.RecommendContext{
		UserID:   "u1",
		Behavior: &core.UserBehavior{UserID: "u1", Cluster: "explorer"},
	}
	out, err := s.Score(ctx, rctx, 10)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(out) != 1 || out[0].Book.ID != "b1" {
		t.Errorf("candidates = %v, want global ranking [b1]", ids(out))
	}
}

func TestDemographic_PopularitySortWithoutStore(t *testing.T) {
	ctx := context.Background()
	catalog := store.NewMemoryCatalog(nil)
	_ = catalog.Upsert(ctx, popularBook("low", 2.0, 10))
	_ = catalog.Upsert(ctx, popularBook("high", 4.8, 500))
	_ = catalog.Upsert(ctx, popularBook("mid", 3.5, 100))

	s := &Demographic{Catalog: catalog}
	out, err := s.Score(ctx, &core.RecommendContext{UserID: "u1"}, 2)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	got := ids(out)
	if len(got) != 2 || got[0] != "high" || got[1] != "mid" {
		t.Errorf("candidates = %v, want rating order [high mid]", got)
	}
}

func TestDemographic_NonEmptyWhenAllInteracted(t *testing.T) {
	ctx := context.Background()
	catalog := store.NewMemoryCatalog(nil)
	_ = catalog.Upsert(ctx, popularBook("b1", 4.0, 10))

	p := core.NewUserProfile("u1")
	p.AddInteraction(core.Interaction{BookID: "b1", Rating: 5})

	// 全部读过也必须非空（放开已读过滤兜底）
	s := &Demographic{Catalog: catalog}
	out, err := s.Score(ctx, &core.RecommendContext{UserID: "u1", User: p}, 5)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("demographic must stay non-empty while the catalog has books")
	}
}
