package strategy

import (
	"context"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/store"
)

// unit384 构造 384 维单位向量（primary/semantic 切面维度）。
func unit384(axis int) []float64 {
	v := make([]float64, 384)
	v[axis] = 1
	return v
}

func embeddedBook(id string, axis int, rating float64, views int64) *core.Book {
	return &core.Book{
		ID:    id,
		Title: "Book " + id,
		Embeddings: map[core.Facet][]float64{
			core.FacetPrimary: unit384(axis),
		},
		Stats: core.BookStats{Rating: rating, ViewCount: views},
	}
}

func profileWithPrimary(userID string, axis int) *core.UserProfile {
	p := core.NewUserProfile(userID)
	p.Vectors[core.FacetPrimary] = unit384(axis)
	p.Confidence[core.FacetPrimary] = 0.9
	return p
}

func TestContent_ANNSearch(t *testing.T) {
	ctx := context.Background()
	catalog := store.NewMemoryCatalog(store.NewMemoryVectorService())
	_ = catalog.Upsert(ctx, embeddedBook("match", 0, 4.5, 100))
	_ = catalog.Upsert(ctx, embeddedBook("orthogonal", 1, 4.5, 100))

	s := &Content{Catalog: catalog}
	rctx := &core.RecommendContext{UserID: "u1", User: profileWithPrimary("u1", 0)}
	out, err := s.Score(ctx, rctx, 10)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(out) != 1 || out[0].Book.ID != "match" {
		t.Fatalf("candidates = %v, want only the aligned book", ids(out))
	}
	if out[0].Score <= 1.0 {
		t.Errorf("score = %v, want similarity plus quality bonus > 1", out[0].Score)
	}
	if got := out[0].Factors(); len(got) == 0 || got[0] != "vector_search" {
		t.Errorf("factors = %v, want vector_search", got)
	}
	if out[0].Confidence != 0.9 {
		t.Errorf("confidence = %v, want profile facet confidence 0.9", out[0].Confidence)
	}
}

func TestContent_ExhaustiveFallback(t *testing.T) {
	ctx := context.Background()
	// 无向量服务：ANN 返回 UNAVAILABLE，必须降级到全量相似度
	catalog := store.NewMemoryCatalog(nil)
	_ = catalog.Upsert(ctx, embeddedBook("embedded", 0, 4.0, 50))
	_ = catalog.Upsert(ctx, &core.Book{ID: "plain", Title: "No Embeddings"})

	s := &Content{Catalog: catalog}
	rctx := &core.RecommendContext{UserID: "u1", User: profileWithPrimary("u1", 0)}
	out, err := s.Score(ctx, rctx, 10)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(out) != 1 || out[0].Book.ID != "embedded" {
		t.Fatalf("candidates = %v, fallback must only surface embedded books", ids(out))
	}
	if got := out[0].Factors(); len(got) == 0 || got[0] != "vector_fallback" {
		t.Errorf("factors = %v, want vector_fallback", got)
	}
}

func TestContent_ExcludesInteracted(t *testing.T) {
	ctx := context.Background()
	catalog := store.NewMemoryCatalog(store.NewMemoryVectorService())
	_ = catalog.Upsert(ctx, embeddedBook("read", 0, 4.5, 100))
	_ = catalog.Upsert(ctx, embeddedBook("unread", 2, 4.5, 100))

	p := profileWithPrimary("u1", 0)
	p.AddInteraction(core.Interaction{BookID: "read", Rating: 5})

	s := &Content{Catalog: catalog}
	out, err := s.Score(ctx, &core.RecommendContext{UserID: "u1", User: p}, 10)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	for _, c := range out {
		if c.Book.ID == "read" {
			t.Errorf("interacted book must be excluded from candidates")
		}
	}
}

func TestContent_NoVectorsNoCandidates(t *testing.T) {
	ctx := context.Background()
	catalog := store.NewMemoryCatalog(nil)
	_ = catalog.Upsert(ctx, embeddedBook("b1", 0, 4.0, 50))

	s := &Content{Catalog: catalog}
	rctx := &core.RecommendContext{UserID: "u1", User: core.NewUserProfile("u1")}
	out, err := s.Score(ctx, rctx, 10)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("profile without vectors must yield no content candidates")
	}
}

// 错维向量按缺失处理：不进 ANN，也不进全量比较
func TestContent_WrongDimensionTreatedAsMissing(t *testing.T) {
	ctx := context.Background()
	catalog := store.NewMemoryCatalog(nil)
	_ = catalog.Upsert(ctx, embeddedBook("b1", 0, 4.0, 50))

	p := core.NewUserProfile("u1")
	p.Vectors[core.FacetPrimary] = []float64{1, 0, 0} // 错维
	s := &Content{Catalog: catalog}
	out, err := s.Score(ctx, &core.RecommendContext{UserID: "u1", User: p}, 10)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("wrong-dimension vector must be treated as missing")
	}
}

func ids(cands []*core.ScoredCandidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Book.ID)
	}
	return out
}
