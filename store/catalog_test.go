package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/bookrec/core"
)

func vec384(axis int) []float64 {
	v := make([]float64, 384)
	v[axis] = 1
	return v
}

func TestMemoryCatalog_FindFilters(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog(nil)

	pub := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	old := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	books := []*core.Book{
		{ID: "b1", Genres: []string{"Fantasy"}, PublishDate: &pub,
			Embeddings: map[core.Facet][]float64{core.FacetPrimary: vec384(0)}},
		{ID: "b2", Genres: []string{"Mystery"}, PublishDate: &old},
		{ID: "b3", Genres: []string{"Fantasy", "Adventure"}},
	}
	for _, b := range books {
		if err := c.Upsert(ctx, b); err != nil {
			t.Fatalf("Upsert(%s): %v", b.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter core.CatalogFilter
		want   []string
	}{
		{
			name:   "no filter returns all in insertion order",
			filter: core.CatalogFilter{},
			want:   []string{"b1", "b2", "b3"},
		},
		{
			name:   "genre filter",
			filter: core.CatalogFilter{Genres: []string{"Fantasy"}},
			want:   []string{"b1", "b3"},
		},
		{
			name:   "exclude ids",
			filter: core.CatalogFilter{ExcludeIDs: []string{"b2"}},
			want:   []string{"b1", "b3"},
		},
		{
			name:   "require embeddings",
			filter: core.CatalogFilter{RequireEmbeddings: true},
			want:   []string{"b1"},
		},
		{
			name: "published after cutoff skips undated books",
			filter: core.CatalogFilter{
				PublishedAfter: timePtr(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
			want: []string{"b1"},
		},
		{
			name:   "limit",
			filter: core.CatalogFilter{Limit: 2},
			want:   []string{"b1", "b2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Find(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Find() = %v, want %v", bookIDs(got), tt.want)
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Fatalf("Find() = %v, want %v", bookIDs(got), tt.want)
				}
			}
		})
	}
}

func TestMemoryCatalog_VectorSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog(NewMemoryVectorService())

	_ = c.Upsert(ctx, &core.Book{ID: "near",
		Embeddings: map[core.Facet][]float64{core.FacetPrimary: vec384(0)}})
	_ = c.Upsert(ctx, &core.Book{ID: "far",
		Embeddings: map[core.Facet][]float64{core.FacetPrimary: vec384(5)}})

	sims, err := c.AggregateVectorSearch(ctx, vec384(0), core.FacetPrimary, 10, 5, core.CatalogFilter{})
	if err != nil {
		t.Fatalf("AggregateVectorSearch() error = %v", err)
	}
	if len(sims) == 0 || sims[0].Book.ID != "near" {
		t.Fatalf("nearest = %v, want near first", sims)
	}
	if sims[0].Similarity < 0.999 {
		t.Errorf("similarity = %v, want ~1", sims[0].Similarity)
	}
}

func TestMemoryCatalog_VectorSearchErrors(t *testing.T) {
	ctx := context.Background()

	// 未配置向量服务：UNAVAILABLE，调用方必须降级
	bare := NewMemoryCatalog(nil)
	_ = bare.Upsert(ctx, &core.Book{ID: "b1"})
	_, err := bare.AggregateVectorSearch(ctx, vec384(0), core.FacetPrimary, 10, 5, core.CatalogFilter{})
	if !core.IsUnavailable(err) {
		t.Errorf("error = %v, want UNAVAILABLE", err)
	}

	// 错维查询向量：DIMENSION_MISMATCH（IsMissingData 同样覆盖）
	withVec := NewMemoryCatalog(NewMemoryVectorService())
	_ = withVec.Upsert(ctx, &core.Book{ID: "b1",
		Embeddings: map[core.Facet][]float64{core.FacetPrimary: vec384(0)}})
	_, err = withVec.AggregateVectorSearch(ctx, []float64{1, 2}, core.FacetPrimary, 10, 5, core.CatalogFilter{})
	if !core.IsMissingData(err) {
		t.Errorf("error = %v, want DIMENSION_MISMATCH", err)
	}
}

func TestMemoryCatalog_UpsertSkipsInvalidVectors(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVectorService()
	c := NewMemoryCatalog(vs)

	// 错维切面不入向量服务
	_ = c.Upsert(ctx, &core.Book{ID: "b1",
		Embeddings: map[core.Facet][]float64{core.FacetPrimary: {1, 2, 3}}})

	ok, err := vs.HasCollection(ctx, "books:primary")
	if err != nil {
		t.Fatalf("HasCollection() error = %v", err)
	}
	if ok {
		t.Errorf("wrong-dimension embedding must not create a collection")
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func bookIDs(books []*core.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}
	return out
}
