package store

import (
	"context"
	"testing"

	"github.com/rushteam/bookrec/core"
)

func TestMemoryVectorService_SearchMetrics(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVectorService()
	if err := vs.CreateCollection(ctx, "test", 2, "cosine"); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	err := vs.Insert(ctx, &core.VectorInsertRequest{
		Collection: "test",
		IDs:        []string{"x", "y"},
		Vectors:    [][]float64{{1, 0}, {0, 1}},
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	res, err := vs.Search(ctx, &core.VectorSearchRequest{
		Collection: "test",
		Vector:     []float64{1, 0},
		TopK:       1,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].ID != "x" {
		t.Errorf("Search() = %v, want x", res.Items)
	}

	// MinScore 过滤
	res, _ = vs.Search(ctx, &core.VectorSearchRequest{
		Collection: "test",
		Vector:     []float64{1, 0},
		TopK:       10,
		MinScore:   0.5,
	})
	if len(res.Items) != 1 {
		t.Errorf("MinScore should drop the orthogonal vector, got %v", res.Items)
	}
}

func TestMemoryVectorService_Errors(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVectorService()

	if _, err := vs.Search(ctx, &core.VectorSearchRequest{Collection: "nope", Vector: []float64{1}}); !core.IsNotFound(err) {
		t.Errorf("search on missing collection = %v, want NOT_FOUND", err)
	}

	_ = vs.CreateCollection(ctx, "test", 3, "cosine")
	err := vs.Insert(ctx, &core.VectorInsertRequest{
		Collection: "test",
		IDs:        []string{"a"},
		Vectors:    [][]float64{{1, 2}},
	})
	if !core.IsMissingData(err) {
		t.Errorf("wrong-dimension insert = %v, want DIMENSION_MISMATCH", err)
	}

	// 幂等建集合
	if err := vs.CreateCollection(ctx, "test", 3, "cosine"); err != nil {
		t.Errorf("repeated CreateCollection must be idempotent, got %v", err)
	}
}

func TestMemoryVectorService_Delete(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVectorService()
	_ = vs.CreateCollection(ctx, "test", 2, "cosine")
	_ = vs.Insert(ctx, &core.VectorInsertRequest{
		Collection: "test",
		IDs:        []string{"a"},
		Vectors:    [][]float64{{1, 0}},
	})

	if err := vs.Delete(ctx, "test", []string{"a"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	res, _ := vs.Search(ctx, &core.VectorSearchRequest{Collection: "test", Vector: []float64{1, 0}})
	if len(res.Items) != 0 {
		t.Errorf("deleted vector still searchable: %v", res.Items)
	}
}
