package rank

import (
	"errors"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
	"github.com/rushteam/bookrec/strategy"
)

func cand(id string, score, confidence float64, strategyName string) *core.ScoredCandidate {
	c := core.NewScoredCandidate(&core.Book{ID: id})
	c.Score = score
	c.Confidence = confidence
	c.PutLabel(core.LabelStrategy, utils.Label{Value: strategyName, Source: "strategy"})
	return c
}

func TestAggregate_WeightedMerge(t *testing.T) {
	results := []strategy.Result{
		{
			Kind:   strategy.KindContent,
			Weight: 0.6,
			Candidates: []*core.ScoredCandidate{
				cand("b1", 1.0, 0.8, "content"),
				cand("b2", 0.5, 0.8, "content"),
			},
		},
		{
			Kind:   strategy.KindDemographic,
			Weight: 0.4,
			Candidates: []*core.ScoredCandidate{
				cand("b1", 0.5, 0.4, "demographic"),
			},
		},
	}

	out := Aggregate(results)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}

	// b1 = 1.0×0.6 + 0.5×0.4 = 0.8，排第一
	if out[0].Book.ID != "b1" {
		t.Fatalf("first = %s, want b1", out[0].Book.ID)
	}
	if got := out[0].Score; got < 0.8-1e-9 || got > 0.8+1e-9 {
		t.Errorf("b1 score = %v, want 0.8", got)
	}
	// 置信度取均值 (0.8+0.4)/2
	if got := out[0].Confidence; got < 0.6-1e-9 || got > 0.6+1e-9 {
		t.Errorf("b1 confidence = %v, want 0.6", got)
	}
	// 策略标签并集
	got := out[0].Strategies()
	if len(got) != 2 {
		t.Errorf("b1 strategies = %v, want both contributors", got)
	}
}

func TestAggregate_FailedResultDropped(t *testing.T) {
	results := []strategy.Result{
		{
			Kind:       strategy.KindCollaborative,
			Weight:     0.5,
			Err:        errors.New("neighbor source down"),
			Candidates: []*core.ScoredCandidate{cand("bad", 9, 1, "collaborative")},
		},
		{
			Kind:       strategy.KindContent,
			Weight:     0.5,
			Candidates: []*core.ScoredCandidate{cand("good", 0.5, 0.5, "content")},
		},
	}
	out := Aggregate(results)
	if len(out) != 1 || out[0].Book.ID != "good" {
		t.Errorf("failed strategy result must not contribute candidates")
	}
}

func TestAggregate_DeterministicTieBreak(t *testing.T) {
	results := []strategy.Result{
		{
			Kind:   strategy.KindContent,
			Weight: 1,
			Candidates: []*core.ScoredCandidate{
				cand("z", 0.5, 0.5, "content"),
				cand("a", 0.5, 0.5, "content"),
			},
		},
	}
	for i := 0; i < 10; i++ {
		out := Aggregate(results)
		if out[0].Book.ID != "a" || out[1].Book.ID != "z" {
			t.Fatalf("tie break must order by book id, got %s,%s", out[0].Book.ID, out[1].Book.ID)
		}
	}
}
