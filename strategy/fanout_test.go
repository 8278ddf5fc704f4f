package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/bookrec/core"
)

// stubStrategy 是测试用的可编程策略。
type stubStrategy struct {
	name  string
	kind  Kind
	out   []*core.ScoredCandidate
	err   error
	panic bool
	delay time.Duration
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) Kind() Kind   { return s.kind }

func (s *stubStrategy) Score(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.ScoredCandidate, error) {
	if s.panic {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.out, s.err
}

func TestFanout_ResultsKeepInputOrder(t *testing.T) {
	f := &Fanout{
		Strategies: []Weighted{
			{Strategy: &stubStrategy{name: "a", kind: KindContent, out: []*core.ScoredCandidate{scoredCand("b1", 0.9)}}, Weight: 0.7},
			{Strategy: &stubStrategy{name: "b", kind: KindDemographic, out: []*core.ScoredCandidate{scoredCand("b2", 0.5)}}, Weight: 0.3},
		},
	}
	results := f.Run(context.Background(), &core.RecommendContext{}, 10)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Kind != KindContent || results[1].Kind != KindDemographic {
		t.Errorf("result order must match strategy order")
	}
	if results[0].Weight != 0.7 || results[1].Weight != 0.3 {
		t.Errorf("weights must pass through: %v, %v", results[0].Weight, results[1].Weight)
	}
}

func TestFanout_PanicIsolated(t *testing.T) {
	f := &Fanout{
		Strategies: []Weighted{
			{Strategy: &stubStrategy{name: "bad", kind: KindCollaborative, panic: true}, Weight: 0.5},
			{Strategy: &stubStrategy{name: "good", kind: KindContent, out: []*core.ScoredCandidate{scoredCand("b1", 0.9)}}, Weight: 0.5},
		},
	}
	results := f.Run(context.Background(), &core.RecommendContext{}, 10)

	if results[0].Err == nil {
		t.Errorf("panicking strategy must surface as error result")
	}
	if len(results[0].Candidates) != 0 {
		t.Errorf("panicking strategy must contribute no candidates")
	}
	if results[1].Err != nil || len(results[1].Candidates) != 1 {
		t.Errorf("healthy strategy must be unaffected by sibling panic")
	}
}

func TestFanout_TimeoutPerStrategy(t *testing.T) {
	f := &Fanout{
		Timeout: 10 * time.Millisecond,
		Strategies: []Weighted{
			{Strategy: &stubStrategy{name: "slow", kind: KindContent, delay: time.Second}, Weight: 1},
		},
	}
	started := time.Now()
	results := f.Run(context.Background(), &core.RecommendContext{}, 10)
	if time.Since(started) > 500*time.Millisecond {
		t.Fatalf("fanout did not enforce per-strategy timeout")
	}
	if results[0].Err == nil {
		t.Errorf("timed-out strategy must report an error")
	}
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	var fallbacks []string
	c := &Chain{
		Rungs: []Rung{
			RungOf(&stubStrategy{name: "empty", kind: KindHybrid}),
			RungOf(&stubStrategy{name: "filled", kind: KindColdStart, out: []*core.ScoredCandidate{scoredCand("b1", 0.5)}}),
			RungOf(&stubStrategy{name: "never", kind: KindRecent, out: []*core.ScoredCandidate{scoredCand("b2", 0.4)}}),
		},
		OnFallback: func(from, to string) {
			fallbacks = append(fallbacks, from+"->"+to)
		},
	}

	out, rung := c.Score(context.Background(), &core.RecommendContext{}, 10)
	if rung != "filled" {
		t.Errorf("winning rung = %s, want filled", rung)
	}
	if len(out) != 1 || out[0].Book.ID != "b1" {
		t.Errorf("candidates = %v, want from the first non-empty rung", ids(out))
	}
	if len(fallbacks) != 1 || fallbacks[0] != "empty->filled" {
		t.Errorf("fallback hooks = %v, want single empty->filled", fallbacks)
	}
}

func TestChain_AllEmpty(t *testing.T) {
	c := &Chain{
		Rungs: []Rung{
			RungOf(&stubStrategy{name: "a", kind: KindHybrid}),
			RungOf(&stubStrategy{name: "b", kind: KindRecent}),
		},
	}
	out, rung := c.Score(context.Background(), &core.RecommendContext{}, 10)
	if len(out) != 0 || rung != "" {
		t.Errorf("all-empty chain must return nothing")
	}
}

func scoredCand(id string, score float64) *core.ScoredCandidate {
	c := core.NewScoredCandidate(&core.Book{ID: id})
	c.Score = score
	return c
}
