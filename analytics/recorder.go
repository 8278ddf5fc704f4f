package analytics

import (
	"sync"
	"time"
)

// StrategyStats 是单个策略的累计表现。
type StrategyStats struct {
	Used      int64 // 被调度次数
	Succeeded int64 // 产出非空候选的次数
}

// SuccessRate 策略成功率。
func (s StrategyStats) SuccessRate() float64 {
	if s.Used == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Used)
}

// PerformanceReport 是一次性能快照，供运营面板消费。
type PerformanceReport struct {
	Uptime          time.Duration
	TotalGenerated  int64
	SuccessRate     float64
	AvgResponseTime time.Duration

	CacheHits    int64
	CacheMisses  int64
	CacheHitRate float64
	CacheSize    int

	Strategies map[string]StrategyStats

	EngagementEvents map[string]int64
	Fallbacks        int64
}

// Recorder 累计推荐链路的观测指标：请求量、耗时、策略命中、
// 缓存命中、用户参与事件。所有方法线程安全，失败绝不影响主链路。
type Recorder struct {
	mu sync.Mutex

	startedAt time.Time
	now       func() time.Time

	generated int64
	succeeded int64
	totalTime time.Duration

	cacheHits   int64
	cacheMisses int64

	strategies map[string]*StrategyStats
	engagement map[string]int64
	fallbacks  int64
}

func NewRecorder() *Recorder {
	r := &Recorder{now: time.Now}
	r.reset()
	return r
}

func (r *Recorder) reset() {
	r.startedAt = r.now()
	r.generated = 0
	r.succeeded = 0
	r.totalTime = 0
	r.cacheHits = 0
	r.cacheMisses = 0
	r.strategies = make(map[string]*StrategyStats)
	r.engagement = make(map[string]int64)
	r.fallbacks = 0
}

// RecordGeneration 记录一次推荐生成：耗时与成败。
func (r *Recorder) RecordGeneration(elapsed time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generated++
	r.totalTime += elapsed
	if ok {
		r.succeeded++
	}
}

// RecordCache 记录一次缓存查询结果。
func (r *Recorder) RecordCache(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.cacheHits++
	} else {
		r.cacheMisses++
	}
}

// RecordStrategy 记录一次策略调度；succeeded 表示产出了非空候选。
func (r *Recorder) RecordStrategy(name string, succeeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.strategies[name]
	if !ok {
		s = &StrategyStats{}
		r.strategies[name] = s
	}
	s.Used++
	if succeeded {
		s.Succeeded++
	}
}

// RecordFallback 记录一次降级换档。
func (r *Recorder) RecordFallback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks++
}

// RecordEngagement 记录一次用户参与事件（view / click / favorite ...）。
func (r *Recorder) RecordEngagement(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engagement[event]++
}

// Report 生成当前快照；cacheSize 由调用方传入（缓存自身持有条目数）。
func (r *Recorder) Report(cacheSize int) PerformanceReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := PerformanceReport{
		Uptime:           r.now().Sub(r.startedAt),
		TotalGenerated:   r.generated,
		CacheHits:        r.cacheHits,
		CacheMisses:      r.cacheMisses,
		CacheSize:        cacheSize,
		Strategies:       make(map[string]StrategyStats, len(r.strategies)),
		EngagementEvents: make(map[string]int64, len(r.engagement)),
		Fallbacks:        r.fallbacks,
	}
	if r.generated > 0 {
		rep.SuccessRate = float64(r.succeeded) / float64(r.generated)
		rep.AvgResponseTime = r.totalTime / time.Duration(r.generated)
	}
	if total := r.cacheHits + r.cacheMisses; total > 0 {
		rep.CacheHitRate = float64(r.cacheHits) / float64(total)
	}
	for name, s := range r.strategies {
		rep.Strategies[name] = *s
	}
	for ev, n := range r.engagement {
		rep.EngagementEvents[ev] = n
	}
	return rep
}

// Reset 清零所有累计指标，uptime 重新起算。
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}
