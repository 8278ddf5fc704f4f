package core

import (
	"strings"

	"github.com/rushteam/bookrec/pkg/utils"
)

// Label key 约定：strategy 记录贡献策略，factor 记录推荐因子。
// 同名 key 按 utils.MergeLabel 规则累积（'|' 分隔），全链路可追踪。
const (
	LabelStrategy = "strategy"
	LabelFactor   = "factor"
)

// ScoredCandidate 是单次请求内的打分候选：分数、置信度、可解释标签。
// 每次请求现算现用，绝不持久化。
type ScoredCandidate struct {
	Book       *Book
	Score      float64
	Confidence float64
	Labels     map[string]utils.Label
}

func NewScoredCandidate(b *Book) *ScoredCandidate {
	return &ScoredCandidate{
		Book:   b,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (c *ScoredCandidate) PutLabel(key string, lbl utils.Label) {
	if c.Labels == nil {
		c.Labels = make(map[string]utils.Label)
	}
	if old, ok := c.Labels[key]; ok {
		c.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	c.Labels[key] = lbl
}

// Strategies 返回贡献策略集合（去重，保持首次出现顺序）。
func (c *ScoredCandidate) Strategies() []string {
	return c.labelValues(LabelStrategy)
}

// Factors 返回推荐因子集合（去重，保持首次出现顺序）。
func (c *ScoredCandidate) Factors() []string {
	return c.labelValues(LabelFactor)
}

func (c *ScoredCandidate) labelValues(key string) []string {
	lbl, ok := c.Labels[key]
	if !ok || lbl.Value == "" {
		return nil
	}
	parts := strings.Split(lbl.Value, "|")
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Recommendation 是对外返回的推荐结果：图书字段 + 分数 + 解释。
type Recommendation struct {
	Book                *Book
	RecommendationScore float64
	Confidence          float64
	Reason              string
	Metadata            RecommendationMeta
}

// RecommendationMeta 是推荐的可观测元信息。
type RecommendationMeta struct {
	Strategies   []string
	Factors      []string
	ModelVersion string
}
