// Package config 提供配置驱动的 Pipeline 装配：
// 内置重排 Node 的构建器注册 + YAML/JSON 配置校验。
package config

import (
	"fmt"
	"log"
	"sort"

	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/rerank"
)

// DefaultFactory 返回注册了全部内置重排 Node 的工厂。
// 工厂由调用方显式持有并注入，不依赖全局注册表。
func DefaultFactory(logger *log.Logger) *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	factory.Register("rerank.diversity", buildDiversityNode)
	factory.Register("rerank.topn", buildTopNNode)
	factory.Register("rerank.contextual", buildContextualNode)
	factory.Register("rerank.refresh", buildRefreshNode)
	factory.Register("rerank.rule", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildRuleNode(cfg, logger)
	})

	return factory
}

// SupportedTypes 返回内置 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	types := []string{
		"rerank.contextual",
		"rerank.diversity",
		"rerank.refresh",
		"rerank.rule",
		"rerank.topn",
	}
	sort.Strings(types)
	return types
}

// ValidatePipelineConfig 校验配置中所有 node 类型均为内置类型。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	supported := make(map[string]bool)
	for _, t := range SupportedTypes() {
		supported[t] = true
	}
	for _, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			continue
		}
		if !supported[nc.Type] {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, SupportedTypes())
		}
	}
	return nil
}

func buildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.Diversity{
		Limit:         cfgInt(cfg, "limit", 0),
		MaxPerGenre:   cfgInt(cfg, "max_per_genre", 0),
		MaxPerAuthor:  cfgInt(cfg, "max_per_author", 0),
		OverrideScore: cfgFloat(cfg, "override_score", 0),
	}, nil
}

func buildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	n := cfgInt(cfg, "n", 0)
	if n <= 0 {
		return nil, fmt.Errorf("rerank.topn: n is required")
	}
	return &rerank.TopN{N: n}, nil
}

func buildContextualNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.Contextual{
		MaxBoost: cfgFloat(cfg, "max_boost", 0),
	}, nil
}

func buildRefreshNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.Refresh{
		Factor:        cfgInt(cfg, "factor", 0),
		Perturb:       cfgFloat(cfg, "perturb", 0),
		ReorderWeight: cfgFloat(cfg, "reorder_weight", 0),
	}, nil
}

func buildRuleNode(cfg map[string]interface{}, logger *log.Logger) (pipeline.Node, error) {
	rulesCfg, ok := cfg["rules"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("rerank.rule: rules not found or invalid")
	}
	rules := make([]rerank.BoostRule, 0, len(rulesCfg))
	for _, rc := range rulesCfg {
		m, ok := rc.(map[string]interface{})
		if !ok {
			continue
		}
		r := rerank.BoostRule{
			Name:  cfgString(m, "name", ""),
			Expr:  cfgString(m, "expr", ""),
			Boost: cfgFloat(m, "boost", 0),
		}
		if r.Expr == "" {
			return nil, fmt.Errorf("rerank.rule: rule %q missing expr", r.Name)
		}
		rules = append(rules, r)
	}
	return &rerank.Rule{Rules: rules, Logger: logger}, nil
}

// YAML/JSON 解码出的数值可能是 int / int64 / float64，统一兜底转换。

func cfgInt(cfg map[string]interface{}, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func cfgFloat(cfg map[string]interface{}, key string, def float64) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func cfgString(cfg map[string]interface{}, key, def string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return def
}
