// Package bookrec 是一个图书推荐引擎（Book Recommender）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Strategy → Aggregate → ReRank → PostProcess）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - Fallback-first: 策略失败逐级降级（向量检索 → 全量相似度 → 冷启动 → 最新书目），
//   任何公开操作都保证返回非空、结构完整的结果
package bookrec

import "github.com/rushteam/bookrec/pipeline"

// 轻量 facade：便于用户直接 import "bookrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindStrategy    = pipeline.KindStrategy
	KindAggregate   = pipeline.KindAggregate
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
