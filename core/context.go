package core

import (
	"math/rand"
	"time"

	"github.com/rushteam/bookrec/pkg/utils"
)

// RecommendContext 承载用户/场景/实时信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string

	// User 是强类型用户画像；为空表示画像缺失（冷启动路径）
	User *UserProfile

	// Behavior 行为聚合（聚类标签、参与度），Demographic 策略用
	Behavior *UserBehavior

	// Refresh 为 true 时：请求前失效该用户缓存，重排阶段注入随机扰动，
	// 且结果不回写缓存（连续两次 refresh 不会互相命中）
	Refresh bool

	// Limit 期望返回的候选数
	Limit int

	// Rand 请求级随机源（refresh 扰动、冷启动采样）。
	// 显式注入以保证测试可复现；为空时按当前时间惰性初始化。
	Rand *rand.Rand

	// Labels 用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数：mood / time_of_day / genres / publication 等
	Params map[string]any
}

// Random 返回请求级随机源，未注入时按当前时间种子初始化。
func (rctx *RecommendContext) Random() *rand.Rand {
	if rctx.Rand == nil {
		rctx.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rctx.Rand
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ParamString 读取字符串参数；缺失或类型不符返回空串。
func (rctx *RecommendContext) ParamString(key string) string {
	if rctx.Params == nil {
		return ""
	}
	if s, ok := rctx.Params[key].(string); ok {
		return s
	}
	return ""
}

// ParamStrings 读取字符串列表参数，兼容 []string 与 []any。
func (rctx *RecommendContext) ParamStrings(key string) []string {
	if rctx.Params == nil {
		return nil
	}
	switch v := rctx.Params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
