package rerank

import (
	"github.com/rushteam/bookrec/core"
)

// 每日推荐的高分线：分数达到该值的候选进入优选池。
const dailyHighScore = 0.8

// SelectDaily 从排序后的候选中按日期确定性地选出"今日一书"。
//
// dayValue 是日期的确定性数值（如 20260829），同一天同一用户
// 永远选中同一本：
//   - 默认：在前 5 名里取 dayValue mod min(5, len) 位
//   - 若高分候选（≥ 0.8）不少于 2 个：改在高分池里取
//     (dayValue/10) mod count 位，保证质量优先
//
// 空候选返回 nil。
func SelectDaily(candidates []*core.ScoredCandidate, dayValue int) *core.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}
	if dayValue < 0 {
		dayValue = -dayValue
	}

	var high []*core.ScoredCandidate
	for _, c := range candidates {
		if c != nil && c.Score >= dailyHighScore {
			high = append(high, c)
		}
	}
	if len(high) >= 2 {
		return high[(dayValue/10)%len(high)]
	}

	top := len(candidates)
	if top > 5 {
		top = 5
	}
	return candidates[dayValue%top]
}
