package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/bookrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("candidate", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是候选规则的解释器，使用 CEL (Common Expression Language) 实现。
// 业务规则（rerank.rule 节点）用它对候选做布尔判定。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.strategy == "content" / candidate.author != "..."
//   - 数值：candidate.score > 0.7 / candidate.complexity <= 5.0
//   - 逻辑：label.factor.contains("trending") && candidate.score > 0.8
//   - 存在性：label.strategy != null
//
// 示例：
//   - `candidate.score > 0.7 && label.factor.contains("trending")`
//   - `"Fantasy" in candidate.genres`
type Eval struct {
	cand *core.ScoredCandidate
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的规则解释器。
func NewEval(cand *core.ScoredCandidate, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		cand: cand,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行 CEL 表达式，返回布尔结果。
// 空表达式恒为 true。表达式必须返回布尔值。
//
// 注意：CEL 访问不存在的 key 会报错，用 label.key != null 检查存在性。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]interface{} {
	labels := make(map[string]interface{})
	labelAccessor := make(map[string]interface{})
	for k, v := range e.cand.Labels {
		labels[k] = map[string]interface{}{
			"value":  v.Value,
			"source": v.Source,
		}
		// label.strategy 直接返回 value，兼容简写
		labelAccessor[k] = v.Value
	}

	candidate := map[string]interface{}{
		"score":      e.cand.Score,
		"confidence": e.cand.Confidence,
		"labels":     labels,
	}
	if b := e.cand.Book; b != nil {
		candidate["id"] = b.ID
		candidate["title"] = b.Title
		candidate["author"] = b.Author
		candidate["genres"] = b.Genres
		candidate["complexity"] = b.ComplexityScore
		candidate["rating"] = b.Stats.Rating
		candidate["view_count"] = b.Stats.ViewCount
	}

	rctx := map[string]interface{}{}
	if e.rctx != nil {
		rctx["user_id"] = e.rctx.UserID
		rctx["refresh"] = e.rctx.Refresh
		rctx["params"] = e.rctx.Params
	}

	return map[string]interface{}{
		"candidate": candidate,
		"label":     labelAccessor,
		"rctx":      rctx,
	}
}
