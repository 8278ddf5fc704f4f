// Package vectormath 提供嵌入向量的相似度/距离纯函数。
// 无副作用、无 I/O；所有异常输入（缺失/错维/零向量）都有确定的返回值，
// 绝不 panic —— 上层据此把"不可比"统一当作 MissingData 处理。
package vectormath

import "math"

// Cosine 计算余弦相似度，结果 ∈ [-1, 1]。
// 任一向量缺失、长度不一致或模为零时返回 0。
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Euclidean 计算欧氏距离。缺失或长度不一致时返回 +Inf。
func Euclidean(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Manhattan 计算曼哈顿距离。缺失或长度不一致时返回 +Inf。
func Manhattan(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// Pearson 计算皮尔逊相关系数。长度不一致或任一方差为零时返回 0。
func Pearson(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(len(a))
	meanB /= float64(len(b))

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// Weighted 计算多切面加权相似度。
//
// 只有双方都存在的切面参与计算；结果按"实际使用的权重之和"归一化，
// 缺失切面不会把整体分数往 0 拉。没有任何切面重叠时返回 0。
//
// vecsA/vecsB 的 key 为切面名（泛型约束为可比较类型，通常是 core.Facet）。
func Weighted[K comparable](vecsA, vecsB map[K][]float64, weights map[K]float64) float64 {
	var sum, used float64
	for facet, w := range weights {
		if w <= 0 {
			continue
		}
		va, okA := vecsA[facet]
		vb, okB := vecsB[facet]
		if !okA || !okB || len(va) == 0 || len(va) != len(vb) {
			continue
		}
		sum += Cosine(va, vb) * w
		used += w
	}
	if used == 0 {
		return 0
	}
	return sum / used
}
