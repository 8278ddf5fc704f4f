package core

// Facet 表示嵌入向量的语义切面（semantic facet）。
// 用户画像与图书 Embedding 使用同一组切面，两两可比。
type Facet string

const (
	FacetPrimary    Facet = "primary"    // 主兴趣向量，召回主力
	FacetSemantic   Facet = "semantic"   // 题材/语义
	FacetStyle      Facet = "style"      // 写作风格
	FacetEmotional  Facet = "emotional"  // 情感基调
	FacetComplexity Facet = "complexity" // 阅读难度
	FacetTemporal   Facet = "temporal"   // 时间偏好
)

// facetDims 是每个切面的系统级固定维度。
// 维度不符的向量一律按"缺失"处理，绝不参与比较。
var facetDims = map[Facet]int{
	FacetPrimary:    384,
	FacetSemantic:   384,
	FacetStyle:      256,
	FacetEmotional:  128,
	FacetComplexity: 64,
	FacetTemporal:   32,
}

// Dim 返回切面的固定维度；未知切面返回 0。
func (f Facet) Dim() int {
	return facetDims[f]
}

// Facets 返回所有已知切面（顺序稳定，便于遍历/测试）。
func Facets() []Facet {
	return []Facet{
		FacetPrimary, FacetSemantic, FacetStyle,
		FacetEmotional, FacetComplexity, FacetTemporal,
	}
}

// ValidVector 校验向量是否与切面维度一致。
// nil / 空向量 / 错维向量均视为无效（MissingData 语义）。
func ValidVector(f Facet, vec []float64) bool {
	d := f.Dim()
	return d > 0 && len(vec) == d
}
