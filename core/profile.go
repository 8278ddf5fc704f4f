package core

import "time"

// Status 是阅读历史条目的状态。
type Status string

const (
	StatusWantToRead Status = "want_to_read"
	StatusReading    Status = "reading"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
	StatusPaused     Status = "paused"
)

// Interaction 是用户与单本书的交互记录。
type Interaction struct {
	BookID   string
	Status   Status
	Favorite bool
	Rating   int // 0 表示未评分，1-5 有效

	// 参与度指标
	PagesRead int
	TimeSpent int // 分钟

	AddedAt    time.Time
	LastReadAt time.Time
}

// Weight 计算交互权重：
//   - 基础分 = rating/5（未评分按 1.0）
//   - 读完 ×1.5，收藏 ×2
//   - 上限 3.0
//
// 协同过滤用它衡量"邻居用户对这本书的认可强度"。
func (it Interaction) Weight() float64 {
	w := 1.0
	if it.Rating >= 1 && it.Rating <= 5 {
		w = float64(it.Rating) / 5
	}
	if it.Status == StatusCompleted {
		w *= 1.5
	}
	if it.Favorite {
		w *= 2
	}
	if w > 3 {
		w = 3
	}
	return w
}

// UserProfile 是用户阅读画像的核心抽象。
//
// 一句话定义：用户画像 = 推荐 Pipeline 的"全局上下文 + 特征源 + 决策信号"
//
// 它不是某一个策略，而是：
//   - 被所有策略共享
//   - 驱动 Collaborative / Content / Hybrid / Demographic
//   - 随每次交互或画像刷新而演进，用户存续期间不做硬删除
type UserProfile struct {
	UserID string

	// Vectors 多切面兴趣向量，维度约定见 core.Facet；
	// 错维向量视为缺失，绝不参与相似度计算
	Vectors map[Facet][]float64

	// History 有序阅读历史（按加入时间）
	History []Interaction

	// Confidence 每个切面的置信度 0-1
	Confidence map[Facet]float64

	// 显式偏好
	PreferGenres  []string
	PreferAuthors []string

	UpdateTime time.Time
}

// NewUserProfile 创建一个新的（冷启动）用户画像。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:     userID,
		Vectors:    make(map[Facet][]float64),
		History:    make([]Interaction, 0),
		Confidence: make(map[Facet]float64),
		UpdateTime: time.Now(),
	}
}

// Vector 返回维度正确的切面向量；维度不符视为缺失。
func (p *UserProfile) Vector(f Facet) ([]float64, bool) {
	if p == nil || p.Vectors == nil {
		return nil, false
	}
	vec, ok := p.Vectors[f]
	if !ok || !ValidVector(f, vec) {
		return nil, false
	}
	return vec, true
}

// HasVectors 判断是否存在至少一个维度正确的切面向量。
func (p *UserProfile) HasVectors() bool {
	if p == nil {
		return false
	}
	for f := range p.Vectors {
		if ValidVector(f, p.Vectors[f]) {
			return true
		}
	}
	return false
}

// IsColdStart 判断是否冷启动画像：无历史且无有效向量。
func (p *UserProfile) IsColdStart() bool {
	return p == nil || (len(p.History) == 0 && !p.HasVectors())
}

// Interacted 返回按 BookID 索引的交互表，策略用它排除已读书目。
func (p *UserProfile) Interacted() map[string]Interaction {
	if p == nil {
		return map[string]Interaction{}
	}
	out := make(map[string]Interaction, len(p.History))
	for _, it := range p.History {
		out[it.BookID] = it
	}
	return out
}

// AddInteraction 追加交互记录；同一本书只保留最新一条。
func (p *UserProfile) AddInteraction(it Interaction) {
	for i := range p.History {
		if p.History[i].BookID == it.BookID {
			p.History[i] = it
			p.UpdateTime = time.Now()
			return
		}
	}
	p.History = append(p.History, it)
	p.UpdateTime = time.Now()
}

// OverallConfidence 返回各切面置信度的均值，Hybrid 调权用。
func (p *UserProfile) OverallConfidence() float64 {
	if p == nil || len(p.Confidence) == 0 {
		return 0
	}
	var sum float64
	for _, c := range p.Confidence {
		sum += c
	}
	return sum / float64(len(p.Confidence))
}
