package core

import "time"

// UserBehavior 是行为分析层产出的用户聚合：聚类标签 + 参与度统计。
// 由 BehaviorStore 提供（内存实现或 Feast 在线特征），Demographic 策略消费。
type UserBehavior struct {
	UserID string

	// Cluster 用户分群标签，例如 "binge_reader" / "casual" / "explorer"
	Cluster string

	// 参与度聚合
	EngagementScore float64 // 0-1
	SessionCount    int64
	CompletionRate  float64 // 0-1

	// SocialDegree 社交图规模（互相关注/共同书单用户数），Hybrid 调权用
	SocialDegree int

	LastAnalyzed time.Time
}
