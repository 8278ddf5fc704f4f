package feast

import (
	"context"
	"time"

	"github.com/rushteam/bookrec/core"
)

// 行为特征视图的特征名（离线分析任务按此约定写入 Feast）。
const (
	featCluster         = "user_behavior:cluster"
	featEngagementScore = "user_behavior:engagement_score"
	featSessionCount    = "user_behavior:session_count"
	featCompletionRate  = "user_behavior:completion_rate"
	featSocialDegree    = "user_behavior:social_degree"
	featLastAnalyzed    = "user_behavior:last_analyzed_unix"
)

var behaviorFeatures = []string{
	featCluster,
	featEngagementScore,
	featSessionCount,
	featCompletionRate,
	featSocialDegree,
	featLastAnalyzed,
}

// BehaviorStore 把 Feast 在线特征适配为 core.BehaviorStore。
//
// 离线行为分析任务把用户分群与参与度聚合物化到 Feast Online Store，
// 推荐链路通过本适配器按 user_id 实时读取，喂给 Demographic 策略
// 与 Hybrid 调权。
type BehaviorStore struct {
	Client Client
}

func NewBehaviorStore(client Client) *BehaviorStore {
	return &BehaviorStore{Client: client}
}

// Get 获取用户行为聚合；特征缺失（用户未被分析过）返回 NOT_FOUND。
func (s *BehaviorStore) Get(ctx context.Context, userID string) (*core.UserBehavior, error) {
	resp, err := s.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   behaviorFeatures,
		EntityRows: []map[string]interface{}{{"user_id": userID}},
	})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, err.Error())
	}
	if len(resp.FeatureVectors) == 0 {
		return nil, core.ErrStoreNotFound
	}

	values := resp.FeatureVectors[0].Values
	cluster, _ := values[featCluster].(string)
	if cluster == "" {
		// 分群标签是行为分析的最小产出，缺失视为未分析
		return nil, core.ErrStoreNotFound
	}

	b := &core.UserBehavior{
		UserID:          userID,
		Cluster:         cluster,
		EngagementScore: floatFeature(values, featEngagementScore),
		SessionCount:    int64(floatFeature(values, featSessionCount)),
		CompletionRate:  floatFeature(values, featCompletionRate),
		SocialDegree:    int(floatFeature(values, featSocialDegree)),
	}
	if ts := floatFeature(values, featLastAnalyzed); ts > 0 {
		b.LastAnalyzed = time.Unix(int64(ts), 0)
	}
	return b, nil
}

func floatFeature(values map[string]interface{}, name string) float64 {
	if f, ok := values[name].(float64); ok {
		return f
	}
	return 0
}

var _ core.BehaviorStore = (*BehaviorStore)(nil)
