package redis

import (
	"context"
	"encoding/json"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// RewardEntry 滚动条里的一条抽中记录。
type RewardEntry struct {
	OrderNo     string    `json:"order_no"`
	ProductID   uint      `json:"product_id"`
	RewardName  string    `json:"reward_name"`
	RewardImage string    `json:"reward_image"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// PushReward 头插一条记录并裁剪到 maxLen，两步放进同一个 pipeline。
func PushReward(ctx context.Context, rdb *rd.Client, entry RewardEntry, maxLen int) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, RewardFeedKey(), b)
	pipe.LTrim(ctx, RewardFeedKey(), 0, int64(maxLen-1))
	_, err = pipe.Exec(ctx)
	return err
}

// RecentRewards 读最近 n 条抽中记录，新的在前。
func RecentRewards(ctx context.Context, rdb *rd.Client, n int) ([]RewardEntry, error) {
	raw, err := rdb.LRange(ctx, RewardFeedKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]RewardEntry, 0, len(raw))
	for _, s := range raw {
		var e RewardEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			// 脏数据跳过，不让一条坏记录拖垮整个接口
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
