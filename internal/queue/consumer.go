package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	rediskey "blind_box/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Consumer 订阅订单事件 Topic，把抽中结果推进社区“最新抽中”滚动条。
type Consumer struct {
	r        *kafka.Reader
	rdb      *rd.Client
	feedSize int
}

func NewConsumer(brokers []string, topic, groupID string, rdb *rd.Client, feedSize int) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		rdb:      rdb,
		feedSize: feedSize,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancel / 连接断开等
		}

		var ev OrderEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Printf("consumer unmarshal: %v", err)
			continue
		}
		if err := ev.Validate(); err != nil {
			log.Printf("consumer invalid event: %v", err)
			continue
		}

		entry := rediskey.RewardEntry{
			OrderNo:     ev.OrderNo,
			ProductID:   ev.ProductID,
			RewardName:  ev.RewardName,
			RewardImage: ev.RewardImage,
			PurchasedAt: m.Time,
		}
		pushCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rediskey.PushReward(pushCtx, c.rdb, entry, c.feedSize); err != nil {
			// 滚动条是展示性数据，失败只记日志不重试
			log.Printf("consumer push reward feed: %v", err)
		}
		cancel()
	}
}
