package queue

import (
	"context"

	rd "github.com/redis/go-redis/v9"
)

// Outbox 把订单事件先写进 Redis Stream，由 Relay 异步转发 Kafka。
// 购买接口只承担一次 XADD 的代价，Kafka 抖动不影响下单链路。
type Outbox struct {
	rdb    *rd.Client
	stream string
}

func NewOutbox(rdb *rd.Client, stream string) *Outbox {
	return &Outbox{rdb: rdb, stream: stream}
}

// Publish 实现 Publisher，把事件按字段摊平写入 Stream。
func (o *Outbox) Publish(ctx context.Context, ev OrderEvent) error {
	return o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		Values: map[string]interface{}{
			"order_no":     ev.OrderNo,
			"buyer_id":     uint64(ev.BuyerID),
			"seller_id":    uint64(ev.SellerID),
			"product_id":   uint64(ev.ProductID),
			"sub_item_id":  uint64(ev.SubItemID),
			"reward_name":  ev.RewardName,
			"reward_image": ev.RewardImage,
			"price":        ev.Price,
		},
	}).Err()
}
