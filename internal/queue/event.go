package queue

import "fmt"

// OrderEvent 是购买成功后发布的订单事件。
// Price 用十进制字符串承载，避免订阅方拿到浮点误差。
type OrderEvent struct {
	OrderNo     string `json:"order_no"`
	BuyerID     uint   `json:"buyer_id"`
	SellerID    uint   `json:"seller_id"`
	ProductID   uint   `json:"product_id"`
	SubItemID   uint   `json:"sub_item_id"`
	RewardName  string `json:"reward_name"`
	RewardImage string `json:"reward_image"`
	Price       string `json:"price"`
}

// Validate 做最小字段校验，防止订阅方处理脏消息。
func (e OrderEvent) Validate() error {
	if e.OrderNo == "" {
		return fmt.Errorf("order_no is required")
	}
	if e.BuyerID == 0 {
		return fmt.Errorf("buyer_id is required")
	}
	if e.SellerID == 0 {
		return fmt.Errorf("seller_id is required")
	}
	if e.ProductID == 0 {
		return fmt.Errorf("product_id is required")
	}
	if e.SubItemID == 0 {
		return fmt.Errorf("sub_item_id is required")
	}
	if e.RewardName == "" {
		return fmt.Errorf("reward_name is required")
	}
	return nil
}
