package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 购买记录，建成后只读：没有更新和删除路径。
// SubItemName / SubItemImage 是下单时刻的快照，之后款式被改或删都不影响历史订单。
type Order struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderNo      string          `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	BuyerID      uint            `gorm:"not null;index" json:"buyer_id"`
	SellerID     uint            `gorm:"not null;index" json:"seller_id"`
	ProductID    uint            `gorm:"not null;index" json:"product_id"`
	SubItemID    uint            `gorm:"not null" json:"sub_item_id"`
	SubItemName  string          `gorm:"size:128;not null" json:"sub_item_name"`
	SubItemImage string          `gorm:"size:256;not null" json:"sub_item_image"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

// 显式实现结构，确定表名
func (Order) TableName() string { return "orders" }
