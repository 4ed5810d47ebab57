package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 盲盒商品：价格、库存与封面，具体款式见 SubItem。
// 不变式：0 <= RemainingQuantity <= TotalQuantity，
// 且 RemainingQuantity 恒等于其子款式剩余量之和。
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID      uint            `gorm:"not null;index" json:"user_id"` // 卖家
	Name        string          `gorm:"size:128;not null" json:"name"`
	Description string          `gorm:"size:1024;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	// TotalQuantity 建盒时定死为子款式数量之和，之后不再变。
	TotalQuantity     int64  `gorm:"not null" json:"total_quantity"`
	RemainingQuantity int64  `gorm:"not null" json:"remaining_quantity"`
	CoverImage        string `gorm:"size:256" json:"cover_image"`

	SubItems []SubItem `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"sub_items,omitempty"`
}

func (Product) TableName() string { return "products" }

// SubItem 盲盒内的一个具体款式，购买时按剩余量加权随机抽取。
type SubItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Name      string `gorm:"size:128;not null" json:"name"`
	ImageURL  string `gorm:"size:256;not null" json:"image_url"`
	// Quantity 建盒时固定，RemainingQuantity 只减不增。
	Quantity          int64 `gorm:"not null" json:"quantity"`
	RemainingQuantity int64 `gorm:"not null" json:"remaining_quantity"`
}

func (SubItem) TableName() string { return "sub_items" }
