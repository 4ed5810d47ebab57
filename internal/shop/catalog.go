package shop

import (
	"errors"
	"fmt"
	"strings"

	"blind_box/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 盲盒子款式数量的允许区间。
const (
	MinSubItems = 2
	MaxSubItems = 10
)

// SubItemInput 建盒时的单个子款式。
type SubItemInput struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Quantity int64  `json:"quantity"`
}

// CreateBoxInput 建盒请求。TotalQuantity 不由客户端提供，
// 服务端按子款式数量求和写入。
type CreateBoxInput struct {
	UserID      uint
	Name        string
	Description string
	Price       decimal.Decimal
	CoverImage  string
	SubItems    []SubItemInput
}

// CreateBox 创建盲盒：主商品与全部子款式在同一事务内落库，
// total_quantity = remaining_quantity = 子款式数量之和，
// 保证跨表不变式从创建那一刻起就成立。
func CreateBox(db *gorm.DB, in CreateBoxInput) (*model.Product, error) {
	if in.UserID == 0 {
		return nil, fmt.Errorf("%w: user_id 必填", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: 盲盒名称必填", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: 盲盒描述必填", ErrInvalidRequest)
	}
	if in.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: 价格必须大于 0", ErrInvalidRequest)
	}
	if len(in.SubItems) < MinSubItems || len(in.SubItems) > MaxSubItems {
		return nil, fmt.Errorf("%w: 子款式数量必须在 %d-%d 个之间", ErrInvalidRequest, MinSubItems, MaxSubItems)
	}

	var total int64
	subs := make([]model.SubItem, 0, len(in.SubItems))
	for i, s := range in.SubItems {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("%w: 第%d个子款式的名称必填", ErrInvalidRequest, i+1)
		}
		if strings.TrimSpace(s.ImageURL) == "" {
			return nil, fmt.Errorf("%w: 第%d个子款式的图片必填", ErrInvalidRequest, i+1)
		}
		if s.Quantity <= 0 {
			return nil, fmt.Errorf("%w: 第%d个子款式的数量必须大于 0", ErrInvalidRequest, i+1)
		}
		total += s.Quantity
		subs = append(subs, model.SubItem{
			Name:              strings.TrimSpace(s.Name),
			ImageURL:          strings.TrimSpace(s.ImageURL),
			Quantity:          s.Quantity,
			RemainingQuantity: s.Quantity,
		})
	}

	prod := &model.Product{
		UserID:            in.UserID,
		Name:              strings.TrimSpace(in.Name),
		Description:       strings.TrimSpace(in.Description),
		Price:             in.Price,
		TotalQuantity:     total,
		RemainingQuantity: total,
		CoverImage:        strings.TrimSpace(in.CoverImage),
		SubItems:          subs,
	}
	// gorm 关联写入：商品与子款式同事务落库
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(prod).Error
	}); err != nil {
		return nil, err
	}
	return prod, nil
}

// GetBoxDetail 查询商品与其全部子款式。
func GetBoxDetail(db *gorm.DB, productID uint) (*model.Product, error) {
	var prod model.Product
	err := db.Preload("SubItems", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sub_items.id")
	}).First(&prod, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 商品不存在", ErrNotFound)
		}
		return nil, err
	}
	return &prod, nil
}

// DeleteBox 删除自己的盲盒（级联子款式）。
// 非本人商品与不存在的商品同样返回 ErrNotFound，不暴露归属信息。
func DeleteBox(db *gorm.DB, productID, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var prod model.Product
		err := tx.Where("id = ? AND user_id = ?", productID, userID).First(&prod).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 商品不存在或无权限删除", ErrNotFound)
			}
			return err
		}
		if err := tx.Where("product_id = ?", prod.ID).Delete(&model.SubItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&prod).Error
	})
}
