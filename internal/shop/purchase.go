package shop

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"blind_box/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxPurchaseAttempts 并发冲突时整个购买事务的最大重试次数。
const maxPurchaseAttempts = 10

// PurchaseInput 购买请求。Price 是客户端看到的标价，仅用于确认：
// 服务端以库内价格为准，不一致直接拒单。
type PurchaseInput struct {
	BuyerID   uint
	SellerID  uint
	ProductID uint
	Price     decimal.Decimal
}

// PurchaseResult 购买成功的返回：订单 + 抽中款式的名称与图片。
type PurchaseResult struct {
	Order       *model.Order
	RewardName  string
	RewardImage string
}

// Purchase 执行一次盲盒购买：校验库存 → 加权抽取子款式 → 落订单 →
// 扣子款式与主商品库存，全部在一个事务内，要么全成要么全滚。
// 扣减冲突（并发把同一件抢走）按 ErrConflict 整单重试，重试耗尽才向上抛。
func Purchase(db *gorm.DB, in PurchaseInput) (*PurchaseResult, error) {
	if in.BuyerID == 0 || in.SellerID == 0 || in.ProductID == 0 {
		return nil, fmt.Errorf("%w: buyer_id/seller_id/product_id 必填", ErrInvalidRequest)
	}
	if in.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price 必须大于 0", ErrInvalidRequest)
	}

	var (
		res *PurchaseResult
		err error
	)
	for attempt := 0; attempt < maxPurchaseAttempts; attempt++ {
		res, err = purchaseOnce(db, in, randIntn)
		if err == nil || !retryable(err) {
			return res, err
		}
		// 小步退避后整单重试
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	if retryable(err) {
		return nil, fmt.Errorf("%w: 重试 %d 次仍未成功", ErrConflict, maxPurchaseAttempts)
	}
	return nil, err
}

// purchaseOnce 单次事务尝试。intn 注入抽签源，便于测试固定结果。
func purchaseOnce(db *gorm.DB, in PurchaseInput, intn func(int64) int64) (*PurchaseResult, error) {
	var result *PurchaseResult

	txErr := db.Transaction(func(tx *gorm.DB) error {
		// 买家必须存在；商品快照里的卖家与请求一致才放行。
		var buyer model.User
		if err := tx.Select("id").First(&buyer, in.BuyerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 买家不存在", ErrNotFound)
			}
			return err
		}

		var prod model.Product
		if err := tx.First(&prod, in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 商品不存在", ErrNotFound)
			}
			return err
		}
		if prod.UserID != in.SellerID {
			return fmt.Errorf("%w: 卖家与商品不匹配", ErrInvalidRequest)
		}
		// 价格以库内为准，客户端价仅做确认
		if !prod.Price.Equal(in.Price) {
			return fmt.Errorf("%w: 价格与当前售价不符", ErrInvalidRequest)
		}
		if prod.RemainingQuantity <= 0 {
			return fmt.Errorf("%w: 商品已售完", ErrOutOfStock)
		}

		var subs []model.SubItem
		if err := tx.Where("product_id = ? AND remaining_quantity > 0", prod.ID).
			Order("id").Find(&subs).Error; err != nil {
			return err
		}
		// 主商品有货但子款式全空属于数据不一致，仍按售罄对外
		if len(subs) == 0 {
			return fmt.Errorf("%w: 没有可用的子款式", ErrOutOfStock)
		}

		picked, err := PickSubItem(subs, intn)
		if err != nil {
			return err
		}

		order := &model.Order{
			OrderNo:      newOrderNo(),
			BuyerID:      in.BuyerID,
			SellerID:     in.SellerID,
			ProductID:    prod.ID,
			SubItemID:    picked.ID,
			SubItemName:  picked.Name,
			SubItemImage: picked.ImageURL,
			Price:        prod.Price,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		// 条件扣减：remaining_quantity > 0 兜底，0 行受影响说明并发把货抢走了。
		dec := tx.Model(&model.SubItem{}).
			Where("id = ? AND remaining_quantity > 0", picked.ID).
			UpdateColumn("remaining_quantity", gorm.Expr("remaining_quantity - 1"))
		if dec.Error != nil {
			return dec.Error
		}
		if dec.RowsAffected == 0 {
			return fmt.Errorf("%w: 子款式库存被并发扣减", ErrConflict)
		}

		dec = tx.Model(&model.Product{}).
			Where("id = ? AND remaining_quantity > 0", prod.ID).
			UpdateColumn("remaining_quantity", gorm.Expr("remaining_quantity - 1"))
		if dec.Error != nil {
			return dec.Error
		}
		if dec.RowsAffected == 0 {
			return fmt.Errorf("%w: 商品库存被并发扣减", ErrConflict)
		}

		result = &PurchaseResult{
			Order:       order,
			RewardName:  picked.Name,
			RewardImage: picked.ImageURL,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// retryable 判断是否值得整单重试：显式冲突，或 sqlite 锁竞争。
func retryable(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	return err != nil && errorsLikeBusy(err)
}

// sqlite 并发写会报 locked/busy，按冲突处理重试。
func errorsLikeBusy(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "locked") || strings.Contains(s, "busy")
}

// newOrderNo 生成订单号：BB + 时间戳 + uuid 片段。
func newOrderNo() string {
	return "BB" + time.Now().Format("20060102150405") + "-" + uuid.NewString()[:8]
}
