package router

import (
	"net/http"

	"blind_box/internal/middleware"
	"blind_box/internal/model"
	"blind_box/internal/queue"
	"blind_box/internal/shop"
	rediskey "blind_box/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// purchase 购买盲盒：事务内完成校验、加权抽取、落订单、扣库存。
// 提交成功后做两件尽力而为的事：失效库存缓存、把订单事件写进 outbox。
func purchase(db *gorm.DB, rdb *rd.Client, pub queue.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.AuthUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "未登录"})
			return
		}

		var req struct {
			BuyerID   uint            `json:"buyer_id" binding:"required"`
			SellerID  uint            `json:"seller_id" binding:"required"`
			ProductID uint            `json:"product_id" binding:"required"`
			Price     decimal.Decimal `json:"price"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "所有字段都是必填的"})
			return
		}
		// 只能用自己的身份下单
		if req.BuyerID != userID {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "buyer_id 与登录用户不符"})
			return
		}

		res, err := shop.Purchase(db, shop.PurchaseInput{
			BuyerID:   req.BuyerID,
			SellerID:  req.SellerID,
			ProductID: req.ProductID,
			Price:     req.Price,
		})
		if err != nil {
			replyShopError(c, err)
			return
		}

		// 库存变了，旧缓存直接作废，读接口下次回源
		_ = rediskey.InvalidateStock(c.Request.Context(), rdb, req.ProductID)

		if pub != nil {
			ev := queue.OrderEvent{
				OrderNo:     res.Order.OrderNo,
				BuyerID:     res.Order.BuyerID,
				SellerID:    res.Order.SellerID,
				ProductID:   res.Order.ProductID,
				SubItemID:   res.Order.SubItemID,
				RewardName:  res.RewardName,
				RewardImage: res.RewardImage,
				Price:       res.Order.Price.String(),
			}
			// 事件丢失只影响滚动条展示，不回滚订单
			_ = pub.Publish(c.Request.Context(), ev)
		}

		c.JSON(http.StatusCreated, gin.H{"code": 0, "data": gin.H{
			"order_id": res.Order.ID,
			"order_no": res.Order.OrderNo,
			"reward": gin.H{
				"name":  res.RewardName,
				"image": res.RewardImage,
			},
		}})
	}
}

// orderRow 订单列表带上卖家用户名与商品名。
type orderRow struct {
	model.Order
	SellerUsername string `json:"seller_username"`
	ProductName    string `json:"product_name"`
}

// listUserOrders 买家订单列表，最近的在前。
func listUserOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "user_id")
		if !ok {
			return
		}
		var rows []orderRow
		err := db.Model(&model.Order{}).
			Select("orders.*, users.username AS seller_username, products.name AS product_name").
			Joins("LEFT JOIN users ON users.id = orders.seller_id").
			Joins("LEFT JOIN products ON products.id = orders.product_id").
			Where("orders.buyer_id = ?", id).
			Order("orders.created_at DESC").
			Scan(&rows).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取订单列表失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": rows})
	}
}
