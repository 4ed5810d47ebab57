package router

import (
	"errors"
	"net/http"
	"time"

	"blind_box/internal/middleware"
	"blind_box/internal/model"
	"blind_box/internal/shop"
	rediskey "blind_box/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// productRow 列表/详情里带上卖家用户名的投影。
type productRow struct {
	model.Product
	SellerUsername string `json:"seller_username"`
}

// createProduct 创建盲盒（含全部子款式，同一事务落库）。
func createProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.AuthUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "未登录"})
			return
		}

		var req struct {
			Name        string              `json:"name"`
			Description string              `json:"description"`
			Price       decimal.Decimal     `json:"price"`
			CoverImage  string              `json:"cover_image"`
			SubItems    []shop.SubItemInput `json:"sub_products"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		prod, err := shop.CreateBox(db, shop.CreateBoxInput{
			UserID:      userID,
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			CoverImage:  req.CoverImage,
			SubItems:    req.SubItems,
		})
		if err != nil {
			replyShopError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": 0, "data": gin.H{
			"product_id":     prod.ID,
			"total_quantity": prod.TotalQuantity,
		}})
	}
}

// listProducts 首页商品列表：分页 + 按名称/描述/卖家模糊搜索。
func listProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := pageParams(c)
		search := c.Query("search")

		q := db.Model(&model.Product{}).
			Select("products.*, users.username AS seller_username").
			Joins("JOIN users ON users.id = products.user_id")
		if search != "" {
			pattern := "%" + search + "%"
			q = q.Where("products.name LIKE ? OR products.description LIKE ? OR users.username LIKE ?",
				pattern, pattern, pattern)
		}

		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取商品列表失败"})
			return
		}

		var rows []productRow
		if err := q.Order("products.created_at DESC").
			Limit(limit).Offset(offset).Scan(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取商品列表失败"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"products":   rows,
			"pagination": pagination(page, limit, total),
		}})
	}
}

// listUserProducts 卖家自己的商品列表。
func listUserProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "user_id")
		if !ok {
			return
		}
		var list []model.Product
		if err := db.Where("user_id = ?", id).Order("created_at DESC").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取用户商品失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

// getProduct 商品基本信息（含卖家用户名）。
func getProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "product_id")
		if !ok {
			return
		}
		var row productRow
		err := db.Model(&model.Product{}).
			Select("products.*, users.username AS seller_username").
			Joins("JOIN users ON users.id = products.user_id").
			Where("products.id = ?", id).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "商品不存在"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取商品详情失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": row})
	}
}

// getProductDetails 商品 + 全部子款式。
func getProductDetails(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "product_id")
		if !ok {
			return
		}
		prod, err := shop.GetBoxDetail(db, id)
		if err != nil {
			replyShopError(c, err)
			return
		}
		var sellerName string
		_ = db.Model(&model.User{}).Where("id = ?", prod.UserID).
			Pluck("username", &sellerName).Error
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"product":         prod,
			"seller_username": sellerName,
		}})
	}
}

// getStock 查询剩余库存：先走 Redis 缓存，未命中回源 DB 并回填。
// Redis 不可用时直接读 DB，缓存只是读路径的加速。
func getStock(db *gorm.DB, rdb *rd.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "product_id")
		if !ok {
			return
		}

		if val, found, err := rediskey.GetCachedStock(c.Request.Context(), rdb, id); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"stock": val}})
			return
		}

		var prod model.Product
		if err := db.Select("id", "remaining_quantity").First(&prod, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "商品不存在"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "查询库存失败"})
			return
		}
		// 回填失败不影响本次响应
		_ = rediskey.CacheStock(c.Request.Context(), rdb, id, prod.RemainingQuantity, ttl)
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"stock": prod.RemainingQuantity}})
	}
}

// deleteProduct 删除自己的盲盒，并清掉库存缓存。
func deleteProduct(db *gorm.DB, rdb *rd.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.AuthUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "未登录"})
			return
		}
		id, ok := parseIDParam(c, "product_id")
		if !ok {
			return
		}
		if err := shop.DeleteBox(db, id, userID); err != nil {
			replyShopError(c, err)
			return
		}
		_ = rediskey.InvalidateStock(c.Request.Context(), rdb, id)
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"deleted_product_id": id}})
	}
}

// pagination 统一分页响应结构。
func pagination(page, limit int, total int64) gin.H {
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return gin.H{
		"current_page":   page,
		"total_items":    total,
		"items_per_page": limit,
		"total_pages":    totalPages,
	}
}
