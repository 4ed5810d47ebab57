package router

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"blind_box/internal/config"
	"blind_box/internal/middleware"
	"blind_box/internal/queue"
	"blind_box/internal/shop"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, db *gorm.DB, rdb *rd.Client, pub queue.Publisher, cfg config.AppConfig) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})
	// 上传目录直接静态托管
	r.Static("/uploads", cfg.UploadDir)

	authed := middleware.JWTAuth(cfg.JWTSecret)

	// Users
	r.POST("/api/register", register(db))
	r.POST("/api/login", login(db, cfg))
	r.GET("/api/user/:user_id", getUser(db))
	r.GET("/api/user/:user_id/products", listUserProducts(db))
	r.GET("/api/user/:user_id/orders", listUserOrders(db))

	// Products
	r.POST("/api/products", authed, createProduct(db))
	r.GET("/api/products", listProducts(db))
	r.GET("/api/products/:product_id", getProduct(db))
	r.GET("/api/products/:product_id/details", getProductDetails(db))
	r.GET("/api/products/:product_id/stock", getStock(db, rdb, cfg.StockCacheTTL))
	r.DELETE("/api/products/:product_id", authed, deleteProduct(db, rdb))

	// Purchase（核心链路，带限流）
	r.POST("/api/orders", authed,
		middleware.RedisRateLimit(rdb, cfg.BuyRateLimit, cfg.BuyRateWindow),
		purchase(db, rdb, pub))

	// Community
	r.GET("/api/community/posts", listPosts(db))
	r.POST("/api/community/posts", authed, createPost(db))
	r.GET("/api/community/rewards", recentRewards(rdb, cfg.RewardFeedSize))

	// Images
	r.POST("/api/upload", authed, uploadImage(cfg))
	r.DELETE("/api/upload/:filename", authed, deleteImage(cfg))
	r.GET("/api/images", listImages(cfg))
}

// replyShopError 把错误分类映射成 HTTP 状态与对外文案。
// 分类之外的错误按存储层故障处理：记日志、回通用提示，不带内部细节。
func replyShopError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shop.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": shopErrMsg(err, shop.ErrInvalidRequest)})
	case errors.Is(err, shop.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": shopErrMsg(err, shop.ErrNotFound)})
	case errors.Is(err, shop.ErrOutOfStock):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": shopErrMsg(err, shop.ErrOutOfStock)})
	case errors.Is(err, shop.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "抢购人数过多，请稍后重试"})
	default:
		log.Printf("storage failure: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "服务器错误"})
	}
}

// shopErrMsg 去掉分类前缀，只留给用户看的那半句。
func shopErrMsg(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// parseIDParam 解析路径里的十进制数字 ID。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": name + " 无效"})
		return 0, false
	}
	return uint(id), true
}

// pageParams 解析 page/limit，默认 1/20。
func pageParams(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

// looksLikeUnique 识别 sqlite 唯一约束冲突。
func looksLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
