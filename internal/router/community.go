package router

import (
	"log"
	"net/http"
	"strings"

	"blind_box/internal/middleware"
	"blind_box/internal/model"
	rediskey "blind_box/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// postRow 帖子列表带上发帖人用户名。
type postRow struct {
	model.CommunityPost
	Username string `json:"username"`
}

// listPosts 社区帖子分页列表。
func listPosts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := pageParams(c)

		q := db.Model(&model.CommunityPost{}).
			Select("community_posts.*, users.username AS username").
			Joins("JOIN users ON users.id = community_posts.user_id")

		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取帖子列表失败"})
			return
		}

		var rows []postRow
		if err := q.Order("community_posts.created_at DESC").
			Limit(limit).Offset(offset).Scan(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取帖子列表失败"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"posts":      rows,
			"pagination": pagination(page, limit, total),
		}})
	}
}

// createPost 发帖，图片可选。
func createPost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.AuthUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "未登录"})
			return
		}

		var req struct {
			Content  string `json:"content" binding:"required"`
			ImageURL string `json:"image_url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "内容是必填的"})
			return
		}

		post := &model.CommunityPost{
			UserID:   userID,
			Content:  strings.TrimSpace(req.Content),
			ImageURL: strings.TrimSpace(req.ImageURL),
		}
		if err := db.Create(post).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "创建帖子失败"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": 0, "data": gin.H{"post_id": post.ID}})
	}
}

// recentRewards 社区“最新抽中”滚动条，数据来自 Kafka 消费者维护的 Redis 列表。
// Redis 不可用时降级为空列表，展示性数据不值得报 500。
func recentRewards(rdb *rd.Client, feedSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := rediskey.RecentRewards(c.Request.Context(), rdb, feedSize)
		if err != nil {
			log.Printf("recent rewards: %v", err)
			entries = nil
		}
		if entries == nil {
			entries = []rediskey.RewardEntry{}
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": entries})
	}
}
