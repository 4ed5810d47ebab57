package router

import (
	"errors"
	"net/http"
	"strings"

	"blind_box/internal/auth"
	"blind_box/internal/config"
	"blind_box/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// register 用户注册：密码 bcrypt 入库，用户名/邮箱唯一。
func register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "所有字段都是必填的，密码至少 6 位"})
			return
		}

		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "注册失败"})
			return
		}
		u := &model.User{
			Username: strings.TrimSpace(req.Username),
			Email:    strings.TrimSpace(req.Email),
			Password: hashed,
		}
		if err := db.Create(u).Error; err != nil {
			if looksLikeUnique(err) {
				c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "用户名或邮箱已被使用"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "注册失败"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": 0, "data": gin.H{"user_id": u.ID}})
	}
}

// login 校验密码并签发 JWT。
func login(db *gorm.DB, cfg config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "用户名和密码都是必填的"})
			return
		}

		var u model.User
		if err := db.Where("username = ?", req.Username).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 用户不存在与密码错误同文案，不泄露账号是否存在
				c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "用户名或密码不正确"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "登录失败"})
			return
		}
		if !auth.CheckPassword(u.Password, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "用户名或密码不正确"})
			return
		}

		token, err := auth.IssueToken(cfg.JWTSecret, u.ID, cfg.JWTExpiry)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "登录失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"token": token, "user": u}})
	}
}

// getUser 查询用户公开信息。
func getUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "user_id")
		if !ok {
			return
		}
		var u model.User
		if err := db.Select("id", "username", "email", "created_at").First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "用户不存在"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取用户信息失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": u})
	}
}
