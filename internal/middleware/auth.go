package middleware

import (
	"net/http"
	"strings"

	"blind_box/internal/auth"

	"github.com/gin-gonic/gin"
)

// JWTAuth 校验 Authorization 头里的 Bearer token，
// 通过后把 user_id 放进 gin.Context 供后续 handler 使用。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "缺少 Authorization 头"})
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		userID, err := auth.ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "token 无效或已过期"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// AuthUserID 从上下文取出 JWTAuth 写入的用户 ID。
func AuthUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
