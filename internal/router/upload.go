package router

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"blind_box/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 允许的图片扩展名，与托管目录里的列表过滤保持一致。
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".webp": true, ".bmp": true,
}

// uploadImage 图片上传：限制大小与类型，落盘用不可猜测的文件名。
func uploadImage(cfg config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "没有上传文件"})
			return
		}
		if file.Size > cfg.UploadMaxSize {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "文件超过大小限制"})
			return
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		contentType := file.Header.Get("Content-Type")
		if !imageExts[ext] || !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "只允许上传图片文件"})
			return
		}

		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "图片上传失败"})
			return
		}
		filename := fmt.Sprintf("product-%s%s", uuid.NewString(), ext)
		if err := c.SaveUploadedFile(file, filepath.Join(cfg.UploadDir, filename)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "图片上传失败"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"image_url": "/uploads/" + filename,
			"filename":  filename,
		}})
	}
}

// deleteImage 删除上传的图片。文件名做白名单式校验，拒绝路径穿越。
func deleteImage(cfg config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename := c.Param("filename")
		if filename == "" || filename != filepath.Base(filename) ||
			strings.HasPrefix(filename, ".") || !imageExts[strings.ToLower(filepath.Ext(filename))] {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "文件名无效"})
			return
		}
		if err := os.Remove(filepath.Join(cfg.UploadDir, filename)); err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "图片不存在"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "删除图片失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "图片删除成功"})
	}
}

// listImages 列出上传目录里的全部图片。
func listImages(cfg config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := os.ReadDir(cfg.UploadDir)
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusOK, gin.H{"code": 0, "data": []gin.H{}})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "获取图片列表失败"})
			return
		}

		images := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			images = append(images, gin.H{
				"filename": e.Name(),
				"url":      "/uploads/" + e.Name(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": images})
	}
}
