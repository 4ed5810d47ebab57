package model

import (
	"time"

	"gorm.io/gorm"
)

// CommunityPost 社区晒单帖子。
type CommunityPost struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID   uint   `gorm:"not null;index" json:"user_id"`
	Content  string `gorm:"size:2048;not null" json:"content"`
	ImageURL string `gorm:"size:256" json:"image_url"`
}

func (CommunityPost) TableName() string { return "community_posts" }
