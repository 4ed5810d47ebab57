package model

import (
	"time"

	"gorm.io/gorm"
)

// User 买家/卖家共用一张用户表，身份由具体操作决定。
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email    string `gorm:"size:128;uniqueIndex;not null" json:"email"`
	// Password 存 bcrypt 哈希，任何接口都不返回明文字段。
	Password string `gorm:"size:128;not null" json:"-"`
}

func (User) TableName() string { return "users" }
