package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStatus 定义了用户账户的生命周期状态。
type UserStatus string

const (
	StatusActive      UserStatus = "active"      // 账号正常
	StatusSuspended   UserStatus = "suspended"   // 账号被暂停
	StatusDeactivated UserStatus = "deactivated" // 账号已停用
)

// User 代表系统中的一个用户账户。
type User struct {
	gorm.Model

	Username    string     `gorm:"uniqueIndex;not null;size:150" json:"username"`
	Email       string     `gorm:"uniqueIndex;not null;size:254" json:"email"`
	FirstName   string     `gorm:"size:150" json:"first_name"`
	LastName    string     `gorm:"size:150" json:"last_name"`
	Password    string     `gorm:"size:255" json:"-"` // 存储哈希后的密码，json中忽略
	Status      UserStatus `gorm:"type:varchar(20);default:'active';not null" json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
