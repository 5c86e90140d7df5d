package model

import (
	"strings"
	"time"
)

// User 由账号服务维护，私信模块只读；is_delete 的用户视为不存在
type User struct {
	ID        uint64  `gorm:"primaryKey"`
	Username  *string `gorm:"type:varchar(50);uniqueIndex:idx_username"`
	IsBan     bool    `gorm:"type:tinyint(1);default:0"`
	IsDelete  bool    `gorm:"type:tinyint(1);default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserDetail UserDetail `gorm:"foreignKey:UserID;references:ID"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) UsernameOrEmpty() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// DisplayName 昵称为空时回退到用户名
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.UserDetail.Nickname); name != "" {
		return name
	}
	return u.UsernameOrEmpty()
}
