package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 表示系统用户。
//
// PasswordHash 只保存 bcrypt 摘要，任何响应和日志都不得携带。
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`                       // 用户 ID (UUID)
	Email        string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`  // 邮箱（唯一，统一小写）
	PasswordHash string    `gorm:"not null" json:"-"`                                    // bcrypt 哈希
	CreatedAt    time.Time `json:"created_at"`                                           // 创建时间

	Tasks []Task `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate 在插入前生成 UUID 主键。
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PublicUser 是返回给客户端的用户视图（不含密码哈希）。
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Public 返回用户的公开视图。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
