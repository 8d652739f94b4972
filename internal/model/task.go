package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task 表示一条待办任务。
//
// 每条任务归属唯一用户，所有读写都必须同时按 id 和 user_id 过滤，
// 单独的任务 id 永远不授予访问权。UserID 创建后不可变更。
type Task struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"` // 任务唯一标识
	CreatedAt time.Time `json:"created_at"`                     // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                     // 更新时间

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"` // 所属用户 ID
	User   User   `gorm:"foreignKey:UserID" json:"-"`              // 所属用户

	Title       string `gorm:"not null" json:"title"`             // 标题（必填，非空）
	Description string `json:"description"`                       // 描述（可选）
	Category    string `gorm:"type:varchar(64)" json:"category"`  // 分类（可选）
	IsCompleted bool   `gorm:"default:false" json:"is_completed"` // 是否已完成
}

// BeforeCreate 在插入前生成 UUID 主键。
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
