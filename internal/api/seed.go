package api

import (
	"context"
	"errors"

	"taskhive/internal/model"
	"taskhive/internal/pkg/password"

	"gorm.io/gorm"
)

// SeedDemoData 初始化演示账号与示例任务。
//
// 只在 app.seed_demo 打开时由 main 调用，重复执行是幂等的。
func (s *Server) SeedDemoData(ctx context.Context) error {
	const demoEmail = "demo@taskhive.dev"

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", demoEmail).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, hashErr := password.Hash("demo-password")
		if hashErr != nil {
			return hashErr
		}
		user = model.User{
			Email:        demoEmail,
			PasswordHash: hash,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	}

	var taskCount int64
	if err := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ?", user.ID).
		Count(&taskCount).Error; err != nil {
		return err
	}
	if taskCount > 0 {
		return nil
	}

	starter := []model.Task{
		{UserID: user.ID, Title: "Welcome to taskhive", Description: "This is your demo account.", Category: "intro"},
		{UserID: user.ID, Title: "Create your first task", Category: "intro"},
		{UserID: user.ID, Title: "Mark a task as completed", Category: "intro", IsCompleted: true},
	}
	return s.db.WithContext(ctx).Create(&starter).Error
}
