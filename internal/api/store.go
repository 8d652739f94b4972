package api

import (
	"context"
	"time"

	"taskhive/internal/model"

	"gorm.io/gorm"
)

// TaskStore 是任务处理器需要的存储能力。
//
// 所有按 id 的操作都同时要求 userID 匹配，存储层不提供
// 绕过归属过滤的访问路径。
type TaskStore interface {
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	GetTask(ctx context.Context, id, userID string) (*model.Task, error)
	CreateTask(ctx context.Context, task *model.Task) error
	UpdateTask(ctx context.Context, id, userID string, updates map[string]interface{}) (*model.Task, error)
	DeleteTask(ctx context.Context, id, userID string) (*model.Task, error)
}

// gormStore 基于 gorm 实现用户与任务存储。
type gormStore struct {
	db *gorm.DB
}

func newGormStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func (s *gormStore) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *gormStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	tasks := []model.Task{} // 保证 JSON 序列化为 [] 而不是 null
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *gormStore) GetTask(ctx context.Context, id, userID string) (*model.Task, error) {
	var task model.Task
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *gormStore) CreateTask(ctx context.Context, task *model.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

// UpdateTask 按字段列表做部分更新，并回读更新后的行。
// 没有匹配行时返回 gorm.ErrRecordNotFound。
func (s *gormStore) UpdateTask(ctx context.Context, id, userID string, updates map[string]interface{}) (*model.Task, error) {
	updates["updated_at"] = time.Now()

	res := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.GetTask(ctx, id, userID)
}

// DeleteTask 删除任务并返回删除前的行。
// 没有匹配行时返回 gorm.ErrRecordNotFound。
func (s *gormStore) DeleteTask(ctx context.Context, id, userID string) (*model.Task, error) {
	task, err := s.GetTask(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Task{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return task, nil
}
