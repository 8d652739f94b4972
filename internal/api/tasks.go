package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taskhive/internal/api/middleware"
	"taskhive/internal/model"
	"taskhive/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// createTaskRequest 创建任务的请求参数。
type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// updateTaskRequest 部分更新的请求参数。
//
// 指针字段区分"未提供"与"提供了零值"；可更新列的集合就是
// 这四个字段，handler 逐一映射，不接受任意列名。
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	IsCompleted *bool   `json:"is_completed"`
}

// handleListTasks 返回当前用户的全部任务，按创建时间倒序。
//
// GET /api/tasks
func (s *Server) handleListTasks(c *gin.Context) {
	userID := middleware.UserID(c)

	tasks, err := s.taskStore.ListTasks(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("list tasks failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// handleGetTask 按 id 返回单个任务。
//
// 任务不存在和任务属于其他用户返回同样的 404，不泄露他人任务是否存在。
//
// GET /api/tasks/:id
func (s *Server) handleGetTask(c *gin.Context) {
	id := c.Param("id")
	userID := middleware.UserID(c)
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	task, err := s.taskStore.GetTask(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		s.logger.Error("get task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// handleCreateTask 创建归属当前用户的任务。
//
// POST /api/tasks
func (s *Server) handleCreateTask(c *gin.Context) {
	userID := middleware.UserID(c)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	task := model.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		IsCompleted: false,
	}
	if err := s.taskStore.CreateTask(c.Request.Context(), &task); err != nil {
		s.logger.Error("create task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	metrics.TasksCreatedTotal.Inc()
	c.JSON(http.StatusCreated, task)
}

// handleUpdateTask 对任务做部分更新。
//
// 只应用请求中出现的字段，updated_at 由服务端统一盖章。
//
// PUT /api/tasks/:id
func (s *Server) handleUpdateTask(c *gin.Context) {
	id := c.Param("id")
	userID := middleware.UserID(c)

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
			return
		}
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.IsCompleted != nil {
		updates["is_completed"] = *req.IsCompleted
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	task, err := s.taskStore.UpdateTask(c.Request.Context(), id, userID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		s.logger.Error("update task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// handleDeleteTask 删除任务并返回被删除的行。
//
// DELETE /api/tasks/:id
func (s *Server) handleDeleteTask(c *gin.Context) {
	id := c.Param("id")
	userID := middleware.UserID(c)
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	task, err := s.taskStore.DeleteTask(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		s.logger.Error("delete task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	metrics.TasksDeletedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully", "task": task})
}
