package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taskhive/internal/api/middleware"
	"taskhive/internal/model"
	"taskhive/internal/pkg/metrics"
	"taskhive/internal/pkg/password"
	"taskhive/internal/pkg/token"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserStore 是 Handler 需要的用户存储能力。
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
}

// Handler 提供注册、登录与当前用户查询接口。
type Handler struct {
	store  UserStore
	tokens *token.Service
	logger *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(store UserStore, tokens *token.Service, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// Register 创建新用户并签发令牌。
//
// 校验顺序：字段齐全 -> 密码长度 -> 邮箱未占用。邮箱统一转小写，
// 唯一性除读时检查外还有存储层唯一索引兜底（并发注册时靠它拿到 409）。
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.UserByEmail(ctx, email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists with this email"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Error("query user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	user := model.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists with this email"})
			return
		}
		h.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	tok, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	h.logger.Info("user registered", slog.String("email", email))
	c.JSON(http.StatusCreated, authResponse{Token: tok, User: user.Public()})
}

// Login 校验凭证并签发令牌。
//
// 用户不存在和密码错误返回完全相同的 401 文案，不暴露哪一项出错。
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.UserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Error("query user failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to login"})
			return
		}
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	tok, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to login"})
		return
	}

	h.logger.Info("user logged in", slog.String("email", email))
	c.JSON(http.StatusOK, authResponse{Token: tok, User: user.Public()})
}

// Me 返回当前认证用户的公开信息。
//
// 令牌有效但用户行已不存在时返回 404（中间件不回查用户表）。
func (h *Handler) Me(c *gin.Context) {
	userID := middleware.UserID(c)

	user, err := h.store.UserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("query user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	c.JSON(http.StatusOK, user.Public())
}
