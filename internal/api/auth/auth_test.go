package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"taskhive/internal/api/middleware"
	"taskhive/internal/model"
	"taskhive/internal/pkg/metrics"
	"taskhive/internal/pkg/password"
	"taskhive/internal/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockUserStore struct {
	createFunc  func(ctx context.Context, user *model.User) error
	byEmailFunc func(ctx context.Context, email string) (*model.User, error)
	byIDFunc    func(ctx context.Context, id string) (*model.User, error)
	createCalls int
}

func (m *mockUserStore) CreateUser(ctx context.Context, user *model.User) error {
	m.createCalls++
	return m.createFunc(ctx, user)
}

func (m *mockUserStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.byEmailFunc(ctx, email)
}

func (m *mockUserStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	return m.byIDFunc(ctx, id)
}

func noUser(ctx context.Context, _ string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func newAuthRouter(t *testing.T, store *mockUserStore) (*gin.Engine, *token.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	tokens, err := token.NewService(token.Config{Secret: "test-secret"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(store, tokens, logger)

	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.GET("/api/auth/me", middleware.Auth(tokens), h.Me)
	return r, tokens
}

func TestRegisterMissingFields(t *testing.T) {
	store := &mockUserStore{byEmailFunc: noUser, byIDFunc: noUser}
	r, _ := newAuthRouter(t, store)

	for _, body := range []string{
		`{}`,
		`{"email":"a@b.com"}`,
		`{"password":"password123"}`,
		``,
	} {
		apitest.New().
			Handler(r).
			Post("/api/auth/register").
			JSON(body).
			Expect(t).
			Status(http.StatusBadRequest).
			Body(`{"error":"Email and password are required"}`).
			End()
	}
	assert.Zero(t, store.createCalls)
}

func TestRegisterShortPassword(t *testing.T) {
	store := &mockUserStore{byEmailFunc: noUser, byIDFunc: noUser}
	r, _ := newAuthRouter(t, store)

	apitest.New().
		Handler(r).
		Post("/api/auth/register").
		JSON(`{"email":"a@b.com","password":"12345"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"error":"Password must be at least 6 characters"}`).
		End()
	assert.Zero(t, store.createCalls)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	existing := &model.User{ID: "user-1", Email: "a@b.com"}
	store := &mockUserStore{
		byEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return existing, nil
		},
		byIDFunc: noUser,
	}
	r, _ := newAuthRouter(t, store)

	apitest.New().
		Handler(r).
		Post("/api/auth/register").
		JSON(`{"email":"a@b.com","password":"password123"}`).
		Expect(t).
		Status(http.StatusConflict).
		Body(`{"error":"User already exists with this email"}`).
		End()
	assert.Zero(t, store.createCalls)
}

func TestRegisterDuplicateKeyRace(t *testing.T) {
	// 并发注册时读检查通过但插入撞唯一索引，同样走 409。
	store := &mockUserStore{
		byEmailFunc: noUser,
		byIDFunc:    noUser,
		createFunc: func(ctx context.Context, user *model.User) error {
			return gorm.ErrDuplicatedKey
		},
	}
	r, _ := newAuthRouter(t, store)

	apitest.New().
		Handler(r).
		Post("/api/auth/register").
		JSON(`{"email":"a@b.com","password":"password123"}`).
		Expect(t).
		Status(http.StatusConflict).
		Body(`{"error":"User already exists with this email"}`).
		End()
	assert.Equal(t, 1, store.createCalls)
}

func TestRegisterSuccess(t *testing.T) {
	var created *model.User
	store := &mockUserStore{
		byEmailFunc: noUser,
		byIDFunc:    noUser,
		createFunc: func(ctx context.Context, user *model.User) error {
			user.ID = "user-123"
			user.CreatedAt = time.Now()
			created = user
			return nil
		},
	}
	r, tokens := newAuthRouter(t, store)

	var captured struct {
		Token string `json:"token"`
	}
	apitest.New().
		Handler(r).
		Post("/api/auth/register").
		JSON(`{"email":"A@B.com","password":"password123"}`).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Present("$.token")).
		Assert(jsonpath.Equal("$.user.id", "user-123")).
		Assert(jsonpath.Equal("$.user.email", "a@b.com")).
		Assert(jsonpath.NotPresent("$.user.password_hash")).
		End().
		JSON(&captured)

	require.NotNil(t, created)
	assert.Equal(t, "a@b.com", created.Email, "email is stored lowercased")
	assert.NotEqual(t, "password123", created.PasswordHash)
	assert.True(t, password.Verify("password123", created.PasswordHash))

	userID, err := tokens.Verify(captured.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestLoginMissingFields(t *testing.T) {
	store := &mockUserStore{byEmailFunc: noUser, byIDFunc: noUser}
	r, _ := newAuthRouter(t, store)

	apitest.New().
		Handler(r).
		Post("/api/auth/login").
		JSON(`{"email":"a@b.com"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"error":"Email and password are required"}`).
		End()
}

func TestLoginUnknownEmailAndWrongPasswordSameMessage(t *testing.T) {
	hash, err := password.Hash("correct-password")
	require.NoError(t, err)
	known := &model.User{ID: "user-1", Email: "a@b.com", PasswordHash: hash}

	store := &mockUserStore{
		byEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			if email == "a@b.com" {
				return known, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		byIDFunc: noUser,
	}
	r, _ := newAuthRouter(t, store)

	const wantBody = `{"error":"Invalid email or password"}`

	apitest.New().
		Handler(r).
		Post("/api/auth/login").
		JSON(`{"email":"nobody@b.com","password":"whatever123"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(wantBody).
		End()

	apitest.New().
		Handler(r).
		Post("/api/auth/login").
		JSON(`{"email":"a@b.com","password":"wrong-password"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(wantBody).
		End()
}

func TestLoginSuccess(t *testing.T) {
	hash, err := password.Hash("password123")
	require.NoError(t, err)
	known := &model.User{ID: "user-1", Email: "a@b.com", PasswordHash: hash, CreatedAt: time.Now()}

	store := &mockUserStore{
		byEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return known, nil
		},
		byIDFunc: noUser,
	}
	r, tokens := newAuthRouter(t, store)

	var captured struct {
		Token string `json:"token"`
	}
	apitest.New().
		Handler(r).
		Post("/api/auth/login").
		JSON(`{"email":"a@b.com","password":"password123"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.user.id", "user-1")).
		Assert(jsonpath.NotPresent("$.user.password_hash")).
		End().
		JSON(&captured)

	require.NotEmpty(t, captured.Token)
	userID, err := tokens.Verify(captured.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestMeWithoutToken(t *testing.T) {
	store := &mockUserStore{byEmailFunc: noUser, byIDFunc: noUser}
	r, _ := newAuthRouter(t, store)

	apitest.New().
		Handler(r).
		Get("/api/auth/me").
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"error":"No token provided"}`).
		End()
}

func TestMeDeletedUser(t *testing.T) {
	// 令牌仍然有效但用户行已删除
	store := &mockUserStore{byEmailFunc: noUser, byIDFunc: noUser}
	r, tokens := newAuthRouter(t, store)

	tok, err := tokens.Issue("user-gone")
	require.NoError(t, err)

	apitest.New().
		Handler(r).
		Get("/api/auth/me").
		Header("Authorization", "Bearer "+tok).
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"error":"User not found"}`).
		End()
}

func TestMeSuccess(t *testing.T) {
	known := &model.User{ID: "user-1", Email: "a@b.com", PasswordHash: "hash", CreatedAt: time.Now()}
	store := &mockUserStore{
		byEmailFunc: noUser,
		byIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return known, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
	}
	r, tokens := newAuthRouter(t, store)

	tok, err := tokens.Issue("user-1")
	require.NoError(t, err)

	apitest.New().
		Handler(r).
		Get("/api/auth/me").
		Header("Authorization", "Bearer "+tok).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.id", "user-1")).
		Assert(jsonpath.Equal("$.email", "a@b.com")).
		Assert(jsonpath.NotPresent("$.password_hash")).
		End()
}
