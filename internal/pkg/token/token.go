package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 表示令牌签名不匹配、结构非法或已过期。
var ErrInvalidToken = errors.New("invalid or expired token")

// DefaultTTL 是令牌的默认有效期。
const DefaultTTL = 7 * 24 * time.Hour

// Config 是 Token 服务的配置。Secret 必须显式提供，不允许默认值。
type Config struct {
	Secret string        // HS256 签名密钥
	TTL    time.Duration // 有效期，0 表示 DefaultTTL
}

// Service 负责签发与校验身份令牌。
//
// 令牌是自包含的 HS256 JWT，Subject 为用户 ID，过期时间为签发时间
// 加 TTL。服务端不保存令牌，过期是唯一的失效路径。
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService 创建 Token 服务。密钥为空返回错误。
func NewService(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{secret: []byte(cfg.Secret), ttl: ttl}, nil
}

// Issue 为指定用户签发令牌。
func (s *Service) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify 解析并校验令牌，返回其中的用户 ID。
//
// 签名不匹配、结构非法或已过期统一返回 ErrInvalidToken，
// 不区分具体原因。
func (s *Service) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
