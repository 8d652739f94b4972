package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingJWTSecret 表示未配置签名密钥。
//
// 密钥没有默认值：配置文件和环境变量都未提供时启动必须失败，
// 不允许回落到内置默认密钥。
var ErrMissingJWTSecret = errors.New("config: security.jwt_secret is required (set JWT_SECRET)")

// Config 保存应用程序配置。
type Config struct {
	App      AppConfig      `json:"app"`
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	Security SecurityConfig `json:"security"`
}

// AppConfig 应用程序基础配置。
type AppConfig struct {
	Env       string  `json:"env"`        // 运行环境: local / prod
	LogLevel  string  `json:"log_level"`  // 日志级别: debug / info / warn / error
	HTTPAddr  string  `json:"http_addr"`  // API 服务监听地址
	RateLimit float64 `json:"rate_limit"` // 凭证接口限流速率（token/s，0 表示关闭）
	RateBurst float64 `json:"rate_burst"` // 限流桶容量
	SeedDemo  bool    `json:"seed_demo"`  // 是否初始化演示账号
}

// PostgresConfig PostgreSQL 数据库配置。
type PostgresConfig struct {
	DSN string `json:"dsn"` // 数据库连接字符串
}

// RedisConfig Redis 配置。地址为空时限流功能关闭。
type RedisConfig struct {
	Addr     string `json:"addr"`     // Redis 地址 (host:port)
	Password string `json:"password"` // Redis 密码
}

// SecurityConfig 安全相关配置。
type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"` // JWT 签名密钥（必填，无默认值）
	TokenTTL  time.Duration `json:"token_ttl"`  // 令牌有效期（如 "168h"）
}

// Load 从 JSON 文件加载配置。
//
// 配置文件不存在时使用默认值，环境变量始终优先覆盖。
// 签名密钥缺失时返回 ErrMissingJWTSecret。
//
// 参数:
//
//	configPath: 配置文件路径（为空则使用默认路径 "configs/config.json"）
//
// 返回值:
//
//	*Config: 加载完成的配置对象
//	error: 加载失败返回错误
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	cfg := getDefaultConfig()
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		applyDefaults(cfg)
	}

	applyEnvOverrides(cfg)

	if cfg.Security.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	return cfg, nil
}

// getDefaultConfig 返回默认配置。密钥故意留空。
func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:       "local",
			LogLevel:  "info",
			HTTPAddr:  ":3001",
			RateLimit: 0,
			RateBurst: 10,
			SeedDemo:  false,
		},
		Postgres: PostgresConfig{
			DSN: "host=localhost user=postgres password=postgres dbname=taskhive port=5432 sslmode=disable",
		},
		Redis: RedisConfig{
			Addr:     "",
			Password: "",
		},
		Security: SecurityConfig{
			JWTSecret: "",
			TokenTTL:  7 * 24 * time.Hour,
		},
	}
}

// applyDefaults 对未设置的字段应用默认值。
func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.RateBurst == 0 {
		cfg.App.RateBurst = defaults.App.RateBurst
	}
	if cfg.Postgres.DSN == "" {
		cfg.Postgres.DSN = defaults.Postgres.DSN
	}
	if cfg.Security.TokenTTL == 0 {
		cfg.Security.TokenTTL = defaults.Security.TokenTTL
	}
}

// applyEnvOverrides 应用环境变量覆盖，优先级高于配置文件。
func applyEnvOverrides(cfg *Config) {
	viper.AutomaticEnv()

	_ = viper.BindEnv("database_url", "DATABASE_URL")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("jwt_secret", "JWT_SECRET")

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("APP_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("APP_HTTP_ADDR"); v != "" {
		cfg.App.HTTPAddr = v
	}
	if v := os.Getenv("APP_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateLimit = f
		}
	}
	if v := os.Getenv("APP_RATE_BURST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateBurst = f
		}
	}
	if v := os.Getenv("APP_SEED_DEMO"); v != "" {
		cfg.App.SeedDemo = v == "true" || v == "1"
	}
	if v := os.Getenv("APP_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Security.TokenTTL = d
		}
	}

	if v := viper.GetString("database_url"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := viper.GetString("redis_addr"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := viper.GetString("redis_password"); v != "" {
		cfg.Redis.Password = v
	}
	if v := viper.GetString("jwt_secret"); v != "" {
		cfg.Security.JWTSecret = v
	}
}
