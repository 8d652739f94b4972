package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// 令牌桶脚本：按毫秒补充令牌，返回 {是否放行, 剩余令牌}。
// 状态保存在 Redis Hash 中，两倍桶容量时长后自动过期。
const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

if rate <= 0 or burst <= 0 then
  return {1, burst}
end

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
tokens = math.min(burst, tokens + (delta * rate) / 1000.0)

local allowed = tokens >= 1
if allowed then
  tokens = tokens - 1
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, tokens}
`

// Limiter 是基于 Redis 的令牌桶限流器，按 key（如客户端 IP）独立计数。
//
// nil Limiter 或未配置速率时 Allow 恒为放行，调用方无需判空。
type Limiter struct {
	rdb       *redis.Client
	keyPrefix string
	rate      float64
	burst     float64
	script    *redis.Script
}

// New 创建限流器。rate 为每秒补充令牌数，burst 为桶容量。
func New(rdb *redis.Client, keyPrefix string, rate, burst float64) *Limiter {
	if keyPrefix == "" {
		keyPrefix = "taskhive:ratelimit:"
	}
	return &Limiter{
		rdb:       rdb,
		keyPrefix: keyPrefix,
		rate:      rate,
		burst:     burst,
		script:    redis.NewScript(tokenBucketLua),
	}
}

// Allow 尝试为 key 取得一个令牌。桶空时立即返回 false，不等待。
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.rdb == nil || l.rate <= 0 || l.burst <= 0 {
		return true, nil
	}

	now := time.Now().UnixMilli()
	res, err := l.script.Run(ctx, l.rdb, []string{l.keyPrefix + key}, l.rate, l.burst, now).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit eval: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 1 {
		return false, fmt.Errorf("ratelimit invalid result")
	}
	return toInt64(values[0]) == 1, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
