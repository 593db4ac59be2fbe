package ratelimit

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Alaeddine-Az/robotics-chatbot/internal/redisx"
)

// admitScript prunes the identity's sorted set to the trailing window,
// rejects at the limit, and records the request in one atomic round trip so
// concurrent processes cannot both take the last slot.
var admitScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// RedisWindow is a sliding-window limiter whose state lives in redis, shared
// across gateway processes. On redis failure it admits the request (fail
// open) and logs the error: losing rate limiting briefly is preferred over
// rejecting all traffic.
type RedisWindow struct {
	client *redisx.Client
	limit  int
	window time.Duration
	logger *zap.Logger

	now func() time.Time
	seq atomic.Int64
}

func NewRedisWindow(client *redisx.Client, limit int, window time.Duration, logger *zap.Logger) *RedisWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisWindow{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

func (w *RedisWindow) Admit(identity string) bool {
	raw := w.client.Raw()
	if raw == nil {
		return true
	}
	now := w.now()
	cutoff := now.Add(-w.window).UnixMilli()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatInt(w.seq.Add(1), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := admitScript.Run(ctx, raw,
		[]string{"ratelimit:" + identity},
		cutoff,
		w.limit,
		now.UnixMilli(),
		member,
		w.window.Milliseconds(),
	).Int()
	if err != nil {
		w.logger.Error("redis rate limit check failed", zap.String("identity", identity), zap.Error(err))
		return true
	}
	return res == 1
}
