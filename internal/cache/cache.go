package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aihub/pdfqa-go/internal/logger"
)

// AnswerCache 问答结果缓存
// 缓存失效或不可达时调用方直接走完整检索流水线，不影响正确性
type AnswerCache interface {
	Get(ctx context.Context, sessionID, documentID, question string) (string, bool)
	Set(ctx context.Context, sessionID, documentID, question, answer string)
	Close() error
}

// redisAnswerCache go-redis实现
type redisAnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAnswerCache 创建Redis答案缓存
func NewRedisAnswerCache(addr string, db int, ttl time.Duration) AnswerCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisAnswerCache{
		client: client,
		ttl:    ttl,
	}
}

// answerKey 会话、文档和问题共同决定缓存键，换文档后旧答案自然失效
func answerKey(sessionID, documentID, question string) string {
	sum := sha256.Sum256([]byte(sessionID + "|" + documentID + "|" + question))
	return "pdfqa:answer:" + hex.EncodeToString(sum[:])
}

func (c *redisAnswerCache) Get(ctx context.Context, sessionID, documentID, question string) (string, bool) {
	value, err := c.client.Get(ctx, answerKey(sessionID, documentID, question)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("answer cache read failed", zap.Error(err))
		}
		return "", false
	}
	return value, true
}

func (c *redisAnswerCache) Set(ctx context.Context, sessionID, documentID, question, answer string) {
	if err := c.client.Set(ctx, answerKey(sessionID, documentID, question), answer, c.ttl).Err(); err != nil {
		logger.Warn("answer cache write failed", zap.Error(err))
	}
}

func (c *redisAnswerCache) Close() error {
	return c.client.Close()
}

// noopAnswerCache 缓存未启用时的空实现
type noopAnswerCache struct{}

// NewNoopAnswerCache 创建空缓存
func NewNoopAnswerCache() AnswerCache {
	return noopAnswerCache{}
}

func (noopAnswerCache) Get(ctx context.Context, sessionID, documentID, question string) (string, bool) {
	return "", false
}

func (noopAnswerCache) Set(ctx context.Context, sessionID, documentID, question, answer string) {}

func (noopAnswerCache) Close() error { return nil }
