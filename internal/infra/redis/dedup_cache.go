package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jinford/jobmatch/internal/core/ingestion"
)

// seenKeyPrefix は既知 content_hash キーのプレフィックス
const seenKeyPrefix = "jobmatch:seen:"

// DefaultSeenTTL は既知ハッシュの保持期間
const DefaultSeenTTL = 30 * 24 * time.Hour

// NewClient は redisURL を解釈して接続を検証したクライアントを返す
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// DedupCache は core/ingestion.SeenCache を実装する Redis キャッシュ。
// 判定はヒント扱いで、一意性の最終保証はデータベース側の制約が担う
type DedupCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ingestion.SeenCache = (*DedupCache)(nil)

// NewDedupCache は新しい DedupCache を作成する
// ttl が 0 以下の場合はデフォルトの保持期間を使う
func NewDedupCache(client *redis.Client, ttl time.Duration) *DedupCache {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return &DedupCache{client: client, ttl: ttl}
}

// Seen は content_hash が既知かどうかを返す
func (c *DedupCache) Seen(ctx context.Context, hash string) (bool, error) {
	err := c.client.Get(ctx, seenKeyPrefix+hash).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check seen hash: %w", err)
	}
	return true, nil
}

// Mark は content_hash を既知として登録する
func (c *DedupCache) Mark(ctx context.Context, hash string) error {
	if err := c.client.Set(ctx, seenKeyPrefix+hash, "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark seen hash: %w", err)
	}
	return nil
}
