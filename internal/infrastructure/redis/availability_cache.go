package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCache は出発日程の残席数キャッシュを管理する
// ここに入る値は表示用の参考値であり、予約可否の判定には一切使われない
// （予約可否はPostgres側のアトミックなUPDATEが書き込み時点で再検査する）
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetRemaining は出発日程の残席数をキャッシュから取得する
func (c *AvailabilityCache) GetRemaining(ctx context.Context, departureID string) (int, error) {
	key := c.remainingKey(departureID)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetRemaining は出発日程の残席数をキャッシュに保存する
func (c *AvailabilityCache) SetRemaining(ctx context.Context, departureID string, remaining int, ttl time.Duration) error {
	key := c.remainingKey(departureID)
	if err := c.client.Set(ctx, key, remaining, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は出発日程の残席キャッシュを無効化する
// 台帳の確定した変更ごとに呼ばれる
func (c *AvailabilityCache) Invalidate(ctx context.Context, departureID string) error {
	key := c.remainingKey(departureID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) remainingKey(departureID string) string {
	return fmt.Sprintf("departures:remaining:%s", departureID)
}
