package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"cabinetquote/internal/ai"
)

// HistoryCache stores chat history in Redis so a conversation survives a
// service restart. It satisfies chat.HistoryStore.
type HistoryCache struct {
	client     *redisv9.Client
	historyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 7 * 24 * time.Hour
	}
	return &HistoryCache{
		client:     client,
		historyTTL: historyTTL,
	}
}

func (c *HistoryCache) Load(ctx context.Context, key string) ([]ai.ChatMessage, error) {
	raw, err := c.client.Get(ctx, c.historyKey(key)).Result()
	if errors.Is(err, redisv9.Nil) {
		return []ai.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []ai.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, nil
}

// Save replaces the stored history and refreshes its TTL.
func (c *HistoryCache) Save(ctx context.Context, key string, messages []ai.ChatMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(key), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.historyKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(key string) string {
	return fmt.Sprintf("quote:chat:history:%s", key)
}
