package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher — часть *redis.Client, которая нужна нотификатору.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier публикует уведомление JSON-ом в канал панели,
// чтобы его получили все экземпляры консоли.
type RedisNotifier struct {
	rdb     Publisher
	channel string
	origin  string
}

// origin помечает сообщения этого экземпляра, чтобы ListenRedis их не дублировал.
func NewRedisNotifier(rdb Publisher, channel, origin string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel, origin: origin}
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	n.Origin = r.origin
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
