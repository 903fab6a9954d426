package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ListenRedis переносит в sink уведомления, опубликованные другими
// экземплярами консоли. Переподключается, пока не отменён ctx.
func ListenRedis(ctx context.Context, rdb *redis.Client, channel, self string, sink Notifier, logger *zap.Logger) {
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !pause(ctx, 5*time.Second) {
				return
			}
			continue
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				n, ok := decodeRemote(msg.Payload, self, logger)
				if !ok {
					continue
				}
				if err := sink.Notify(ctx, n); err != nil {
					logger.Warn("remote notification dropped", zap.String("id", n.ID.String()), zap.Error(err))
				}
			}
		}

		pubsub.Close()
		if !pause(ctx, time.Second) {
			return
		}
	}
}

// decodeRemote разбирает сообщение канала. Свои и битые сообщения отбрасываются.
func decodeRemote(payload, self string, logger *zap.Logger) (Notification, bool) {
	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		logger.Error("invalid notification payload", zap.String("payload", payload), zap.Error(err))
		return Notification{}, false
	}
	if n.Origin == self {
		return Notification{}, false
	}
	return n, true
}

func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
