package notify

import (
	"context"
	"sync"
)

// Hub раздаёт уведомления подписчикам внутри процесса (WebSocket-сессиям).
// Медленный подписчик теряет уведомления, отправитель не блокируется.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Notification]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[chan Notification]struct{}),
		buffer: buffer,
	}
}

func (h *Hub) Notify(_ context.Context, n Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

// Subscribe возвращает канал уведомлений и функцию отписки.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
