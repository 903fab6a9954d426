package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamMessage — кадр WebSocket-ленты панели.
type StreamMessage struct {
	Type         string               `json:"type"` // "state", "notification"
	State        *domain.Snapshot     `json:"state,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

type StateFeed interface {
	Snapshot() domain.Snapshot
	Subscribe() (<-chan domain.Snapshot, func())
}

type NotificationFeed interface {
	Subscribe() (<-chan notify.Notification, func())
}

// StreamHandler отдаёт представлениям состояние панели и уведомления.
// Первым кадром всегда идёт текущее состояние.
type StreamHandler struct {
	state    StateFeed
	notes    NotificationFeed
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewStreamHandler(state StateFeed, notes NotificationFeed, allowedOrigins []string, logger *zap.Logger) *StreamHandler {
	h := &StreamHandler{
		state:  state,
		notes:  notes,
		logger: logger.Named("stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	// Пустой список — стандартная проверка gorilla (тот же хост)
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = originChecker(allowedOrigins)
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("origin", r.Header.Get("Origin")),
			zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("stream client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Подписываемся до первого кадра, чтобы не потерять изменения между ними
	states, unsubscribe := h.state.Subscribe()
	defer unsubscribe()

	var notes <-chan notify.Notification
	if h.notes != nil {
		ch, unsubscribeNotes := h.notes.Subscribe()
		defer unsubscribeNotes()
		notes = ch
	}

	go h.readLoop(conn, cancel)

	initial := h.state.Snapshot()
	if err := h.write(conn, StreamMessage{Type: "state", State: &initial}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-states:
			if !ok {
				// Оркестратор остановлен
				h.closeConn(conn, websocket.CloseGoingAway, "shutting down")
				return
			}
			if err := h.write(conn, StreamMessage{Type: "state", State: &snap}); err != nil {
				return
			}
		case n, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			if err := h.write(conn, StreamMessage{Type: "notification", Notification: &n}); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop нужен для обработки pong и close-кадров. Данные от клиента не ждём.
func (h *StreamHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("stream client read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, msg StreamMessage) error {
	msg.Timestamp = time.Now().UTC()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("stream write failed", zap.Error(err))
		return err
	}
	return nil
}

func (h *StreamHandler) closeConn(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
