// Package notify доставляет агрегированные уведомления панели (toast):
// в лог, в Redis Pub/Sub и подписчикам внутри процесса.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

type Kind string

const (
	KindRefreshFailed Kind = "refresh_failed"
	KindAuthRequired  Kind = "auth_required"
)

// Notification — одно уведомление на цикл обновления, не на сущность.
type Notification struct {
	ID       uuid.UUID       `json:"id"`
	Kind     Kind            `json:"kind"`
	Message  string          `json:"message"`
	Entities []domain.Entity `json:"entities,omitempty"`
	At       time.Time       `json:"at"`

	// Origin — экземпляр консоли, опубликовавший уведомление в Redis
	Origin string `json:"origin,omitempty"`
}

func New(kind Kind, message string, entities []domain.Entity, at time.Time) Notification {
	return Notification{
		ID:       uuid.New(),
		Kind:     kind,
		Message:  message,
		Entities: append([]domain.Entity(nil), entities...),
		At:       at,
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Nop — когда уведомления не нужны (snapshot-команда, тесты).
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }

// Multi рассылает уведомление всем получателям и собирает ошибки.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range m {
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
