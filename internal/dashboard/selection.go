package dashboard

import (
	"context"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

// Выбор для drill-down: чистые сеттеры без загрузки данных, nil сбрасывает.

func (s *Store) SelectAlert(a *domain.Alert) {
	if a != nil {
		v := *a
		a = &v
	}
	s.mu.Lock()
	s.selection.Alert = a
	s.mu.Unlock()
	s.publish()
}

func (s *Store) SelectAttacker(a *domain.Attacker) {
	if a != nil {
		v := *a
		a = &v
	}
	s.mu.Lock()
	s.selection.Attacker = a
	s.mu.Unlock()
	s.publish()
}

func (s *Store) SelectAttackVector(v *domain.AttackVector) {
	if v != nil {
		c := *v
		v = &c
	}
	s.mu.Lock()
	s.selection.AttackVector = v
	s.mu.Unlock()
	s.publish()
}

// SelectAlertByID загружает карточку алерта и делает её выбранной.
// При ошибке выбор не меняется.
func (s *Store) SelectAlertByID(ctx context.Context, id string) (*domain.Alert, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	alert, err := s.fetcher.Alert(ctx, id)
	if err != nil {
		return nil, err
	}
	s.SelectAlert(alert)
	return alert, nil
}
