package dashboard

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// StartAutoRefresh взводит таймер с текущим интервалом из фильтров.
// Повторный вызов второго таймера не создаёт. Возвращает, взведён ли таймер:
// без интервала автообновлять нечего.
func (s *Store) StartAutoRefresh() bool {
	s.timerMu.Lock()
	if s.closed.Load() {
		s.timerMu.Unlock()
		return false
	}
	if s.ticker != nil {
		s.timerMu.Unlock()
		return true
	}

	every, ok := s.Filters().RefreshEvery()
	if ok {
		s.armLocked(every)
	}
	s.timerMu.Unlock()

	if ok {
		s.publish()
	}
	return ok
}

// StopAutoRefresh снимает таймер. На снятом таймере ничего не делает.
// Возвращает, был ли таймер взведён.
func (s *Store) StopAutoRefresh() bool {
	s.timerMu.Lock()
	disarmed := s.disarmLocked()
	s.timerMu.Unlock()

	if disarmed {
		s.publish()
	}
	return disarmed
}

// syncTimer приводит таймер к интервалу из фильтров: старый снимается всегда,
// новый взводится, если интервал задан. Чтение фильтров под timerMu гарантирует,
// что после гонки двух SetFilters таймер соответствует последним фильтрам.
func (s *Store) syncTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	s.disarmLocked()
	if s.closed.Load() {
		return
	}
	if every, ok := s.Filters().RefreshEvery(); ok {
		s.armLocked(every)
	}
}

func (s *Store) armLocked(every time.Duration) {
	t := s.newTicker(every)
	stop := make(chan struct{})
	s.ticker, s.tickerStop = t, stop
	s.setArmed(true)

	s.wg.Add(1)
	go s.tickLoop(t, stop)

	s.logger.Info("auto-refresh armed", zap.Duration("every", every))
}

func (s *Store) disarmLocked() bool {
	if s.ticker == nil {
		return false
	}
	s.ticker.Stop()
	close(s.tickerStop)
	s.ticker, s.tickerStop = nil, nil
	s.setArmed(false)

	s.logger.Info("auto-refresh disarmed")
	return true
}

func (s *Store) setArmed(armed bool) {
	s.mu.Lock()
	s.armed = armed
	s.mu.Unlock()

	if armed {
		s.metrics.AutoRefreshArmed.Set(1)
	} else {
		s.metrics.AutoRefreshArmed.Set(0)
	}
}

func (s *Store) tickLoop(t Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-stop:
			return
		case <-s.lifeCtx.Done():
			return
		case <-t.C():
			// Тик мог прийти одновременно со снятием таймера
			select {
			case <-stop:
				return
			default:
			}

			err := s.Refresh(s.lifeCtx)
			if err != nil && !errors.Is(err, ErrCycleSuperseded) && !errors.Is(err, ErrClosed) {
				s.logger.Warn("auto-refresh cycle failed", zap.Error(err))
			}
		}
	}
}
