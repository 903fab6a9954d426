package dashboard

import (
	"github.com/xela07ax/twinsecure-console/internal/domain"
)

// Subscribe возвращает ленту изменений состояния и функцию отписки.
// В канале всегда лежит только последний снапшот: медленный читатель
// пропускает промежуточные, но не тормозит оркестратор.
// После Close канал закрывается.
func (s *Store) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 1)

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.closed.Load() {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// publish рассылает текущий снапшот. Снапшот снимается под subMu,
// чтобы порядок доставки совпадал с порядком изменений.
func (s *Store) publish() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if len(s.subs) == 0 {
		return
	}
	snap := s.Snapshot()

	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// latest wins: выкидываем устаревший снапшот
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
