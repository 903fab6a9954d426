package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// BreakerSettings — параметры предохранителя для вышестоящего API.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration // через сколько CB попробует "закрыться"
	FailureThreshold uint32        // подряд идущих сбоев до размыкания
}

// guard ограничивает темп запросов и размыкает цепь при серии сбоев.
// Повторов здесь нет: упавшую сущность подменяет оркестратор.
type guard struct {
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func newGuard(limit rate.Limit, burst int, bs BreakerSettings, onState func(from, to gobreaker.State)) *guard {
	threshold := bs.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "twinsecure-api",
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Отмена запроса со стороны клиента не говорит о здоровье API
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if onState != nil {
				onState(from, to)
			}
		},
	})

	return &guard{
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// do выполняет запрос. 5xx и сетевые ошибки засчитываются предохранителю,
// остальные статусы возвращаются вызывающему как есть.
func (g *guard) do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	res, err := g.cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, statusError(resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*http.Response), nil
}

func (g *guard) state() gobreaker.State {
	return g.cb.State()
}

const maxErrorBody = 512

// statusError вычитывает начало тела для диагностики и закрывает его.
func statusError(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: string(body)}
}
