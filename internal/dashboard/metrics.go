package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

type Metrics struct {
	// Latency: сколько занял цикл целиком (ограничен самой медленной сущностью)
	RefreshDuration prometheus.Histogram

	// Traffic: циклы по исходу — ok, degraded, superseded, canceled
	RefreshCycles *prometheus.CounterVec

	// Errors: отказы по сущностям и сколько раз подставлялись образцы
	EntityFailures *prometheus.CounterVec
	FallbacksUsed  *prometheus.CounterVec

	// 401 от API, токен стёрт
	Unauthorized prometheus.Counter

	// Saturation: взведён ли таймер автообновления (0/1)
	AutoRefreshArmed prometheus.Gauge

	// Состояние Circuit Breaker к API (0 - closed, 1 - half-open, 2 - open)
	CircuitBreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RefreshDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "twinsecure_console_refresh_duration_seconds",
			Help:    "Histogram of dashboard refresh cycle latencies.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),

		RefreshCycles: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "twinsecure_console_refresh_cycles_total",
			Help: "Total number of refresh cycles by outcome.",
		}, []string{"outcome"}),

		EntityFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "twinsecure_console_entity_failures_total",
			Help: "Total number of failed entity fetches.",
		}, []string{"entity"}),

		FallbacksUsed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "twinsecure_console_fallbacks_total",
			Help: "Total number of times sample data replaced a failed entity.",
		}, []string{"entity"}),

		Unauthorized: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "twinsecure_console_api_unauthorized_total",
			Help: "Total number of 401 responses from the upstream API.",
		}),

		AutoRefreshArmed: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "twinsecure_console_auto_refresh_armed",
			Help: "Whether the auto-refresh timer is armed (0/1).",
		}),

		CircuitBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "twinsecure_console_circuit_breaker_state",
			Help: "Upstream API circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}
}

// ObserveBreaker — хук для OnStateChange предохранителя API.
func (m *Metrics) ObserveBreaker(_, to gobreaker.State) {
	switch to {
	case gobreaker.StateClosed:
		m.CircuitBreakerState.Set(0)
	case gobreaker.StateHalfOpen:
		m.CircuitBreakerState.Set(1)
	case gobreaker.StateOpen:
		m.CircuitBreakerState.Set(2)
	}
}

const (
	outcomeOK         = "ok"
	outcomeDegraded   = "degraded"
	outcomeSuperseded = "superseded"
	outcomeCanceled   = "canceled"
)
