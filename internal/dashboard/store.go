// Package dashboard — оркестратор панели: единственный источник правды о том,
// что панель показывает сейчас и насколько это свежо.
//
// Store держит фильтры, снапшоты сущностей, флаг загрузки, время последнего
// обновления и выбор для drill-down. Обновление идёт веером по сущностям,
// упавшая сущность (если разрешено) подменяется образцом, новый цикл отменяет
// незавершённый. Таймер автообновления всегда один.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/history"
	"github.com/xela07ax/twinsecure-console/internal/notify"
)

var (
	ErrClosed          = errors.New("dashboard: store is closed")
	ErrCycleSuperseded = errors.New("dashboard: refresh cycle superseded by a newer one")
)

// Fetcher — фасад доступа к данным, по методу на сущность.
type Fetcher interface {
	SecurityMetrics(ctx context.Context) (*domain.SecurityMetrics, error)
	SystemHealth(ctx context.Context) (*domain.SystemHealth, error)
	AlertTrends(ctx context.Context, days int) ([]domain.AlertTrend, error)
	SeverityDistribution(ctx context.Context) ([]domain.AlertSeverityDistribution, error)
	AttackVectors(ctx context.Context, limit int) ([]domain.AttackVector, error)
	Attackers(ctx context.Context, limit int) ([]domain.Attacker, error)
	ComplianceStatus(ctx context.Context) (*domain.ComplianceStatus, error)
	DigitalTwinStatus(ctx context.Context) (*domain.DigitalTwinStatus, error)
	Alert(ctx context.Context, id string) (*domain.Alert, error)
}

// Fallback — локальные образцы на случай отказа сущности.
type Fallback interface {
	SecurityMetrics() *domain.SecurityMetrics
	SystemHealth() *domain.SystemHealth
	AlertTrends(days int) []domain.AlertTrend
	SeverityDistribution() []domain.AlertSeverityDistribution
	AttackVectors(limit int) []domain.AttackVector
	Attackers(limit int) []domain.Attacker
	ComplianceStatus() *domain.ComplianceStatus
	DigitalTwinStatus() *domain.DigitalTwinStatus
}

type Options struct {
	Fetcher Fetcher

	// UseFallbackSampleData разрешает подмену упавших сущностей образцами.
	// В продакшене выключено: упавшая сущность сохраняет прошлый снапшот.
	UseFallbackSampleData bool
	Fallback              Fallback

	Notifier notify.Notifier
	Recorder history.Recorder
	Metrics  *Metrics

	NewTicker TickerFunc
	Now       func() time.Time
	Logger    *zap.Logger

	AttackVectorLimit int
	AttackerLimit     int
}

type Store struct {
	fetcher     Fetcher
	useFallback bool
	fallback    Fallback
	notifier    notify.Notifier
	recorder    history.Recorder
	metrics     *Metrics
	newTicker   TickerFunc
	now         func() time.Time
	logger      *zap.Logger

	vectorLimit   int
	attackerLimit int

	// Состояние панели. Порядок захвата: cycleMu -> mu, timerMu -> mu.
	mu           sync.RWMutex
	filters      domain.DashboardFilters
	data         domain.DashboardData
	loading      bool
	armed        bool
	lastUpdated  *time.Time
	lastFailures []domain.Entity
	selection    domain.Selection

	// Текущий цикл обновления
	cycleMu     sync.Mutex
	seq         uint64
	cancelCycle context.CancelFunc

	// Единственный таймер автообновления
	timerMu    sync.Mutex
	ticker     Ticker
	tickerStop chan struct{}

	// Время жизни хранилища: Close отменяет всё, что ещё в полёте
	lifeCtx    context.Context
	lifeCancel context.CancelFunc
	wg         sync.WaitGroup
	closed     atomic.Bool

	subMu sync.Mutex
	subs  map[chan domain.Snapshot]struct{}
}

func NewStore(opts Options) (*Store, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("dashboard: fetcher is required")
	}
	if opts.UseFallbackSampleData && opts.Fallback == nil {
		return nil, errors.New("dashboard: fallback sample data enabled without a provider")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Recorder == nil {
		opts.Recorder = history.Nop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewRealTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AttackVectorLimit <= 0 {
		opts.AttackVectorLimit = 5
	}
	if opts.AttackerLimit <= 0 {
		opts.AttackerLimit = 5
	}

	lifeCtx, lifeCancel := context.WithCancel(context.Background())

	return &Store{
		fetcher:       opts.Fetcher,
		useFallback:   opts.UseFallbackSampleData,
		fallback:      opts.Fallback,
		notifier:      opts.Notifier,
		recorder:      opts.Recorder,
		metrics:       opts.Metrics,
		newTicker:     opts.NewTicker,
		now:           opts.Now,
		logger:        opts.Logger.With(zap.String("mod", "dashboard")),
		vectorLimit:   opts.AttackVectorLimit,
		attackerLimit: opts.AttackerLimit,
		filters:       domain.DefaultFilters(),
		lifeCtx:       lifeCtx,
		lifeCancel:    lifeCancel,
		subs:          make(map[chan domain.Snapshot]struct{}),
	}, nil
}

// Snapshot — копия состояния на момент чтения. Снапшоты сущностей неизменяемы
// и разделяются между копиями.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Filters:          s.filters.Clone(),
		Data:             s.data,
		Loading:          s.loading,
		AutoRefreshArmed: s.armed,
		Selection:        s.selection,
	}
	if s.lastUpdated != nil {
		t := *s.lastUpdated
		snap.LastUpdated = &t
	}
	if len(s.lastFailures) > 0 {
		snap.LastFailures = append([]domain.Entity(nil), s.lastFailures...)
	}
	return snap
}

func (s *Store) Filters() domain.DashboardFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

func (s *Store) Summary() domain.DashboardSummary {
	snap := s.Snapshot()
	return domain.NewSummary(snap.Data, snap.LastUpdated)
}

// SetFilters сливает частичное изменение с текущими фильтрами.
// Смена окна выборки запускает ровно одно обновление, смена интервала
// перевзводит таймер. Ошибка обновления возвращается вместе с новыми фильтрами.
func (s *Store) SetFilters(ctx context.Context, patch domain.FilterPatch) (domain.DashboardFilters, error) {
	if err := patch.Validate(); err != nil {
		return s.Filters(), err
	}
	if s.closed.Load() {
		return s.Filters(), ErrClosed
	}

	s.mu.Lock()
	next, rangeChanged, intervalChanged := s.filters.Apply(patch)
	s.filters = next
	s.mu.Unlock()

	s.logger.Info("filters updated",
		zap.String("time_range", string(next.TimeRange)),
		zap.Bool("range_changed", rangeChanged),
		zap.Bool("interval_changed", intervalChanged))

	if intervalChanged {
		s.syncTimer()
	}
	s.publish()

	if rangeChanged {
		return next.Clone(), s.Refresh(ctx)
	}
	return next.Clone(), nil
}

// Close — демонтаж: снимает таймер, отменяет цикл в полёте и ждёт фоновые
// горутины. После Close состояние больше не меняется.
func (s *Store) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.StopAutoRefresh()

	s.cycleMu.Lock()
	if s.cancelCycle != nil {
		s.cancelCycle()
	}
	s.cycleMu.Unlock()

	s.lifeCancel()
	s.wg.Wait()

	s.subMu.Lock()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.subMu.Unlock()

	s.logger.Info("dashboard store closed")
}
