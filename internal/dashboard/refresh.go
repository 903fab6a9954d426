package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xela07ax/twinsecure-console/internal/api"
	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/history"
	"github.com/xela07ax/twinsecure-console/internal/notify"
)

// entityJob связывает сущность с тем, как её получить, чем подменить
// и как перенести в состояние панели.
type entityJob struct {
	entity   domain.Entity
	fetch    func(ctx context.Context, d *domain.DashboardData) error
	fallback func(d *domain.DashboardData)
	take     func(dst, src *domain.DashboardData)
}

func (s *Store) jobs(days int) []entityJob {
	return []entityJob{
		{
			entity: domain.EntitySecurityMetrics,
			fetch: func(ctx context.Context, d *domain.DashboardData) (err error) {
				d.SecurityMetrics, err = s.fetcher.SecurityMetrics(ctx)
				return err
			},
			fallback: func(d *domain.DashboardData) { d.SecurityMetrics = s.fallback.SecurityMetrics() },
			take:     func(dst, src *domain.DashboardData) { dst.SecurityMetrics = src.SecurityMetrics },
		},
		{
			entity: domain.EntitySystemHealth,
			fetch: func(ctx context.Context, d *domain.DashboardData) (err error) {
				d.SystemHealth, err = s.fetcher.SystemHealth(ctx)
				return err
			},
			fallback: func(d *domain.DashboardData) { d.SystemHealth = s.fallback.SystemHealth() },
			take:     func(dst, src *domain.DashboardData) { dst.SystemHealth = src.SystemHealth },
		},
		{
			entity: domain.EntityAlertTrends,
			fetch: func(ctx context.Context, d *domain.DashboardData) (err error) {
				d.AlertTrends, err = s.fetcher.AlertTrends(ctx, days)
				return err
			},
			fallback: func(d *domain.DashboardData) { d.AlertTrends = s.fallback.AlertTrends(days) },
			take:     func(dst, src *domain.DashboardData) { dst.AlertTrends = src.AlertTrends },
		},
		{
			entity: domain.EntitySeverityDistribution,
			fetch: func(ctx context.Context, d *domain.DashboardData) (err error) {
				d.SeverityDistribution, err = s.fetcher.SeverityDistribution(ctx)
				return err
			},
			fallback: func(d *domain.DashboardData) { d.SeverityDistribution = s.fallback.SeverityDistribution() },
			take:     func(dst, src *domain.DashboardData) { dst.SeverityDistribution = src.SeverityDistribution },
		},
		{
			entity: domain.EntityAttackVectors,
			fetch: func(ctx context.Context, d *domain.DashboardData) (err error) {
				d.AttackVectors, err = s.fetcher.AttackVectors(ctx, s.vectorLimit)
				return err
			},
			fallback: func(d *domain.DashboardData) { d.AttackVectors = s.fallback.AttackVectors(s.vectorLimit) },
			take:     func(dst, src *domain.DashboardData) { dst.AttackVectors = src.AttackVectors },
		},
		{
			entity: domain.EntityAttackers,
			fetch: func(ctx context.Context, d *domain.DashboardData) (err error) {
				d.Attackers, err = s.fetcher.Attackers(ctx, s.attackerLimit)
				return err
			},
			fallback: func(d *domain.DashboardData) { d.Attackers = s.fallback.Attackers(s.attackerLimit) },
			take:     func(dst, src *domain.DashboardData) { dst.Attackers = src.Attackers },
		},
		{
			entity: domain.EntityComplianceStatus,
			fetch: func(ctx context.Context, d *domain.DashboardData) (err error) {
				d.ComplianceStatus, err = s.fetcher.ComplianceStatus(ctx)
				return err
			},
			fallback: func(d *domain.DashboardData) { d.ComplianceStatus = s.fallback.ComplianceStatus() },
			take:     func(dst, src *domain.DashboardData) { dst.ComplianceStatus = src.ComplianceStatus },
		},
		{
			entity: domain.EntityDigitalTwinStatus,
			fetch: func(ctx context.Context, d *domain.DashboardData) (err error) {
				d.DigitalTwinStatus, err = s.fetcher.DigitalTwinStatus(ctx)
				return err
			},
			fallback: func(d *domain.DashboardData) { d.DigitalTwinStatus = s.fallback.DigitalTwinStatus() },
			take:     func(dst, src *domain.DashboardData) { dst.DigitalTwinStatus = src.DigitalTwinStatus },
		},
	}
}

// Refresh — один полный цикл обновления: по горутине на сущность, ожидание
// всех, подмена упавших, отметка lastUpdated и одно сводное уведомление.
//
// Новый цикл отменяет незавершённый; отменённый цикл возвращает
// ErrCycleSuperseded и состояние не трогает.
func (s *Store) Refresh(ctx context.Context) error {
	cycleCtx, seq, done, err := s.beginCycle(ctx)
	if err != nil {
		return err
	}
	defer done()

	started := s.now()

	s.mu.Lock()
	s.loading = true
	filters := s.filters.Clone()
	s.mu.Unlock()
	s.publish()

	days := domain.LookbackDays(filters)
	jobs := s.jobs(days)

	var fresh domain.DashboardData
	errs := make([]error, len(jobs))

	// Каждая горутина пишет только своё поле fresh и свой слот errs
	var g errgroup.Group
	for i, job := range jobs {
		g.Go(func() error {
			errs[i] = s.fetchEntity(cycleCtx, job, &fresh)
			return nil
		})
	}
	_ = g.Wait()

	return s.finishCycle(ctx, cycleCtx, seq, cycleInput{
		started: started,
		filters: filters,
		days:    days,
		jobs:    jobs,
		fresh:   &fresh,
		errs:    errs,
	})
}

func (s *Store) beginCycle(ctx context.Context) (context.Context, uint64, func(), error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if s.closed.Load() {
		return nil, 0, nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, nil, err
	}

	// cancel-and-restart: результаты старого цикла уже не нужны
	if s.cancelCycle != nil {
		s.cancelCycle()
	}

	s.seq++
	seq := s.seq

	cycleCtx, cancel := context.WithCancel(s.lifeCtx)
	stop := context.AfterFunc(ctx, cancel)
	s.cancelCycle = cancel
	s.wg.Add(1)

	return cycleCtx, seq, func() {
		stop()
		cancel()
		s.wg.Done()
	}, nil
}

func (s *Store) fetchEntity(ctx context.Context, job entityJob, d *domain.DashboardData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return job.fetch(ctx, d)
}

type cycleInput struct {
	started time.Time
	filters domain.DashboardFilters
	days    int
	jobs    []entityJob
	fresh   *domain.DashboardData
	errs    []error
}

type cycleResult struct {
	finished     time.Time
	failed       []domain.Entity
	causes       []error
	usedFallback bool
	authFailed   bool
}

func (s *Store) finishCycle(ctx, cycleCtx context.Context, seq uint64, in cycleInput) error {
	s.cycleMu.Lock()
	switch {
	case s.closed.Load():
		s.cycleMu.Unlock()
		s.metrics.RefreshCycles.WithLabelValues(outcomeCanceled).Inc()
		return ErrClosed

	case seq != s.seq:
		s.cycleMu.Unlock()
		s.metrics.RefreshCycles.WithLabelValues(outcomeSuperseded).Inc()
		s.logger.Debug("refresh cycle superseded", zap.Uint64("seq", seq))
		return ErrCycleSuperseded

	case cycleCtx.Err() != nil:
		// Вызвавший ушёл раньше, чем цикл завершился: ничего не применяем
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.cancelCycle = nil
		s.cycleMu.Unlock()

		s.metrics.RefreshCycles.WithLabelValues(outcomeCanceled).Inc()
		s.publish()
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	}

	res := s.applyLocked(in)
	s.cancelCycle = nil
	s.cycleMu.Unlock()

	s.publish()
	s.report(seq, in, res)
	return nil
}

// applyLocked переносит результаты цикла в состояние. Вызывается под cycleMu.
func (s *Store) applyLocked(in cycleInput) cycleResult {
	var res cycleResult

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, job := range in.jobs {
		err := in.errs[i]
		if err == nil {
			job.take(&s.data, in.fresh)
			continue
		}

		res.failed = append(res.failed, job.entity)
		res.causes = append(res.causes, err)
		if api.IsUnauthorized(err) {
			res.authFailed = true
		}
		// Без подмены сущность сохраняет прошлый снапшот
		if s.useFallback {
			job.fallback(&s.data)
			res.usedFallback = true
		}
	}

	// lastUpdated ставится всегда, даже если часть сущностей упала
	res.finished = s.now()
	finished := res.finished
	s.lastUpdated = &finished
	s.lastFailures = res.failed
	s.loading = false

	return res
}

// report — побочные эффекты завершённого цикла: метрики, лог, журнал, уведомление.
func (s *Store) report(seq uint64, in cycleInput, res cycleResult) {
	s.metrics.RefreshDuration.Observe(res.finished.Sub(in.started).Seconds())

	for i, entity := range res.failed {
		s.metrics.EntityFailures.WithLabelValues(string(entity)).Inc()
		if res.usedFallback {
			s.metrics.FallbacksUsed.WithLabelValues(string(entity)).Inc()
		}
		s.logger.Warn("entity fetch failed",
			zap.String("entity", string(entity)),
			zap.Bool("fallback", s.useFallback),
			zap.Error(res.causes[i]))
	}

	outcome := outcomeOK
	if len(res.failed) > 0 {
		outcome = outcomeDegraded
	}
	s.metrics.RefreshCycles.WithLabelValues(outcome).Inc()

	s.logger.Info("refresh cycle finished",
		zap.Uint64("seq", seq),
		zap.String("time_range", string(in.filters.TimeRange)),
		zap.Int("days", in.days),
		zap.Int("failed", len(res.failed)),
		zap.Duration("took", res.finished.Sub(in.started)))

	s.recorder.Record(history.CycleRecord{
		ID:           uuid.New(),
		StartedAt:    in.started,
		FinishedAt:   res.finished,
		TimeRange:    in.filters.TimeRange,
		Days:         in.days,
		Failed:       append([]domain.Entity(nil), res.failed...),
		UsedFallback: res.usedFallback,
	})

	if len(res.failed) == 0 {
		return
	}

	// Одно уведомление на цикл, не на сущность
	n := notify.New(notify.KindRefreshFailed, failureMessage(len(res.failed), len(in.jobs), res.usedFallback), res.failed, res.finished)
	if res.authFailed {
		n.Kind = notify.KindAuthRequired
		n.Message = "session expired, login required"
	}
	if err := s.notifier.Notify(s.lifeCtx, n); err != nil {
		s.logger.Error("failed to deliver refresh notification", zap.Error(err))
	}
}

func failureMessage(failed, total int, usedFallback bool) string {
	msg := fmt.Sprintf("%d of %d dashboard panels failed to refresh", failed, total)
	if usedFallback {
		msg += ", showing sample data"
	}
	return msg
}
