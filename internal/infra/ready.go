package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
)

// WaitReady ждёт, пока зависимость (Redis, Postgres) начнёт отвечать на ping.
// Используется только при старте, рабочие запросы не ретраятся.
func WaitReady(ctx context.Context, name string, attempts uint, logger *zap.Logger, ping func(ctx context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}

	var n uint
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
	)

	err := r.Do(func() error {
		n++
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		if err := ping(pingCtx); err != nil {
			logger.Warn("dependency not ready",
				zap.String("dependency", name),
				zap.Uint("attempt", n),
				zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s unreachable after %d attempts: %w", name, n, err)
	}

	logger.Info("dependency ready", zap.String("dependency", name))
	return nil
}
