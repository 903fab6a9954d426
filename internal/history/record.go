package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

// CycleRecord — итог одного завершённого цикла обновления панели.
type CycleRecord struct {
	ID           uuid.UUID        `json:"id"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	TimeRange    domain.TimeRange `json:"time_range"`
	Days         int              `json:"days"`
	Failed       []domain.Entity  `json:"failed,omitempty"`
	UsedFallback bool             `json:"used_fallback"`
}

func (r CycleRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r CycleRecord) Degraded() bool {
	return len(r.Failed) > 0
}
