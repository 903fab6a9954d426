// Package history ведёт журнал циклов обновления панели.
//
// Запись не блокирует оркестратор: циклы уходят в буферизованный канал,
// фоновый воркер копит их пачками и сбрасывает в хранилище по таймеру
// или по заполнению пачки. При остановке канал закрывается и воркер
// вычитывает остаток (drain), поэтому последние циклы не теряются.
// Последние N записей дополнительно держатся в памяти для API консоли.
package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Storage — куда физически пишется журнал.
type Storage interface {
	WriteBatch(ctx context.Context, records []CycleRecord) error
}

type Recorder interface {
	Record(rec CycleRecord)
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Keep          int // сколько последних записей держать в памяти
}

func (o *Options) setDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 500 * time.Millisecond
	}
	if o.Keep <= 0 {
		o.Keep = 100
	}
}

type Journal struct {
	ch      chan CycleRecord
	storage Storage
	opts    Options
	logger  *zap.Logger
	wg      sync.WaitGroup

	// closeMu защищает отправку в канал от гонки с close(ch)
	closeMu sync.RWMutex
	closed  bool

	mu     sync.RWMutex
	recent []CycleRecord // кольцо, recent[next] — самая старая запись при заполнении
	next   int
}

func NewJournal(storage Storage, opts Options, logger *zap.Logger) *Journal {
	opts.setDefaults()
	return &Journal{
		ch:      make(chan CycleRecord, opts.BufferSize),
		storage: storage,
		opts:    opts,
		logger:  logger.With(zap.String("mod", "history")),
		recent:  make([]CycleRecord, 0, opts.Keep),
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop запирает вход и ждёт, пока воркер допишет остаток.
func (j *Journal) Stop() {
	j.closeMu.Lock()
	if j.closed {
		j.closeMu.Unlock()
		return
	}
	j.closed = true
	close(j.ch)
	j.closeMu.Unlock()

	j.logger.Info("stopping journal: flushing buffer...")
	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

func (j *Journal) Record(rec CycleRecord) {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	j.remember(rec)

	j.closeMu.RLock()
	defer j.closeMu.RUnlock()
	if j.closed {
		j.logger.Warn("cycle record dropped: journal is stopped", zap.String("id", rec.ID.String()))
		return
	}

	// Load shedding: оркестратор не ждёт базу
	select {
	case j.ch <- rec:
	default:
		j.logger.Error("history_buffer_overflow", zap.String("id", rec.ID.String()))
	}
}

// Seed заполняет память записями, загруженными из хранилища при старте.
// Ожидает порядок от старых к новым.
func (j *Journal) Seed(records []CycleRecord) {
	for _, rec := range records {
		j.remember(rec)
	}
}

// Recent возвращает до limit последних записей, новые первыми.
func (j *Journal) Recent(limit int) []CycleRecord {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := len(j.recent)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]CycleRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (j.next - 1 - i + n) % n
		out = append(out, j.recent[idx])
	}
	return out
}

func (j *Journal) remember(rec CycleRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.recent) < j.opts.Keep {
		j.recent = append(j.recent, rec)
		j.next = len(j.recent) % j.opts.Keep
		return
	}
	j.recent[j.next] = rec
	j.next = (j.next + 1) % j.opts.Keep
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]CycleRecord, 0, j.opts.BatchSize)
	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: на остановке основной контекст уже отменён
		if err := j.storage.WriteBatch(context.Background(), batch); err != nil {
			j.logger.Error("history flush failed", zap.Int("records", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-j.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= j.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// DiscardStorage — журнал только в памяти, когда база не настроена.
type DiscardStorage struct{}

func (DiscardStorage) WriteBatch(context.Context, []CycleRecord) error { return nil }

type Nop struct{}

func (Nop) Record(CycleRecord) {}
