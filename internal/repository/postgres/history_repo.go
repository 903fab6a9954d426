package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS refresh_cycles (
	id            UUID PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	time_range    TEXT        NOT NULL,
	days          INTEGER     NOT NULL,
	failed        JSONB       NOT NULL DEFAULT '[]',
	used_fallback BOOLEAN     NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS refresh_cycles_finished_at_idx ON refresh_cycles (finished_at DESC);`

// Количество колонок в refresh_cycles
const cycleFields = 7

// HistoryRepo — хранилище журнала циклов обновления.
type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(connString string, maxConns int) (*HistoryRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 5
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &HistoryRepo{db: db}, nil
}

func (r *HistoryRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *HistoryRepo) Close() error {
	return r.db.Close()
}

func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *HistoryRepo) WriteBatch(ctx context.Context, records []history.CycleRecord) error {
	if len(records) == 0 {
		return nil
	}
	query, vals, err := buildInsert(records)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, vals...)
	return err
}

// Recent — последние limit циклов, от старых к новым (как ждёт Journal.Seed).
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]history.CycleRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, time_range, days, failed, used_fallback
		FROM (
			SELECT * FROM refresh_cycles ORDER BY finished_at DESC LIMIT $1
		) t ORDER BY finished_at ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.CycleRecord
	for rows.Next() {
		var (
			rec       history.CycleRecord
			timeRange string
			failed    []byte
		)
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &timeRange, &rec.Days, &failed, &rec.UsedFallback); err != nil {
			return nil, err
		}
		rec.TimeRange = domain.TimeRange(timeRange)
		if err := json.Unmarshal(failed, &rec.Failed); err != nil {
			return nil, fmt.Errorf("decode failed entities of %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// buildInsert динамически строит запрос для пакетной вставки.
func buildInsert(records []history.CycleRecord) (string, []interface{}, error) {
	placeholders := make([]string, 0, len(records))
	vals := make([]interface{}, 0, len(records)*cycleFields)

	for i, rec := range records {
		p := i * cycleFields
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7))

		failed := rec.Failed
		if failed == nil {
			failed = []domain.Entity{}
		}
		failedJSON, err := json.Marshal(failed)
		if err != nil {
			return "", nil, err
		}

		vals = append(vals,
			rec.ID, rec.StartedAt, rec.FinishedAt, string(rec.TimeRange),
			rec.Days, failedJSON, rec.UsedFallback,
		)
	}

	query := "INSERT INTO refresh_cycles (id, started_at, finished_at, time_range, days, failed, used_fallback) VALUES " +
		strings.Join(placeholders, ", ") +
		" ON CONFLICT (id) DO NOTHING"
	return query, vals, nil
}
