package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimeRange — фиксированный набор окон выборки для панели.
type TimeRange string

const (
	TimeRange24h    TimeRange = "24h"
	TimeRange7d     TimeRange = "7d"
	TimeRange30d    TimeRange = "30d"
	TimeRange90d    TimeRange = "90d"
	TimeRangeCustom TimeRange = "custom"
)

// DefaultTimeRange — окно, с которым панель стартует.
const DefaultTimeRange = TimeRange30d

// customFallbackDays используется для custom, когда даты не заданы.
const customFallbackDays = 30

// MaxLookbackDays — предел days, который принимает /alerts/trends.
const MaxLookbackDays = 90

var (
	ErrUnknownTimeRange    = errors.New("unknown time range")
	ErrInvalidInterval     = errors.New("refresh interval must be a positive number of seconds")
	ErrInvalidDate         = errors.New("invalid date")
	ErrConflictingInterval = errors.New("refreshInterval and clear flag are mutually exclusive")
)

// TimeRanges перечисляет все допустимые значения в порядке отображения.
var TimeRanges = []TimeRange{TimeRange24h, TimeRange7d, TimeRange30d, TimeRange90d, TimeRangeCustom}

func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeRange, s)
	}
	return r, nil
}

func (r TimeRange) Valid() bool {
	switch r {
	case TimeRange24h, TimeRange7d, TimeRange30d, TimeRange90d, TimeRangeCustom:
		return true
	}
	return false
}

// Days переводит окно в количество дней ретроспективы.
// custom всегда даёт 30: явные даты учитывает LookbackDays.
// Невалидные значения сюда не доходят, их отсекает ParseTimeRange.
func (r TimeRange) Days() int {
	switch r {
	case TimeRange24h:
		return 1
	case TimeRange7d:
		return 7
	case TimeRange30d:
		return 30
	case TimeRange90d:
		return 90
	case TimeRangeCustom:
		return customFallbackDays
	}
	return 0
}

// DashboardFilters — текущие фильтры панели.
// RefreshInterval == nil означает, что автообновление выключено.
type DashboardFilters struct {
	TimeRange       TimeRange `json:"timeRange"`
	StartDate       *string   `json:"startDate,omitempty"`
	EndDate         *string   `json:"endDate,omitempty"`
	RefreshInterval *int      `json:"refreshInterval"`
}

func DefaultFilters() DashboardFilters {
	return DashboardFilters{TimeRange: DefaultTimeRange}
}

// Clone копирует указатели, чтобы снапшот не делил память с состоянием.
func (f DashboardFilters) Clone() DashboardFilters {
	out := DashboardFilters{TimeRange: f.TimeRange}
	out.StartDate = cloneString(f.StartDate)
	out.EndDate = cloneString(f.EndDate)
	if f.RefreshInterval != nil {
		v := *f.RefreshInterval
		out.RefreshInterval = &v
	}
	return out
}

// FilterPatch — частичное изменение фильтров.
// Явный null в refreshInterval выключает автообновление (ClearRefreshInterval).
type FilterPatch struct {
	TimeRange            *TimeRange `json:"timeRange,omitempty"`
	StartDate            *string    `json:"startDate,omitempty"`
	EndDate              *string    `json:"endDate,omitempty"`
	RefreshInterval      *int       `json:"refreshInterval,omitempty"`
	ClearRefreshInterval bool       `json:"-"`
}

func (p *FilterPatch) UnmarshalJSON(data []byte) error {
	type plain FilterPatch
	var aux plain
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["refreshInterval"]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		aux.ClearRefreshInterval = true
	}

	*p = FilterPatch(aux)
	return nil
}

func (p FilterPatch) Validate() error {
	if p.TimeRange != nil && !p.TimeRange.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTimeRange, *p.TimeRange)
	}
	if p.RefreshInterval != nil && *p.RefreshInterval <= 0 {
		return ErrInvalidInterval
	}
	if p.RefreshInterval != nil && p.ClearRefreshInterval {
		return ErrConflictingInterval
	}
	for _, d := range []*string{p.StartDate, p.EndDate} {
		if d == nil || *d == "" {
			continue
		}
		if _, err := parseDate(*d); err != nil {
			return err
		}
	}
	return nil
}

// Apply сливает патч с текущими фильтрами.
// rangeChanged сообщает, что сменилось окно выборки (нужен полный refresh),
// intervalChanged — что нужно перевзвести таймер.
func (f DashboardFilters) Apply(p FilterPatch) (next DashboardFilters, rangeChanged, intervalChanged bool) {
	next = f.Clone()

	if p.TimeRange != nil && *p.TimeRange != f.TimeRange {
		next.TimeRange = *p.TimeRange
		rangeChanged = true
	}

	datesChanged := false
	if p.StartDate != nil && !sameString(p.StartDate, f.StartDate) {
		next.StartDate = emptyToNil(p.StartDate)
		datesChanged = true
	}
	if p.EndDate != nil && !sameString(p.EndDate, f.EndDate) {
		next.EndDate = emptyToNil(p.EndDate)
		datesChanged = true
	}
	// Даты влияют на выборку только в режиме custom
	if datesChanged && next.TimeRange == TimeRangeCustom {
		rangeChanged = true
	}

	switch {
	case p.ClearRefreshInterval:
		if f.RefreshInterval != nil {
			next.RefreshInterval = nil
			intervalChanged = true
		}
	case p.RefreshInterval != nil:
		if f.RefreshInterval == nil || *f.RefreshInterval != *p.RefreshInterval {
			v := *p.RefreshInterval
			next.RefreshInterval = &v
			intervalChanged = true
		}
	}

	return next, rangeChanged, intervalChanged
}

// RefreshEvery возвращает интервал автообновления как time.Duration.
func (f DashboardFilters) RefreshEvery() (time.Duration, bool) {
	if f.RefreshInterval == nil || *f.RefreshInterval <= 0 {
		return 0, false
	}
	return time.Duration(*f.RefreshInterval) * time.Second, true
}

// LookbackDays считает глубину выборки в днях.
// Для custom с корректной парой дат берётся реальный интервал (включительно),
// урезанный до MaxLookbackDays, иначе используется фиксированное значение окна.
func LookbackDays(f DashboardFilters) int {
	if f.TimeRange != TimeRangeCustom || f.StartDate == nil || f.EndDate == nil {
		return f.TimeRange.Days()
	}

	start, err := parseDate(*f.StartDate)
	if err != nil {
		return f.TimeRange.Days()
	}
	end, err := parseDate(*f.EndDate)
	if err != nil || end.Before(start) {
		return f.TimeRange.Days()
	}

	// Больше года разницы заведомо за пределом, а Sub на веках переполняется
	if end.Year()-start.Year() > 1 {
		return MaxLookbackDays
	}

	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	days := int(endDay.Sub(startDay).Hours()/24) + 1
	return max(1, min(days, MaxLookbackDays))
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func sameString(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return cloneString(s)
}
