// Package sample содержит статичные снапшоты, которыми панель подменяет
// недоступные сущности в dev/demo-режиме.
package sample

import (
	"time"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

var severityColors = []struct {
	severity domain.AlertSeverity
	color    string
}{
	{domain.SeverityCritical, "#EF4444"},
	{domain.SeverityHigh, "#F59E0B"},
	{domain.SeverityMedium, "#FBBF24"},
	{domain.SeverityLow, "#10B981"},
	{domain.SeverityInfo, "#3B82F6"},
}

var alertsBySeverity = map[domain.AlertSeverity]int{
	domain.SeverityCritical: 12,
	domain.SeverityHigh:     27,
	domain.SeverityMedium:   45,
	domain.SeverityLow:      31,
	domain.SeverityInfo:     13,
}

var alertsByStatus = map[domain.AlertStatus]int{
	domain.AlertStatusNew:           41,
	domain.AlertStatusAcknowledged:  23,
	domain.AlertStatusInProgress:    18,
	domain.AlertStatusResolved:      39,
	domain.AlertStatusFalsePositive: 7,
}

var attackVectors = []struct {
	name       string
	count      int
	percentage float64
}{
	{"Brute Force", 42, 32.8},
	{"SQL Injection", 27, 21.1},
	{"Credential Theft", 18, 14.1},
	{"XSS", 15, 11.7},
	{"Command Injection", 12, 9.4},
	{"File Inclusion", 8, 6.3},
	{"Path Traversal", 5, 3.9},
	{"CSRF", 3, 2.3},
}

var attackers = []struct {
	ip       string
	country  string
	count    int
	lastSeen time.Duration // сколько назад
}{
	{"203.0.113.1", "US", 35, 2 * time.Hour},
	{"198.51.100.2", "RU", 28, 5 * time.Hour},
	{"192.0.2.3", "CN", 22, 8 * time.Hour},
	{"198.51.100.4", "BR", 19, 12 * time.Hour},
	{"203.0.113.5", "IN", 15, 18 * time.Hour},
	{"192.0.2.6", "DE", 12, 24 * time.Hour},
	{"198.51.100.7", "FR", 10, 36 * time.Hour},
	{"203.0.113.8", "JP", 8, 48 * time.Hour},
}

const (
	sampleRiskScore      = 72
	sampleVectorsInTop   = 4
	sampleAttackersInTop = 3
)

// Provider выдаёт свежие копии образцов, вызывающий может владеть ими.
// Временные метки считаются от now, чтобы данные выглядели актуальными.
type Provider struct {
	now func() time.Time
}

func NewProvider(now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{now: now}
}

func (p *Provider) SecurityMetrics() *domain.SecurityMetrics {
	total := 0
	bySeverity := make(map[domain.AlertSeverity]int, len(alertsBySeverity))
	for k, v := range alertsBySeverity {
		bySeverity[k] = v
		total += v
	}
	byStatus := make(map[domain.AlertStatus]int, len(alertsByStatus))
	for k, v := range alertsByStatus {
		byStatus[k] = v
	}

	return &domain.SecurityMetrics{
		TotalAlerts:      total,
		AlertsBySeverity: bySeverity,
		AlertsByStatus:   byStatus,
		TopAttackVectors: p.AttackVectors(sampleVectorsInTop),
		TopAttackers:     p.Attackers(sampleAttackersInTop),
		RiskScore:        sampleRiskScore,
	}
}

func (p *Provider) SystemHealth() *domain.SystemHealth {
	cpu, mem, rps, errRate := 15.5, 45.2, 50.1, 0.5
	uptime := int64(172800)
	updated := p.now().UTC().Format(time.RFC3339)

	return &domain.SystemHealth{
		OverallStatus: "DEGRADED",
		Metrics: &domain.SystemMetrics{
			CPUUsagePercent:    &cpu,
			MemoryUsagePercent: &mem,
			UptimeSeconds:      &uptime,
			RequestRatePerSec:  &rps,
			ErrorRatePercent:   &errRate,
		},
		ServiceStatuses: []domain.ServiceStatus{
			{Name: "Backend API", Status: "UP", Details: strPtr("Responding normally")},
			{Name: "Frontend Service", Status: "UP"},
			{Name: "Database (RDS)", Status: "UP"},
			{Name: "Alerting Service", Status: "UP"},
			{Name: "ML Module", Status: "DEGRADED", Details: strPtr("Training job failed last night")},
		},
		LastUpdated: &updated,
	}
}

// AlertTrends строит детерминированную серию за days дней, от старых к новым.
func (p *Provider) AlertTrends(days int) []domain.AlertTrend {
	if days <= 0 {
		return []domain.AlertTrend{}
	}

	now := p.now()
	trends := make([]domain.AlertTrend, 0, days)
	for i := days; i > 0; i-- {
		n := days - i
		trends = append(trends, domain.AlertTrend{
			Date:     now.AddDate(0, 0, -i).Format("2006-01-02"),
			Critical: n % 5,
			High:     n % 10,
			Medium:   n % 15,
			Low:      n % 8,
			Info:     n % 3,
		})
	}
	return trends
}

func (p *Provider) SeverityDistribution() []domain.AlertSeverityDistribution {
	out := make([]domain.AlertSeverityDistribution, 0, len(severityColors))
	for _, sc := range severityColors {
		out = append(out, domain.AlertSeverityDistribution{
			Name:  sc.severity,
			Value: alertsBySeverity[sc.severity],
			Color: sc.color,
		})
	}
	return out
}

func (p *Provider) AttackVectors(limit int) []domain.AttackVector {
	n := clamp(limit, len(attackVectors))
	out := make([]domain.AttackVector, 0, n)
	for _, v := range attackVectors[:n] {
		pct := v.percentage
		out = append(out, domain.AttackVector{Name: v.name, Count: v.count, Percentage: &pct})
	}
	return out
}

func (p *Provider) Attackers(limit int) []domain.Attacker {
	now := p.now()
	n := clamp(limit, len(attackers))
	out := make([]domain.Attacker, 0, n)
	for _, a := range attackers[:n] {
		seen := now.Add(-a.lastSeen).UTC().Format(time.RFC3339)
		out = append(out, domain.Attacker{IP: a.ip, Country: a.country, Count: a.count, LastSeen: &seen})
	}
	return out
}

func (p *Provider) ComplianceStatus() *domain.ComplianceStatus {
	now := p.now()
	checked := func(daysAgo int) *string {
		s := now.AddDate(0, 0, -daysAgo).UTC().Format(time.RFC3339)
		return &s
	}

	return &domain.ComplianceStatus{
		DPDP:     domain.ComplianceItem{Status: "Compliant", Compliant: true, LastChecked: checked(5)},
		GDPR:     domain.ComplianceItem{Status: "Review needed", Compliant: false, LastChecked: checked(10)},
		ISO27001: domain.ComplianceItem{Status: "Compliant", Compliant: true, LastChecked: checked(15)},
	}
}

func (p *Provider) DigitalTwinStatus() *domain.DigitalTwinStatus {
	last := p.now().Add(-3 * time.Hour).UTC().Format(time.RFC3339)
	return &domain.DigitalTwinStatus{
		ActiveTwins:    12,
		Honeypots:      8,
		Engagements:    24,
		LastEngagement: &last,
	}
}

func clamp(limit, size int) int {
	if limit <= 0 || limit > size {
		return size
	}
	return limit
}

func strPtr(s string) *string { return &s }
