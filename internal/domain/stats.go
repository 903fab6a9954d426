package domain

import "time"

// DashboardSummary — короткая сводка для шапки панели.
type DashboardSummary struct {
	TotalAlerts       int        `json:"total_alerts"`
	RiskScore         int        `json:"risk_score"`
	CriticalAlerts    int        `json:"critical_alerts"`
	HighAlerts        int        `json:"high_alerts"`
	ActiveTwins       int        `json:"active_twins"`
	ActiveHoneypots   int        `json:"active_honeypots"`
	RecentEngagements int        `json:"recent_engagements"`
	LastUpdated       *time.Time `json:"last_updated"`
}

// NewSummary собирает сводку из текущих снапшотов. Отсутствующие сущности дают нули.
func NewSummary(data DashboardData, lastUpdated *time.Time) DashboardSummary {
	s := DashboardSummary{LastUpdated: lastUpdated}

	if m := data.SecurityMetrics; m != nil {
		s.TotalAlerts = m.TotalAlerts
		s.RiskScore = m.RiskScore
		s.CriticalAlerts = m.AlertsBySeverity[SeverityCritical]
		s.HighAlerts = m.AlertsBySeverity[SeverityHigh]
	}
	if t := data.DigitalTwinStatus; t != nil {
		s.ActiveTwins = t.ActiveTwins
		s.ActiveHoneypots = t.Honeypots
		s.RecentEngagements = t.Engagements
	}

	return s
}
