package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

func (c *Client) SecurityMetrics(ctx context.Context) (*domain.SecurityMetrics, error) {
	var out domain.SecurityMetrics
	if err := c.getJSON(ctx, domain.EntitySecurityMetrics, "/api/v1/dashboard/security-metrics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SystemHealth(ctx context.Context) (*domain.SystemHealth, error) {
	var out domain.SystemHealth
	if err := c.getJSON(ctx, domain.EntitySystemHealth, "/api/v1/system/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AlertTrends — ряд по дням за последние days суток.
func (c *Client) AlertTrends(ctx context.Context, days int) ([]domain.AlertTrend, error) {
	var out []domain.AlertTrend
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.getJSON(ctx, domain.EntityAlertTrends, "/api/v1/alerts/trends", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SeverityDistribution(ctx context.Context) ([]domain.AlertSeverityDistribution, error) {
	var out []domain.AlertSeverityDistribution
	if err := c.getJSON(ctx, domain.EntitySeverityDistribution, "/api/v1/alerts/distribution", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AttackVectors(ctx context.Context, limit int) ([]domain.AttackVector, error) {
	var out []domain.AttackVector
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.getJSON(ctx, domain.EntityAttackVectors, "/api/v1/alerts/attack-vectors", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Attackers(ctx context.Context, limit int) ([]domain.Attacker, error) {
	var out []domain.Attacker
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.getJSON(ctx, domain.EntityAttackers, "/api/v1/alerts/attackers", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ComplianceStatus(ctx context.Context) (*domain.ComplianceStatus, error) {
	var out domain.ComplianceStatus
	if err := c.getJSON(ctx, domain.EntityComplianceStatus, "/api/v1/reports/compliance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DigitalTwinStatus берётся со статуса ханипотов.
func (c *Client) DigitalTwinStatus(ctx context.Context) (*domain.DigitalTwinStatus, error) {
	var out domain.DigitalTwinStatus
	if err := c.getJSON(ctx, domain.EntityDigitalTwinStatus, "/api/v1/honeypot/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Alert(ctx context.Context, id string) (*domain.Alert, error) {
	var out domain.Alert
	if err := c.getJSON(ctx, domain.EntityAlert, "/api/v1/alerts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
