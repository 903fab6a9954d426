package domain

// Entity — имя одной сущности панели. Используется в отчётах об ошибках,
// метках метрик и истории обновлений.
type Entity string

const (
	EntitySecurityMetrics      Entity = "security_metrics"
	EntitySystemHealth         Entity = "system_health"
	EntityAlertTrends          Entity = "alert_trends"
	EntitySeverityDistribution Entity = "severity_distribution"
	EntityAttackVectors        Entity = "attack_vectors"
	EntityAttackers            Entity = "attackers"
	EntityComplianceStatus     Entity = "compliance_status"
	EntityDigitalTwinStatus    Entity = "digital_twin_status"

	// EntityAlert — детализация одного алерта, в цикл обновления не входит.
	EntityAlert Entity = "alert"
)

// DashboardEntities — всё, что загружается за один цикл обновления.
var DashboardEntities = []Entity{
	EntitySecurityMetrics,
	EntitySystemHealth,
	EntityAlertTrends,
	EntitySeverityDistribution,
	EntityAttackVectors,
	EntityAttackers,
	EntityComplianceStatus,
	EntityDigitalTwinStatus,
}

type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityHigh     AlertSeverity = "high"
	SeverityMedium   AlertSeverity = "medium"
	SeverityLow      AlertSeverity = "low"
	SeverityInfo     AlertSeverity = "info"
)

type AlertStatus string

const (
	AlertStatusNew           AlertStatus = "new"
	AlertStatusAcknowledged  AlertStatus = "acknowledged"
	AlertStatusInProgress    AlertStatus = "in_progress"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusFalsePositive AlertStatus = "false_positive"
)

type AttackVector struct {
	Name       string   `json:"name"`
	Count      int      `json:"count"`
	Percentage *float64 `json:"percentage,omitempty"`
}

type Attacker struct {
	IP       string  `json:"ip"`
	Country  string  `json:"country"`
	Count    int     `json:"count"`
	LastSeen *string `json:"last_seen,omitempty"`
}

type SecurityMetrics struct {
	TotalAlerts      int                   `json:"total_alerts"`
	AlertsBySeverity map[AlertSeverity]int `json:"alerts_by_severity"`
	AlertsByStatus   map[AlertStatus]int   `json:"alerts_by_status"`
	TopAttackVectors []AttackVector        `json:"top_attack_vectors"`
	TopAttackers     []Attacker            `json:"top_attackers"`
	RiskScore        int                   `json:"risk_score"` // 0..100
}

// SystemHealth повторяет ответ /system/status.
type SystemHealth struct {
	OverallStatus   string          `json:"overall_status"` // HEALTHY, DEGRADED, UNHEALTHY
	Metrics         *SystemMetrics  `json:"metrics,omitempty"`
	ServiceStatuses []ServiceStatus `json:"service_statuses,omitempty"`
	LastUpdated     *string         `json:"last_updated,omitempty"`
}

type SystemMetrics struct {
	CPUUsagePercent    *float64 `json:"cpu_usage_percent,omitempty"`
	MemoryUsagePercent *float64 `json:"memory_usage_percent,omitempty"`
	UptimeSeconds      *int64   `json:"uptime_seconds,omitempty"`
	RequestRatePerSec  *float64 `json:"request_rate_per_sec,omitempty"`
	ErrorRatePercent   *float64 `json:"error_rate_percent,omitempty"`
}

type ServiceStatus struct {
	Name    string  `json:"name"`
	Status  string  `json:"status"` // UP, DOWN, DEGRADED
	Details *string `json:"details,omitempty"`
}

type AlertTrend struct {
	Date     string `json:"date"`
	Critical int    `json:"critical"`
	High     int    `json:"high"`
	Medium   int    `json:"medium"`
	Low      int    `json:"low"`
	Info     int    `json:"info"`
}

type AlertSeverityDistribution struct {
	Name  AlertSeverity `json:"name"`
	Value int           `json:"value"`
	Color string        `json:"color"`
}

type ComplianceItem struct {
	Status      string  `json:"status"`
	Compliant   bool    `json:"compliant"`
	LastChecked *string `json:"last_checked,omitempty"`
}

type ComplianceStatus struct {
	DPDP     ComplianceItem `json:"dpdp"`
	GDPR     ComplianceItem `json:"gdpr"`
	ISO27001 ComplianceItem `json:"iso27001"`
}

type DigitalTwinStatus struct {
	ActiveTwins    int     `json:"activeTwins"`
	Honeypots      int     `json:"honeypots"`
	Engagements    int     `json:"engagements"`
	LastEngagement *string `json:"last_engagement,omitempty"`
}

// DashboardData — набор снапшотов сущностей. Каждое поле заменяется целиком,
// частичных изменений нет. Читатели не должны модифицировать содержимое.
type DashboardData struct {
	SecurityMetrics      *SecurityMetrics            `json:"securityMetrics"`
	SystemHealth         *SystemHealth               `json:"systemHealth"`
	AlertTrends          []AlertTrend                `json:"alertTrends"`
	SeverityDistribution []AlertSeverityDistribution `json:"alertSeverityDistribution"`
	AttackVectors        []AttackVector              `json:"topAttackVectors"`
	Attackers            []Attacker                  `json:"topAttackers"`
	ComplianceStatus     *ComplianceStatus           `json:"complianceStatus"`
	DigitalTwinStatus    *DigitalTwinStatus          `json:"digitalTwinStatus"`
}
