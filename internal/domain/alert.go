package domain

import "time"

// Alert — детальная карточка алерта для drill-down.
type Alert struct {
	ID          string         `json:"id"`
	AlertType   string         `json:"alert_type"`
	SourceIP    *string        `json:"source_ip,omitempty"`
	IPInfo      map[string]any `json:"ip_info,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	RawLog      *string        `json:"raw_log,omitempty"`
	AbuseScore  *int           `json:"abuse_score,omitempty"`
	Severity    AlertSeverity  `json:"severity"`
	Status      AlertStatus    `json:"status"`
	Notes       *string        `json:"notes,omitempty"`
	TriggeredAt *time.Time     `json:"triggered_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// Selection — что сейчас раскрыто в детальных представлениях.
// nil означает отсутствие выбора.
type Selection struct {
	Alert        *Alert        `json:"alert"`
	Attacker     *Attacker     `json:"attacker"`
	AttackVector *AttackVector `json:"attackVector"`
}
