package domain

import "time"

// Snapshot — копия состояния панели на момент чтения.
type Snapshot struct {
	Filters          DashboardFilters `json:"filters"`
	Data             DashboardData    `json:"data"`
	Loading          bool             `json:"loading"`
	AutoRefreshArmed bool             `json:"autoRefreshArmed"`
	LastUpdated      *time.Time       `json:"lastUpdated"`
	LastFailures     []Entity         `json:"lastFailures,omitempty"`
	Selection        Selection        `json:"selection"`
}
