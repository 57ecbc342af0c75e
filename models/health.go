package models

import "time"

// HealthState is the observed state of one downstream service.
type HealthState string

const (
	StateHealthy     HealthState = "healthy"
	StateDegraded    HealthState = "degraded"
	StateUnreachable HealthState = "unreachable"
)

// rank orders states from best to worst for the composite computation.
func (s HealthState) rank() int {
	switch s {
	case StateHealthy:
		return 0
	case StateDegraded:
		return 1
	default:
		return 2
	}
}

// ServiceHealth is one tracked downstream's record, written only by the
// health monitor's probe loop.
type ServiceHealth struct {
	Name             string      `json:"name"`
	State            HealthState `json:"state"`
	LastCheckedAt    time.Time   `json:"last_checked_at"`
	LatencyMillis    int64       `json:"latency_millis"`
	ConsecutiveFails int         `json:"consecutive_fails,omitempty"`
}

// WorstState returns the composite system health: the worst state among all
// tracked services. No services tracked means healthy.
func WorstState(services []ServiceHealth) HealthState {
	worst := StateHealthy
	for _, s := range services {
		if s.State.rank() > worst.rank() {
			worst = s.State
		}
	}
	return worst
}
