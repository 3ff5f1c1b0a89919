package v1

import "time"

// AgentID identifies one of the six tracked development domains.
type AgentID string

const (
	AgentBackend        AgentID = "backend"
	AgentFrontend       AgentID = "frontend"
	AgentAIML           AgentID = "ai-ml"
	AgentIntegration    AgentID = "integration"
	AgentInfrastructure AgentID = "infrastructure"
	AgentTesting        AgentID = "testing"
)

// AllAgentIDs returns the six agent identities in canonical order.
func AllAgentIDs() []AgentID {
	return []AgentID{
		AgentBackend,
		AgentFrontend,
		AgentAIML,
		AgentIntegration,
		AgentInfrastructure,
		AgentTesting,
	}
}

// Valid reports whether id is one of the six fixed identities.
func (id AgentID) Valid() bool {
	switch id {
	case AgentBackend, AgentFrontend, AgentAIML, AgentIntegration, AgentInfrastructure, AgentTesting:
		return true
	}
	return false
}

// LifecycleState represents where an agent is in its lifecycle
type LifecycleState string

const (
	LifecycleInitializing LifecycleState = "INITIALIZING"
	LifecycleActive       LifecycleState = "ACTIVE"
	LifecycleError        LifecycleState = "ERROR"
	LifecycleStopped      LifecycleState = "STOPPED"
)

// HealthState represents the last observed health of an agent
type HealthState string

const (
	HealthHealthy   HealthState = "HEALTHY"
	HealthUnhealthy HealthState = "UNHEALTHY"
	HealthUnknown   HealthState = "UNKNOWN"
)

// BlockerType classifies a tracked obstacle
type BlockerType string

const (
	BlockerDependency BlockerType = "DEPENDENCY"
	BlockerResource   BlockerType = "RESOURCE"
	BlockerTechnical  BlockerType = "TECHNICAL"
	BlockerExternal   BlockerType = "EXTERNAL"
)

// Blocker is an obstacle reported by an agent, consumed by remediation
type Blocker struct {
	Type     BlockerType `json:"type"`
	Detail   string      `json:"detail"`
	RaisedAt time.Time   `json:"raised_at"`
}

// PerformanceStats carries the per-agent performance figures of a status row
type PerformanceStats struct {
	ResponseTimeMs float64 `json:"response_time_ms"`
	Throughput     float64 `json:"throughput"`
	ErrorRate      float64 `json:"error_rate"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// AgentStatus is one agent's row in the canonical status table
type AgentStatus struct {
	AgentID         AgentID          `json:"agent_id"`
	State           LifecycleState   `json:"state"`
	Health          HealthState      `json:"health"`
	LastCheck       time.Time        `json:"last_check"`
	ActiveTask      string           `json:"active_task,omitempty"`
	ProgressPercent float64          `json:"progress_percent"`
	Blockers        []Blocker        `json:"blockers,omitempty"`
	Dependencies    []AgentID        `json:"dependencies,omitempty"`
	CompletedTasks  []string         `json:"completed_tasks,omitempty"`
	PendingTasks    []string         `json:"pending_tasks,omitempty"`
	ErrorMessages   []string         `json:"error_messages,omitempty"`
	Performance     PerformanceStats `json:"performance"`
}

// Clone returns a deep copy safe to hand across goroutines.
func (s AgentStatus) Clone() AgentStatus {
	out := s
	out.Blockers = append([]Blocker(nil), s.Blockers...)
	out.Dependencies = append([]AgentID(nil), s.Dependencies...)
	out.CompletedTasks = append([]string(nil), s.CompletedTasks...)
	out.PendingTasks = append([]string(nil), s.PendingTasks...)
	out.ErrorMessages = append([]string(nil), s.ErrorMessages...)
	return out
}

// AgentMetrics is one agent's row in the canonical metrics table
type AgentMetrics struct {
	AgentID             AgentID   `json:"agent_id"`
	Timestamp           time.Time `json:"timestamp"`
	TasksCompleted      int       `json:"tasks_completed"`
	TasksInProgress     int       `json:"tasks_in_progress"`
	TasksPending        int       `json:"tasks_pending"`
	AverageTaskTimeMs   float64   `json:"average_task_time_ms"`
	SuccessRate         float64   `json:"success_rate"`
	BlockerCount        int       `json:"blocker_count"`
	DependencyCount     int       `json:"dependency_count"`
	ResourceUtilization float64   `json:"resource_utilization"`
}

// HealthSummary tallies agent health across the fixed six identities
type HealthSummary struct {
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`
}
