// Package events provides event types and utilities for the orchestration event system.
package events

// Event types for the orchestrator lifecycle
const (
	OrchestratorStarted = "orchestrator.started"
	OrchestratorStopped = "orchestrator.stopped"
	SweepCompleted      = "sweep.completed"
)

// Event types for agent rows
const (
	AgentStatusChanged = "agent.status_changed" // Base subject, suffixed with the agent id
	AgentHealthChanged = "agent.health_changed" // Base subject, suffixed with the agent id
)

// Event types for tracked tasks
const (
	TaskAssigned  = "task.assigned"
	TaskCompleted = "task.completed"
	TaskFailed    = "task.failed"
)

// Event types for blockers
const (
	BlockerDetected  = "blocker.detected"
	BlockerEscalated = "blocker.escalated"
)

// Event types for automation triggers
const (
	TriggerExecuted = "trigger.executed"
)

// Event types for progress reports
const (
	ReportGenerated = "report.generated"
	ReportRequested = "report.requested"
)

// BuildAgentStatusSubject creates a status-changed subject for a specific agent
func BuildAgentStatusSubject(agentID string) string {
	return AgentStatusChanged + "." + agentID
}

// BuildAgentStatusWildcardSubject creates a wildcard subscription for all status-changed events
func BuildAgentStatusWildcardSubject() string {
	return AgentStatusChanged + ".*"
}

// BuildAgentHealthSubject creates a health-changed subject for a specific agent
func BuildAgentHealthSubject(agentID string) string {
	return AgentHealthChanged + "." + agentID
}

// BuildAgentHealthWildcardSubject creates a wildcard subscription for all health-changed events
func BuildAgentHealthWildcardSubject() string {
	return AgentHealthChanged + ".*"
}

// BuildTaskAssignedSubject creates a task-assigned subject for a specific agent
func BuildTaskAssignedSubject(agentID string) string {
	return TaskAssigned + "." + agentID
}

// BuildTaskAssignedWildcardSubject creates a wildcard subscription for all task-assigned events
func BuildTaskAssignedWildcardSubject() string {
	return TaskAssigned + ".*"
}

// BuildTaskCompletedSubject creates a task-completed subject for a specific agent
func BuildTaskCompletedSubject(agentID string) string {
	return TaskCompleted + "." + agentID
}

// BuildTaskCompletedWildcardSubject creates a wildcard subscription for all task-completed events
func BuildTaskCompletedWildcardSubject() string {
	return TaskCompleted + ".*"
}

// BuildTaskFailedSubject creates a task-failed subject for a specific agent
func BuildTaskFailedSubject(agentID string) string {
	return TaskFailed + "." + agentID
}

// BuildTaskFailedWildcardSubject creates a wildcard subscription for all task-failed events
func BuildTaskFailedWildcardSubject() string {
	return TaskFailed + ".*"
}

// BuildBlockerDetectedSubject creates a blocker-detected subject for a specific agent
func BuildBlockerDetectedSubject(agentID string) string {
	return BlockerDetected + "." + agentID
}

// BuildBlockerDetectedWildcardSubject creates a wildcard subscription for all blocker-detected events
func BuildBlockerDetectedWildcardSubject() string {
	return BlockerDetected + ".*"
}

// BuildBlockerEscalatedSubject creates a blocker-escalated subject for a specific agent
func BuildBlockerEscalatedSubject(agentID string) string {
	return BlockerEscalated + "." + agentID
}

// BuildBlockerEscalatedWildcardSubject creates a wildcard subscription for all blocker-escalated events
func BuildBlockerEscalatedWildcardSubject() string {
	return BlockerEscalated + ".*"
}
