package trigger

import (
	"context"

	"github.com/google/uuid"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// Catalog trigger names.
const (
	TriggerAutoTaskReassignment = "auto_task_reassignment"
	TriggerBlockerEscalation    = "blocker_escalation"
	TriggerFailureRecoveryTask  = "failure_recovery_task"
	TriggerOnDemandReport       = "on_demand_report"
)

// Priorities for remediation tasks. Escalations outrank everything else so
// stuck dependencies surface first.
const (
	reassignPriority = 7
	recoverPriority  = 8
	resolvePriority  = 8
	fixPriority      = 8
	escalatePriority = 9
)

// evaluation carries one agent observation through a rule pass. Conditions
// and actions share these pointers: mutations are visible to later rules in
// the same pass but never flow back to the canonical tables.
type evaluation struct {
	agentID v1.AgentID
	status  *v1.AgentStatus
	metrics *v1.AgentMetrics
	params  map[string]interface{}
	manual  bool
}

// rule pairs a wire-visible trigger with its matching condition and action.
// A nil condition means the trigger only fires manually.
type rule struct {
	meta      v1.AutomationTrigger
	condition func(p *Processor, ev *evaluation) bool
	action    func(ctx context.Context, p *Processor, ev *evaluation) (string, error)
}

// newCatalog builds the static trigger catalog. Evaluation follows
// declaration order; all triggers start enabled.
func newCatalog() []*rule {
	return []*rule{
		{
			meta: v1.AutomationTrigger{
				ID:          uuid.New().String(),
				Name:        TriggerAutoTaskReassignment,
				Type:        v1.TriggerTaskReassignment,
				Description: "Move a blocked active task to the healthiest least-loaded agent",
				Enabled:     true,
			},
			condition: func(p *Processor, ev *evaluation) bool {
				return len(ev.status.Blockers) > 0 &&
					ev.status.ActiveTask != "" &&
					p.reassigned[ev.agentID] != ev.status.ActiveTask
			},
			action: reassignBlockedTask,
		},
		{
			meta: v1.AutomationTrigger{
				ID:          uuid.New().String(),
				Name:        TriggerBlockerEscalation,
				Type:        v1.TriggerEscalation,
				Description: "Escalate blockers standing longer than the configured age",
				Enabled:     true,
			},
			condition: func(p *Processor, ev *evaluation) bool {
				return p.staleBlockerLocked(ev) != nil
			},
			action: escalateStaleBlocker,
		},
		{
			meta: v1.AutomationTrigger{
				ID:          uuid.New().String(),
				Name:        TriggerFailureRecoveryTask,
				Type:        v1.TriggerRecovery,
				Description: "Open a recovery task for an erroring or unhealthy agent",
				Enabled:     true,
			},
			condition: func(p *Processor, ev *evaluation) bool {
				if ev.status.State != v1.LifecycleError && ev.status.Health != v1.HealthUnhealthy {
					return false
				}
				return p.recoverAttempts[ev.agentID] < p.cfg.MaxAutoResolutionAttempts
			},
			action: openRecoveryTask,
		},
		{
			meta: v1.AutomationTrigger{
				ID:          uuid.New().String(),
				Name:        TriggerOnDemandReport,
				Type:        v1.TriggerReporting,
				Description: "Request an immediate progress report",
				Enabled:     true,
			},
			condition: nil, // manual only
			action:    requestReport,
		},
	}
}
