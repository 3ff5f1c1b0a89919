package v1

import "time"

// TriggerType classifies an automation rule
type TriggerType string

const (
	TriggerTaskReassignment TriggerType = "task_reassignment"
	TriggerEscalation       TriggerType = "escalation"
	TriggerRecovery         TriggerType = "recovery"
	TriggerReporting        TriggerType = "reporting"
)

// AutomationTrigger is the wire view of one catalog rule. The condition and
// action live in the trigger processor; only enablement and execution
// history are exposed.
type AutomationTrigger struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         TriggerType `json:"type"`
	Description  string      `json:"description"`
	Enabled      bool        `json:"enabled"`
	LastExecuted *time.Time  `json:"last_executed,omitempty"`
}

// Clone returns an independent copy of the trigger.
func (t AutomationTrigger) Clone() AutomationTrigger {
	out := t
	if t.LastExecuted != nil {
		ts := *t.LastExecuted
		out.LastExecuted = &ts
	}
	return out
}
