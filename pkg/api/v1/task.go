package v1

import "time"

// Task is a unit of tracked work assigned to an agent. The payload is
// opaque to the orchestrator; ownership transfers to the assigned monitor.
type Task struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Priority  int                    `json:"priority"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// CommandResult is the envelope every command operation returns
type CommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
