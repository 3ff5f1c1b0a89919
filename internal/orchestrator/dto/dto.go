// Package dto provides request and response shapes for the orchestration API.
package dto

import (
	"errors"
	"fmt"
	"strings"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// maxTaskNameLength bounds task names accepted over the API.
const maxTaskNameLength = 500

// AssignTaskRequest is the payload for assigning a task to an agent.
type AssignTaskRequest struct {
	Name     string                 `json:"name"`
	Priority int                    `json:"priority"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// Validate checks the request fields.
func (r *AssignTaskRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if len(r.Name) > maxTaskNameLength {
		return fmt.Errorf("name must be at most %d characters", maxTaskNameLength)
	}
	if r.Priority < 0 || r.Priority > 10 {
		return errors.New("priority must be between 0 and 10")
	}
	return nil
}

// ExecuteTriggerRequest is the optional payload for manual trigger execution.
type ExecuteTriggerRequest struct {
	Params map[string]interface{} `json:"params,omitempty"`
}

// AgentListResponse lists the tracked agent identities.
type AgentListResponse struct {
	Agents []v1.AgentID `json:"agents"`
	Total  int          `json:"total"`
}

// SystemHealthResponse is the response for the system health endpoint.
type SystemHealthResponse struct {
	Running bool             `json:"running"`
	Summary v1.HealthSummary `json:"summary"`
}

// TriggerListResponse lists the automation trigger catalog.
type TriggerListResponse struct {
	Triggers []v1.AutomationTrigger `json:"triggers"`
	Total    int                    `json:"total"`
}
