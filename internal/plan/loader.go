// Package plan loads the optional development-plan file that seeds each
// agent's pending task queue when the orchestrator starts.
package plan

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// PlannedTask is one seeded unit of work.
type PlannedTask struct {
	Name     string                 `yaml:"name"`
	Priority int                    `yaml:"priority"`
	Payload  map[string]interface{} `yaml:"payload"`
}

// AgentPlan holds the seeded tasks for one agent.
type AgentPlan struct {
	Tasks []PlannedTask `yaml:"tasks"`
}

// Plan is a parsed development plan keyed by agent identity.
type Plan struct {
	Agents map[v1.AgentID]AgentPlan `yaml:"agents"`
}

// Load reads and validates a development plan from path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan file: %w", err)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid plan file %s: %w", path, err)
	}
	return &p, nil
}

func (p *Plan) validate() error {
	ids := make([]string, 0, len(p.Agents))
	for id := range p.Agents {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	var errs []string
	for _, raw := range ids {
		id := v1.AgentID(raw)
		if !id.Valid() {
			errs = append(errs, fmt.Sprintf("unknown agent %q", raw))
			continue
		}
		for i, t := range p.Agents[id].Tasks {
			if strings.TrimSpace(t.Name) == "" {
				errs = append(errs, fmt.Sprintf("agent %s task %d: name is required", id, i))
			}
			if t.Priority < 0 || t.Priority > 10 {
				errs = append(errs, fmt.Sprintf("agent %s task %q: priority must be between 0 and 10", id, t.Name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Tasks returns the seeded tasks for one agent in declaration order. Task IDs
// and creation timestamps are filled in at assignment time.
func (p *Plan) Tasks(id v1.AgentID) []v1.Task {
	agentPlan, ok := p.Agents[id]
	if !ok {
		return nil
	}
	tasks := make([]v1.Task, 0, len(agentPlan.Tasks))
	for _, t := range agentPlan.Tasks {
		tasks = append(tasks, v1.Task{
			Name:     t.Name,
			Priority: t.Priority,
			Payload:  t.Payload,
		})
	}
	return tasks
}

// TaskCount returns the total number of seeded tasks across all agents.
func (p *Plan) TaskCount() int {
	total := 0
	for _, agentPlan := range p.Agents {
		total += len(agentPlan.Tasks)
	}
	return total
}
