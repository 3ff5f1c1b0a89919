package v1

import "time"

// ProgressReport is a point-in-time aggregate across all six agents,
// recomputed wholesale every reporting cycle.
type ProgressReport struct {
	GeneratedAt         time.Time           `json:"generated_at"`
	OverallProgress     float64             `json:"overall_progress"`
	AgentProgress       map[AgentID]float64 `json:"agent_progress"`
	Recommendations     []string            `json:"recommendations"`
	NextActions         []string            `json:"next_actions"`
	CriticalPath        []AgentID           `json:"critical_path"`
	EstimatedCompletion *time.Time          `json:"estimated_completion,omitempty"`
}

// Clone returns an independent copy of the report.
func (r ProgressReport) Clone() ProgressReport {
	out := r
	if r.AgentProgress != nil {
		out.AgentProgress = make(map[AgentID]float64, len(r.AgentProgress))
		for id, p := range r.AgentProgress {
			out.AgentProgress[id] = p
		}
	}
	if r.Recommendations != nil {
		out.Recommendations = append([]string(nil), r.Recommendations...)
	}
	if r.NextActions != nil {
		out.NextActions = append([]string(nil), r.NextActions...)
	}
	if r.CriticalPath != nil {
		out.CriticalPath = append([]AgentID(nil), r.CriticalPath...)
	}
	if r.EstimatedCompletion != nil {
		ts := *r.EstimatedCompletion
		out.EstimatedCompletion = &ts
	}
	return out
}
