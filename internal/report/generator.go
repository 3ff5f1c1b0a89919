// Package report computes point-in-time progress reports from the
// orchestrator's status and metrics tables. Generation is pure aggregation
// over the snapshots it is handed; the generator holds no state of its own
// and is safe for concurrent use.
package report

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// maxNextActions bounds the recommended-work list to the highest-impact items.
const maxNextActions = 5

// Generator builds progress reports.
type Generator struct {
	logger *logger.Logger
}

// NewGenerator creates a report generator.
func NewGenerator(log *logger.Logger) *Generator {
	return &Generator{
		logger: log.WithFields(zap.String("component", "report-generator")),
	}
}

// Generate aggregates one report from table snapshots. Agents with no data
// yet, such as one stuck at INITIALIZING, contribute zero progress without
// failing generation.
func (g *Generator) Generate(statuses map[v1.AgentID]v1.AgentStatus, metrics map[v1.AgentID]v1.AgentMetrics) v1.ProgressReport {
	now := time.Now()
	rep := v1.ProgressReport{
		GeneratedAt:     now,
		AgentProgress:   make(map[v1.AgentID]float64, len(metrics)),
		Recommendations: []string{},
		NextActions:     []string{},
		CriticalPath:    []v1.AgentID{},
	}

	totalDone, totalKnown := 0, 0
	for _, id := range v1.AllAgentIDs() {
		m, ok := metrics[id]
		if !ok {
			rep.AgentProgress[id] = 0
			continue
		}
		known := m.TasksCompleted + m.TasksInProgress + m.TasksPending
		totalDone += m.TasksCompleted
		totalKnown += known
		if known > 0 {
			rep.AgentProgress[id] = float64(m.TasksCompleted) / float64(known) * 100
		} else {
			rep.AgentProgress[id] = 0
		}
	}
	if totalKnown > 0 {
		rep.OverallProgress = float64(totalDone) / float64(totalKnown) * 100
	}

	rep.Recommendations = buildRecommendations(statuses)
	rep.NextActions = buildNextActions(statuses)
	rep.CriticalPath = criticalPath(statuses, metrics)
	rep.EstimatedCompletion = estimateCompletion(now, statuses, metrics)

	g.logger.Debug("Report generated",
		zap.Float64("overall_progress", rep.OverallProgress),
		zap.Int("recommendations", len(rep.Recommendations)),
		zap.Int("critical_path_length", len(rep.CriticalPath)))
	return rep
}

// buildRecommendations derives operator guidance from health and blockers:
// one line per unhealthy agent citing its last error, one line per open
// blocker, and a steady-state line when nothing needs attention.
func buildRecommendations(statuses map[v1.AgentID]v1.AgentStatus) []string {
	recs := []string{}
	for _, id := range v1.AllAgentIDs() {
		st, ok := statuses[id]
		if !ok || st.Health != v1.HealthUnhealthy {
			continue
		}
		last := "no error recorded"
		if n := len(st.ErrorMessages); n > 0 {
			last = st.ErrorMessages[n-1]
		}
		recs = append(recs, fmt.Sprintf("Investigate %s: %s", id, last))
	}
	for _, id := range v1.AllAgentIDs() {
		st, ok := statuses[id]
		if !ok {
			continue
		}
		for _, b := range st.Blockers {
			recs = append(recs, fmt.Sprintf("Resolve %s blocker on %s: %s", b.Type, id, b.Detail))
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "All agents healthy with no open blockers; maintain current pace")
	}
	return recs
}

// buildNextActions ranks pending work across all agents by how many other
// agents transitively depend on the owner, then by queue position (queues
// are already priority-ordered per agent).
func buildNextActions(statuses map[v1.AgentID]v1.AgentStatus) []string {
	impact := downstreamImpact(statuses)

	type pendingItem struct {
		agentID v1.AgentID
		name    string
		pos     int
	}
	var items []pendingItem
	for _, id := range v1.AllAgentIDs() {
		st, ok := statuses[id]
		if !ok {
			continue
		}
		for i, name := range st.PendingTasks {
			items = append(items, pendingItem{agentID: id, name: name, pos: i})
		}
	}

	order := make(map[v1.AgentID]int, len(statuses))
	for i, id := range v1.AllAgentIDs() {
		order[id] = i
	}
	sort.SliceStable(items, func(i, j int) bool {
		if impact[items[i].agentID] != impact[items[j].agentID] {
			return impact[items[i].agentID] > impact[items[j].agentID]
		}
		if items[i].pos != items[j].pos {
			return items[i].pos < items[j].pos
		}
		return order[items[i].agentID] < order[items[j].agentID]
	})

	actions := []string{}
	for _, it := range items {
		if len(actions) == maxNextActions {
			break
		}
		actions = append(actions, fmt.Sprintf("%s: %s", it.agentID, it.name))
	}
	return actions
}

// downstreamImpact counts, for each agent, how many other agents reach it
// through their transitive dependency closure.
func downstreamImpact(statuses map[v1.AgentID]v1.AgentStatus) map[v1.AgentID]int {
	deps := make(map[v1.AgentID][]v1.AgentID, len(statuses))
	for id, st := range statuses {
		deps[id] = st.Dependencies
	}

	impact := make(map[v1.AgentID]int)
	for _, start := range v1.AllAgentIDs() {
		seen := make(map[v1.AgentID]bool)
		var walk func(v1.AgentID)
		walk = func(a v1.AgentID) {
			for _, d := range deps[a] {
				if seen[d] {
					continue
				}
				seen[d] = true
				impact[d]++
				walk(d)
			}
		}
		walk(start)
	}
	return impact
}

// criticalPath returns the longest upstream dependency chain among agents
// that still have outstanding work, rendered upstream-first.
func criticalPath(statuses map[v1.AgentID]v1.AgentStatus, metrics map[v1.AgentID]v1.AgentMetrics) []v1.AgentID {
	outstanding := func(id v1.AgentID) bool {
		m, ok := metrics[id]
		return ok && m.TasksInProgress+m.TasksPending > 0
	}

	memo := make(map[v1.AgentID][]v1.AgentID)
	var chain func(id v1.AgentID) []v1.AgentID
	chain = func(id v1.AgentID) []v1.AgentID {
		if c, ok := memo[id]; ok {
			return c
		}
		var best []v1.AgentID
		for _, d := range statuses[id].Dependencies {
			if !outstanding(d) {
				continue
			}
			if c := chain(d); len(c) > len(best) {
				best = c
			}
		}
		out := append(append([]v1.AgentID{}, best...), id)
		memo[id] = out
		return out
	}

	best := []v1.AgentID{}
	for _, id := range v1.AllAgentIDs() {
		if !outstanding(id) {
			continue
		}
		if c := chain(id); len(c) > len(best) {
			best = c
		}
	}
	return best
}

// estimateCompletion projects a finish time: remaining tasks times the
// completion-weighted average task duration, divided across active healthy
// agents. Returns nil when there is no completion history to extrapolate
// from or no healthy agent to do the work.
func estimateCompletion(now time.Time, statuses map[v1.AgentID]v1.AgentStatus, metrics map[v1.AgentID]v1.AgentMetrics) *time.Time {
	remaining := 0
	completed := 0
	weighted := 0.0
	for _, m := range metrics {
		remaining += m.TasksInProgress + m.TasksPending
		if m.TasksCompleted > 0 && m.AverageTaskTimeMs > 0 {
			completed += m.TasksCompleted
			weighted += m.AverageTaskTimeMs * float64(m.TasksCompleted)
		}
	}
	if remaining == 0 || completed == 0 {
		return nil
	}

	workers := 0
	for _, st := range statuses {
		if st.State == v1.LifecycleActive && st.Health == v1.HealthHealthy {
			workers++
		}
	}
	if workers == 0 {
		return nil
	}

	avgMs := weighted / float64(completed)
	eta := now.Add(time.Duration(float64(remaining) * avgMs / float64(workers) * float64(time.Millisecond)))
	return &eta
}
