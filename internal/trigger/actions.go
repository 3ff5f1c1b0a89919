package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/events"
	"github.com/aditya1513/casting-ai-sub015/internal/events/bus"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// reassignBlockedTask moves a blocked active task to the healthiest
// least-loaded other agent. When no agent qualifies the task stays queued
// with its owner; the guard stops repeat attempts while the blocker holds.
func reassignBlockedTask(ctx context.Context, p *Processor, ev *evaluation) (string, error) {
	taskName := ev.status.ActiveTask
	if taskName == "" {
		return "", fmt.Errorf("agent %s has no active task to reassign", ev.agentID)
	}

	target, ok := p.pickReassignTargetLocked(ev.agentID)
	if !ok {
		p.reassigned[ev.agentID] = taskName
		return fmt.Sprintf("no healthy candidate for task %q; left queued on %s", taskName, ev.agentID), nil
	}

	err := p.assignLocked(ctx, target, taskName, reassignPriority, map[string]interface{}{
		"reassigned_from": string(ev.agentID),
	})
	if err != nil {
		return "", err
	}
	p.reassigned[ev.agentID] = taskName

	// Later rules in this pass see the task as moved.
	ev.status.ActiveTask = ""
	ev.status.ProgressPercent = 0
	return fmt.Sprintf("reassigned task %q from %s to %s", taskName, ev.agentID, target), nil
}

// escalateStaleBlocker escalates the oldest blocker past the escalation age.
// A manual firing escalates the oldest blocker regardless of age.
func escalateStaleBlocker(ctx context.Context, p *Processor, ev *evaluation) (string, error) {
	b := p.staleBlockerLocked(ev)
	if b == nil && ev.manual {
		b = oldestBlocker(ev.status.Blockers)
	}
	if b == nil {
		return "", fmt.Errorf("agent %s has no blocker to escalate", ev.agentID)
	}

	if err := p.escalateLocked(ctx, ev.agentID, *b); err != nil {
		return "", err
	}
	ev.metrics.TasksPending++
	return fmt.Sprintf("escalated %s blocker on %s: %s", b.Type, ev.agentID, b.Detail), nil
}

// openRecoveryTask opens a recovery task on an erroring agent, consuming one
// attempt from the shared auto-resolution budget.
func openRecoveryTask(ctx context.Context, p *Processor, ev *evaluation) (string, error) {
	reason := "agent unhealthy"
	if n := len(ev.status.ErrorMessages); n > 0 {
		reason = ev.status.ErrorMessages[n-1]
	}

	attempt, err := p.openRecoveryLocked(ctx, ev.agentID, reason)
	if err != nil {
		return "", err
	}
	ev.metrics.TasksPending++
	return fmt.Sprintf("opened recovery task for %s (attempt %d of %d)",
		ev.agentID, attempt, p.cfg.MaxAutoResolutionAttempts), nil
}

// requestReport publishes a report request for the orchestrator's watcher to
// answer with an immediate report cycle.
func requestReport(ctx context.Context, p *Processor, ev *evaluation) (string, error) {
	if p.eventBus == nil {
		return "", errors.New("no event bus configured")
	}
	requestedBy := "operator"
	if v, ok := ev.params["requested_by"].(string); ok && v != "" {
		requestedBy = v
	}

	event := bus.NewEvent(events.ReportRequested, "trigger-processor", map[string]interface{}{
		"requested_by": requestedBy,
	})
	if err := p.eventBus.Publish(ctx, events.ReportRequested, event); err != nil {
		return "", fmt.Errorf("publish report request: %w", err)
	}
	return "progress report requested", nil
}

// ExecuteAutoResolution reacts to a health transition to UNHEALTHY by
// opening a recovery task, at most max_auto_resolution_attempts times per
// unhealthy episode. The budget resets when the agent is next observed
// healthy; once exhausted the processor gives up with a log.
func (p *Processor) ExecuteAutoResolution(ctx context.Context, id v1.AgentID, status v1.AgentStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	if p.recoverAttempts[id] >= p.cfg.MaxAutoResolutionAttempts {
		p.logger.Warn("Auto-resolution budget exhausted; giving up until agent recovers",
			zap.String("agent_id", string(id)),
			zap.Int("attempts", p.recoverAttempts[id]))
		return
	}

	reason := "health transitioned to UNHEALTHY"
	if n := len(status.ErrorMessages); n > 0 {
		reason = status.ErrorMessages[n-1]
	}

	attempt, err := p.openRecoveryLocked(ctx, id, reason)
	if err != nil {
		p.failures.Add(1)
		p.logger.Error("Auto-resolution failed",
			zap.String("agent_id", string(id)),
			zap.Error(err))
		return
	}
	p.logger.Info("Auto-resolution attempt",
		zap.String("agent_id", string(id)),
		zap.Int("attempt", attempt),
		zap.Int("budget", p.cfg.MaxAutoResolutionAttempts))
}

// ExecuteFailureRecovery reacts to a task failure by opening a corrective
// task at elevated priority rather than merely logging the loss.
func (p *Processor) ExecuteFailureRecovery(ctx context.Context, id v1.AgentID, taskName, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	name := fmt.Sprintf("fix: %s", taskName)
	err := p.assignLocked(ctx, id, name, fixPriority, map[string]interface{}{
		"failed_task": taskName,
		"error":       errMsg,
	})
	if err != nil {
		p.failures.Add(1)
		p.logger.Error("Failure recovery failed",
			zap.String("agent_id", string(id)),
			zap.String("failed_task", taskName),
			zap.Error(err))
		return
	}
	p.logger.Info("Failure recovery task opened",
		zap.String("agent_id", string(id)),
		zap.String("task_name", name))
}

// ExecuteBlockerResolution reacts to a newly detected blocker. Dependency
// and resource blockers are cleared locally by a resolution task whose
// completion removes them; technical and external blockers escalate
// immediately.
func (p *Processor) ExecuteBlockerResolution(ctx context.Context, id v1.AgentID, blocker v1.Blocker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	switch blocker.Type {
	case v1.BlockerDependency, v1.BlockerResource:
		name := fmt.Sprintf("resolve:%s", blocker.Type)
		err := p.assignLocked(ctx, id, name, resolvePriority, map[string]interface{}{
			"blocker_type":   string(blocker.Type),
			"blocker_detail": blocker.Detail,
		})
		if err != nil {
			p.failures.Add(1)
			p.logger.Error("Blocker resolution failed",
				zap.String("agent_id", string(id)),
				zap.String("blocker_type", string(blocker.Type)),
				zap.Error(err))
			return
		}
		p.logger.Info("Blocker resolution task opened",
			zap.String("agent_id", string(id)),
			zap.String("task_name", name))
	case v1.BlockerTechnical, v1.BlockerExternal:
		if err := p.escalateLocked(ctx, id, blocker); err != nil {
			p.failures.Add(1)
			p.logger.Error("Blocker escalation failed",
				zap.String("agent_id", string(id)),
				zap.String("blocker_type", string(blocker.Type)),
				zap.Error(err))
			return
		}
		p.logger.Info("Blocker escalated",
			zap.String("agent_id", string(id)),
			zap.String("blocker_type", string(blocker.Type)))
	default:
		p.logger.Warn("Blocker with unknown type ignored",
			zap.String("agent_id", string(id)),
			zap.String("blocker_type", string(blocker.Type)))
	}
}

// openRecoveryLocked assigns the next recovery task for id and consumes one
// attempt from the auto-resolution budget. Caller holds p.mu and has
// verified budget remains.
func (p *Processor) openRecoveryLocked(ctx context.Context, id v1.AgentID, reason string) (int, error) {
	name := fmt.Sprintf("recover: %s", id)
	err := p.assignLocked(ctx, id, name, recoverPriority, map[string]interface{}{
		"reason": reason,
	})
	if err != nil {
		return 0, err
	}
	p.recoverAttempts[id]++
	return p.recoverAttempts[id], nil
}

// escalateLocked publishes blocker.escalated and opens the escalation task
// with the blocker's owner. Caller holds p.mu.
func (p *Processor) escalateLocked(ctx context.Context, id v1.AgentID, b v1.Blocker) error {
	name := fmt.Sprintf("escalate:%s", b.Type)
	err := p.assignLocked(ctx, id, name, escalatePriority, map[string]interface{}{
		"blocker_type":   string(b.Type),
		"blocker_detail": b.Detail,
	})
	if err != nil {
		return err
	}
	p.escalated[blockerKey(id, b)] = true

	if p.eventBus != nil {
		event := bus.NewEvent(events.BlockerEscalated, "trigger-processor", map[string]interface{}{
			"agent_id":     string(id),
			"blocker_type": string(b.Type),
			"detail":       b.Detail,
			"raised_at":    b.RaisedAt.Format(time.RFC3339Nano),
		})
		if err := p.eventBus.Publish(ctx, events.BuildBlockerEscalatedSubject(string(id)), event); err != nil {
			p.logger.Error("Failed to publish escalation event",
				zap.String("agent_id", string(id)),
				zap.Error(err))
		}
	}
	return nil
}

// assignLocked routes one remediation task through the orchestrator.
// Caller holds p.mu; the directory never calls back into the processor.
func (p *Processor) assignLocked(ctx context.Context, id v1.AgentID, name string, priority int, payload map[string]interface{}) error {
	if p.directory == nil {
		return errors.New("no agent directory wired")
	}
	task := v1.Task{
		ID:        uuid.New().String(),
		Name:      name,
		Priority:  priority,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	result := p.directory.AssignTask(ctx, id, task)
	if !result.Success {
		return fmt.Errorf("assign %q to %s: %s", name, id, result.Message)
	}
	return nil
}

// pickReassignTargetLocked returns the healthiest least-loaded agent other
// than from: ACTIVE, HEALTHY, unblocked, with the fewest in-flight plus
// queued tasks. Ties resolve in canonical agent order.
func (p *Processor) pickReassignTargetLocked(from v1.AgentID) (v1.AgentID, bool) {
	if p.directory == nil {
		return "", false
	}
	statuses := p.directory.GetAllStatuses()
	metrics := p.directory.GetAllMetrics()

	var best v1.AgentID
	bestLoad := 0
	for _, id := range v1.AllAgentIDs() {
		if id == from {
			continue
		}
		st, ok := statuses[id]
		if !ok || st.State != v1.LifecycleActive || st.Health != v1.HealthHealthy || len(st.Blockers) > 0 {
			continue
		}
		load := metrics[id].TasksInProgress + metrics[id].TasksPending
		if best == "" || load < bestLoad {
			best, bestLoad = id, load
		}
	}
	return best, best != ""
}

// staleBlockerLocked returns the oldest blocker past the escalation age not
// yet escalated, or nil. Caller holds p.mu.
func (p *Processor) staleBlockerLocked(ev *evaluation) *v1.Blocker {
	cutoff := time.Now().Add(-p.cfg.EscalationAgeDuration())
	var oldest *v1.Blocker
	for i := range ev.status.Blockers {
		b := &ev.status.Blockers[i]
		if b.RaisedAt.After(cutoff) {
			continue
		}
		if p.escalated[blockerKey(ev.agentID, *b)] {
			continue
		}
		if oldest == nil || b.RaisedAt.Before(oldest.RaisedAt) {
			oldest = b
		}
	}
	return oldest
}

func oldestBlocker(blockers []v1.Blocker) *v1.Blocker {
	var oldest *v1.Blocker
	for i := range blockers {
		if oldest == nil || blockers[i].RaisedAt.Before(oldest.RaisedAt) {
			oldest = &blockers[i]
		}
	}
	return oldest
}

// blockerKey identifies one blocker episode. Detail is excluded because
// variants may refresh it in place while the blocker stands.
func blockerKey(id v1.AgentID, b v1.Blocker) string {
	return fmt.Sprintf("%s|%s|%d", id, b.Type, b.RaisedAt.UnixNano())
}
