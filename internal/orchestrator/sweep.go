package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/agent/monitor"
	"github.com/aditya1513/casting-ai-sub015/internal/common/tracing"
	"github.com/aditya1513/casting-ai-sub015/internal/events"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// sweepResult carries one monitor's answer back to the fan-in loop.
type sweepResult struct {
	id      v1.AgentID
	status  v1.AgentStatus
	metrics v1.AgentMetrics
	err     error
}

// statusLoop drives the fast sweep. The first sweep runs immediately so the
// tables reflect reality before the first interval elapses.
func (s *Service) statusLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.StatusCheckIntervalDuration())
	defer ticker.Stop()

	s.runSweep(context.Background())
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runSweep(context.Background())
		}
	}
}

// runSweep checks every monitor concurrently and applies the results as they
// arrive. One slow or broken monitor only costs its own row; the other five
// land untouched.
func (s *Service) runSweep(ctx context.Context) {
	ctx, span := tracing.Tracer("orchestrator").Start(ctx, "orchestrator.sweep")
	defer span.End()

	results := make(chan sweepResult, len(s.monitors))
	var wg sync.WaitGroup
	for id, m := range s.monitors {
		wg.Add(1)
		go func(id v1.AgentID, m monitor.Monitor) {
			defer wg.Done()
			results <- s.checkMonitor(ctx, id, m)
		}(id, m)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var succeeded, failed int
	for res := range results {
		if res.err != nil {
			failed++
			old, updated := s.recordFailure(res.id, res.err)
			s.publishRowDiff(ctx, old, updated)
			s.logger.Error("Status check failed",
				zap.String("agent_id", string(res.id)),
				zap.Error(res.err))
			continue
		}
		succeeded++
		old, updated := s.replaceRows(res.id, res.status, res.metrics)
		s.publishRowDiff(ctx, old, updated)
		// Evaluate with the tables unlocked: the processor reads rows and
		// assigns tasks through the directory on its own locks.
		s.triggers.EvaluateTriggers(ctx, res.id, updated, res.metrics)
	}

	span.SetAttributes(
		attribute.Int("sweep.succeeded", succeeded),
		attribute.Int("sweep.failed", failed),
	)
	s.publish(ctx, events.SweepCompleted, events.SweepCompleted, map[string]interface{}{
		"succeeded": succeeded,
		"failed":    failed,
	})
	s.logger.Debug("Status sweep completed",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))
}

// checkMonitor runs one monitor's CheckStatus and Metrics under the per-check
// timeout. A hung or panicking monitor is reported as an error result rather
// than taking down the sweep.
func (s *Service) checkMonitor(parent context.Context, id v1.AgentID, m monitor.Monitor) sweepResult {
	timeout := s.cfg.CheckTimeoutDuration()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan sweepResult, 1)
	go func() {
		res := sweepResult{id: id}
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("monitor panicked: %v", r)
			}
			done <- res
		}()

		res.status, res.err = m.CheckStatus(ctx)
		if res.err != nil {
			res.err = fmt.Errorf("check status: %w", res.err)
			return
		}
		res.metrics, res.err = m.Metrics(ctx)
		if res.err != nil {
			res.err = fmt.Errorf("collect metrics: %w", res.err)
		}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return sweepResult{
			id:  id,
			err: fmt.Errorf("check timed out after %s: %w", timeout, ctx.Err()),
		}
	}
}

// replaceRows swaps in the monitor's fresh rows and returns before/after
// status copies for diffing. Two guards keep the tables monotonic when an
// answer arrives late or a monitor resets its counters.
func (s *Service) replaceRows(id v1.AgentID, status v1.AgentStatus, metrics v1.AgentMetrics) (old, updated v1.AgentStatus) {
	s.rowsMu.Lock()
	defer s.rowsMu.Unlock()

	prev, ok := s.statuses[id]
	if !ok {
		prev = &v1.AgentStatus{AgentID: id}
		s.statuses[id] = prev
	}
	old = prev.Clone()

	if status.LastCheck.Before(old.LastCheck) {
		status.LastCheck = old.LastCheck
	}
	if len(status.CompletedTasks) < len(old.CompletedTasks) {
		status.CompletedTasks = old.CompletedTasks
	}
	*prev = status
	updated = status.Clone()

	prevMetrics, ok := s.metrics[id]
	if !ok {
		prevMetrics = &v1.AgentMetrics{AgentID: id}
		s.metrics[id] = prevMetrics
	}
	if metrics.TasksCompleted < prevMetrics.TasksCompleted {
		metrics.TasksCompleted = prevMetrics.TasksCompleted
	}
	*prevMetrics = metrics

	return old, updated
}

// recordFailure folds a failed check into the agent's row: the state drops
// to ERROR, health to UNHEALTHY, and the error joins the bounded history.
// The metrics row keeps its last good values.
func (s *Service) recordFailure(id v1.AgentID, err error) (old, updated v1.AgentStatus) {
	s.rowsMu.Lock()
	defer s.rowsMu.Unlock()

	row, ok := s.statuses[id]
	if !ok {
		row = &v1.AgentStatus{AgentID: id}
		s.statuses[id] = row
	}
	old = row.Clone()

	row.State = v1.LifecycleError
	row.Health = v1.HealthUnhealthy
	row.LastCheck = time.Now().UTC()
	row.ErrorMessages = append(row.ErrorMessages, err.Error())
	if len(row.ErrorMessages) > maxStoredErrors {
		row.ErrorMessages = row.ErrorMessages[len(row.ErrorMessages)-maxStoredErrors:]
	}

	return old, row.Clone()
}

// publishRowDiff emits the observable transitions between two versions of
// one agent's status row: state and health changes, tasks that completed or
// failed, and newly raised blockers.
func (s *Service) publishRowDiff(ctx context.Context, old, updated v1.AgentStatus) {
	id := string(updated.AgentID)

	if old.State != updated.State {
		s.publish(ctx, events.AgentStatusChanged, events.BuildAgentStatusSubject(id), map[string]interface{}{
			"agent_id":  id,
			"old_state": string(old.State),
			"new_state": string(updated.State),
		})
	}
	if old.Health != updated.Health {
		s.publish(ctx, events.AgentHealthChanged, events.BuildAgentHealthSubject(id), map[string]interface{}{
			"agent_id":   id,
			"old_health": string(old.Health),
			"new_health": string(updated.Health),
		})
	}

	var completed []string
	if len(updated.CompletedTasks) > len(old.CompletedTasks) {
		completed = updated.CompletedTasks[len(old.CompletedTasks):]
	}
	for _, name := range completed {
		s.publish(ctx, events.TaskCompleted, events.BuildTaskCompletedSubject(id), map[string]interface{}{
			"agent_id":  id,
			"task_name": name,
		})
	}

	// A task that left the active slot without joining the completed list
	// was lost to a failure.
	if old.ActiveTask != "" && old.ActiveTask != updated.ActiveTask && !containsTask(completed, old.ActiveTask) {
		errMsg := "task no longer active"
		if n := len(updated.ErrorMessages); n > 0 {
			errMsg = updated.ErrorMessages[n-1]
		}
		s.publish(ctx, events.TaskFailed, events.BuildTaskFailedSubject(id), map[string]interface{}{
			"agent_id":  id,
			"task_name": old.ActiveTask,
			"error":     errMsg,
		})
	}

	for _, b := range updated.Blockers {
		if hasBlocker(old.Blockers, b) {
			continue
		}
		s.publish(ctx, events.BlockerDetected, events.BuildBlockerDetectedSubject(id), map[string]interface{}{
			"agent_id":     id,
			"blocker_type": string(b.Type),
			"detail":       b.Detail,
			"raised_at":    b.RaisedAt.Format(time.RFC3339Nano),
		})
	}
}

func containsTask(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// hasBlocker matches on type and raise time; the detail may be refreshed in
// place while the blocker stays the same episode.
func hasBlocker(blockers []v1.Blocker, b v1.Blocker) bool {
	for _, existing := range blockers {
		if existing.Type == b.Type && existing.RaisedAt.Equal(b.RaisedAt) {
			return true
		}
	}
	return false
}
