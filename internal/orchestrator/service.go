// Package orchestrator implements the control loop that tracks the six
// development agents. It owns the canonical status and metrics tables,
// sweeps all monitors concurrently on a fixed cadence, feeds every fresh
// row through the trigger processor, and publishes progress reports.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aditya1513/casting-ai-sub015/internal/agent/monitor"
	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/events"
	"github.com/aditya1513/casting-ai-sub015/internal/events/bus"
	"github.com/aditya1513/casting-ai-sub015/internal/orchestrator/watcher"
	"github.com/aditya1513/casting-ai-sub015/internal/plan"
	"github.com/aditya1513/casting-ai-sub015/internal/report"
	"github.com/aditya1513/casting-ai-sub015/internal/trigger"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// maxStoredErrors caps the error history kept on a failed agent's row.
const maxStoredErrors = 10

// The processor reads rows and assigns remediation work through the service.
var _ trigger.AgentDirectory = (*Service)(nil)

// Service is the orchestration core. It satisfies trigger.AgentDirectory so
// the processor can read rows and assign remediation tasks through it.
type Service struct {
	cfg      config.OrchestratorConfig
	logger   *logger.Logger
	eventBus bus.EventBus
	monitors map[v1.AgentID]monitor.Monitor
	triggers *trigger.Processor
	reporter *report.Generator
	watcher  *watcher.Watcher

	// rowsMu guards the two canonical tables. Rows are stored as pointers
	// and mutated in place; every read path hands out deep copies.
	rowsMu   sync.RWMutex
	statuses map[v1.AgentID]*v1.AgentStatus
	metrics  map[v1.AgentID]*v1.AgentMetrics

	reportMu     sync.RWMutex
	latestReport *v1.ProgressReport
	reportGroup  singleflight.Group

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	startedAt time.Time
}

// NewService wires the orchestrator together. The monitor set is injected so
// tests can substitute fakes for the six domain monitors.
func NewService(
	cfg config.OrchestratorConfig,
	monitors map[v1.AgentID]monitor.Monitor,
	triggers *trigger.Processor,
	reporter *report.Generator,
	eventBus bus.EventBus,
	log *logger.Logger,
) *Service {
	s := &Service{
		cfg:      cfg,
		logger:   log.WithFields(zap.String("component", "orchestrator")),
		eventBus: eventBus,
		monitors: monitors,
		triggers: triggers,
		reporter: reporter,
		statuses: make(map[v1.AgentID]*v1.AgentStatus),
		metrics:  make(map[v1.AgentID]*v1.AgentMetrics),
	}

	now := time.Now().UTC()
	for _, id := range v1.AllAgentIDs() {
		s.statuses[id] = &v1.AgentStatus{
			AgentID:   id,
			State:     v1.LifecycleInitializing,
			Health:    v1.HealthUnknown,
			LastCheck: now,
		}
		s.metrics[id] = &v1.AgentMetrics{
			AgentID:     id,
			Timestamp:   now,
			SuccessRate: 1,
		}
	}

	s.watcher = watcher.NewWatcher(eventBus, watcher.EventHandlers{
		OnHealthChanged:   s.handleHealthChanged,
		OnTaskFailed:      s.handleTaskFailed,
		OnBlockerDetected: s.handleBlockerDetected,
		OnReportRequested: s.handleReportRequested,
	}, log)

	return s
}

// Start boots the monitors, seeds the development plan, and launches the
// status and reporting loops. Starting a running service is a no-op. The
// context bounds boot work only; the loops run until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.logger.Info("Starting orchestration service",
		zap.Duration("status_check_interval", s.cfg.StatusCheckIntervalDuration()),
		zap.Duration("reporting_interval", s.cfg.ReportingIntervalDuration()))

	for _, id := range v1.AllAgentIDs() {
		m, ok := s.monitors[id]
		if !ok {
			return fmt.Errorf("no monitor registered for agent %q", id)
		}
		if err := m.Start(ctx); err != nil {
			s.logger.Error("Monitor failed to start",
				zap.String("agent_id", string(id)),
				zap.Error(err))
			s.recordFailure(id, fmt.Errorf("monitor start: %w", err))
			continue
		}
	}

	s.seedPlan(ctx)

	if err := s.watcher.Start(ctx); err != nil {
		// Degraded but functional: sweeps and reports still run, only the
		// event-driven remediation paths go dark.
		s.logger.Error("Event watcher failed to start", zap.Error(err))
	}
	s.triggers.Start()

	s.stopCh = make(chan struct{})
	s.running = true
	s.startedAt = time.Now().UTC()

	s.wg.Add(2)
	go s.statusLoop()
	go s.reportLoop()

	s.publish(ctx, events.OrchestratorStarted, events.OrchestratorStarted, map[string]interface{}{
		"agents": len(s.monitors),
	})
	s.logger.Info("Orchestration service started")
	return nil
}

// Stop halts the loops, letting an in-flight sweep finish, then shuts down
// the watcher, the monitors, and the trigger processor. Stopping a stopped
// service is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("Stopping orchestration service")
	close(s.stopCh)
	s.wg.Wait()
	s.running = false

	if err := s.watcher.Stop(); err != nil {
		s.logger.Warn("Event watcher stop failed", zap.Error(err))
	}

	for _, id := range v1.AllAgentIDs() {
		m, ok := s.monitors[id]
		if !ok {
			continue
		}
		if err := m.Stop(ctx); err != nil {
			s.logger.Warn("Monitor stop failed",
				zap.String("agent_id", string(id)),
				zap.Error(err))
		}
	}
	s.triggers.Stop()

	s.publish(ctx, events.OrchestratorStopped, events.OrchestratorStopped, map[string]interface{}{
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
	})
	s.logger.Info("Orchestration service stopped")
	return nil
}

// Running reports whether the control loops are active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// seedPlan assigns the tasks of the configured development plan, if any.
// A broken plan degrades to an empty backlog rather than failing the boot.
func (s *Service) seedPlan(ctx context.Context) {
	if s.cfg.PlanPath == "" {
		return
	}

	p, err := plan.Load(s.cfg.PlanPath)
	if err != nil {
		s.logger.Warn("Failed to load development plan",
			zap.String("path", s.cfg.PlanPath),
			zap.Error(err))
		return
	}

	seeded := 0
	for _, id := range v1.AllAgentIDs() {
		for _, task := range p.Tasks(id) {
			result := s.AssignTask(ctx, id, task)
			if !result.Success {
				s.logger.Warn("Failed to seed planned task",
					zap.String("agent_id", string(id)),
					zap.String("task_name", task.Name),
					zap.String("reason", result.Message))
				continue
			}
			seeded++
		}
	}
	s.logger.Info("Development plan seeded",
		zap.String("path", s.cfg.PlanPath),
		zap.Int("tasks", seeded))
}

// GetAgentStatus returns a copy of one agent's status row.
func (s *Service) GetAgentStatus(id v1.AgentID) (v1.AgentStatus, bool) {
	s.rowsMu.RLock()
	defer s.rowsMu.RUnlock()

	row, ok := s.statuses[id]
	if !ok {
		return v1.AgentStatus{}, false
	}
	return row.Clone(), true
}

// GetAllStatuses returns copies of all six status rows keyed by agent id.
func (s *Service) GetAllStatuses() map[v1.AgentID]v1.AgentStatus {
	s.rowsMu.RLock()
	defer s.rowsMu.RUnlock()

	out := make(map[v1.AgentID]v1.AgentStatus, len(s.statuses))
	for id, row := range s.statuses {
		out[id] = row.Clone()
	}
	return out
}

// GetAgentMetrics returns a copy of one agent's metrics row.
func (s *Service) GetAgentMetrics(id v1.AgentID) (v1.AgentMetrics, bool) {
	s.rowsMu.RLock()
	defer s.rowsMu.RUnlock()

	row, ok := s.metrics[id]
	if !ok {
		return v1.AgentMetrics{}, false
	}
	return *row, true
}

// GetAllMetrics returns copies of all six metrics rows keyed by agent id.
func (s *Service) GetAllMetrics() map[v1.AgentID]v1.AgentMetrics {
	s.rowsMu.RLock()
	defer s.rowsMu.RUnlock()

	out := make(map[v1.AgentID]v1.AgentMetrics, len(s.metrics))
	for id, row := range s.metrics {
		out[id] = *row
	}
	return out
}

// GetHealthSummary tallies the current health column across all six rows.
func (s *Service) GetHealthSummary() v1.HealthSummary {
	s.rowsMu.RLock()
	defer s.rowsMu.RUnlock()

	var summary v1.HealthSummary
	for _, row := range s.statuses {
		switch row.Health {
		case v1.HealthHealthy:
			summary.Healthy++
		case v1.HealthUnhealthy:
			summary.Unhealthy++
		default:
			summary.Unknown++
		}
	}
	return summary
}

// AssignTask hands a task to an agent's monitor. Missing id and timestamp
// are filled in here so callers can pass bare name/priority/payload tasks.
func (s *Service) AssignTask(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult {
	m, ok := s.monitors[id]
	if !ok {
		return v1.CommandResult{
			Success: false,
			Message: fmt.Sprintf("unknown agent %q", id),
		}
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	if err := m.AssignTask(ctx, task); err != nil {
		s.logger.Warn("Task assignment rejected",
			zap.String("agent_id", string(id)),
			zap.String("task_name", task.Name),
			zap.Error(err))
		return v1.CommandResult{Success: false, Message: err.Error()}
	}

	// Reflect the new work in the canonical tables immediately; the next
	// sweep replaces both rows with the monitor's own accounting.
	s.rowsMu.Lock()
	if row, ok := s.statuses[id]; ok {
		row.PendingTasks = append(row.PendingTasks, task.Name)
	}
	if row, ok := s.metrics[id]; ok {
		row.TasksPending++
	}
	s.rowsMu.Unlock()

	s.publish(ctx, events.TaskAssigned, events.BuildTaskAssignedSubject(string(id)), map[string]interface{}{
		"agent_id":  string(id),
		"task_id":   task.ID,
		"task_name": task.Name,
		"priority":  task.Priority,
	})
	s.logger.Info("Task assigned",
		zap.String("agent_id", string(id)),
		zap.String("task_name", task.Name),
		zap.Int("priority", task.Priority))

	return v1.CommandResult{
		Success: true,
		Message: fmt.Sprintf("task %q assigned to %s", task.Name, id),
	}
}

// ExecuteManualTrigger fires a trigger by name on behalf of an operator.
// Errors are the trigger package's sentinels so callers can tell an unknown
// trigger from a disabled one.
func (s *Service) ExecuteManualTrigger(ctx context.Context, name string, params map[string]interface{}) (string, error) {
	return s.triggers.ExecuteManualTrigger(ctx, name, params)
}

// Triggers returns the current trigger catalog.
func (s *Service) Triggers() []v1.AutomationTrigger {
	return s.triggers.Triggers()
}

// EnableTrigger re-arms a trigger by id.
func (s *Service) EnableTrigger(id string) bool {
	return s.triggers.EnableTrigger(id)
}

// DisableTrigger disarms a trigger by id.
func (s *Service) DisableTrigger(id string) bool {
	return s.triggers.DisableTrigger(id)
}

// handleHealthChanged reacts to a health transition observed on the bus.
// Only drops to UNHEALTHY are actionable.
func (s *Service) handleHealthChanged(ctx context.Context, data watcher.HealthChangeData) {
	if v1.HealthState(data.NewHealth) != v1.HealthUnhealthy {
		return
	}
	id := v1.AgentID(data.AgentID)
	status, ok := s.GetAgentStatus(id)
	if !ok {
		s.logger.Warn("Health change for unknown agent", zap.String("agent_id", data.AgentID))
		return
	}
	s.triggers.ExecuteAutoResolution(ctx, id, status)
}

// handleTaskFailed reacts to a task failure observed on the bus.
func (s *Service) handleTaskFailed(ctx context.Context, data watcher.TaskFailureData) {
	id := v1.AgentID(data.AgentID)
	if !id.Valid() {
		s.logger.Warn("Task failure for unknown agent", zap.String("agent_id", data.AgentID))
		return
	}
	s.triggers.ExecuteFailureRecovery(ctx, id, data.TaskName, data.Error)
}

// handleBlockerDetected reacts to a newly raised blocker observed on the bus.
func (s *Service) handleBlockerDetected(ctx context.Context, data watcher.BlockerData) {
	id := v1.AgentID(data.AgentID)
	if !id.Valid() {
		s.logger.Warn("Blocker for unknown agent", zap.String("agent_id", data.AgentID))
		return
	}
	s.triggers.ExecuteBlockerResolution(ctx, id, v1.Blocker{
		Type:     v1.BlockerType(data.BlockerType),
		Detail:   data.Detail,
		RaisedAt: data.RaisedAt,
	})
}

// handleReportRequested regenerates the progress report out of cycle.
func (s *Service) handleReportRequested(ctx context.Context, data watcher.ReportRequestData) {
	s.logger.Info("On-demand report requested", zap.String("requested_by", data.RequestedBy))
	s.refreshReport(ctx)
}
