// Package trigger implements the automation rule engine that reacts to
// observed agent state: reassigning blocked work, escalating stale blockers,
// and opening recovery tasks. Remediation flows back through the
// orchestrator's task-assignment surface, the only mutating channel.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/events"
	"github.com/aditya1513/casting-ai-sub015/internal/events/bus"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

var (
	// ErrTriggerNotFound is returned when no catalog trigger has the requested name
	ErrTriggerNotFound = errors.New("trigger not found")
	// ErrTriggerDisabled is returned when a disabled trigger is fired manually
	ErrTriggerDisabled = errors.New("trigger is disabled")
	// ErrNotRunning is returned when a manual firing reaches a stopped processor
	ErrNotRunning = errors.New("trigger processor is not running")
)

// AgentDirectory is the orchestrator surface remediation acts through.
type AgentDirectory interface {
	AssignTask(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult
	GetAllStatuses() map[v1.AgentID]v1.AgentStatus
	GetAllMetrics() map[v1.AgentID]v1.AgentMetrics
}

// Processor owns the static trigger catalog and the bookkeeping that keeps
// remediation bounded: per-agent recovery budgets, reassignment guards, and
// escalation records.
type Processor struct {
	cfg      config.TriggersConfig
	logger   *logger.Logger
	eventBus bus.EventBus

	mu        sync.Mutex
	directory AgentDirectory
	rules     []*rule
	running   bool

	// reassigned remembers the active task already moved off each agent so
	// a standing blocker does not fire the reassignment rule every sweep.
	reassigned map[v1.AgentID]string
	// escalated records blockers already escalated, keyed by owner, type
	// and raise time.
	escalated map[string]bool
	// recoverAttempts counts recovery tasks opened per unhealthy episode.
	recoverAttempts map[v1.AgentID]int

	failures atomic.Int64
}

// NewProcessor builds a processor with the static catalog. The agent
// directory is wired separately because the orchestrator that implements it
// is constructed after the processor.
func NewProcessor(cfg config.TriggersConfig, eventBus bus.EventBus, log *logger.Logger) *Processor {
	return &Processor{
		cfg:             cfg,
		logger:          log.WithFields(zap.String("component", "trigger-processor")),
		eventBus:        eventBus,
		rules:           newCatalog(),
		reassigned:      make(map[v1.AgentID]string),
		escalated:       make(map[string]bool),
		recoverAttempts: make(map[v1.AgentID]int),
	}
}

// SetDirectory wires the orchestrator surface actions assign tasks through.
// Must be called before Start.
func (p *Processor) SetDirectory(d AgentDirectory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.directory = d
}

// Start marks the processor running. Starting a running processor is a no-op.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.logger.Info("Trigger processor started", zap.Int("triggers", len(p.rules)))
}

// Stop marks the processor stopped. Stopping a stopped processor is a no-op.
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.logger.Info("Trigger processor stopped")
}

// IsRunning reports whether the processor evaluates and fires triggers.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Failures returns the count of failed automatic trigger actions.
func (p *Processor) Failures() int64 {
	return p.failures.Load()
}

// Triggers returns the catalog in declaration order as independent copies.
func (p *Processor) Triggers() []v1.AutomationTrigger {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]v1.AutomationTrigger, 0, len(p.rules))
	for _, r := range p.rules {
		out = append(out, r.meta.Clone())
	}
	return out
}

// EnableTrigger enables a catalog trigger by id. Enabling an already enabled
// trigger is a no-op returning true; unknown ids return false.
func (p *Processor) EnableTrigger(id string) bool {
	return p.setEnabled(id, true)
}

// DisableTrigger disables a catalog trigger by id. A disabled trigger never
// executes, matched or manual.
func (p *Processor) DisableTrigger(id string) bool {
	return p.setEnabled(id, false)
}

func (p *Processor) setEnabled(id string, enabled bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.rules {
		if r.meta.ID != id {
			continue
		}
		r.meta.Enabled = enabled
		p.logger.WithTriggerID(id).Info("Trigger enablement changed",
			zap.String("trigger", r.meta.Name),
			zap.Bool("enabled", enabled))
		return true
	}
	return false
}

// EvaluateTriggers runs one rule pass for a freshly observed agent. Rules
// are evaluated in catalog-declaration order and share the same mutable
// copies of status and metrics, so a later rule sees state as mutated by an
// earlier one. Action errors are logged and counted, never propagated.
func (p *Processor) EvaluateTriggers(ctx context.Context, id v1.AgentID, status v1.AgentStatus, metrics v1.AgentMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	p.reconcileLocked(id, status)

	ev := &evaluation{agentID: id, status: &status, metrics: &metrics}
	for _, r := range p.rules {
		if !r.meta.Enabled || r.condition == nil {
			continue
		}
		if !r.condition(p, ev) {
			continue
		}
		now := time.Now()
		r.meta.LastExecuted = &now

		msg, err := r.action(ctx, p, ev)
		if err != nil {
			p.failures.Add(1)
			p.logger.WithTriggerID(r.meta.ID).Error("Trigger action failed",
				zap.String("trigger", r.meta.Name),
				zap.String("agent_id", string(id)),
				zap.Error(err))
			continue
		}
		p.publishExecutedLocked(ctx, r.meta, string(id), msg)
		p.logger.WithTriggerID(r.meta.ID).Info("Trigger fired",
			zap.String("trigger", r.meta.Name),
			zap.String("agent_id", string(id)),
			zap.String("result", msg))
	}
}

// reconcileLocked clears bookkeeping a fresh observation invalidates: a
// recovered agent gets its recovery budget back, a changed active task
// releases the reassignment guard, and escalation records for blockers that
// no longer exist are dropped.
func (p *Processor) reconcileLocked(id v1.AgentID, status v1.AgentStatus) {
	if status.Health == v1.HealthHealthy {
		delete(p.recoverAttempts, id)
	}
	if moved, ok := p.reassigned[id]; ok && moved != status.ActiveTask {
		delete(p.reassigned, id)
	}

	live := make(map[string]bool, len(status.Blockers))
	for _, b := range status.Blockers {
		live[blockerKey(id, b)] = true
	}
	prefix := string(id) + "|"
	for k := range p.escalated {
		if strings.HasPrefix(k, prefix) && !live[k] {
			delete(p.escalated, k)
		}
	}
}

// ExecuteManualTrigger fires one trigger by name on operator demand,
// bypassing condition matching. Agent-scoped triggers resolve their target
// from params["agent_id"]. Returns the action's message on success.
func (p *Processor) ExecuteManualTrigger(ctx context.Context, name string, params map[string]interface{}) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return "", ErrNotRunning
	}

	var r *rule
	for _, candidate := range p.rules {
		if candidate.meta.Name == name {
			r = candidate
			break
		}
	}
	if r == nil {
		return "", fmt.Errorf("%w: %q", ErrTriggerNotFound, name)
	}
	if !r.meta.Enabled {
		return "", fmt.Errorf("%w: %q", ErrTriggerDisabled, name)
	}

	ev, err := p.manualEvaluationLocked(name, params)
	if err != nil {
		return "", err
	}

	now := time.Now()
	r.meta.LastExecuted = &now

	msg, err := r.action(ctx, p, ev)
	if err != nil {
		return "", fmt.Errorf("trigger %q failed: %w", name, err)
	}
	p.publishExecutedLocked(ctx, r.meta, string(ev.agentID), msg)
	p.logger.WithTriggerID(r.meta.ID).Info("Trigger fired manually",
		zap.String("trigger", name),
		zap.String("result", msg))
	return msg, nil
}

// manualEvaluationLocked builds the evaluation context for a manual firing.
// The reporting trigger needs no agent; the rest act on the agent named in
// params, loaded fresh from the directory.
func (p *Processor) manualEvaluationLocked(name string, params map[string]interface{}) (*evaluation, error) {
	ev := &evaluation{params: params, manual: true}
	if name == TriggerOnDemandReport {
		return ev, nil
	}

	raw, _ := params["agent_id"].(string)
	id := v1.AgentID(raw)
	if !id.Valid() {
		return nil, fmt.Errorf("trigger %q requires a valid agent_id parameter, got %q", name, raw)
	}
	if p.directory == nil {
		return nil, errors.New("no agent directory wired")
	}

	status := p.directory.GetAllStatuses()[id]
	metrics := p.directory.GetAllMetrics()[id]
	ev.agentID = id
	ev.status = &status
	ev.metrics = &metrics
	return ev, nil
}

// publishExecutedLocked emits trigger.executed for audit consumers.
func (p *Processor) publishExecutedLocked(ctx context.Context, meta v1.AutomationTrigger, agentID, message string) {
	if p.eventBus == nil {
		return
	}
	event := bus.NewEvent(events.TriggerExecuted, "trigger-processor", map[string]interface{}{
		"trigger_id":   meta.ID,
		"trigger_name": meta.Name,
		"trigger_type": string(meta.Type),
		"agent_id":     agentID,
		"message":      message,
	})
	if err := p.eventBus.Publish(ctx, events.TriggerExecuted, event); err != nil {
		p.logger.Error("Failed to publish trigger event",
			zap.String("trigger", meta.Name),
			zap.Error(err))
	}
}
