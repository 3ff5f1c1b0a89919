package trigger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/events"
	"github.com/aditya1513/casting-ai-sub015/internal/events/bus"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

func newTestLogger(t *testing.T) *logger.Logger {
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      "error",
		Format:     "console",
		OutputPath: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func testTriggersConfig() config.TriggersConfig {
	return config.TriggersConfig{
		MaxAutoResolutionAttempts: 3,
		EscalationAge:             1800,
	}
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	subject string
	event   *bus.Event
}

func (b *recordingBus) Publish(ctx context.Context, subject string, event *bus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{subject: subject, event: event})
	return nil
}

func (b *recordingBus) Subscribe(subject string, handler bus.EventHandler) (bus.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *recordingBus) Close() {}

func (b *recordingBus) IsConnected() bool { return true }

func (b *recordingBus) byType(eventType string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeDirectory is a canned orchestrator surface that records assignments.
type fakeDirectory struct {
	mu          sync.Mutex
	statuses    map[v1.AgentID]v1.AgentStatus
	metrics     map[v1.AgentID]v1.AgentMetrics
	rejectAll   bool
	assignments []assignment
}

type assignment struct {
	agentID v1.AgentID
	task    v1.Task
}

func newFakeDirectory() *fakeDirectory {
	statuses := make(map[v1.AgentID]v1.AgentStatus)
	metrics := make(map[v1.AgentID]v1.AgentMetrics)
	for _, id := range v1.AllAgentIDs() {
		statuses[id] = v1.AgentStatus{
			AgentID:   id,
			State:     v1.LifecycleActive,
			Health:    v1.HealthHealthy,
			LastCheck: time.Now(),
		}
		metrics[id] = v1.AgentMetrics{AgentID: id, SuccessRate: 1}
	}
	return &fakeDirectory{statuses: statuses, metrics: metrics}
}

func (d *fakeDirectory) AssignTask(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rejectAll {
		return v1.CommandResult{Success: false, Message: "assignment rejected"}
	}
	d.assignments = append(d.assignments, assignment{agentID: id, task: task})
	return v1.CommandResult{Success: true, Message: "task queued"}
}

func (d *fakeDirectory) GetAllStatuses() map[v1.AgentID]v1.AgentStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[v1.AgentID]v1.AgentStatus, len(d.statuses))
	for id, st := range d.statuses {
		out[id] = st.Clone()
	}
	return out
}

func (d *fakeDirectory) GetAllMetrics() map[v1.AgentID]v1.AgentMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[v1.AgentID]v1.AgentMetrics, len(d.metrics))
	for id, m := range d.metrics {
		out[id] = m
	}
	return out
}

func (d *fakeDirectory) assigned() []assignment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]assignment(nil), d.assignments...)
}

func (d *fakeDirectory) setStatus(id v1.AgentID, mutate func(*v1.AgentStatus)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.statuses[id]
	mutate(&st)
	d.statuses[id] = st
}

func (d *fakeDirectory) setMetrics(id v1.AgentID, mutate func(*v1.AgentMetrics)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.metrics[id]
	mutate(&m)
	d.metrics[id] = m
}

func newTestProcessor(t *testing.T) (*Processor, *fakeDirectory, *recordingBus) {
	t.Helper()
	eventBus := &recordingBus{}
	directory := newFakeDirectory()
	p := NewProcessor(testTriggersConfig(), eventBus, newTestLogger(t))
	p.SetDirectory(directory)
	p.Start()
	return p, directory, eventBus
}

func findTrigger(t *testing.T, p *Processor, name string) v1.AutomationTrigger {
	t.Helper()
	for _, trig := range p.Triggers() {
		if trig.Name == name {
			return trig
		}
	}
	t.Fatalf("trigger %q not in catalog", name)
	return v1.AutomationTrigger{}
}

func TestCatalogOrder(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	triggers := p.Triggers()
	if len(triggers) != 4 {
		t.Fatalf("expected 4 catalog triggers, got %d", len(triggers))
	}

	wantNames := []string{
		TriggerAutoTaskReassignment,
		TriggerBlockerEscalation,
		TriggerFailureRecoveryTask,
		TriggerOnDemandReport,
	}
	wantTypes := []v1.TriggerType{
		v1.TriggerTaskReassignment,
		v1.TriggerEscalation,
		v1.TriggerRecovery,
		v1.TriggerReporting,
	}
	for i, trig := range triggers {
		if trig.Name != wantNames[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantNames[i], trig.Name)
		}
		if trig.Type != wantTypes[i] {
			t.Errorf("position %d: expected type %s, got %s", i, wantTypes[i], trig.Type)
		}
		if !trig.Enabled {
			t.Errorf("trigger %s should start enabled", trig.Name)
		}
		if trig.ID == "" {
			t.Errorf("trigger %s has no id", trig.Name)
		}
		if trig.LastExecuted != nil {
			t.Errorf("trigger %s should have no execution history", trig.Name)
		}
	}
}

func TestEvaluateRequiresRunning(t *testing.T) {
	eventBus := &recordingBus{}
	directory := newFakeDirectory()
	p := NewProcessor(testTriggersConfig(), eventBus, newTestLogger(t))
	p.SetDirectory(directory)

	status := v1.AgentStatus{
		AgentID:    v1.AgentBackend,
		State:      v1.LifecycleError,
		Health:     v1.HealthUnhealthy,
		ActiveTask: "deploy api",
		Blockers:   []v1.Blocker{{Type: v1.BlockerTechnical, Detail: "x", RaisedAt: time.Now().Add(-time.Hour)}},
	}
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{})

	if n := len(directory.assigned()); n != 0 {
		t.Errorf("expected no assignments before Start, got %d", n)
	}
}

func TestReassignBlockedTask(t *testing.T) {
	p, directory, eventBus := newTestProcessor(t)

	// Frontend carries load; ai-ml is the first idle healthy candidate in
	// canonical order.
	directory.setMetrics(v1.AgentFrontend, func(m *v1.AgentMetrics) {
		m.TasksPending = 2
	})

	status := v1.AgentStatus{
		AgentID:    v1.AgentBackend,
		State:      v1.LifecycleActive,
		Health:     v1.HealthHealthy,
		ActiveTask: "implement talent search",
		Blockers: []v1.Blocker{
			{Type: v1.BlockerResource, Detail: "connection pool exhausted", RaisedAt: time.Now()},
		},
	}
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{TasksInProgress: 1})

	assigned := directory.assigned()
	if len(assigned) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assigned))
	}
	if assigned[0].agentID != v1.AgentAIML {
		t.Errorf("expected reassignment to ai-ml, got %s", assigned[0].agentID)
	}
	if assigned[0].task.Name != "implement talent search" {
		t.Errorf("unexpected task name %q", assigned[0].task.Name)
	}
	if assigned[0].task.Payload["reassigned_from"] != "backend" {
		t.Errorf("payload should carry the source agent, got %v", assigned[0].task.Payload)
	}

	if got := eventBus.byType(events.TriggerExecuted); len(got) != 1 {
		t.Errorf("expected 1 trigger.executed event, got %d", len(got))
	}
	trig := findTrigger(t, p, TriggerAutoTaskReassignment)
	if trig.LastExecuted == nil {
		t.Error("last_executed should be stamped")
	}

	// Same observation again: the guard stops a repeat move.
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{TasksInProgress: 1})
	if n := len(directory.assigned()); n != 1 {
		t.Errorf("expected no repeat reassignment, got %d assignments", n)
	}
}

func TestReassignNoCandidateKeepsTask(t *testing.T) {
	p, directory, _ := newTestProcessor(t)

	for _, id := range v1.AllAgentIDs() {
		directory.setStatus(id, func(st *v1.AgentStatus) {
			st.Health = v1.HealthUnhealthy
		})
	}

	status := v1.AgentStatus{
		AgentID:    v1.AgentBackend,
		State:      v1.LifecycleActive,
		Health:     v1.HealthHealthy,
		ActiveTask: "implement talent search",
		Blockers: []v1.Blocker{
			{Type: v1.BlockerResource, Detail: "pool exhausted", RaisedAt: time.Now()},
		},
	}
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{})

	if n := len(directory.assigned()); n != 0 {
		t.Errorf("expected no assignment without a healthy candidate, got %d", n)
	}
}

func TestDisabledReassignmentLeavesBlocker(t *testing.T) {
	p, directory, _ := newTestProcessor(t)

	trig := findTrigger(t, p, TriggerAutoTaskReassignment)
	if !p.DisableTrigger(trig.ID) {
		t.Fatal("disable should succeed for a known id")
	}

	status := v1.AgentStatus{
		AgentID:    v1.AgentBackend,
		State:      v1.LifecycleActive,
		Health:     v1.HealthHealthy,
		ActiveTask: "implement talent search",
		Blockers: []v1.Blocker{
			{Type: v1.BlockerDependency, Detail: "schema pending", RaisedAt: time.Now()},
		},
	}
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{})

	if n := len(directory.assigned()); n != 0 {
		t.Errorf("disabled trigger must not act, got %d assignments", n)
	}
	if got := findTrigger(t, p, TriggerAutoTaskReassignment); got.LastExecuted != nil {
		t.Error("disabled trigger must not stamp last_executed")
	}
}

func TestBlockerEscalation(t *testing.T) {
	p, directory, eventBus := newTestProcessor(t)

	stale := v1.Blocker{
		Type:     v1.BlockerTechnical,
		Detail:   "migration stuck",
		RaisedAt: time.Now().Add(-time.Hour),
	}
	status := v1.AgentStatus{
		AgentID:  v1.AgentBackend,
		State:    v1.LifecycleActive,
		Health:   v1.HealthHealthy,
		Blockers: []v1.Blocker{stale},
	}
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{})

	assigned := directory.assigned()
	if len(assigned) != 1 {
		t.Fatalf("expected 1 escalation task, got %d", len(assigned))
	}
	if assigned[0].agentID != v1.AgentBackend {
		t.Errorf("escalation task belongs to the owner, got %s", assigned[0].agentID)
	}
	if assigned[0].task.Name != "escalate:TECHNICAL" {
		t.Errorf("unexpected task name %q", assigned[0].task.Name)
	}
	if assigned[0].task.Priority != escalatePriority {
		t.Errorf("expected priority %d, got %d", escalatePriority, assigned[0].task.Priority)
	}

	escalations := eventBus.byType(events.BlockerEscalated)
	if len(escalations) != 1 {
		t.Fatalf("expected 1 blocker.escalated event, got %d", len(escalations))
	}
	if escalations[0].subject != events.BuildBlockerEscalatedSubject("backend") {
		t.Errorf("unexpected subject %q", escalations[0].subject)
	}

	// The same standing blocker must not escalate twice.
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{})
	if n := len(directory.assigned()); n != 1 {
		t.Errorf("expected no repeat escalation, got %d assignments", n)
	}

	// Blocker clears, then a new episode of the same type escalates again.
	clearStatus := status
	clearStatus.Blockers = nil
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, clearStatus, v1.AgentMetrics{})

	fresh := stale
	fresh.RaisedAt = time.Now().Add(-2 * time.Hour)
	reblocked := status
	reblocked.Blockers = []v1.Blocker{fresh}
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, reblocked, v1.AgentMetrics{})
	if n := len(directory.assigned()); n != 2 {
		t.Errorf("expected a new episode to escalate, got %d assignments", n)
	}
}

func TestFreshBlockerNotEscalated(t *testing.T) {
	p, directory, _ := newTestProcessor(t)

	status := v1.AgentStatus{
		AgentID: v1.AgentBackend,
		State:   v1.LifecycleActive,
		Health:  v1.HealthHealthy,
		Blockers: []v1.Blocker{
			{Type: v1.BlockerTechnical, Detail: "new issue", RaisedAt: time.Now()},
		},
	}
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{})

	if n := len(directory.assigned()); n != 0 {
		t.Errorf("a blocker younger than the escalation age must not escalate, got %d", n)
	}
}

func TestRecoveryBudget(t *testing.T) {
	p, directory, _ := newTestProcessor(t)

	errored := v1.AgentStatus{
		AgentID:       v1.AgentTesting,
		State:         v1.LifecycleError,
		Health:        v1.HealthUnhealthy,
		ErrorMessages: []string{"suite crashed"},
	}

	// Three attempts allowed per episode, then the rule stops matching.
	for i := 0; i < 5; i++ {
		p.EvaluateTriggers(context.Background(), v1.AgentTesting, errored, v1.AgentMetrics{})
	}
	assigned := directory.assigned()
	if len(assigned) != 3 {
		t.Fatalf("expected 3 recovery tasks, got %d", len(assigned))
	}
	for _, a := range assigned {
		if a.task.Name != "recover: testing" {
			t.Errorf("unexpected task name %q", a.task.Name)
		}
		if a.task.Payload["reason"] != "suite crashed" {
			t.Errorf("reason should carry the last error, got %v", a.task.Payload)
		}
	}

	// Recovery resets the budget; a new episode gets fresh attempts.
	healthy := errored
	healthy.State = v1.LifecycleActive
	healthy.Health = v1.HealthHealthy
	healthy.ErrorMessages = nil
	p.EvaluateTriggers(context.Background(), v1.AgentTesting, healthy, v1.AgentMetrics{})

	p.EvaluateTriggers(context.Background(), v1.AgentTesting, errored, v1.AgentMetrics{})
	if n := len(directory.assigned()); n != 4 {
		t.Errorf("expected a fresh attempt after recovery, got %d assignments", n)
	}
}

func TestRulesShareMutationsWithinPass(t *testing.T) {
	p, directory, _ := newTestProcessor(t)

	// Unhealthy agent with a blocked active task: reassignment fires first,
	// then failure recovery sees the same pass's mutated copy. Both act.
	status := v1.AgentStatus{
		AgentID:    v1.AgentBackend,
		State:      v1.LifecycleActive,
		Health:     v1.HealthUnhealthy,
		ActiveTask: "deploy api",
		Blockers: []v1.Blocker{
			{Type: v1.BlockerResource, Detail: "disk full", RaisedAt: time.Now()},
		},
		ErrorMessages: []string{"probe: 503"},
	}
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, status, v1.AgentMetrics{})

	assigned := directory.assigned()
	if len(assigned) != 2 {
		t.Fatalf("expected reassignment then recovery, got %d assignments", len(assigned))
	}
	if assigned[0].task.Name != "deploy api" {
		t.Errorf("first assignment should be the moved task, got %q", assigned[0].task.Name)
	}
	if assigned[1].task.Name != "recover: backend" {
		t.Errorf("second assignment should be the recovery task, got %q", assigned[1].task.Name)
	}
}

func TestExecuteAutoResolutionBudget(t *testing.T) {
	p, directory, _ := newTestProcessor(t)

	status := v1.AgentStatus{
		AgentID:       v1.AgentBackend,
		Health:        v1.HealthUnhealthy,
		ErrorMessages: []string{"probe: connection refused"},
	}
	for i := 0; i < 5; i++ {
		p.ExecuteAutoResolution(context.Background(), v1.AgentBackend, status)
	}

	assigned := directory.assigned()
	if len(assigned) != 3 {
		t.Fatalf("expected 3 recovery assignments, got %d", len(assigned))
	}
	if assigned[0].task.Payload["reason"] != "probe: connection refused" {
		t.Errorf("reason should carry the last error, got %v", assigned[0].task.Payload)
	}

	// Observing the agent healthy resets the episode.
	p.EvaluateTriggers(context.Background(), v1.AgentBackend, v1.AgentStatus{
		AgentID: v1.AgentBackend,
		State:   v1.LifecycleActive,
		Health:  v1.HealthHealthy,
	}, v1.AgentMetrics{})

	p.ExecuteAutoResolution(context.Background(), v1.AgentBackend, status)
	if n := len(directory.assigned()); n != 4 {
		t.Errorf("expected a fresh attempt after recovery, got %d", n)
	}
}

func TestExecuteFailureRecovery(t *testing.T) {
	p, directory, _ := newTestProcessor(t)

	p.ExecuteFailureRecovery(context.Background(), v1.AgentFrontend, "build profile page", "timeout")

	assigned := directory.assigned()
	if len(assigned) != 1 {
		t.Fatalf("expected 1 corrective task, got %d", len(assigned))
	}
	if assigned[0].agentID != v1.AgentFrontend {
		t.Errorf("unexpected agent %s", assigned[0].agentID)
	}
	if assigned[0].task.Name != "fix: build profile page" {
		t.Errorf("unexpected task name %q", assigned[0].task.Name)
	}
	if assigned[0].task.Priority != fixPriority {
		t.Errorf("expected priority %d, got %d", fixPriority, assigned[0].task.Priority)
	}
	if assigned[0].task.Payload["error"] != "timeout" {
		t.Errorf("payload should carry the failure, got %v", assigned[0].task.Payload)
	}
}

func TestExecuteBlockerResolution(t *testing.T) {
	p, directory, eventBus := newTestProcessor(t)

	p.ExecuteBlockerResolution(context.Background(), v1.AgentAIML, v1.Blocker{
		Type:     v1.BlockerDependency,
		Detail:   "waiting on feature store",
		RaisedAt: time.Now(),
	})
	p.ExecuteBlockerResolution(context.Background(), v1.AgentAIML, v1.Blocker{
		Type:     v1.BlockerExternal,
		Detail:   "partner API down",
		RaisedAt: time.Now(),
	})

	assigned := directory.assigned()
	if len(assigned) != 2 {
		t.Fatalf("expected 2 remediation tasks, got %d", len(assigned))
	}
	if assigned[0].task.Name != "resolve:DEPENDENCY" {
		t.Errorf("dependency blocker should resolve locally, got %q", assigned[0].task.Name)
	}
	if assigned[1].task.Name != "escalate:EXTERNAL" {
		t.Errorf("external blocker should escalate, got %q", assigned[1].task.Name)
	}
	if got := eventBus.byType(events.BlockerEscalated); len(got) != 1 {
		t.Errorf("expected 1 blocker.escalated event, got %d", len(got))
	}
}

func TestActionFailureCounted(t *testing.T) {
	p, directory, _ := newTestProcessor(t)
	directory.rejectAll = true

	p.ExecuteFailureRecovery(context.Background(), v1.AgentBackend, "deploy api", "boom")

	if got := p.Failures(); got != 1 {
		t.Errorf("expected 1 recorded failure, got %d", got)
	}
}

func TestExecuteManualTriggerUnknown(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	_, err := p.ExecuteManualTrigger(context.Background(), "nonexistent", nil)
	if err == nil {
		t.Fatal("expected error for unknown trigger")
	}
	if !errors.Is(err, ErrTriggerNotFound) {
		t.Errorf("expected ErrTriggerNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "nonexistent") {
		t.Errorf("error should name the trigger, got %q", err.Error())
	}
}

func TestExecuteManualTriggerDisabled(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	trig := findTrigger(t, p, TriggerOnDemandReport)
	if !p.DisableTrigger(trig.ID) {
		t.Fatal("disable should succeed")
	}

	_, err := p.ExecuteManualTrigger(context.Background(), TriggerOnDemandReport, nil)
	if !errors.Is(err, ErrTriggerDisabled) {
		t.Errorf("expected ErrTriggerDisabled, got %v", err)
	}
}

func TestExecuteManualTriggerNotRunning(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	p.Stop()

	_, err := p.ExecuteManualTrigger(context.Background(), TriggerOnDemandReport, nil)
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestExecuteManualReportTrigger(t *testing.T) {
	p, _, eventBus := newTestProcessor(t)

	msg, err := p.ExecuteManualTrigger(context.Background(), TriggerOnDemandReport, map[string]interface{}{
		"requested_by": "release-manager",
	})
	if err != nil {
		t.Fatalf("manual report trigger failed: %v", err)
	}
	if msg == "" {
		t.Error("expected a descriptive message")
	}

	requests := eventBus.byType(events.ReportRequested)
	if len(requests) != 1 {
		t.Fatalf("expected 1 report.requested event, got %d", len(requests))
	}
	if requests[0].event.Data["requested_by"] != "release-manager" {
		t.Errorf("unexpected requester: %v", requests[0].event.Data)
	}
	if got := findTrigger(t, p, TriggerOnDemandReport); got.LastExecuted == nil {
		t.Error("last_executed should be stamped on manual success")
	}
}

func TestExecuteManualTriggerRequiresAgent(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	_, err := p.ExecuteManualTrigger(context.Background(), TriggerAutoTaskReassignment, nil)
	if err == nil {
		t.Fatal("expected error without agent_id")
	}
	if !strings.Contains(err.Error(), "agent_id") {
		t.Errorf("error should name the missing parameter, got %q", err.Error())
	}

	_, err = p.ExecuteManualTrigger(context.Background(), TriggerAutoTaskReassignment, map[string]interface{}{
		"agent_id": "devops",
	})
	if err == nil {
		t.Fatal("expected error for invalid agent_id")
	}
}

func TestEnableDisable(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	if p.EnableTrigger("no-such-id") {
		t.Error("enable should fail for unknown id")
	}
	if p.DisableTrigger("no-such-id") {
		t.Error("disable should fail for unknown id")
	}

	trig := findTrigger(t, p, TriggerBlockerEscalation)
	if !p.EnableTrigger(trig.ID) {
		t.Error("enabling an enabled trigger is a no-op returning true")
	}
	if !p.DisableTrigger(trig.ID) {
		t.Error("disable should succeed")
	}
	if got := findTrigger(t, p, TriggerBlockerEscalation); got.Enabled {
		t.Error("trigger should read disabled")
	}
}

func TestTriggersReturnsCopies(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	triggers := p.Triggers()
	triggers[0].Enabled = false
	triggers[0].Name = "mutated"

	fresh := p.Triggers()
	if fresh[0].Name != TriggerAutoTaskReassignment || !fresh[0].Enabled {
		t.Error("catalog must not be affected by mutating returned copies")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	p.Start()
	p.Start()
	if !p.IsRunning() {
		t.Error("processor should be running")
	}
	p.Stop()
	p.Stop()
	if p.IsRunning() {
		t.Error("processor should be stopped")
	}
}
