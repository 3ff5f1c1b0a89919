package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
)

const (
	// condProbe keys the blocker raised while the domain probe reports trouble
	condProbe = "probe"

	// resolutionPrefix marks a corrective task whose completion clears
	// blockers of the named type, e.g. "resolve:TECHNICAL".
	resolutionPrefix = "resolve:"

	maxErrorMessages = 10
)

// tracker is the work ledger shared by all monitor variants. It owns the
// lifecycle state, the pending queue, the single active task slot, and the
// counters behind status and metrics rows. Variants embed it and contribute
// only their probe.
type tracker struct {
	agentID     v1.AgentID
	deps        []v1.AgentID
	blockerType v1.BlockerType
	cfg         config.MonitorsConfig
	log         *logger.Logger

	mu             sync.Mutex
	state          v1.LifecycleState
	startedAt      time.Time
	stoppedAt      time.Time
	queue          *taskQueue
	active         *v1.Task
	activeProgress float64
	activeStarted  time.Time
	consecFailures int
	blockers       map[string]v1.Blocker
	completedNames []string
	completedCount int
	failedCount    int
	totalTaskTime  time.Duration
	checksTotal    int
	checksFailed   int
	lastCheck      time.Time
	lastLatency    time.Duration
	errMessages    []string
}

func newTracker(id v1.AgentID, deps []v1.AgentID, bt v1.BlockerType, cfg config.MonitorsConfig, log *logger.Logger) *tracker {
	return &tracker{
		agentID:     id,
		deps:        deps,
		blockerType: bt,
		cfg:         cfg,
		log:         log.WithAgentID(string(id)),
		state:       v1.LifecycleInitializing,
		queue:       newTaskQueue(cfg.QueueCapacity),
		blockers:    make(map[string]v1.Blocker),
	}
}

// ID returns the fixed identity this monitor reports under.
func (t *tracker) ID() v1.AgentID {
	return t.agentID
}

// Start activates the monitor. Starting a running monitor is a no-op.
func (t *tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == v1.LifecycleActive {
		return nil
	}
	if t.startedAt.IsZero() {
		t.startedAt = time.Now()
	}
	t.stoppedAt = time.Time{}
	t.state = v1.LifecycleActive
	t.log.Info("Monitor started")
	return nil
}

// Stop deactivates the monitor. Stopping a stopped monitor is a no-op.
// Counters and queued work survive a stop so a later Start resumes.
func (t *tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == v1.LifecycleStopped {
		return nil
	}
	t.state = v1.LifecycleStopped
	t.stoppedAt = time.Now()
	t.log.Info("Monitor stopped")
	return nil
}

// AssignTask queues a task. Tasks are accepted in any lifecycle state and
// wait until the monitor is active and healthy before progressing.
func (t *tracker) AssignTask(ctx context.Context, task v1.Task) error {
	if err := t.queue.enqueue(task); err != nil {
		return fmt.Errorf("assign task %q to %s: %w", task.Name, t.agentID, err)
	}
	t.log.WithTaskID(task.ID).Info("Task queued",
		zap.String("task_name", task.Name),
		zap.Int("priority", task.Priority))
	return nil
}

// Metrics returns a fresh metrics row from the ledger counters.
func (t *tracker) Metrics(ctx context.Context) (v1.AgentMetrics, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	inProgress := 0
	if t.active != nil {
		inProgress = 1
	}
	pending := t.queue.len()

	var avgTaskMs float64
	if t.completedCount > 0 {
		avgTaskMs = float64(t.totalTaskTime.Milliseconds()) / float64(t.completedCount)
	}

	successRate := 1.0
	if total := t.completedCount + t.failedCount; total > 0 {
		successRate = float64(t.completedCount) / float64(total)
	}

	// One active slot plus the queue is the monitor's whole capacity.
	utilization := float64(inProgress+pending) / float64(1+t.cfg.QueueCapacity)
	if utilization > 1 {
		utilization = 1
	}

	return v1.AgentMetrics{
		AgentID:             t.agentID,
		Timestamp:           time.Now(),
		TasksCompleted:      t.completedCount,
		TasksInProgress:     inProgress,
		TasksPending:        pending,
		AverageTaskTimeMs:   avgTaskMs,
		SuccessRate:         successRate,
		BlockerCount:        len(t.blockers),
		DependencyCount:     len(t.deps),
		ResourceUtilization: utilization,
	}, nil
}

// observe folds one probe outcome into the ledger and returns the resulting
// status row. A healthy check advances tracked work by one step; an unhealthy
// streak past the failure threshold fails the active task.
func (t *tracker) observe(res probeResult) v1.AgentStatus {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.checksTotal++
	t.lastCheck = now
	t.lastLatency = res.latency

	state := t.state
	health := v1.HealthUnknown

	if t.state == v1.LifecycleActive {
		switch {
		case res.err != nil:
			t.checksFailed++
			t.consecFailures++
			state = v1.LifecycleError
			health = v1.HealthUnhealthy
			t.recordFailureLocked("probe: "+res.err.Error(), now)
		case !res.healthy:
			t.checksFailed++
			t.consecFailures++
			health = v1.HealthUnhealthy
			detail := res.detail
			if detail == "" {
				detail = "domain reported unhealthy"
			}
			t.recordFailureLocked(detail, now)
		default:
			t.consecFailures = 0
			health = v1.HealthHealthy
			t.errMessages = nil
			delete(t.blockers, condProbe)
			t.advanceWorkLocked(now)
		}
	}

	return t.snapshotLocked(state, health, now)
}

// recordFailureLocked notes an unhealthy check: error message, probe blocker,
// and after enough consecutive failures, the active task fails.
func (t *tracker) recordFailureLocked(detail string, now time.Time) {
	t.pushErrorLocked(detail)
	if _, ok := t.blockers[condProbe]; !ok {
		t.blockers[condProbe] = v1.Blocker{
			Type:     t.blockerType,
			Detail:   detail,
			RaisedAt: now,
		}
	}

	if t.active != nil && t.consecFailures >= t.cfg.FailureThreshold {
		name := t.active.Name
		t.failedCount++
		t.active = nil
		t.activeProgress = 0
		t.pushErrorLocked(fmt.Sprintf("task %q failed after %d consecutive unhealthy checks", name, t.consecFailures))
		t.log.Warn("Active task failed",
			zap.String("task_name", name),
			zap.Int("consecutive_failures", t.consecFailures))
	}
}

// advanceWorkLocked moves tracked work forward by at most one transition:
// promote a queued task into the active slot, or step the active task and
// complete it at 100 percent.
func (t *tracker) advanceWorkLocked(now time.Time) {
	if t.active == nil {
		task, ok := t.queue.dequeue()
		if !ok {
			return
		}
		t.active = &task
		t.activeProgress = 0
		t.activeStarted = now
		t.log.WithTaskID(task.ID).Info("Task started", zap.String("task_name", task.Name))
		return
	}

	t.activeProgress += t.cfg.ProgressStep
	if t.activeProgress < 100 {
		return
	}

	task := *t.active
	t.completedNames = append(t.completedNames, task.Name)
	t.completedCount++
	t.totalTaskTime += now.Sub(t.activeStarted)
	t.active = nil
	t.activeProgress = 0

	if bt, ok := resolutionTarget(task.Name); ok {
		t.clearOldestBlockerLocked(bt)
	}
	t.log.WithTaskID(task.ID).Info("Task completed", zap.String("task_name", task.Name))
}

// setCondition raises or clears a variant-specific blocker keyed by cond.
// Raising an already-raised condition keeps its original timestamp.
func (t *tracker) setCondition(cond string, bt v1.BlockerType, active bool, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !active {
		delete(t.blockers, cond)
		return
	}
	if existing, ok := t.blockers[cond]; ok {
		existing.Detail = detail
		t.blockers[cond] = existing
		return
	}
	t.blockers[cond] = v1.Blocker{
		Type:     bt,
		Detail:   detail,
		RaisedAt: time.Now(),
	}
}

// clearOldestBlockerLocked removes the earliest-raised blocker of the given
// type. A resolution task settles one blocker; later ones of the same type
// need their own resolution.
func (t *tracker) clearOldestBlockerLocked(bt v1.BlockerType) {
	var oldest string
	var oldestAt time.Time
	for cond, b := range t.blockers {
		if b.Type != bt {
			continue
		}
		if oldest == "" || b.RaisedAt.Before(oldestAt) {
			oldest, oldestAt = cond, b.RaisedAt
		}
	}
	if oldest != "" {
		delete(t.blockers, oldest)
	}
}

func (t *tracker) pushErrorLocked(msg string) {
	t.errMessages = append(t.errMessages, msg)
	if len(t.errMessages) > maxErrorMessages {
		t.errMessages = t.errMessages[len(t.errMessages)-maxErrorMessages:]
	}
}

// snapshotLocked builds a status row from the ledger. All slices are copies
// so callers can hold rows across sweeps.
func (t *tracker) snapshotLocked(state v1.LifecycleState, health v1.HealthState, now time.Time) v1.AgentStatus {
	blockers := make([]v1.Blocker, 0, len(t.blockers))
	for _, b := range t.blockers {
		blockers = append(blockers, b)
	}
	sort.Slice(blockers, func(i, j int) bool {
		if !blockers[i].RaisedAt.Equal(blockers[j].RaisedAt) {
			return blockers[i].RaisedAt.Before(blockers[j].RaisedAt)
		}
		return blockers[i].Detail < blockers[j].Detail
	})

	pending := t.queue.list()
	pendingNames := make([]string, len(pending))
	for i, task := range pending {
		pendingNames[i] = task.Name
	}

	activeTask := ""
	progress := 0.0
	if t.active != nil {
		activeTask = t.active.Name
		progress = t.activeProgress
	}

	return v1.AgentStatus{
		AgentID:         t.agentID,
		State:           state,
		Health:          health,
		LastCheck:       now,
		ActiveTask:      activeTask,
		ProgressPercent: progress,
		Blockers:        blockers,
		Dependencies:    append([]v1.AgentID(nil), t.deps...),
		CompletedTasks:  append([]string(nil), t.completedNames...),
		PendingTasks:    pendingNames,
		ErrorMessages:   append([]string(nil), t.errMessages...),
		Performance:     t.performanceLocked(now),
	}
}

func (t *tracker) performanceLocked(now time.Time) v1.PerformanceStats {
	var uptime time.Duration
	if !t.startedAt.IsZero() {
		end := now
		if !t.stoppedAt.IsZero() {
			end = t.stoppedAt
		}
		uptime = end.Sub(t.startedAt)
	}

	var throughput float64
	if hours := uptime.Hours(); hours > 0 {
		throughput = float64(t.completedCount) / hours
	}

	var errorRate float64
	if t.checksTotal > 0 {
		errorRate = float64(t.checksFailed) / float64(t.checksTotal)
	}

	return v1.PerformanceStats{
		ResponseTimeMs: float64(t.lastLatency) / float64(time.Millisecond),
		Throughput:     throughput,
		ErrorRate:      errorRate,
		UptimeSeconds:  uptime.Seconds(),
	}
}

// resolutionTarget parses a corrective task name of the form
// "resolve:<TYPE>" into the blocker type it clears.
func resolutionTarget(name string) (v1.BlockerType, bool) {
	if !strings.HasPrefix(name, resolutionPrefix) {
		return "", false
	}
	bt := v1.BlockerType(strings.TrimPrefix(name, resolutionPrefix))
	switch bt {
	case v1.BlockerDependency, v1.BlockerResource, v1.BlockerTechnical, v1.BlockerExternal:
		return bt, true
	}
	return "", false
}
