// Package watcher subscribes to orchestration events and fans them out to
// typed handlers. It decouples the sweep (which publishes row transitions)
// from the remediation that reacts to them: handlers run in bus-delivery
// goroutines, never on the sweep path.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/events"
	"github.com/aditya1513/casting-ai-sub015/internal/events/bus"
)

// HealthChangeData describes one agent's health transition.
type HealthChangeData struct {
	AgentID   string `json:"agent_id"`
	OldHealth string `json:"old_health"`
	NewHealth string `json:"new_health"`
}

// TaskFailureData describes one failed task.
type TaskFailureData struct {
	AgentID  string `json:"agent_id"`
	TaskName string `json:"task_name"`
	Error    string `json:"error"`
}

// BlockerData describes one newly detected blocker.
type BlockerData struct {
	AgentID     string    `json:"agent_id"`
	BlockerType string    `json:"blocker_type"`
	Detail      string    `json:"detail"`
	RaisedAt    time.Time `json:"raised_at"`
}

// ReportRequestData describes an on-demand report request.
type ReportRequestData struct {
	RequestedBy string `json:"requested_by"`
}

// EventHandlers holds the callbacks the watcher routes events to.
// A nil handler means that event family is not subscribed.
type EventHandlers struct {
	OnHealthChanged   func(ctx context.Context, data HealthChangeData)
	OnTaskFailed      func(ctx context.Context, data TaskFailureData)
	OnBlockerDetected func(ctx context.Context, data BlockerData)
	OnReportRequested func(ctx context.Context, data ReportRequestData)
}

// Watcher owns the bus subscriptions behind one EventHandlers set.
type Watcher struct {
	eventBus bus.EventBus
	handlers EventHandlers
	logger   *logger.Logger

	mu            sync.Mutex
	subscriptions []bus.Subscription
	running       bool
}

// NewWatcher creates a watcher. Subscriptions are not established until Start.
func NewWatcher(eventBus bus.EventBus, handlers EventHandlers, log *logger.Logger) *Watcher {
	return &Watcher{
		eventBus: eventBus,
		handlers: handlers,
		logger:   log.WithFields(zap.String("component", "event-watcher")),
	}
}

// Start subscribes to the event families with non-nil handlers. Starting a
// running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	type subscription struct {
		subject string
		handler bus.EventHandler
	}
	var wanted []subscription
	if w.handlers.OnHealthChanged != nil {
		wanted = append(wanted, subscription{
			subject: events.BuildAgentHealthWildcardSubject(),
			handler: w.handleHealthChanged,
		})
	}
	if w.handlers.OnTaskFailed != nil {
		wanted = append(wanted, subscription{
			subject: events.BuildTaskFailedWildcardSubject(),
			handler: w.handleTaskFailed,
		})
	}
	if w.handlers.OnBlockerDetected != nil {
		wanted = append(wanted, subscription{
			subject: events.BuildBlockerDetectedWildcardSubject(),
			handler: w.handleBlockerDetected,
		})
	}
	if w.handlers.OnReportRequested != nil {
		wanted = append(wanted, subscription{
			subject: events.ReportRequested,
			handler: w.handleReportRequested,
		})
	}

	for _, sub := range wanted {
		s, err := w.eventBus.Subscribe(sub.subject, sub.handler)
		if err != nil {
			w.unsubscribeAllLocked()
			return fmt.Errorf("subscribe %s: %w", sub.subject, err)
		}
		w.subscriptions = append(w.subscriptions, s)
	}

	w.running = true
	w.logger.Info("Event watcher started", zap.Int("subscriptions", len(w.subscriptions)))
	return nil
}

// Stop drops all subscriptions. Stopping a stopped watcher is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.unsubscribeAllLocked()
	w.running = false
	w.logger.Info("Event watcher stopped")
	return nil
}

// IsRunning reports whether the watcher holds active subscriptions.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) unsubscribeAllLocked() {
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Warn("Failed to unsubscribe", zap.Error(err))
		}
	}
	w.subscriptions = nil
}

func (w *Watcher) handleHealthChanged(ctx context.Context, event *bus.Event) error {
	var data HealthChangeData
	if err := parseEventData(event, &data); err != nil {
		w.logger.Error("Failed to parse health change event", zap.Error(err))
		return err
	}
	w.handlers.OnHealthChanged(ctx, data)
	return nil
}

func (w *Watcher) handleTaskFailed(ctx context.Context, event *bus.Event) error {
	var data TaskFailureData
	if err := parseEventData(event, &data); err != nil {
		w.logger.Error("Failed to parse task failure event", zap.Error(err))
		return err
	}
	w.handlers.OnTaskFailed(ctx, data)
	return nil
}

func (w *Watcher) handleBlockerDetected(ctx context.Context, event *bus.Event) error {
	var data BlockerData
	if err := parseEventData(event, &data); err != nil {
		w.logger.Error("Failed to parse blocker event", zap.Error(err))
		return err
	}
	w.handlers.OnBlockerDetected(ctx, data)
	return nil
}

func (w *Watcher) handleReportRequested(ctx context.Context, event *bus.Event) error {
	var data ReportRequestData
	if err := parseEventData(event, &data); err != nil {
		w.logger.Error("Failed to parse report request event", zap.Error(err))
		return err
	}
	w.handlers.OnReportRequested(ctx, data)
	return nil
}

// parseEventData converts the event's loosely typed data map into a typed
// struct via a JSON round trip.
func parseEventData(event *bus.Event, target interface{}) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("unmarshal event data: %w", err)
	}
	return nil
}
