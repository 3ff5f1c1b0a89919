// Package monitor provides the capability contract for tracked development
// domains and its six concrete implementations (backend, frontend, ai-ml,
// integration, infrastructure, testing). Each monitor couples an in-memory
// work tracker with a domain probe; from the orchestrator's perspective the
// variants are fully interchangeable.
package monitor

import (
	"context"
	"errors"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

var (
	// ErrQueueFull is returned when a monitor's pending queue is at capacity
	ErrQueueFull = errors.New("task queue is full")
	// ErrTaskExists is returned when a task id is already queued
	ErrTaskExists = errors.New("task already exists in queue")
)

// Monitor is the contract the orchestrator relies on. CheckStatus must not
// fail in a conforming implementation: probe failures fold into the returned
// row so one agent's trouble stays in that agent's row.
type Monitor interface {
	// ID returns the fixed identity this monitor reports under.
	ID() v1.AgentID

	// Start activates the monitor. Calling Start on a running monitor is a no-op.
	Start(ctx context.Context) error

	// Stop deactivates the monitor. Calling Stop on a stopped monitor is a no-op.
	Stop(ctx context.Context) error

	// CheckStatus runs the domain probe, advances tracked work, and returns
	// a fresh status row.
	CheckStatus(ctx context.Context) (v1.AgentStatus, error)

	// Metrics returns a fresh metrics row without running the probe.
	Metrics(ctx context.Context) (v1.AgentMetrics, error)

	// AssignTask hands a task to the monitor. Ownership transfers on success.
	AssignTask(ctx context.Context, task v1.Task) error
}
