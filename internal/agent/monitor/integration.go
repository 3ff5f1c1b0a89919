package monitor

import (
	"context"
	"net/http"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"

	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/events/bus"
)

// IntegrationMonitor tracks third-party connectivity: the event bus the
// platform fans out on and, when configured, the partner webhook endpoint.
type IntegrationMonitor struct {
	*tracker
	eventBus bus.EventBus
	probe    probeFunc
}

// NewIntegrationMonitor builds the integration monitor.
func NewIntegrationMonitor(cfg config.MonitorsConfig, eventBus bus.EventBus, client *http.Client, log *logger.Logger) *IntegrationMonitor {
	m := &IntegrationMonitor{
		tracker: newTracker(
			v1.AgentIntegration,
			[]v1.AgentID{v1.AgentBackend},
			v1.BlockerExternal,
			cfg,
			log,
		),
		eventBus: eventBus,
	}

	webhookURL := cfg.Integration.WebhookURL
	m.probe = guardProbe(func(ctx context.Context) probeResult {
		if m.eventBus != nil && !m.eventBus.IsConnected() {
			return probeResult{detail: "event bus connection lost"}
		}
		if webhookURL != "" {
			return httpGet(ctx, client, webhookURL)
		}
		return probeResult{healthy: true}
	})
	return m
}

// CheckStatus probes external connectivity and advances tracked work.
func (m *IntegrationMonitor) CheckStatus(ctx context.Context) (v1.AgentStatus, error) {
	return m.observe(m.probe(ctx)), nil
}
