package monitor

import (
	"context"
	"net/http"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"

	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
)

// BackendMonitor tracks the casting platform's API service. Its probe hits
// the service health endpoint; without a configured endpoint it runs in
// tracking-only mode.
type BackendMonitor struct {
	*tracker
	probe probeFunc
}

// NewBackendMonitor builds the backend monitor.
func NewBackendMonitor(cfg config.MonitorsConfig, client *http.Client, log *logger.Logger) *BackendMonitor {
	m := &BackendMonitor{
		tracker: newTracker(
			v1.AgentBackend,
			[]v1.AgentID{v1.AgentInfrastructure},
			v1.BlockerTechnical,
			cfg,
			log,
		),
		probe: probeAlwaysHealthy,
	}
	if url := cfg.Backend.HealthURL; url != "" {
		m.probe = guardProbe(func(ctx context.Context) probeResult {
			return httpGet(ctx, client, url)
		})
	}
	return m
}

// CheckStatus probes the API health endpoint and advances tracked work.
func (m *BackendMonitor) CheckStatus(ctx context.Context) (v1.AgentStatus, error) {
	return m.observe(m.probe(ctx)), nil
}
