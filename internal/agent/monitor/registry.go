package monitor

import (
	"net/http"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"

	"github.com/aditya1513/casting-ai-sub015/internal/agent/docker"
	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/database"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/events/bus"
)

// Deps carries the shared handles the monitors probe with. Any of them may
// be nil; the affected probes then skip that inspection.
type Deps struct {
	Bus    bus.EventBus
	DB     *database.DB
	Docker *docker.Client
}

// BuildAll constructs the full set of six monitors keyed by agent id. The
// orchestrator takes this map as its injected monitor set.
func BuildAll(cfg config.MonitorsConfig, deps Deps, log *logger.Logger) map[v1.AgentID]Monitor {
	client := &http.Client{Timeout: cfg.ProbeTimeoutDuration()}

	return map[v1.AgentID]Monitor{
		v1.AgentBackend:        NewBackendMonitor(cfg, client, log),
		v1.AgentFrontend:       NewFrontendMonitor(cfg, client, log),
		v1.AgentAIML:           NewAIMLMonitor(cfg, client, log),
		v1.AgentIntegration:    NewIntegrationMonitor(cfg, deps.Bus, client, log),
		v1.AgentInfrastructure: NewInfrastructureMonitor(cfg, deps.DB, deps.Docker, log),
		v1.AgentTesting:        NewTestingMonitor(cfg, log),
	}
}
