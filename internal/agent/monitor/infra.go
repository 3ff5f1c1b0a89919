package monitor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"

	"github.com/aditya1513/casting-ai-sub015/internal/agent/docker"
	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/database"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
)

// InfrastructureMonitor tracks the platform substrate: the Postgres pool and
// the Docker daemon. Both handles are optional; a failed ping is a clean
// negative because the probe target here is the infrastructure itself.
// Infrastructure is the root of the dependency graph and depends on nothing.
type InfrastructureMonitor struct {
	*tracker
	db     *database.DB
	docker *docker.Client
}

// NewInfrastructureMonitor builds the infrastructure monitor.
func NewInfrastructureMonitor(cfg config.MonitorsConfig, db *database.DB, dockerClient *docker.Client, log *logger.Logger) *InfrastructureMonitor {
	return &InfrastructureMonitor{
		tracker: newTracker(
			v1.AgentInfrastructure,
			nil,
			v1.BlockerResource,
			cfg,
			log,
		),
		db:     db,
		docker: dockerClient,
	}
}

// CheckStatus pings the database and the Docker daemon, then advances
// tracked work.
func (m *InfrastructureMonitor) CheckStatus(ctx context.Context) (v1.AgentStatus, error) {
	return m.observe(guardProbe(m.probeSubstrate)(ctx)), nil
}

func (m *InfrastructureMonitor) probeSubstrate(ctx context.Context) probeResult {
	if m.db != nil {
		if err := m.db.Ping(ctx); err != nil {
			return probeResult{detail: fmt.Sprintf("database ping failed: %v", err)}
		}
		stat := m.db.Stat()
		if stat != nil && stat.MaxConns() > 0 && stat.AcquiredConns() == stat.MaxConns() {
			return probeResult{detail: fmt.Sprintf("database pool exhausted: %d/%d connections in use", stat.AcquiredConns(), stat.MaxConns())}
		}
	}

	if m.docker != nil {
		if err := m.docker.Ping(ctx); err != nil {
			return probeResult{detail: fmt.Sprintf("docker ping failed: %v", err)}
		}
		running, err := m.docker.RunningContainers(ctx)
		if err != nil {
			return probeResult{detail: fmt.Sprintf("docker container list failed: %v", err)}
		}
		m.log.Debug("Docker containers running", zap.Int("count", running))
	}

	return probeResult{healthy: true}
}
