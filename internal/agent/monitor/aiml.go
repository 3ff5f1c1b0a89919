package monitor

import (
	"context"
	"fmt"
	"net/http"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"

	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
)

// condLatency keys the RESOURCE blocker raised while inference latency sits
// above the configured threshold.
const condLatency = "inference-latency"

// AIMLMonitor tracks the talent-matching model service. Besides plain
// reachability it watches inference latency: a healthy but slow endpoint
// keeps the agent HEALTHY and raises a RESOURCE blocker instead.
type AIMLMonitor struct {
	*tracker
	probe     probeFunc
	threshold config.AIMLMonitorConfig
}

// NewAIMLMonitor builds the ai-ml monitor.
func NewAIMLMonitor(cfg config.MonitorsConfig, client *http.Client, log *logger.Logger) *AIMLMonitor {
	m := &AIMLMonitor{
		tracker: newTracker(
			v1.AgentAIML,
			[]v1.AgentID{v1.AgentInfrastructure},
			v1.BlockerTechnical,
			cfg,
			log,
		),
		probe:     probeAlwaysHealthy,
		threshold: cfg.AIML,
	}
	if url := cfg.AIML.InferenceURL; url != "" {
		m.probe = guardProbe(func(ctx context.Context) probeResult {
			return httpGet(ctx, client, url)
		})
	}
	return m
}

// CheckStatus probes the inference endpoint, maintains the latency blocker,
// and advances tracked work.
func (m *AIMLMonitor) CheckStatus(ctx context.Context) (v1.AgentStatus, error) {
	res := m.probe(ctx)

	limit := m.threshold.LatencyThresholdDuration()
	slow := res.healthy && limit > 0 && res.latency > limit
	m.setCondition(condLatency, v1.BlockerResource, slow,
		fmt.Sprintf("inference latency %v above threshold %v", res.latency, limit))

	return m.observe(res), nil
}
