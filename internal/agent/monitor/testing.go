package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"

	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
)

// testRunSummary is the shape of the test-results file the CI pipeline
// drops for the testing monitor.
type testRunSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// TestingMonitor tracks the test suite. Its probe reads the latest test-run
// summary from disk: failing tests are a clean negative, an unreadable or
// malformed summary is a probe error, and a missing file means no run has
// happened yet and counts as healthy.
type TestingMonitor struct {
	*tracker
	resultsPath string
}

// NewTestingMonitor builds the testing monitor.
func NewTestingMonitor(cfg config.MonitorsConfig, log *logger.Logger) *TestingMonitor {
	return &TestingMonitor{
		tracker: newTracker(
			v1.AgentTesting,
			[]v1.AgentID{v1.AgentBackend, v1.AgentFrontend},
			v1.BlockerTechnical,
			cfg,
			log,
		),
		resultsPath: cfg.Testing.ResultsPath,
	}
}

// CheckStatus inspects the latest test-run summary and advances tracked work.
func (m *TestingMonitor) CheckStatus(ctx context.Context) (v1.AgentStatus, error) {
	return m.observe(guardProbe(m.probeResults)(ctx)), nil
}

func (m *TestingMonitor) probeResults(ctx context.Context) probeResult {
	if m.resultsPath == "" {
		return probeResult{healthy: true}
	}

	data, err := os.ReadFile(m.resultsPath)
	if os.IsNotExist(err) {
		return probeResult{healthy: true}
	}
	if err != nil {
		return probeResult{err: fmt.Errorf("read test results %s: %w", m.resultsPath, err)}
	}

	var summary testRunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return probeResult{err: fmt.Errorf("parse test results %s: %w", m.resultsPath, err)}
	}

	if summary.Failed > 0 {
		return probeResult{detail: fmt.Sprintf("%d of %d tests failing", summary.Failed, summary.Total)}
	}
	return probeResult{healthy: true}
}
