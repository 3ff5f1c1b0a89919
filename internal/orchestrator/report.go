package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/events"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// reportLoop drives the slow reporting cycle. Unlike the status sweep it
// does not run immediately: the first report waits a full interval so the
// tables have been swept at least once.
func (s *Service) reportLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ReportingIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.refreshReport(context.Background())
		}
	}
}

// refreshReport regenerates the progress report from the current tables and
// caches it. Concurrent requests collapse into a single generation.
func (s *Service) refreshReport(ctx context.Context) v1.ProgressReport {
	generated, _, _ := s.reportGroup.Do("progress-report", func() (interface{}, error) {
		rep := s.reporter.Generate(s.GetAllStatuses(), s.GetAllMetrics())

		s.reportMu.Lock()
		s.latestReport = &rep
		s.reportMu.Unlock()

		s.publish(ctx, events.ReportGenerated, events.ReportGenerated, map[string]interface{}{
			"overall_progress": rep.OverallProgress,
			"generated_at":     rep.GeneratedAt.Format(time.RFC3339),
		})
		s.logger.Info("Progress report generated",
			zap.Float64("overall_progress", rep.OverallProgress))
		return rep, nil
	})
	return generated.(v1.ProgressReport).Clone()
}

// LatestReport returns the most recent progress report, or nil when no
// reporting cycle has completed yet.
func (s *Service) LatestReport() *v1.ProgressReport {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()

	if s.latestReport == nil {
		return nil
	}
	rep := s.latestReport.Clone()
	return &rep
}
