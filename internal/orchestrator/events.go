package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/events/bus"
)

// publish sends an orchestrator-sourced event to the bus. Publish failures
// are logged and swallowed; event delivery is best effort.
func (s *Service) publish(ctx context.Context, eventType, subject string, data map[string]interface{}) {
	if s.eventBus == nil {
		return
	}

	event := bus.NewEvent(eventType, "orchestrator", data)
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
