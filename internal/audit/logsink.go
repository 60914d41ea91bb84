package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes audit records to the process log. Useful when no database
// is configured or when log aggregation is the system of record.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging at info level.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

func (s *LogSink) Write(_ context.Context, rec Record) error {
	s.logger.Info("audit",
		zap.String("request_id", rec.RequestID),
		zap.String("method", rec.Method),
		zap.String("path", rec.Path),
		zap.String("actor", rec.Actor),
		zap.Int("status", rec.Status),
		zap.Duration("duration", rec.Duration),
		zap.Time("at", rec.At))
	return nil
}
