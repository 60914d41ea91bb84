package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingStage logs request start and completion with correlation context.
type LoggingStage struct {
	logger *zap.Logger
}

// NewLoggingStage creates the request-logging stage.
func NewLoggingStage(logger *zap.Logger) *LoggingStage {
	return &LoggingStage{logger: logger.Named("http")}
}

func (s *LoggingStage) Name() string { return "logging" }

func (s *LoggingStage) OnRequest(c *Context, r *http.Request) *Response {
	s.logger.Debug("request started",
		zap.String("request_id", c.RequestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()))
	return nil
}

func (s *LoggingStage) OnResponse(c *Context, resp *Response) {
	status := resp.Status()
	fields := []zap.Field{
		zap.String("request_id", c.RequestID),
		zap.String("method", c.Method),
		zap.String("path", c.Path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(c.Start)),
	}
	switch {
	case status >= 500:
		s.logger.Error("request completed", fields...)
	case status >= 400:
		s.logger.Warn("request completed", fields...)
	default:
		s.logger.Info("request completed", fields...)
	}
}
