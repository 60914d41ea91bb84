// Package server assembles the HTTP surface: router, middleware pipeline,
// metrics and the endpoint handlers.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/svckit/svckit/internal/audit"
	"github.com/svckit/svckit/internal/config"
	"github.com/svckit/svckit/internal/ratelimit"
	servermw "github.com/svckit/svckit/internal/server/middleware"
	"github.com/svckit/svckit/internal/store"
)

// Server is the assembled HTTP server.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	router   *chi.Mux
	server   *http.Server
	store    *store.Store
	recorder *audit.Recorder
	metrics  *Metrics
	redisCli *redis.Client
}

// New wires the router, the middleware pipeline and all endpoints from
// configuration. The store and recorder are owned by the caller; the server
// only borrows them.
func New(cfg *config.Config, logger *zap.Logger, st *store.Store, recorder *audit.Recorder) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		store:    st,
		recorder: recorder,
	}

	s.router.Use(chimw.RealIP)
	if cfg.Metrics.Enabled {
		s.metrics = NewMetrics()
		s.router.Use(s.metrics.Middleware)
	}
	if cfg.Middleware.Gzip.Enabled {
		s.router.Use(chimw.Compress(cfg.Middleware.Gzip.Level))
	}

	pipeline, err := s.buildPipeline(recorder)
	if err != nil {
		return nil, err
	}
	s.router.Use(pipeline.Then)

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "The requested resource was not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "The requested method is not allowed for this resource")
	})

	s.registerRoutes()
	return s, nil
}

// buildPipeline assembles the stage list from the per-stage enabled flags.
// Registration order is inbound order; the unwind reverses it.
func (s *Server) buildPipeline(recorder *audit.Recorder) (*servermw.Pipeline, error) {
	mw := s.cfg.Middleware
	secret := []byte(s.cfg.Auth.Secret)

	var stages []servermw.Stage
	if mw.RequestID.Enabled {
		stages = append(stages, servermw.RequestIDStage{})
	}
	if mw.TrustedHost.Enabled {
		stages = append(stages, servermw.NewTrustedHostStage(mw.TrustedHost.Allowed))
	}
	if mw.Security.Enabled {
		stages = append(stages, servermw.NewSecurityHeadersStage(mw.Security))
	}
	if mw.CORS.Enabled {
		stages = append(stages, servermw.NewCORSStage(mw.CORS))
	}
	if mw.Timing.Enabled {
		stages = append(stages, servermw.TimingStage{})
	}
	if mw.Logging.Enabled {
		stages = append(stages, servermw.NewLoggingStage(s.logger))
	}
	if mw.Audit.Enabled && recorder != nil {
		stages = append(stages, servermw.NewAuditStage(recorder, mw.Audit.Methods, mw.Audit.ExcludePaths, secret))
	}
	if mw.RateLimit.Enabled {
		limiter, err := s.buildLimiter(mw.RateLimit)
		if err != nil {
			return nil, err
		}
		limits := ratelimit.Limits{PerMinute: mw.RateLimit.PerMinute, PerHour: mw.RateLimit.PerHour}
		keyFn := servermw.DefaultClientKey(secret, mw.RateLimit.TrustForwardedFor)
		skip := []string{"/health", "/metrics", "/version"}
		stages = append(stages, servermw.NewRateLimitStage(limiter, limits, keyFn, skip, s.logger))
	}

	return servermw.New(s.logger, stages...), nil
}

// buildLimiter selects the counter store. Memory is per-process; redis
// shares counters across replicas.
func (s *Server) buildLimiter(cfg config.RateLimitConfig) (ratelimit.Limiter, error) {
	limits := ratelimit.Limits{PerMinute: cfg.PerMinute, PerHour: cfg.PerHour}
	switch cfg.Store {
	case "redis":
		s.redisCli = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return ratelimit.NewRedis(s.redisCli, limits), nil
	default:
		return ratelimit.NewMemory(limits), nil
	}
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting http server", zap.String("addr", s.cfg.Server.Addr()))
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and releases the redis client if one
// was opened for rate limiting.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.redisCli != nil {
		if cerr := s.redisCli.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"detail": "` + detail + `"}` + "\n"))
}
