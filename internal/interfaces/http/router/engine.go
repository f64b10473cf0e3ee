package router

import (
	"github.com/erp/poimport/internal/infrastructure/logger"
	"github.com/erp/poimport/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineConfig selects the middleware of the HTTP engine
type EngineConfig struct {
	ServiceName    string
	Release        bool
	TrustedProxies []string
	CORSOrigins    []string
	TracingEnabled bool
	TracerProvider trace.TracerProvider
	// Meter records HTTP metrics when non-nil
	Meter metric.Meter
	// ProfilingEnabled labels profiles with the matched route
	ProfilingEnabled bool
}

// NewEngine builds a gin engine with the global middleware stack, in order:
// request ID, recovery, access log, tracing, metrics, profiling labels,
// security headers, CORS.
func NewEngine(cfg EngineConfig, log *zap.Logger) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	tracing := middleware.DefaultTracingConfig()
	tracing.Enabled = cfg.TracingEnabled
	tracing.TracerProvider = cfg.TracerProvider
	if cfg.ServiceName != "" {
		tracing.ServiceName = cfg.ServiceName
	}

	profiling := middleware.DefaultProfilingConfig()
	profiling.Enabled = cfg.ProfilingEnabled

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSOrigins

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(tracing),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.ProfilingWithConfig(profiling),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
	)
	return engine
}
